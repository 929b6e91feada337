package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// FirstBatchYear is the oldest intake year offered in batch choices.
const FirstBatchYear = 2003

const DefaultEmailDomain = "green.edu.bd"

var Departments = []string{"CSE", "EEE", "CE", "ME", "BBA", "ENG", "LAW", "ARCH", "PHARM", "TEX"}

var Semesters = []string{"Fall", "Summer", "Spring"}

var (
	studentIDPattern = regexp.MustCompile(`^\d{9}$`)
	phonePattern     = regexp.MustCompile(`^\+?880\d{10}$|^\d{11}$`)
)

func IsDepartment(code string) bool {
	for _, d := range Departments {
		if d == code {
			return true
		}
	}
	return false
}

// BatchChoices lists "<Semester> <Year>" labels from next year back to
// FirstBatchYear, newest first.
func BatchChoices(now time.Time) []string {
	last := now.Year() + 1
	out := make([]string, 0, (last-FirstBatchYear+1)*len(Semesters))
	for y := last; y >= FirstBatchYear; y-- {
		for _, s := range Semesters {
			out = append(out, fmt.Sprintf("%s %d", s, y))
		}
	}
	return out
}

func IsBatch(batch string, now time.Time) bool {
	for _, b := range BatchChoices(now) {
		if b == batch {
			return true
		}
	}
	return false
}

func DefaultSemester(now time.Time) string {
	switch m := now.Month(); {
	case m <= time.April:
		return "Spring"
	case m <= time.August:
		return "Summer"
	default:
		return "Fall"
	}
}

// DefaultBatch is the batch a student enrolling at now would join.
func DefaultBatch(now time.Time) string {
	return fmt.Sprintf("%s %d", DefaultSemester(now), now.Year())
}

func ValidStudentID(id string) bool {
	return studentIDPattern.MatchString(id)
}

func ValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// EmailPattern matches institutional addresses for domain, optionally under
// its student. subdomain.
func EmailPattern(domain string) *regexp.Regexp {
	if domain == "" {
		domain = DefaultEmailDomain
	}
	return regexp.MustCompile(`^\d{9}@(student\.)?` + regexp.QuoteMeta(domain) + `$`)
}

// ValidateRegistration checks the registration fields against the
// institutional rules and returns a ValidationError listing every failure.
func ValidateRegistration(u NewUser, password, emailDomain string, now time.Time) error {
	fields := map[string]string{}

	if !ValidStudentID(u.StudentID) {
		fields["student_id"] = "must be exactly 9 digits"
	}
	if u.Email == "" {
		fields["email"] = "required"
	} else if !EmailPattern(emailDomain).MatchString(u.Email) {
		fields["email"] = "must be an institutional address"
	} else if ValidStudentID(u.StudentID) && !strings.HasPrefix(u.Email, u.StudentID+"@") {
		fields["email"] = "must start with your student id"
	}
	if !IsDepartment(u.Department) {
		fields["department"] = "unknown department"
	}
	if !IsBatch(u.Batch, now) {
		fields["batch"] = "unknown batch"
	}
	if u.Phone != "" && !ValidPhone(u.Phone) {
		fields["phone"] = "invalid phone number"
	}
	if len(password) < 8 {
		fields["password"] = "must be at least 8 characters"
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}
