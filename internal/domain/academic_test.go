package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchChoices(t *testing.T) {
	now := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	got := BatchChoices(now)

	require.Len(t, got, (2026-FirstBatchYear+1)*3)
	assert.Equal(t, []string{"Fall 2026", "Summer 2026", "Spring 2026", "Fall 2025"}, got[:4])
	assert.Equal(t, "Spring 2003", got[len(got)-1])

	assert.True(t, IsBatch("Summer 2010", now))
	assert.False(t, IsBatch("Fall 2002", now))
	assert.False(t, IsBatch("Fall 2027", now))
}

func TestDefaultBatch(t *testing.T) {
	tests := []struct {
		month time.Month
		want  string
	}{
		{time.January, "Spring 2025"},
		{time.April, "Spring 2025"},
		{time.May, "Summer 2025"},
		{time.August, "Summer 2025"},
		{time.September, "Fall 2025"},
		{time.December, "Fall 2025"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultBatch(time.Date(2025, tt.month, 15, 0, 0, 0, 0, time.UTC)), tt.month.String())
	}
}

func TestEmailPattern(t *testing.T) {
	p := EmailPattern("")
	assert.True(t, p.MatchString("221902001@green.edu.bd"))
	assert.True(t, p.MatchString("221902001@student.green.edu.bd"))
	assert.False(t, p.MatchString("22190200@green.edu.bd"))
	assert.False(t, p.MatchString("221902001@greenXedu.bd"))
	assert.False(t, p.MatchString("221902001@staff.green.edu.bd"))

	assert.True(t, EmailPattern("uni.example").MatchString("123456789@student.uni.example"))
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("01712345678"))
	assert.True(t, ValidPhone("+8801712345678"))
	assert.False(t, ValidPhone("12345"))
}

func TestValidateRegistration(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	ok := NewUser{
		Email:      "221902001@student.green.edu.bd",
		StudentID:  "221902001",
		Department: "CSE",
		Batch:      "Spring 2025",
	}
	require.NoError(t, ValidateRegistration(ok, "password", "", now))

	bad := ok
	bad.StudentID = "2219"
	bad.Department = "MAGIC"
	err := ValidateRegistration(bad, "pw", "", now)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, ve.Fields, "student_id")
	assert.Contains(t, ve.Fields, "department")
	assert.Contains(t, ve.Fields, "password")
	assert.NotContains(t, ve.Fields, "email")
}
