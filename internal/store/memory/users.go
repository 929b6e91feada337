package memory

import (
	"context"
	"time"

	"GreenCampusServer/internal/domain"

	"github.com/google/uuid"
)

func (s *Store) CreateUser(_ context.Context, nu domain.NewUser) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.st.users {
		if u.StudentID == nu.StudentID {
			return domain.User{}, domain.ErrStudentIDTaken
		}
		if u.Email == nu.Email {
			return domain.User{}, domain.ErrEmailTaken
		}
	}

	now := s.now().UTC()
	u := domain.User{
		ID:          uuid.NewString(),
		Email:       nu.Email,
		Username:    nu.StudentID,
		StudentID:   nu.StudentID,
		DisplayName: nu.DisplayName,
		Department:  nu.Department,
		Batch:       nu.Batch,
		Phone:       nu.Phone,
		Status:      domain.UserStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.st.users[u.ID] = userRow{User: u, PasswordHash: nu.PasswordHash}
	return u, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.st.users[id]
	if !ok {
		return domain.User{}, domain.ErrNotFound
	}
	return u.User, nil
}

func (s *Store) GetUserByLogin(_ context.Context, login string) (domain.UserWithPassword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.st.users {
		if u.Username == login || u.StudentID == login || u.Email == login {
			return domain.UserWithPassword{User: u.User, PasswordHash: u.PasswordHash}, nil
		}
	}
	return domain.UserWithPassword{}, domain.ErrNotFound
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (domain.UserWithPassword, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.st.users {
		if u.Email == email {
			return domain.UserWithPassword{User: u.User, PasswordHash: u.PasswordHash}, nil
		}
	}
	return domain.UserWithPassword{}, domain.ErrNotFound
}

func (s *Store) SetLastLogin(_ context.Context, userID string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.st.users[userID]
	if !ok {
		return domain.ErrNotFound
	}
	w := when
	u.LastLoginAt = &w
	u.UpdatedAt = s.now().UTC()
	s.st.users[userID] = u
	return nil
}

func (s *Store) CreateSession(_ context.Context, userID string, expiresAt time.Time, _, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := domain.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: s.now().UTC(),
		ExpiresAt: expiresAt,
	}
	s.st.sessions[sess.ID] = sess
	return sess.ID, nil
}

func (s *Store) GetSession(_ context.Context, sessionID string) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.st.sessions[sessionID]
	if !ok || sess.RevokedAt != nil || !sess.ExpiresAt.After(s.now()) {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (s *Store) RevokeSession(_ context.Context, sessionID string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.st.sessions[sessionID]
	if !ok || sess.RevokedAt != nil {
		return nil
	}
	w := when
	sess.RevokedAt = &w
	s.st.sessions[sessionID] = sess
	return nil
}
