// Package accounts implements user registration, login and the emergency
// contact book.
package accounts

import (
	"errors"
	"strings"

	"github.com/suraksha-app/suraksha/server/apperrors"
	"github.com/suraksha-app/suraksha/server/auth"
	"github.com/suraksha-app/suraksha/server/models"
	"gorm.io/gorm"
)

// UserProjection is the public-safe view of a user record. The password hash
// never leaves this package.
type UserProjection struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

func projection(user *models.User) *UserProjection {
	return &UserProjection{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Phone: user.PhoneNumber,
	}
}

// Register creates a new user with a hashed password & returns the public
// projection without the phone number, matching what signup echoes back.
func Register(name, email, password, phone string) (*UserProjection, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.NewValidationError("name, email & password are required")
	}

	taken, err := models.EmailTaken(email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperrors.ErrDuplicateEmail
	}

	user := models.User{
		Name:        name,
		Email:       email,
		Password:    password,
		PhoneNumber: phone,
	}
	if err := models.CreateUser(&user); err != nil {
		// A concurrent signup can slip past the EmailTaken pre-check and
		// land on the unique index instead
		if isDuplicateEmail(err) {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, err
	}

	return &UserProjection{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}

func isDuplicateEmail(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: users.email")
}

// Authenticate verifies the email/password pair. Unknown emails and hash
// mismatches both come back as ErrInvalidCredentials.
func Authenticate(email, password string) (*UserProjection, error) {
	passwordHash, err := models.FindUserPassword(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !auth.CheckPasswordHash(password, passwordHash) {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := models.FindUserBy("email", email)
	if err != nil {
		return nil, err
	}

	return projection(user), nil
}

// ReplaceContacts swaps the user's entire contact list for the one provided.
// Callers resend the complete desired list on every save; ids are reassigned
// each time.
func ReplaceContacts(userID string, contacts []models.Contact) error {
	if strings.TrimSpace(userID) == "" || contacts == nil {
		return apperrors.NewValidationError("userId & a contact list are required")
	}

	return models.ReplaceContacts(userID, contacts)
}

// ListContacts never fails for unknown users, it just returns an empty list.
func ListContacts(userID string) ([]models.Contact, error) {
	return models.ContactsFor(userID)
}

// UpdateLastLocation records the user's most recent position. An unknown
// userID is a silent no-op, mirroring how live tracking treats stale sessions.
func UpdateLastLocation(userID string, lat, lon float64) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.NewValidationError("userId is required")
	}

	return models.UpdateLastLocation(userID, lat, lon)
}

// FindUser returns the public projection for a user id.
func FindUser(userID string) (*UserProjection, error) {
	user, err := models.FindUserBy("id", userID)
	if err != nil {
		return nil, err
	}

	return projection(user), nil
}
