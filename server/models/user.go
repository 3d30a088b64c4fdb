package models

import (
	"fmt"
	"time"

	"github.com/suraksha-app/suraksha/server/auth"
)

var allFieldsExceptPassword = []string{
	"id",
	"name",
	"email",
	"phone_number",
	"last_latitude",
	"last_longitude",
	"last_seen_at",
	"created_at",
	"updated_at",
}

type User struct {
	BaseModel
	Name        string `json:"name" validate:"required"`
	Email       string `json:"email" validate:"required,email" gorm:"not null;unique"`
	Password    string `json:"password,omitempty" validate:"required,password" gorm:"not null"`
	PhoneNumber string `json:"phone,omitempty"`

	// Last known location, overwritten on every live-location update
	LastLatitude  *float64   `json:"last_latitude,omitempty"`
	LastLongitude *float64   `json:"last_longitude,omitempty"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`

	Contacts []Contact `json:"contacts,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Alerts   []Alert   `json:"alerts,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func CreateUser(user *User) error {
	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = passwordHash

	return db.Create(user).Error
}

func FindUserBy(field string, value interface{}) (*User, error) {
	user := User{}
	err := db.Select(allFieldsExceptPassword).First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func FindUserPassword(email string) (string, error) {
	user := &User{}
	err := db.Select("Password").First(user, "email = ?", email).Error
	if err != nil {
		return "", err
	}

	return user.Password, nil
}

func EmailTaken(email string) (bool, error) {
	res := db.Select("id").Limit(1).Find(&[]User{}, "email = ?", email)
	if res.Error != nil {
		return false, res.Error
	}

	return res.RowsAffected > 0, nil
}

// UpdateLastLocation overwrites the user's last known location with a fresh
// timestamp. Unknown users are skipped silently.
func UpdateLastLocation(userID string, lat, lon float64) error {
	now := time.Now()
	res := db.Model(&User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"last_latitude":  lat,
		"last_longitude": lon,
		"last_seen_at":   now,
	})

	return res.Error
}
