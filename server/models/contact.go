package models

import "gorm.io/gorm"

type Contact struct {
	BaseModel
	UserID      string `json:"user_id" gorm:"not null;index"`
	Name        string `json:"name" validate:"required"`
	PhoneNumber string `json:"phone" validate:"required,phone_number"`
}

// ReplaceContacts swaps out the user's entire contact list in one transaction.
// Every contact is re-inserted with a fresh id, so contact identity is not
// stable across saves.
func ReplaceContacts(userID string, contacts []Contact) error {
	return db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ?", userID).Delete(&Contact{}).Error
		if err != nil {
			return err
		}

		for i := range contacts {
			contacts[i].ID = ""
			contacts[i].UserID = userID
			if err := tx.Create(&contacts[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

// ContactsFor returns all of the user's contacts in insertion order of the
// last save. Unknown users simply have no contacts.
func ContactsFor(userID string) ([]Contact, error) {
	contacts := []Contact{}
	// rowid keeps sqlite's physical insertion order even when created_at ties
	err := db.Order("rowid").Limit(500).Find(&contacts, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}

	return contacts, nil
}
