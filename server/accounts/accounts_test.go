package accounts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/suraksha-app/suraksha/server/apperrors"
	"github.com/suraksha-app/suraksha/server/models"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	models.InitializeTestDb()

	user, err := Register("Asha", "a@x.com", "pw123", "9876543210")
	assert.Nil(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "Asha", user.Name)
	assert.Equal(t, "a@x.com", user.Email)

	// Signup response carries no phone
	assert.Empty(t, user.Phone)

	_, err = Register("Imposter", "a@x.com", "pw456", "")
	assert.ErrorIs(t, err, apperrors.ErrDuplicateEmail)

	// First account is unaffected by the failed duplicate signup
	loggedIn, err := Authenticate("a@x.com", "pw123")
	assert.Nil(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Equal(t, "9876543210", loggedIn.Phone)

	_, err = Authenticate("a@x.com", "wrong-password")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	_, err = Authenticate("nobody@x.com", "pw123")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCredentials)
}

func TestRegisterRequiresFields(t *testing.T) {
	models.InitializeTestDb()

	testCases := []struct {
		desc, name, email, password string
	}{
		{"missing name", "", "b@x.com", "pw123"},
		{"missing email", "Bisi", "", "pw123"},
		{"missing password", "Bisi", "b@x.com", ""},
	}

	for _, tcase := range testCases {
		t.Run(tcase.desc, func(t *testing.T) {
			_, err := Register(tcase.name, tcase.email, tcase.password, "")
			assert.True(t, apperrors.IsValidationError(err))
		})
	}
}

func TestReplaceContacts(t *testing.T) {
	models.InitializeTestDb()

	user, err := Register("Asha", "asha@x.com", "pw123", "")
	assert.Nil(t, err)

	err = ReplaceContacts(user.ID, []models.Contact{
		{Name: "Mom", PhoneNumber: "9876543210"},
		{Name: "Dad", PhoneNumber: "9876500000"},
	})
	assert.Nil(t, err)

	contacts, err := ListContacts(user.ID)
	assert.Nil(t, err)
	assert.Len(t, contacts, 2)
	assert.Equal(t, "Mom", contacts[0].Name)
	assert.Equal(t, "Dad", contacts[1].Name)

	previousIDs := map[string]bool{contacts[0].ID: true, contacts[1].ID: true}

	// Re-saving the same list keeps the contents but reassigns every id
	err = ReplaceContacts(user.ID, []models.Contact{
		{Name: "Mom", PhoneNumber: "9876543210"},
		{Name: "Dad", PhoneNumber: "9876500000"},
	})
	assert.Nil(t, err)

	contacts, err = ListContacts(user.ID)
	assert.Nil(t, err)
	assert.Len(t, contacts, 2)
	for _, contact := range contacts {
		assert.False(t, previousIDs[contact.ID], "expected a freshly assigned contact id")
	}

	// An empty list clears the contact set entirely
	err = ReplaceContacts(user.ID, []models.Contact{})
	assert.Nil(t, err)

	contacts, err = ListContacts(user.ID)
	assert.Nil(t, err)
	assert.Empty(t, contacts)
}

func TestReplaceContactsValidation(t *testing.T) {
	models.InitializeTestDb()

	err := ReplaceContacts("", []models.Contact{})
	assert.True(t, apperrors.IsValidationError(err))

	err = ReplaceContacts("some-user-id", nil)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestListContactsForUnknownUser(t *testing.T) {
	models.InitializeTestDb()

	contacts, err := ListContacts("no-such-user")
	assert.Nil(t, err)
	assert.Empty(t, contacts)
}

func TestUpdateLastLocation(t *testing.T) {
	models.InitializeTestDb()

	user, err := Register("Asha", "asha@x.com", "pw123", "")
	assert.Nil(t, err)

	err = UpdateLastLocation(user.ID, 12.9, 77.6)
	assert.Nil(t, err)

	record, err := models.FindUserBy("id", user.ID)
	assert.Nil(t, err)
	assert.NotNil(t, record.LastLatitude)
	assert.Equal(t, 12.9, *record.LastLatitude)
	assert.Equal(t, 77.6, *record.LastLongitude)
	assert.NotNil(t, record.LastSeenAt)

	// Unknown users are skipped silently
	err = UpdateLastLocation("no-such-user", 1, 2)
	assert.Nil(t, err)
}

func TestRegisterMapsUniqueIndexViolation(t *testing.T) {
	models.InitializeTestDb()

	first := models.User{Name: "Asha", Email: "a@x.com", Password: "pw123"}
	assert.Nil(t, models.CreateUser(&first))

	// A second insert bypassing the pre-check lands on the unique index,
	// the same way a concurrent signup would
	second := models.User{Name: "Other", Email: "a@x.com", Password: "pw456"}
	err := models.CreateUser(&second)
	assert.NotNil(t, err)
	assert.True(t, isDuplicateEmail(err))
}
