package sos

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/suraksha-app/suraksha/server/apperrors"
	"github.com/suraksha-app/suraksha/server/models"
)

type fakeMessenger struct {
	err       error
	sentTo    [][]string
	sentMsgs  []string
	callCount int
}

func (f *fakeMessenger) SendToMany(numbers []string, msg string) error {
	f.callCount++
	f.sentTo = append(f.sentTo, numbers)
	f.sentMsgs = append(f.sentMsgs, msg)
	return f.err
}

func createTestUser(t *testing.T, contacts []models.Contact) *models.User {
	t.Helper()

	user := models.User{Name: "Asha", Email: "asha@x.com", Password: "pw123"}
	if err := models.CreateUser(&user); err != nil {
		t.Fatalf("could not create test user: %v", err)
	}

	if err := models.ReplaceContacts(user.ID, contacts); err != nil {
		t.Fatalf("could not create test contacts: %v", err)
	}

	return &user
}

func float64Ptr(v float64) *float64 {
	return &v
}

func TestRaiseSOSDeliverySucceeds(t *testing.T) {
	models.InitializeTestDb()

	user := createTestUser(t, []models.Contact{
		{Name: "Mom", PhoneNumber: "9876543210"},
		{Name: "Dad", PhoneNumber: "9876500000"},
	})

	messenger := &fakeMessenger{}
	dispatcher := NewDispatcher(messenger, "91")

	result, err := dispatcher.RaiseSOS(user.ID, float64Ptr(12.9), float64Ptr(77.6))
	assert.Nil(t, err)
	assert.True(t, result.Delivered)
	assert.NotEmpty(t, result.AlertID)

	assert.Equal(t, 1, messenger.callCount)
	assert.Equal(t, []string{"9876543210", "9876500000"}, messenger.sentTo[0])
	assert.Contains(t, messenger.sentMsgs[0], "Asha is in danger")
	assert.Contains(t, messenger.sentMsgs[0], MapLink(12.9, 77.6))

	alerts, err := models.AlertsFor(user.ID)
	assert.Nil(t, err)
	assert.Len(t, alerts, 1)
	assert.Equal(t, result.AlertID, alerts[0].ID)
	assert.Equal(t, 12.9, alerts[0].Latitude)
	assert.Equal(t, 77.6, alerts[0].Longitude)
	assert.True(t, alerts[0].Delivered)
}

func TestRaiseSOSDeliveryFails(t *testing.T) {
	models.InitializeTestDb()

	user := createTestUser(t, []models.Contact{{Name: "Mom", PhoneNumber: "9876543210"}})

	messenger := &fakeMessenger{err: fmt.Errorf("provider unavailable")}
	dispatcher := NewDispatcher(messenger, "91")

	result, err := dispatcher.RaiseSOS(user.ID, float64Ptr(12.9), float64Ptr(77.6))
	assert.Nil(t, err, "delivery failure should not fail the operation")
	assert.False(t, result.Delivered)
	assert.NotEmpty(t, result.AlertID)

	// Alert history is recorded even when nothing went out
	alerts, err := models.AlertsFor(user.ID)
	assert.Nil(t, err)
	assert.Len(t, alerts, 1)
	assert.False(t, alerts[0].Delivered)
}

func TestRaiseSOSWithoutContacts(t *testing.T) {
	models.InitializeTestDb()

	user := createTestUser(t, []models.Contact{})

	messenger := &fakeMessenger{}
	dispatcher := NewDispatcher(messenger, "91")

	result, err := dispatcher.RaiseSOS(user.ID, float64Ptr(12.9), float64Ptr(77.6))
	assert.Nil(t, err)
	assert.False(t, result.Delivered)
	assert.Equal(t, 0, messenger.callCount)

	alerts, err := models.AlertsFor(user.ID)
	assert.Nil(t, err)
	assert.Len(t, alerts, 1)
}

func TestRaiseSOSForUnknownUser(t *testing.T) {
	models.InitializeTestDb()

	messenger := &fakeMessenger{}
	dispatcher := NewDispatcher(messenger, "91")

	result, err := dispatcher.RaiseSOS("no-such-user", float64Ptr(1.5), float64Ptr(2.5))
	assert.Nil(t, err, "user lookup failure is non-fatal")
	assert.False(t, result.Delivered)
	assert.NotEmpty(t, result.AlertID)
}

func TestRaiseSOSValidation(t *testing.T) {
	models.InitializeTestDb()

	messenger := &fakeMessenger{}
	dispatcher := NewDispatcher(messenger, "91")

	testCases := []struct {
		desc   string
		userID string
		lat    *float64
		lon    *float64
	}{
		{"missing userId", "", float64Ptr(12.9), float64Ptr(77.6)},
		{"missing latitude", "some-user", nil, float64Ptr(77.6)},
		{"missing longitude", "some-user", float64Ptr(12.9), nil},
	}

	for _, tcase := range testCases {
		t.Run(tcase.desc, func(t *testing.T) {
			_, err := dispatcher.RaiseSOS(tcase.userID, tcase.lat, tcase.lon)
			assert.True(t, apperrors.IsValidationError(err))
		})
	}

	// No alert record is written on a rejected request
	alerts, err := models.AlertsFor("some-user")
	assert.Nil(t, err)
	assert.Empty(t, alerts)
	assert.Equal(t, 0, messenger.callCount)
}

func TestResend(t *testing.T) {
	models.InitializeTestDb()

	user := createTestUser(t, []models.Contact{{Name: "Mom", PhoneNumber: "9876543210"}})

	messenger := &fakeMessenger{err: fmt.Errorf("provider unavailable")}
	dispatcher := NewDispatcher(messenger, "91")

	result, err := dispatcher.RaiseSOS(user.ID, float64Ptr(12.9), float64Ptr(77.6))
	assert.Nil(t, err)
	assert.False(t, result.Delivered)

	// Provider comes back before the follow-up fires
	messenger.err = nil
	err = dispatcher.Resend(result.AlertID)
	assert.Nil(t, err)
	assert.Equal(t, 2, messenger.callCount)

	// History stays exactly as first recorded
	alerts, err := models.AlertsFor(user.ID)
	assert.Nil(t, err)
	assert.Len(t, alerts, 1)
	assert.False(t, alerts[0].Delivered)
}

func TestWhatsAppLinks(t *testing.T) {
	models.InitializeTestDb()

	user := createTestUser(t, []models.Contact{
		{Name: "Mom", PhoneNumber: "98765-43210"},
		{Name: "Dad", PhoneNumber: "+91 98765 00000"},
	})

	dispatcher := NewDispatcher(&fakeMessenger{}, "91")

	links, err := dispatcher.WhatsAppLinks(user.ID, float64Ptr(12.9), float64Ptr(77.6))
	assert.Nil(t, err)
	assert.Len(t, links, 2)

	assert.Equal(t, "919876543210", links[0].Phone)
	assert.Equal(t, "919876500000", links[1].Phone)

	for _, link := range links {
		assert.True(t, strings.HasPrefix(link.URL, "https://api.whatsapp.com/send?phone="+link.Phone))
		assert.Contains(t, link.URL, "Asha")
		assert.NotContains(t, link.URL, " ", "message must be url-encoded")
	}
}

func TestWhatsAppLinksWithoutContacts(t *testing.T) {
	models.InitializeTestDb()

	user := createTestUser(t, []models.Contact{})
	dispatcher := NewDispatcher(&fakeMessenger{}, "91")

	links, err := dispatcher.WhatsAppLinks(user.ID, float64Ptr(12.9), float64Ptr(77.6))
	assert.Nil(t, err)
	assert.Empty(t, links)
}

func TestNormalizePhone(t *testing.T) {
	testCases := []struct {
		phone, countryCode, expected string
	}{
		{"9876543210", "91", "919876543210"},
		{"98765-43210", "91", "919876543210"},
		// Local number whose leading digits collide with the country code
		{"9198765432", "91", "919198765432"},
		{"+91 98765 43210", "91", "919876543210"},
		{"(080) 2345-6789", "91", "9108023456789"},
		{"9876543210", "", "9876543210"},
	}

	for _, tcase := range testCases {
		t.Run(tcase.phone, func(t *testing.T) {
			assert.Equal(t, tcase.expected, NormalizePhone(tcase.phone, tcase.countryCode))
		})
	}
}
