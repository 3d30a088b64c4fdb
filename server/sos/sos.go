// Package sos composes distress messages & fans them out to a user's
// emergency contacts.
package sos

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/suraksha-app/suraksha/server/apperrors"
	"github.com/suraksha-app/suraksha/server/logger"
	"github.com/suraksha-app/suraksha/server/models"
)

const (
	// FallbackUserName is used in alert messages when the user record
	// can't be found. A missing user never blocks an alert.
	FallbackUserName = "User"

	DefaultCountryCode = "91"

	whatsAppSendURL = "https://api.whatsapp.com/send"
)

var logg = logger.NewLogger()

// Messenger is the outbound SMS channel. The twilio client implements it.
type Messenger interface {
	SendToMany(numbers []string, msg string) error
}

// Result is what a dispatch attempt produced. An alert record exists even
// when Delivered is false.
type Result struct {
	Delivered bool
	AlertID   string
}

// WhatsAppLink is a per-contact deep link carrying the composed distress
// message, for the client-mediated dispatch channel.
type WhatsAppLink struct {
	ContactID   string `json:"contactId"`
	ContactName string `json:"contactName"`
	Phone       string `json:"phone"`
	URL         string `json:"url"`
}

type Dispatcher struct {
	messenger   Messenger
	countryCode string
}

func NewDispatcher(messenger Messenger, countryCode string) *Dispatcher {
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}

	return &Dispatcher{messenger: messenger, countryCode: countryCode}
}

// RaiseSOS sends the distress message to all of the user's contacts over the
// SMS channel & appends an alert record regardless of the delivery outcome.
// Delivery failure degrades to Delivered=false, never to an error.
func (d *Dispatcher) RaiseSOS(userID string, lat, lon *float64) (*Result, error) {
	if strings.TrimSpace(userID) == "" || lat == nil || lon == nil {
		return nil, apperrors.NewValidationError("userId, latitude & longitude are required")
	}

	name := FallbackUserName
	if user, err := models.FindUserBy("id", userID); err == nil {
		name = user.Name
	}

	contacts, err := models.ContactsFor(userID)
	if err != nil {
		return nil, err
	}

	delivered := d.deliver(contacts, SmsMessage(name, *lat, *lon))

	alert := models.Alert{UserID: userID, Latitude: *lat, Longitude: *lon, Delivered: delivered}
	if err := models.CreateAlert(&alert); err != nil {
		return nil, err
	}

	return &Result{Delivered: delivered, AlertID: alert.ID}, nil
}

// Resend retries delivery for an existing alert, used by the follow-up job.
// Alert history is not touched.
func (d *Dispatcher) Resend(alertID string) error {
	alert, err := models.FindAlert(alertID)
	if err != nil {
		return err
	}

	name := FallbackUserName
	if user, err := models.FindUserBy("id", alert.UserID); err == nil {
		name = user.Name
	}

	contacts, err := models.ContactsFor(alert.UserID)
	if err != nil {
		return err
	}

	if !d.deliver(contacts, SmsMessage(name, alert.Latitude, alert.Longitude)) {
		return &apperrors.ExternalServiceError{Service: "sms", Err: fmt.Errorf("follow-up delivery failed for alert %v", alertID)}
	}

	return nil
}

// WhatsAppLinks renders the peer-to-peer dispatch channel: one deep link per
// contact, each carrying the same message & location link. Contacts are read
// fresh so links never go out to a stale list.
func (d *Dispatcher) WhatsAppLinks(userID string, lat, lon *float64) ([]WhatsAppLink, error) {
	if strings.TrimSpace(userID) == "" || lat == nil || lon == nil {
		return nil, apperrors.NewValidationError("userId, latitude & longitude are required")
	}

	name := FallbackUserName
	if user, err := models.FindUserBy("id", userID); err == nil {
		name = user.Name
	}

	contacts, err := models.ContactsFor(userID)
	if err != nil {
		return nil, err
	}

	msg := WhatsAppMessage(name, *lat, *lon)
	links := []WhatsAppLink{}
	for _, contact := range contacts {
		phone := NormalizePhone(contact.PhoneNumber, d.countryCode)
		links = append(links, WhatsAppLink{
			ContactID:   contact.ID,
			ContactName: contact.Name,
			Phone:       phone,
			URL:         fmt.Sprintf("%v?phone=%v&text=%v", whatsAppSendURL, phone, url.QueryEscape(msg)),
		})
	}

	return links, nil
}

func (d *Dispatcher) deliver(contacts []models.Contact, msg string) bool {
	if len(contacts) == 0 {
		logg.Warn("sos raised with no emergency contacts saved, nothing sent")
		return false
	}

	numbers := make([]string, 0, len(contacts))
	for _, contact := range contacts {
		numbers = append(numbers, contact.PhoneNumber)
	}

	if err := d.messenger.SendToMany(numbers, msg); err != nil {
		logg.Errorf("sos delivery failed: %v", &apperrors.ExternalServiceError{Service: "sms", Err: err})
		return false
	}

	return true
}

// SmsMessage is the short form sent over the bulk SMS channel.
func SmsMessage(name string, lat, lon float64) string {
	return fmt.Sprintf("🚨 SOS ALERT!\n%v is in danger.\nLive Location: %v", name, MapLink(lat, lon))
}

// WhatsAppMessage is the long form embedded in per-contact deep links.
func WhatsAppMessage(name string, lat, lon float64) string {
	return fmt.Sprintf(
		"🚨 *SOS Alert!*\n\n%v is in danger and needs help urgently!\n\n📍 *Live Location:*\n%v\n\n⚡ Please respond immediately.",
		name, MapLink(lat, lon))
}

func MapLink(lat, lon float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%v,%v", lat, lon)
}

// NormalizePhone strips a free-form phone number down to digits & prepends
// the country code when the number doesn't already carry it. A local-length
// number is always prefixed, even when its leading digits happen to match
// the country code.
func NormalizePhone(phone, countryCode string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	cleaned := digits.String()
	alreadyPrefixed := len(cleaned) > 10 && strings.HasPrefix(cleaned, countryCode)
	if countryCode != "" && !alreadyPrefixed {
		cleaned = countryCode + cleaned
	}

	return cleaned
}
