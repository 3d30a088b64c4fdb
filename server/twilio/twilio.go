package twilio

import (
	"fmt"

	"github.com/suraksha-app/suraksha/server/logger"
	"github.com/suraksha-app/suraksha/shared"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var logg = logger.NewLogger()

type ClientWrapper struct {
	client   *twilio.RestClient
	config   shared.TwilioConfig
	testMode bool
}

func NewClient(config shared.TwilioConfig, testMode bool) *ClientWrapper {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &ClientWrapper{
		client:   client,
		config:   config,
		testMode: testMode,
	}
}

func (cw *ClientWrapper) SendMessage(to, msg string) error {
	if cw.testMode {
		logg.Infof("[TEST] sms to %v: %v", to, msg)
		return nil
	}

	params := &openapi.CreateMessageParams{}
	params.SetMessagingServiceSid(cw.config.MessagingServiceSid)
	params.SetTo(to)
	params.SetBody(msg)

	resp, err := cw.client.ApiV2010.CreateMessage(params)
	if err != nil {
		return err
	}

	if resp.ErrorMessage != nil && *resp.ErrorMessage != "" {
		return fmt.Errorf("twilio: %v", *resp.ErrorMessage)
	}

	return nil
}

// SendToMany fans one message out to every number in the list as a single
// dispatch attempt. All numbers are tried even when earlier ones fail, and
// the first failure is reported.
func (cw *ClientWrapper) SendToMany(numbers []string, msg string) error {
	var firstErr error

	for _, number := range numbers {
		if err := cw.SendMessage(number, msg); err != nil {
			logg.Errorf("sms to %v failed: %v", number, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}
