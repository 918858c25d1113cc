package twilio

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/Daskott/guardian/server/logger"
	"github.com/Daskott/guardian/shared"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

var logg = logger.NewLogger()

// ClientWrapper sends SMS and places voice calls through Twilio.
type ClientWrapper struct {
	client *twilio.RestClient
	config shared.TwilioConfig
}

func NewClient(config shared.TwilioConfig) *ClientWrapper {
	client := twilio.NewRestClientWithParams(twilio.RestClientParams{
		Username: config.AccountSid,
		Password: config.AuthToken,
	})

	return &ClientWrapper{
		client: client,
		config: config,
	}
}

func (cw *ClientWrapper) SendMessage(to, msg string) error {
	params := &openapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetBody(msg)

	if cw.config.MessagingServiceSid != "" {
		params.SetMessagingServiceSid(cw.config.MessagingServiceSid)
	} else {
		params.SetFrom(cw.config.FromNumber)
	}

	resp, err := cw.client.ApiV2010.CreateMessage(params)
	if err != nil {
		return err
	}

	if resp.ErrorMessage != nil {
		return fmt.Errorf("twilio message to %v failed: %v", to, *resp.ErrorMessage)
	}

	if resp.Sid != nil {
		logg.Debugf("twilio message queued: %v", *resp.Sid)
	}

	return nil
}

// MakeCall places a call to `to` that reads msg out loud once.
func (cw *ClientWrapper) MakeCall(to, msg string) error {
	twiml, err := sayTwiml(msg)
	if err != nil {
		return err
	}

	params := &openapi.CreateCallParams{}
	params.SetTo(to)
	params.SetFrom(cw.config.FromNumber)
	params.SetTwiml(twiml)

	resp, err := cw.client.ApiV2010.CreateCall(params)
	if err != nil {
		return err
	}

	if resp.Sid != nil {
		logg.Debugf("twilio call queued: %v", *resp.Sid)
	}

	return nil
}

func sayTwiml(msg string) (string, error) {
	var escaped bytes.Buffer
	if err := xml.EscapeText(&escaped, []byte(msg)); err != nil {
		return "", err
	}

	return fmt.Sprintf("<Response><Say>%v</Say></Response>", escaped.String()), nil
}
