package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/Daskott/guardian/server/models"
	"github.com/nicholas-fedor/shoutrrr"
	"github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
)

const SEND_TIMEOUT = 15 * time.Second

var errNoPhone = errors.New("contact has no phone number")

// Messenger is the subset of the Twilio client the phone channels use.
type Messenger interface {
	SendMessage(to, msg string) error
	MakeCall(to, msg string) error
}

// SMSChannel texts the contact's phone number.
type SMSChannel struct {
	Messenger Messenger
}

func (channel SMSChannel) Send(ctx context.Context, contact models.EmergencyContact, msg Message) error {
	if strings.TrimSpace(contact.Phone) == "" {
		return errNoPhone
	}
	return channel.Messenger.SendMessage(contact.Phone, fmt.Sprintf("%v\n%v", msg.Subject, msg.Body))
}

// CallChannel places a voice call that reads the message body.
type CallChannel struct {
	Messenger Messenger
}

func (channel CallChannel) Send(ctx context.Context, contact models.EmergencyContact, msg Message) error {
	if strings.TrimSpace(contact.Phone) == "" {
		return errNoPhone
	}
	return channel.Messenger.MakeCall(contact.Phone, msg.Body)
}

// EmailChannel sends mail through a shoutrrr smtp URL. The contact's
// address is added as the recipient on every send.
type EmailChannel struct {
	smtpURL *url.URL
}

func NewEmailChannel(smtpURL string) (*EmailChannel, error) {
	parsed, err := url.Parse(smtpURL)
	if err != nil {
		return nil, fmt.Errorf("invalid smtp url: %v", err)
	}

	if parsed.Scheme != "smtp" {
		return nil, fmt.Errorf("invalid smtp url: unexpected scheme %q", parsed.Scheme)
	}

	return &EmailChannel{smtpURL: parsed}, nil
}

func (channel *EmailChannel) Send(ctx context.Context, contact models.EmergencyContact, msg Message) error {
	if strings.TrimSpace(contact.Email) == "" {
		return errors.New("contact has no email address")
	}

	sender, err := newSender(channel.recipientURL(contact.Email))
	if err != nil {
		return err
	}

	return send(sender, msg)
}

func (channel *EmailChannel) recipientURL(email string) string {
	recipient := *channel.smtpURL

	query := recipient.Query()
	query.Set("toaddresses", email)
	recipient.RawQuery = query.Encode()

	return recipient.String()
}

// PushChannel fans a message out to every configured shoutrrr service URL,
// e.g. ntfy or pushover topics the contacts are subscribed to.
type PushChannel struct {
	sender *router.ServiceRouter
}

func NewPushChannel(urls []string) (*PushChannel, error) {
	if len(urls) == 0 {
		return nil, errors.New("at least one push url is required")
	}

	sender, err := newSender(urls...)
	if err != nil {
		return nil, err
	}

	return &PushChannel{sender: sender}, nil
}

func (channel *PushChannel) Send(ctx context.Context, contact models.EmergencyContact, msg Message) error {
	return send(channel.sender, Message{
		Subject: msg.Subject,
		Body:    fmt.Sprintf("%v: %v", contact.Name, msg.Body),
	})
}

func newSender(urls ...string) (*router.ServiceRouter, error) {
	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("unable to create notification sender: %v", err)
	}

	sender.Timeout = SEND_TIMEOUT
	sender.SetLogger(log.New(io.Discard, "", 0))

	return sender, nil
}

func send(sender *router.ServiceRouter, msg Message) error {
	params := stypes.Params{}
	if msg.Subject != "" {
		params.SetTitle(msg.Subject)
	}

	for _, err := range sender.Send(msg.Body, &params) {
		if err != nil {
			return err
		}
	}

	return nil
}
