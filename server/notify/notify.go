// Package notify delivers emergency messages to contacts over the channels
// each contact has opted into.
package notify

import (
	"context"
	"fmt"

	"github.com/Daskott/guardian/server/apperr"
	"github.com/Daskott/guardian/server/logger"
	"github.com/Daskott/guardian/server/metrics"
	"github.com/Daskott/guardian/server/models"
)

var logg = logger.NewLogger()

type Message struct {
	Subject string
	Body    string
}

// Channel delivers a message to a single contact over one method.
type Channel interface {
	Send(ctx context.Context, contact models.EmergencyContact, msg Message) error
}

// ChannelFunc adapts a function to a Channel.
type ChannelFunc func(ctx context.Context, contact models.EmergencyContact, msg Message) error

func (fn ChannelFunc) Send(ctx context.Context, contact models.EmergencyContact, msg Message) error {
	return fn(ctx, contact, msg)
}

// Dispatcher routes a message to the channel registered for each alert method.
// Channels are registered at startup; Deliver is safe for concurrent use.
type Dispatcher struct {
	channels map[string]Channel
	metrics  *metrics.Metrics
}

func NewDispatcher(m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{channels: map[string]Channel{}, metrics: m}
}

// Register sets the channel used for method, replacing any previous one.
func (dispatcher *Dispatcher) Register(method string, channel Channel) {
	dispatcher.channels[method] = channel
}

// Deliver attempts every method of the contact. A method without a
// registered channel counts as failed; one failure never stops the others.
func (dispatcher *Dispatcher) Deliver(ctx context.Context, contact models.EmergencyContact, msg Message) models.DeliveryResult {
	result := models.NewDeliveryResult(contact.Name)

	for _, method := range contact.Methods() {
		result.Methods = append(result.Methods, method)

		err := dispatcher.send(ctx, method, contact, msg)
		dispatcher.metrics.Delivery(method, err == nil)

		if err != nil {
			logg.Warnf("%v alert to contact %v failed: %v", method, contact.ID, err)
			result.Failed = append(result.Failed, method)
			continue
		}

		result.Success = append(result.Success, method)
	}

	return result
}

func (dispatcher *Dispatcher) send(ctx context.Context, method string, contact models.EmergencyContact, msg Message) (err error) {
	channel, ok := dispatcher.channels[method]
	if !ok {
		return fmt.Errorf("no channel configured for %q", method)
	}

	if err = ctx.Err(); err != nil {
		return err
	}

	// provider panics are reported as a failed method
	defer func() {
		if r := recover(); r != nil {
			err = apperr.Upstream(fmt.Errorf("panic: %v", r), "%v provider failed", method)
		}
	}()

	if err = channel.Send(ctx, contact, msg); err != nil {
		return apperr.Upstream(err, "%v provider failed", method)
	}

	return nil
}
