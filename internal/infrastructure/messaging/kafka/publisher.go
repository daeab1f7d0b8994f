package kafka

import (
	"context"
	"fmt"

	"github.com/turtacn/chemlite/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemlite/pkg/errors"
	"github.com/turtacn/chemlite/pkg/types/common"
)

// batchPublisher is the part of Producer used by EventPublisher.
type batchPublisher interface {
	PublishBatch(ctx context.Context, msgs []*ProducerMessage) (*BatchPublishResult, error)
}

// EventPublisher ships domain events as envelopes. It satisfies the pathway
// service's EventPublisher port.
type EventPublisher struct {
	producer batchPublisher
	source   string
	logger   logging.Logger
}

func NewEventPublisher(producer *Producer, source string, logger logging.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, source: source, logger: logger}
}

// PublishEvents sends every event in one batch. Any failed message fails the
// call.
func (p *EventPublisher) PublishEvents(ctx context.Context, events ...common.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]*ProducerMessage, 0, len(events))
	for _, e := range events {
		env, err := EnvelopeFromEvent(e, p.source)
		if err != nil {
			return err
		}
		msg, err := env.ToMessage(TopicFor(e.EventType()))
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	res, err := p.producer.PublishBatch(ctx, msgs)
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		first := res.Errors[0].Error
		return errors.Wrap(first, errors.ErrCodeExternalService,
			fmt.Sprintf("failed to publish %d of %d events", res.Failed, len(msgs)))
	}
	p.logger.Debug("events published", logging.Int("count", len(msgs)))
	return nil
}
