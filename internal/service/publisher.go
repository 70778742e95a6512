package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/parking-stand-manager/internal/logging"
	"github.com/iliyamo/parking-stand-manager/internal/queue"
)

// Publisher delivers session events after their transition has committed.
type Publisher interface {
	Publish(ctx context.Context, ev queue.SessionEvent) error
}

// NopPublisher drops every event.  It is used when EVENTS_ENABLED is off.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.SessionEvent) error { return nil }

// AMQPPublisher publishes to the durable sessions queue.  Each publish
// dials its own connection within ctx's deadline, so the publisher holds
// no broker state.
type AMQPPublisher struct {
	URL string
}

// NewAMQPPublisher returns a publisher for the broker at url.
func NewAMQPPublisher(url string) *AMQPPublisher {
	return &AMQPPublisher{URL: url}
}

// Publish sends ev as a persistent JSON message.  A missing EventID is
// filled with a random UUID.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.SessionEvent) error {
	log := logging.WithContext(ctx)
	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}
	conn, err := queue.Dial(ctx, p.URL)
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue.SessionsQueue, // name
		true,                // durable
		false,               // autoDelete
		false,               // exclusive
		false,               // noWait
		nil,                 // args
	); err != nil {
		log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Type:         string(ev.Type),
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue.SessionsQueue, false, false, pub); err != nil {
		log.Warn().Err(err).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}
