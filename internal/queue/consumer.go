package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/parking-stand-manager/internal/logging"
)

// StartAuditConsumer connects to RabbitMQ, declares the sessions queue
// (durable) and appends every event to the file at path, one line per
// event.  It reconnects with exponential backoff and returns ctx.Err() once
// ctx is cancelled.
func StartAuditConsumer(ctx context.Context, url, path string) error {
	log := logging.Logger().With().Str("component", "audit-consumer").Logger()

	backoff := time.Second
	for {
		conn, err := Dial(ctx, url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, path)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, path string) error {
	log := logging.Logger()
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("audit-consumer: set QoS failed")
	}
	if _, err := ch.QueueDeclare(SessionsQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(SessionsQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(d.Body, path); err != nil {
				log.Error().Err(err).Msg("audit-consumer: handle message failed")
				_ = d.Nack(false, false) // poison messages are dropped, not requeued
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(body []byte, path string) error {
	var ev SessionEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.SessionID == 0 || ev.Type == "" {
		return errors.New("event without session id or type")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(formatLine(ev)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

func formatLine(ev SessionEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | session_id=%d | stand_id=%d | vehicle=%q | status=%s",
		ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.SessionID, ev.StandID, ev.VehicleNumber, ev.Status)
	if ev.DurationMinutes != nil {
		fmt.Fprintf(&b, " | minutes=%d", *ev.DurationMinutes)
	}
	if ev.Amount != nil {
		fmt.Fprintf(&b, " | amount=%s", *ev.Amount)
	}
	if ev.EventID != "" {
		fmt.Fprintf(&b, " | event_id=%s", ev.EventID)
	}
	b.WriteByte('\n')
	return b.String()
}
