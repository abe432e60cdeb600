package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// BookingLog appends one line per booking event to <dir>/booking.log.
type BookingLog struct {
	dir string
	mu  sync.Mutex
}

func NewBookingLog(dir string) *BookingLog {
	if dir == "" {
		dir = "logs"
	}
	return &BookingLog{dir: dir}
}

// Path returns the log file location.
func (l *BookingLog) Path() string { return filepath.Join(l.dir, "booking.log") }

func (l *BookingLog) handleMessage(body []byte) error {
	var ev BookingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if ev.BookingID == 0 {
		return errors.New("event without booking_id")
	}

	var line string
	switch ev.Type {
	case BookingCreatedQueue:
		line = fmt.Sprintf("[%s] Booking created | booking_id=%d | user_id=%d | event_id=%d | event=%q | date=%s | venue=%q | price=%s\n",
			ev.OccurredAt, ev.BookingID, ev.UserID, ev.EventID, ev.EventName, ev.EventDate, ev.EventVenue, ev.Price)
	case BookingCancelledQueue:
		line = fmt.Sprintf("[%s] Booking cancelled | booking_id=%d | user_id=%d | event_id=%d\n",
			ev.OccurredAt, ev.BookingID, ev.UserID, ev.EventID)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", l.dir, err)
	}
	f, err := os.OpenFile(l.Path(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// StartBookingConsumer connects to RabbitMQ, declares both booking queues
// (durable) and appends every message to the booking log.  It reconnects
// with backoff until ctx is cancelled, then returns ctx.Err().  A message
// that cannot be handled is rejected without requeue so the loop keeps
// moving.
func StartBookingConsumer(ctx context.Context, url string, bl *BookingLog, log zerolog.Logger) error {
	log = log.With().Str("component", "booking-consumer").Logger()

	backoff := time.Second
	for {
		conn, err := amqp.DialConfig(url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(dialTimeout),
		})
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

		err = consumeLoop(ctx, conn, bl, log)
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

func consumeLoop(ctx context.Context, conn *amqp.Connection, bl *BookingLog, log zerolog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("set QoS failed")
	}

	var streams []<-chan amqp.Delivery
	for _, q := range []string{BookingCreatedQueue, BookingCancelledQueue} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", q, err)
		}
		msgs, err := ch.ConsumeWithContext(ctx, q, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", q, err)
		}
		streams = append(streams, msgs)
	}
	created, cancelled := streams[0], streams[1]

	for {
		var (
			d  amqp.Delivery
			ok bool
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok = <-created:
		case d, ok = <-cancelled:
		}
		if !ok {
			return errors.New("deliveries channel closed")
		}
		if err := bl.handleMessage(d.Body); err != nil {
			log.Error().Err(err).Str("queue", d.RoutingKey).Msg("handle message failed")
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
}
