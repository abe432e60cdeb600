package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/booksphere/internal/metrics"
	"github.com/iliyamo/booksphere/internal/model"
)

const dialTimeout = 2 * time.Second

// Publisher sends booking events to RabbitMQ.  Each publish opens its own
// connection; errors are logged and returned so the caller can ignore
// them without interrupting the request.
type Publisher struct {
	url string
	log zerolog.Logger
}

func NewPublisher(url string, log zerolog.Logger) *Publisher {
	return &Publisher{url: url, log: log.With().Str("component", "publisher").Logger()}
}

// BookingCreated publishes to booking.created.
func (p *Publisher) BookingCreated(ctx context.Context, d model.BookingDetail) error {
	return p.publish(ctx, BookingCreatedQueue, createdEvent(d, time.Now()))
}

// BookingCancelled publishes to booking.cancelled.
func (p *Publisher) BookingCancelled(ctx context.Context, b model.Booking) error {
	return p.publish(ctx, BookingCancelledQueue, cancelledEvent(b, time.Now()))
}

func (p *Publisher) publish(ctx context.Context, queue string, ev BookingEvent) (err error) {
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}
		metrics.BookingEventsPublished.WithLabelValues(queue, result).Inc()
	}()
	log := p.log.With().Str("queue", queue).Uint64("booking_id", ev.BookingID).Logger()

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout),
	})
	if err != nil {
		log.Warn().Err(err).Msg("dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Msg("channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	// durable so messages survive broker restarts
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		log.Warn().Err(err).Msg("queue declare failed")
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queue, false, false, pub); err != nil {
		log.Warn().Err(err).Msg("publish failed")
		return err
	}
	return nil
}
