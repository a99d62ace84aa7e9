package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher publishes booking notifications to RabbitMQ.  It dials per
// publish so a broker outage never holds connections open on the
// request path; errors are logged and returned so the caller can
// choose to ignore them.
type Publisher struct {
	URL         string
	DialTimeout time.Duration // upper bound for connect + handshake
	log         *logrus.Entry
}

// NewPublisher returns a Publisher for the broker at url.
func NewPublisher(url string) *Publisher {
	return &Publisher{URL: url, DialTimeout: 2 * time.Second, log: logrus.WithField("component", "publisher")}
}

// dialTimeout is DialTimeout shortened to what is left of ctx.
func (p *Publisher) dialTimeout(ctx context.Context) time.Duration {
	d := p.DialTimeout
	if d <= 0 {
		d = 2 * time.Second
	}
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < d {
			d = left
		}
	}
	return d
}

func (p *Publisher) dial(ctx context.Context) (*amqp.Connection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d := p.dialTimeout(ctx)
	if d <= 0 {
		return nil, fmt.Errorf("dial rabbitmq: %w", context.DeadlineExceeded)
	}
	return amqp.DialConfig(p.URL, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(d),
	})
}

// Publish sends ev to the booking.confirmed queue as a persistent
// JSON message.
func (p *Publisher) Publish(ctx context.Context, ev BookingConfirmedEvent) error {
	conn, err := p.dial(ctx)
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := declareBookingQueue(ch); err != nil {
		p.log.WithError(err).Warn("rabbitmq queue declare failed")
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
		MessageId:    ev.Reference,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", BookingConfirmedQueue, false, false, pub); err != nil {
		p.log.WithError(err).Warn("rabbitmq publish failed")
		return err
	}
	return nil
}

// declareBookingQueue is idempotent; durable so messages survive
// broker restarts.
func declareBookingQueue(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(
		BookingConfirmedQueue, // name
		true,                  // durable
		false,                 // autoDelete
		false,                 // exclusive
		false,                 // noWait
		nil,                   // args
	)
	return err
}
