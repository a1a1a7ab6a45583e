package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// natsConn is the subset of *nats.Conn used by the publisher.
type natsConn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes activity events as JSON on a NATS subject.
type NATSPublisher struct {
	conn    natsConn
	subject string
	logger  zerolog.Logger
}

// ConnectNATS dials the NATS server at url.
func ConnectNATS(url, name string) (*nats.Conn, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("nats url must not be empty")
	}
	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to nats: %w", err)
	}
	return conn, nil
}

// NewNATSPublisher constructs a publisher over an established connection.
func NewNATSPublisher(conn *nats.Conn, subject string, logger zerolog.Logger) *NATSPublisher {
	return newNATSPublisher(conn, subject, logger)
}

func newNATSPublisher(conn natsConn, subject string, logger zerolog.Logger) *NATSPublisher {
	if strings.TrimSpace(subject) == "" {
		subject = "activities.events"
	}
	return &NATSPublisher{
		conn:    conn,
		subject: subject,
		logger:  logger.With().Str("component", "nats_publisher").Logger(),
	}
}

// Publish implements Publisher. Events are sent on <subject>.<type suffix>.
func (p *NATSPublisher) Publish(ctx context.Context, event ActivityEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode activity event: %w", err)
	}

	subject := p.subject + "." + strings.TrimPrefix(event.Type, "activity.")
	if err := p.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish activity event: %w", err)
	}

	p.logger.Debug().Str("subject", subject).Str("activity_id", event.ActivityID).Msg("activity event published")
	return nil
}
