// Package events publishes listing lifecycle notifications after a change has
// been committed. Delivery is best-effort; the database and the audit log are
// the record of truth.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
)

// Event kinds, appended to the subject prefix ("listings.created", ...).
const (
	KindCreated       = "created"
	KindUpdated       = "updated"
	KindStatusChanged = "status_changed"
	KindDeleted       = "deleted"
	KindRestored      = "restored"
	KindImageRetired  = "image_retired"
)

// ListingEvent is the JSON payload of every lifecycle notification.
type ListingEvent struct {
	Kind       string    `json:"kind"`
	ListingID  string    `json:"listing_id"`
	Variant    string    `json:"variant"`
	Slug       string    `json:"slug,omitempty"`
	Status     string    `json:"status,omitempty"`
	Action     string    `json:"action"`
	ActorID    string    `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher sends lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, e ListingEvent) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, ListingEvent) error { return nil }

// NATSPublisher publishes JSON events on "{prefix}.{kind}".
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher connects to url. The connection reconnects on its own.
func NewNATSPublisher(url, prefix string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("agro-classifieds"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		prefix = "listings"
	}
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

// Subject returns the subject an event of kind is published on.
func (p *NATSPublisher) Subject(kind string) string {
	return p.prefix + "." + kind
}

func (p *NATSPublisher) Publish(_ context.Context, e ListingEvent) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return p.conn.Publish(p.Subject(e.Kind), data)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	_ = p.conn.Drain()
}
