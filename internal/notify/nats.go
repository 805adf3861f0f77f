// Package notify publishes auction events to NATS. Payloads carry ids,
// public names, and caller identities only; never value data.
package notify

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"github.com/0xjingxuanli/fhe-auction/internal/fhe"
)

// Subjects for the two core events.
const (
	SubjectAuctionCreated = "auction.created"
	SubjectBidSubmitted   = "auction.bid"
)

// AuctionCreatedEvent is the wire form of an AuctionCreated notification.
type AuctionCreatedEvent struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// BidSubmittedEvent is the wire form of a BidSubmitted notification. It is
// emitted for every bid accepted for evaluation, whether or not it became
// the leader.
type BidSubmittedEvent struct {
	ID        uint64 `json:"id"`
	Principal string `json:"principal"`
}

// Publisher implements auction.Notifier over a NATS connection. Publish
// failures are logged and dropped: notifications are advisory and must not
// abort a committed auction operation.
type Publisher struct {
	conn *nats.Conn
}

// NewPublisher wraps an established NATS connection.
func NewPublisher(conn *nats.Conn) *Publisher {
	return &Publisher{conn: conn}
}

// AuctionCreated publishes on SubjectAuctionCreated.
func (p *Publisher) AuctionCreated(id uint64, name string) {
	p.publish(SubjectAuctionCreated, AuctionCreatedEvent{ID: id, Name: name})
}

// BidSubmitted publishes on SubjectBidSubmitted.
func (p *Publisher) BidSubmitted(id uint64, caller fhe.Principal) {
	p.publish(SubjectBidSubmitted, BidSubmittedEvent{ID: id, Principal: string(caller)})
}

func (p *Publisher) publish(subject string, event interface{}) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("[notify] marshal %s event: %v", subject, err)
		return
	}
	if err := p.conn.Publish(subject, payload); err != nil {
		log.Printf("[notify] publish %s: %v", subject, err)
	}
}
