package notify

import (
	"context"
	"encoding/json"
	"log"

	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-shop-backend/internal/kafka"
	"github.com/ariefcatur/go-shop-backend/internal/orders"
)

// Broadcaster delivers a payload to the recipient's pub/sub channel.
type Broadcaster interface {
	Broadcast(ctx context.Context, userID string, payload []byte) error
}

// DedupStore remembers processed event ids.
type DedupStore interface {
	Seen(ctx context.Context, service, eventID string) (bool, error)
}

// Push is the wire format connected clients receive on user:{id}.
type Push struct {
	Type    string `json:"type"`
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// Service bridges broker events to per-user push channels. Installed as
// a consumer handler; returning nil commits the offset.
type Service struct {
	Push        Broadcaster
	Dedup       DedupStore
	ServiceName string
}

// HandleStatusChanged fans an OrderStatusChanged event out to the
// owning user's channel.
func (s *Service) HandleStatusChanged(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderStatusChanged {
		return nil // ignore
	}
	if seen, _ := s.Dedup.Seen(ctx, s.ServiceName, env.EventID); seen {
		return nil
	}
	p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}
	return s.push(ctx, p.UserID, p.OrderID, string(p.Status))
}

// HandleOrderPlaced notifies the buyer that their order entered the
// initial status.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}
	if seen, _ := s.Dedup.Seen(ctx, s.ServiceName, env.EventID); seen {
		return nil
	}
	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		return err
	}
	return s.push(ctx, p.UserID, p.OrderID, string(orders.StatusPending))
}

func (s *Service) push(ctx context.Context, userID, orderID, status string) error {
	b := kafkax.MustMarshal(Push{Type: "order_status", OrderID: orderID, Status: status})
	if err := s.Push.Broadcast(ctx, userID, b); err != nil {
		// best effort: log and commit, subscribers get no replay anyway
		log.Printf("broadcast to user %s: %v", userID, err)
	}
	return nil
}
