package usecase

import (
	"context"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

// DeliveryRequest is the handoff to the messaging layer. Delivery is best
// effort: the conversation entry is already written when it is sent.
type DeliveryRequest struct {
	EntryID     string             `json:"entry_id"`
	LeadID      string             `json:"lead_id"`
	UserID      string             `json:"user_id"`
	Channel     entity.Channel     `json:"channel"`
	To          string             `json:"to"`
	Name        string             `json:"name,omitempty"`
	MessageType entity.MessageType `json:"message_type"`
	Text        string             `json:"text"`
}

type Deliverer interface {
	Deliver(ctx context.Context, req DeliveryRequest) error
}
