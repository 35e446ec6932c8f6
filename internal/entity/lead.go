package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lead status values
const (
	LeadStatusNew       = "NEW"
	LeadStatusContacted = "CONTACTED"
	LeadStatusQualified = "QUALIFIED"
	LeadStatusConverted = "CONVERTED"
)

type Lead struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"` // agent who owns the lead
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Status    string    `json:"status"`
	Stage     string    `json:"stage,omitempty"`
	Source    string    `json:"source,omitempty"` // FORM, IMPORT, CRM_SYNC
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewLead(userID, email, name, phone, source string) *Lead {
	now := time.Now().UTC()
	return &Lead{
		ID:        uuid.New().String(),
		UserID:    userID,
		Email:     email,
		Name:      name,
		Phone:     phone,
		Status:    LeadStatusNew,
		Source:    source,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// PreferredChannel picks the channel an outbound message goes through.
// Texts win over emails; an empty result means the lead is unreachable.
func (l *Lead) PreferredChannel() Channel {
	switch {
	case l.Phone != "":
		return ChannelTexts
	case l.Email != "":
		return ChannelEmails
	default:
		return ""
	}
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	ListAll(ctx context.Context) ([]Lead, error)
	Delete(ctx context.Context, id string) error
}
