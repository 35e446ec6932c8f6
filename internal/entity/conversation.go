package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageInitialOutreach MessageType = "Initial-Outreach"
	MessageFollowUp        MessageType = "Follow-Up"
	MessageQualification   MessageType = "Qualification"
	MessageAppointment     MessageType = "Appointment"
	MessageReminder        MessageType = "Reminder"
	MessagePostMeeting     MessageType = "Post-Meeting"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageInitialOutreach, MessageFollowUp, MessageQualification,
		MessageAppointment, MessageReminder, MessagePostMeeting:
		return true
	}
	return false
}

type Sender string

const (
	SenderAssistant Sender = "assistant"
	SenderUser      Sender = "user"
)

func (s Sender) Valid() bool {
	return s == SenderAssistant || s == SenderUser
}

// ConversationEntry is immutable once written. CreatedAt is assigned by the
// store at append time and strictly increases within a lead.
type ConversationEntry struct {
	ID          string      `json:"id"`
	LeadID      string      `json:"lead_id"`
	MessageType MessageType `json:"message_type"`
	Sender      Sender      `json:"sender"`
	Text        string      `json:"text"`
	CreatedAt   time.Time   `json:"created_at"`
}

func NewConversationEntry(leadID string, messageType MessageType, sender Sender, text string) *ConversationEntry {
	return &ConversationEntry{
		ID:          uuid.New().String(),
		LeadID:      leadID,
		MessageType: messageType,
		Sender:      sender,
		Text:        text,
	}
}

type SortOrder string

const (
	OrderAsc  SortOrder = "asc"
	OrderDesc SortOrder = "desc"
)

// ConversationFilter narrows getConversation. Zero values match everything.
type ConversationFilter struct {
	Sender      Sender
	MessageType MessageType
	After       *time.Time // strictly after
	Order       SortOrder
	Limit       int
}

// CadenceSnapshot is the part of a lead's log a follow-up decision depends on.
// AppendFollowUp only writes while the snapshot still holds.
type CadenceSnapshot struct {
	LastUserEntryID string
	FollowUps       int
}

type ConversationRepositoryInterface interface {
	List(ctx context.Context, leadID string, filter ConversationFilter) ([]ConversationEntry, error)
	LatestBySender(ctx context.Context, leadID string, sender Sender) (*ConversationEntry, error)
	CountAfter(ctx context.Context, leadID string, messageType MessageType, after time.Time) (int, error)
	Append(ctx context.Context, entry *ConversationEntry) error
	AppendFollowUp(ctx context.Context, entry *ConversationEntry, expected CadenceSnapshot) error
}
