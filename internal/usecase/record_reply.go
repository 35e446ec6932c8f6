package usecase

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type RecordReplyInput struct {
	LeadID      string             `json:"lead_id"`
	Text        string             `json:"text"`
	MessageType entity.MessageType `json:"message_type,omitempty"`
}

// RecordReplyUseCase stores a reply from the lead. The store serializes it
// with follow-up appends on the same lead, so a reply arriving mid-evaluation
// invalidates the pending follow-up decision.
type RecordReplyUseCase struct {
	Leads         entity.LeadRepositoryInterface
	Conversations entity.ConversationRepositoryInterface
	Logger        *zap.Logger
}

func NewRecordReplyUseCase(
	leads entity.LeadRepositoryInterface,
	conversations entity.ConversationRepositoryInterface,
	logger *zap.Logger,
) *RecordReplyUseCase {
	return &RecordReplyUseCase{Leads: leads, Conversations: conversations, Logger: logger}
}

func (uc *RecordReplyUseCase) Execute(ctx context.Context, input RecordReplyInput) (*entity.ConversationEntry, error) {
	if errs := ValidateRecordReplyInput(input); len(errs) > 0 {
		return nil, validationFailure(errs)
	}

	if _, err := uc.Leads.FindByID(ctx, input.LeadID); err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, &DomainError{Code: "LEAD_NOT_FOUND", Message: "lead not found"}
		}
		return nil, storeError("failed to load lead", err)
	}

	messageType := input.MessageType
	if messageType == "" {
		messageType = entity.MessageQualification
	}

	entry := entity.NewConversationEntry(input.LeadID, messageType, entity.SenderUser, strings.TrimSpace(input.Text))
	if err := uc.Conversations.Append(ctx, entry); err != nil {
		return nil, storeError("failed to record reply", err)
	}

	uc.Logger.Info("lead replied", zap.String("lead_id", input.LeadID), zap.String("entry_id", entry.ID))
	return entry, nil
}
