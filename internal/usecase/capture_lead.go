package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
)

type CaptureLeadInput struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Source string `json:"source,omitempty"`
}

type CaptureLeadOutput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

type CaptureLeadUseCase struct {
	Leads           entity.LeadRepositoryInterface
	Conversations   entity.ConversationRepositoryInterface
	Deliverer       Deliverer
	DeliveryTimeout time.Duration
	Logger          *zap.Logger
}

func NewCaptureLeadUseCase(
	leads entity.LeadRepositoryInterface,
	conversations entity.ConversationRepositoryInterface,
	deliverer Deliverer,
	deliveryTimeout time.Duration,
	logger *zap.Logger,
) *CaptureLeadUseCase {
	return &CaptureLeadUseCase{
		Leads:           leads,
		Conversations:   conversations,
		Deliverer:       deliverer,
		DeliveryTimeout: deliveryTimeout,
		Logger:          logger,
	}
}

func initialOutreach(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return fmt.Sprintf("Hi %s, thanks for reaching out! I'd love to help you find your next home. What are you looking for?", name)
	}
	return "Hi, thanks for reaching out! I'd love to help you find your next home. What are you looking for?"
}

// Execute creates the lead and its Initial-Outreach entry. If the entry
// cannot be written the lead is removed again.
func (uc *CaptureLeadUseCase) Execute(ctx context.Context, input CaptureLeadInput) (*CaptureLeadOutput, error) {
	if errs := ValidateCaptureLeadInput(input); len(errs) > 0 {
		return nil, validationFailure(errs)
	}

	source := input.Source
	if source == "" {
		source = "FORM"
	}
	lead := entity.NewLead(
		strings.TrimSpace(input.UserID),
		strings.ToLower(strings.TrimSpace(input.Email)),
		strings.TrimSpace(input.Name),
		normalizePhone(input.Phone),
		source,
	)
	entry := entity.NewConversationEntry(lead.ID, entity.MessageInitialOutreach, entity.SenderAssistant, initialOutreach(lead.Name))
	entry.CreatedAt = time.Now().UTC()

	txn := NewTransaction(uc.Logger)
	txn.AddOperation("create_lead", func(ctx context.Context) error {
		return uc.Leads.Create(ctx, lead)
	})
	txn.AddCompensation("delete_lead", func(ctx context.Context) error {
		return uc.Leads.Delete(ctx, lead.ID)
	})
	txn.AddOperation("append_initial_outreach", func(ctx context.Context) error {
		return uc.Conversations.Append(ctx, entry)
	})

	if err := txn.Execute(ctx); err != nil {
		if errors.Is(err, entity.ErrEmailAlreadyExists) {
			return nil, &DomainError{Code: "LEAD_ALREADY_EXISTS", Message: "a lead with this email already exists"}
		}
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to persist lead", Err: err}
	}

	uc.Logger.Info("lead captured",
		zap.String("lead_id", lead.ID),
		zap.String("user_id", lead.UserID),
		zap.String("source", lead.Source))

	handOff(ctx, uc.Deliverer, uc.DeliveryTimeout, uc.Logger, lead, entry)

	return &CaptureLeadOutput{
		ID:     lead.ID,
		Status: lead.Status,
		Msg:    "Lead captured",
	}, nil
}
