package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/metrics"
)

// FollowUpUseCase decides, per lead, whether the next cadence step is due.
//
// The stage is derived from the log: the number of Follow-Up entries written
// after the lead's latest reply. A new reply opens a new silence window and
// the count starts again from zero. Each step requires an exact count, so a
// step fires at most once per window.
type FollowUpUseCase struct {
	Leads           entity.LeadRepositoryInterface
	Conversations   entity.ConversationRepositoryInterface
	Deliverer       Deliverer
	Cadence         []entity.CadenceStep
	DeliveryTimeout time.Duration
	Concurrency     int
	Logger          *zap.Logger
	Now             func() time.Time
}

func NewFollowUpUseCase(
	leads entity.LeadRepositoryInterface,
	conversations entity.ConversationRepositoryInterface,
	deliverer Deliverer,
	cadence []entity.CadenceStep,
	logger *zap.Logger,
) *FollowUpUseCase {
	return &FollowUpUseCase{
		Leads:           leads,
		Conversations:   conversations,
		Deliverer:       deliverer,
		Cadence:         cadence,
		DeliveryTimeout: 5 * time.Second,
		Concurrency:     8,
		Logger:          logger,
		Now:             time.Now,
	}
}

// FollowUpTickResult summarizes one pass over all leads.
type FollowUpTickResult struct {
	Evaluated int
	Sent      int
	Failed    int
}

// NextFollowUp returns the first cadence step matching the elapsed hours and
// the number of follow-ups already sent in the window.
func NextFollowUp(steps []entity.CadenceStep, hours float64, sent int) (entity.CadenceStep, bool) {
	for _, s := range steps {
		if s.Matches(hours, sent) {
			return s, true
		}
	}
	return entity.CadenceStep{}, false
}

// EvaluateLead loads a lead and evaluates it.
func (uc *FollowUpUseCase) EvaluateLead(ctx context.Context, leadID string) (*entity.ConversationEntry, error) {
	lead, err := uc.Leads.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, entity.ErrLeadNotFound) {
			return nil, &DomainError{Code: "LEAD_NOT_FOUND", Message: "lead not found"}
		}
		return nil, storeError("failed to load lead", err)
	}
	return uc.Evaluate(ctx, lead)
}

// Evaluate appends at most one Follow-Up entry. It returns the entry when one
// was written and nil when nothing was due.
func (uc *FollowUpUseCase) Evaluate(ctx context.Context, lead *entity.Lead) (*entity.ConversationEntry, error) {
	lastReply, err := uc.Conversations.LatestBySender(ctx, lead.ID, entity.SenderUser)
	if err != nil {
		return nil, storeError("failed to read latest reply", err)
	}
	// Leads that never replied are not chased.
	if lastReply == nil {
		return nil, nil
	}

	sent, err := uc.Conversations.CountAfter(ctx, lead.ID, entity.MessageFollowUp, lastReply.CreatedAt)
	if err != nil {
		return nil, storeError("failed to count follow-ups", err)
	}

	now := uc.Now()
	hours := now.Sub(lastReply.CreatedAt).Hours()

	step, ok := NextFollowUp(uc.Cadence, hours, sent)
	if !ok {
		return nil, nil
	}

	entry := entity.NewConversationEntry(lead.ID, entity.MessageFollowUp, entity.SenderAssistant, step.Message)
	entry.CreatedAt = now

	snapshot := entity.CadenceSnapshot{LastUserEntryID: lastReply.ID, FollowUps: sent}
	if err := uc.Conversations.AppendFollowUp(ctx, entry, snapshot); err != nil {
		if errors.Is(err, entity.ErrStaleConversation) {
			uc.Logger.Info("conversation changed during evaluation, skipping until next tick",
				zap.String("lead_id", lead.ID))
			return nil, nil
		}
		return nil, storeError("failed to append follow-up", err)
	}

	metrics.RecordFollowUpSent(strconv.Itoa(step.Stage))
	uc.Logger.Info("follow-up recorded",
		zap.String("lead_id", lead.ID),
		zap.String("entry_id", entry.ID),
		zap.Int("stage", step.Stage),
		zap.Float64("hours_since_reply", hours))

	handOff(ctx, uc.Deliverer, uc.DeliveryTimeout, uc.Logger, lead, entry)
	return entry, nil
}

// RunTick evaluates every lead. A failing lead is logged and skipped; only a
// failure to enumerate leads fails the tick.
func (uc *FollowUpUseCase) RunTick(ctx context.Context) (FollowUpTickResult, error) {
	leads, err := uc.Leads.ListAll(ctx)
	if err != nil {
		return FollowUpTickResult{}, fmt.Errorf("list leads: %w", err)
	}

	var sent, failed, evaluated atomic.Int64

	var g errgroup.Group
	g.SetLimit(max(uc.Concurrency, 1))

	for i := range leads {
		if ctx.Err() != nil {
			uc.Logger.Warn("follow-up tick cancelled", zap.Int("remaining", len(leads)-i), zap.Error(ctx.Err()))
			break
		}
		lead := &leads[i]
		g.Go(func() error {
			evaluated.Add(1)
			entry, err := uc.evaluateSafely(ctx, lead)
			if err != nil {
				failed.Add(1)
				metrics.RecordFollowUpError()
				uc.Logger.Error("follow-up evaluation failed", zap.String("lead_id", lead.ID), zap.Error(err))
				return nil
			}
			if entry != nil {
				sent.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return FollowUpTickResult{
		Evaluated: int(evaluated.Load()),
		Sent:      int(sent.Load()),
		Failed:    int(failed.Load()),
	}, nil
}

func (uc *FollowUpUseCase) evaluateSafely(ctx context.Context, lead *entity.Lead) (entry *entity.ConversationEntry, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating lead: %v", r)
		}
	}()
	return uc.Evaluate(ctx, lead)
}
