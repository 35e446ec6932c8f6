package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/metrics"
)

// handOff passes an appended entry to the deliverer with a bounded timeout.
// Failures are logged and counted; the entry stays written either way.
func handOff(ctx context.Context, d Deliverer, timeout time.Duration, logger *zap.Logger, lead *entity.Lead, entry *entity.ConversationEntry) {
	if d == nil {
		return
	}

	channel := lead.PreferredChannel()
	to := lead.Phone
	if channel == entity.ChannelEmails {
		to = lead.Email
	}
	if channel == "" {
		logger.Warn("lead has no reachable channel, entry recorded without delivery",
			zap.String("lead_id", lead.ID), zap.String("entry_id", entry.ID))
		return
	}

	dctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := d.Deliver(dctx, DeliveryRequest{
		EntryID:     entry.ID,
		LeadID:      lead.ID,
		UserID:      lead.UserID,
		Channel:     channel,
		To:          to,
		Name:        lead.Name,
		MessageType: entry.MessageType,
		Text:        entry.Text,
	})
	if err != nil {
		metrics.RecordDeliveryFailure(string(channel))
		logger.Error("delivery handoff failed",
			zap.String("lead_id", lead.ID),
			zap.String("entry_id", entry.ID),
			zap.String("channel", string(channel)),
			zap.Error(err))
	}
}
