package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/entity"
	"github.com/xavierca1/ligue-crm/internal/infra/metrics"
)

const (
	KindNearLimit = "near_limit"
	KindExceeded  = "exceeded"
)

// UsageNotifierUseCase turns usage counters into alerts. It keeps no state:
// a user who stays in the near-limit or exceeded band is notified again on
// every run.
type UsageNotifierUseCase struct {
	Usage         entity.UsageRepositoryInterface
	Notifications entity.NotificationRepositoryInterface
	NearRatio     float64
	LimitRatio    float64
	Logger        *zap.Logger
}

func NewUsageNotifierUseCase(
	usage entity.UsageRepositoryInterface,
	notifications entity.NotificationRepositoryInterface,
	nearRatio, limitRatio float64,
	logger *zap.Logger,
) *UsageNotifierUseCase {
	return &UsageNotifierUseCase{
		Usage:         usage,
		Notifications: notifications,
		NearRatio:     nearRatio,
		LimitRatio:    limitRatio,
		Logger:        logger,
	}
}

type UsageTickResult struct {
	Users         int
	Notifications int
	Failed        int
}

// UsageAlert is one channel crossing a threshold.
type UsageAlert struct {
	Channel entity.Channel
	Kind    string
	Used    int
	Limit   int
	Percent int
}

// Alerts applies the threshold rules to one counter. Unprovisioned counters
// yield nothing.
func (uc *UsageNotifierUseCase) Alerts(c entity.UsageCounter) []UsageAlert {
	if !c.Provisioned() {
		return nil
	}

	var alerts []UsageAlert
	for _, ch := range entity.Channels {
		used, limit, _ := c.Usage(ch)

		ratio := 0.0
		if limit != 0 {
			ratio = float64(used) / float64(limit)
		}

		switch {
		case limit != 0 && ratio >= uc.NearRatio && ratio < uc.LimitRatio:
			// integer division is floor for non-negative counters
			pct := int(int64(used) * 100 / int64(limit))
			alerts = append(alerts, UsageAlert{Channel: ch, Kind: KindNearLimit, Used: used, Limit: limit, Percent: pct})
		case float64(used) >= float64(limit)*uc.LimitRatio:
			// limit == 0 lands here too, including used == 0
			alerts = append(alerts, UsageAlert{Channel: ch, Kind: KindExceeded, Used: used, Limit: limit})
		}
	}
	return alerts
}

func notificationFor(userID string, a UsageAlert) entity.Notification {
	if a.Kind == KindNearLimit {
		return entity.NewNotification(userID,
			"Usage Alert",
			fmt.Sprintf("You have used %d%% of your %s limit (%d/%d).", a.Percent, a.Channel, a.Used, a.Limit),
			entity.NotificationTypeUsage)
	}
	return entity.NewNotification(userID,
		"Usage Limit Reached",
		fmt.Sprintf("You have reached your %s limit (%d/%d). Upgrade your package to keep going.", a.Channel, a.Used, a.Limit),
		entity.NotificationTypeUsage)
}

// EvaluateAllUsers writes one batch of notifications per user that has at
// least one qualifying channel. A failing user is logged and skipped.
func (uc *UsageNotifierUseCase) EvaluateAllUsers(ctx context.Context) (UsageTickResult, error) {
	counters, err := uc.Usage.ListAll(ctx)
	if err != nil {
		return UsageTickResult{}, fmt.Errorf("list usage counters: %w", err)
	}

	var res UsageTickResult
	for _, c := range counters {
		if ctx.Err() != nil {
			uc.Logger.Warn("usage tick cancelled", zap.Error(ctx.Err()))
			break
		}
		res.Users++
		n, err := uc.evaluateUser(ctx, c)
		if err != nil {
			res.Failed++
			uc.Logger.Error("usage evaluation failed", zap.String("user_id", c.UserID), zap.Error(err))
			continue
		}
		res.Notifications += n
	}
	return res, nil
}

func (uc *UsageNotifierUseCase) evaluateUser(ctx context.Context, c entity.UsageCounter) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating usage: %v", r)
		}
	}()

	alerts := uc.Alerts(c)
	if len(alerts) == 0 {
		return 0, nil
	}

	batch := make([]entity.Notification, 0, len(alerts))
	for _, a := range alerts {
		batch = append(batch, notificationFor(c.UserID, a))
	}
	if err := uc.Notifications.CreateBatch(ctx, batch); err != nil {
		return 0, storeError("failed to write usage notifications", err)
	}

	for _, a := range alerts {
		metrics.RecordUsageNotification(string(a.Channel), a.Kind)
	}
	return len(batch), nil
}
