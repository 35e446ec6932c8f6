package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-crm/internal/usecase"
)

const (
	FollowUpJobName = "followup"
	UsageJobName    = "usage"
)

type followUpRunner interface {
	RunTick(ctx context.Context) (usecase.FollowUpTickResult, error)
}

type usageRunner interface {
	EvaluateAllUsers(ctx context.Context) (usecase.UsageTickResult, error)
}

// NewFollowUpJob walks every lead each interval. It does not fire at start.
func NewFollowUpJob(uc followUpRunner, interval, timeout time.Duration, logger *zap.Logger) *Job {
	return &Job{
		Name:     FollowUpJobName,
		Interval: interval,
		Timeout:  timeout,
		Run: func(ctx context.Context) error {
			res, err := uc.RunTick(ctx)
			if err != nil {
				return err
			}
			logger.Info("follow-up tick done",
				zap.Int("evaluated", res.Evaluated),
				zap.Int("sent", res.Sent),
				zap.Int("failed", res.Failed))
			return nil
		},
	}
}

// NewUsageJob checks usage once at start and then on every interval
// boundary (the top of each hour by default).
func NewUsageJob(uc usageRunner, interval, timeout time.Duration, logger *zap.Logger) *Job {
	return &Job{
		Name:       UsageJobName,
		Interval:   interval,
		Timeout:    timeout,
		RunAtStart: true,
		Aligned:    true,
		Run: func(ctx context.Context) error {
			res, err := uc.EvaluateAllUsers(ctx)
			if err != nil {
				return err
			}
			logger.Info("usage tick done",
				zap.Int("users", res.Users),
				zap.Int("notifications", res.Notifications),
				zap.Int("failed", res.Failed))
			return nil
		},
	}
}
