package entity

import "context"

type Channel string

const (
	ChannelCalls  Channel = "calls"
	ChannelTexts  Channel = "texts"
	ChannelEmails Channel = "emails"
)

// Channels is the evaluation order for usage alerts.
var Channels = []Channel{ChannelCalls, ChannelTexts, ChannelEmails}

// UsageCounter mirrors the user_usage row. A nil field means the package
// has not been provisioned yet.
type UsageCounter struct {
	UserID      string `json:"user_id"`
	CallsUsed   *int   `json:"calls_used"`
	CallsLimit  *int   `json:"calls_limit"`
	TextsUsed   *int   `json:"texts_used"`
	TextsLimit  *int   `json:"texts_limit"`
	EmailsUsed  *int   `json:"emails_used"`
	EmailsLimit *int   `json:"emails_limit"`
}

// Usage returns the (used, limit) pair for a channel and whether both are set.
func (u *UsageCounter) Usage(ch Channel) (used, limit int, ok bool) {
	var pu, pl *int
	switch ch {
	case ChannelCalls:
		pu, pl = u.CallsUsed, u.CallsLimit
	case ChannelTexts:
		pu, pl = u.TextsUsed, u.TextsLimit
	case ChannelEmails:
		pu, pl = u.EmailsUsed, u.EmailsLimit
	}
	if pu == nil || pl == nil {
		return 0, 0, false
	}
	return *pu, *pl, true
}

// Provisioned reports whether every channel has both used and limit set.
func (u *UsageCounter) Provisioned() bool {
	for _, ch := range Channels {
		if _, _, ok := u.Usage(ch); !ok {
			return false
		}
	}
	return true
}

type UsageRepositoryInterface interface {
	ListAll(ctx context.Context) ([]UsageCounter, error)
}
