package entity

// CadenceStep is one row of the follow-up table. A step fires when
// MinHours <= hours since the last reply < MaxHours and exactly Stage
// follow-ups were already sent in the current silence window.
// MaxHours == 0 leaves the range open ended.
type CadenceStep struct {
	MinHours float64 `toml:"min_hours"`
	MaxHours float64 `toml:"max_hours"`
	Stage    int     `toml:"stage"`
	Message  string  `toml:"message"`
}

func (s CadenceStep) Matches(hours float64, sent int) bool {
	if hours < s.MinHours {
		return false
	}
	if s.MaxHours > 0 && hours >= s.MaxHours {
		return false
	}
	return sent == s.Stage
}

func DefaultCadence() []CadenceStep {
	return []CadenceStep{
		{MinHours: 24, MaxHours: 48, Stage: 0, Message: "Hey, just checking back! Are you still interested?"},
		{MinHours: 48, MaxHours: 168, Stage: 1, Message: "I have access to exclusive listings. Want early access?"},
		{MinHours: 168, Stage: 2, Message: "I don't want to bother, but if you're interested, I'm here to help!"},
	}
}
