package antispam

import (
	"time"

	"guildpilot/internal/utils"
)

const DefaultWindow = 5 * time.Second

// Module tracks recent message timestamps per guild member.
type Module struct {
	windows *utils.WindowSet
}

func New(window time.Duration) *Module {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Module{windows: utils.NewWindowSet(window)}
}

// Check records a message at now and reports whether the member has sent
// more than limit messages inside the window. A non-positive limit disables
// the rule but still records the message.
func (m *Module) Check(guildID, userID string, now time.Time, limit int) bool {
	count := m.windows.Add(guildID+":"+userID, now)
	if limit <= 0 {
		return false
	}
	return count > limit
}

func (m *Module) Sweep(now time.Time) int {
	return m.windows.Sweep(now)
}

func (m *Module) Tracked() int {
	return m.windows.Len()
}
