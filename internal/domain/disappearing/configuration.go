package disappearing

import "github.com/google/uuid"

// Configuration is the disappearing-message timer of a thread. It is owned by
// the timer subsystem; threads only read it.
type Configuration struct {
	ThreadID        uuid.UUID `json:"thread_id"`
	Enabled         bool      `json:"enabled"`
	DurationSeconds uint32    `json:"duration_seconds"`
}

// EffectiveDuration is zero whenever the timer is off.
func (c Configuration) EffectiveDuration() uint32 {
	if !c.Enabled {
		return 0
	}
	return c.DurationSeconds
}
