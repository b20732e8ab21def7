package thread

import (
	"strings"
	"unicode/utf8"

	sentinal_errors "sentinal-threads/pkg/errors"
)

// BodyRange annotates part of a draft body, e.g. a mention of a group member.
type BodyRange struct {
	Start     int    `json:"start"`
	Length    int    `json:"length"`
	MentionID string `json:"mention_id,omitempty"`
}

// Draft is the unsent composition of a thread.
type Draft struct {
	Body   string      `json:"body"`
	Ranges []BodyRange `json:"ranges,omitempty"`
}

// IsEmpty is true for a nil draft or a blank body without ranges.
func (d *Draft) IsEmpty() bool {
	return d == nil || (strings.TrimSpace(d.Body) == "" && len(d.Ranges) == 0)
}

// Normalize returns nil for an empty draft so that no empty value is ever
// persisted, and rejects ranges that fall outside the body.
func (d *Draft) Normalize() (*Draft, error) {
	if d.IsEmpty() {
		return nil, nil
	}
	length := utf8.RuneCountInString(d.Body)
	for _, r := range d.Ranges {
		if r.Start < 0 || r.Length <= 0 || r.Start+r.Length > length {
			return nil, sentinal_errors.ErrInvalidInput
		}
	}
	out := &Draft{Body: d.Body}
	if len(d.Ranges) > 0 {
		out.Ranges = append([]BodyRange(nil), d.Ranges...)
	}
	return out, nil
}
