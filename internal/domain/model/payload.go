package model

import (
	"fmt"
	"strings"
	"time"
)

// EventPayload is the JSON shape of an engagement event on the wire
// (HTTP bodies, replay files, simulator output).
type EventPayload struct {
	SourceEventID  string `json:"source_event_id"`
	UserID         string `json:"user_id"`
	Username       string `json:"username,omitempty"`
	Platform       string `json:"platform"`
	Action         string `json:"action"`
	RawMetricBonus int    `json:"raw_metric_bonus,omitempty"`
	OccurredAt     string `json:"occurred_at,omitempty"` // RFC 3339
}

// ToEvent normalizes and validates the payload. A missing occurred_at stays zero.
func (p EventPayload) ToEvent() (EngagementEvent, error) {
	platform, err := ParsePlatform(p.Platform)
	if err != nil {
		return EngagementEvent{}, err
	}
	action, err := ParseAction(p.Action)
	if err != nil {
		return EngagementEvent{}, err
	}

	var at time.Time
	if s := strings.TrimSpace(p.OccurredAt); s != "" {
		at, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return EngagementEvent{}, fmt.Errorf("%w: occurred_at: %w", ErrInvalidEvent, err)
		}
	}

	e := EngagementEvent{
		SourceEventID:  p.SourceEventID,
		UserID:         p.UserID,
		Username:       p.Username,
		Platform:       platform,
		Action:         action,
		RawMetricBonus: p.RawMetricBonus,
		OccurredAt:     at,
	}.Normalize()
	if err := e.Validate(); err != nil {
		return EngagementEvent{}, err
	}
	return e, nil
}

// PayloadOf converts an event to its wire form.
func PayloadOf(e EngagementEvent) EventPayload {
	p := EventPayload{
		SourceEventID:  e.SourceEventID,
		UserID:         e.UserID,
		Username:       e.Username,
		Platform:       string(e.Platform),
		Action:         string(e.Action),
		RawMetricBonus: e.RawMetricBonus,
	}
	if !e.OccurredAt.IsZero() {
		p.OccurredAt = e.OccurredAt.UTC().Format(time.RFC3339Nano)
	}
	return p
}
