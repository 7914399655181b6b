// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Platform identifies the external service an engagement happened on.
type Platform string

// Supported platforms.
const (
	PlatformTwitter  Platform = "twitter"
	PlatformTelegram Platform = "telegram"
	PlatformDiscord  Platform = "discord"
)

// Platforms returns every supported platform in a stable order.
func Platforms() []Platform {
	return []Platform{PlatformTwitter, PlatformTelegram, PlatformDiscord}
}

// Valid reports whether p is a supported platform.
func (p Platform) Valid() bool {
	switch p {
	case PlatformTwitter, PlatformTelegram, PlatformDiscord:
		return true
	}
	return false
}

// ParsePlatform normalizes s and returns the matching platform.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %w %q", ErrInvalidEvent, ErrUnknownPlatform, s)
	}
	return p, nil
}

// Action is the closed vocabulary of engagement actions across all platforms.
// Each platform scores a subset of it; see the weights package.
type Action string

// Known actions.
const (
	ActionMention  Action = "mention"
	ActionLike     Action = "like"
	ActionReply    Action = "reply"
	ActionRetweet  Action = "retweet"
	ActionQuote    Action = "quote"
	ActionMessage  Action = "message"
	ActionReaction Action = "reaction"
	ActionInvite   Action = "invite"
	ActionCommand  Action = "command"
	ActionVoice    Action = "voice"
)

// Actions returns every known action.
func Actions() []Action {
	return []Action{
		ActionMention, ActionLike, ActionReply, ActionRetweet, ActionQuote,
		ActionMessage, ActionReaction, ActionInvite, ActionCommand, ActionVoice,
	}
}

// Valid reports whether a is part of the known vocabulary.
func (a Action) Valid() bool {
	switch a {
	case ActionMention, ActionLike, ActionReply, ActionRetweet, ActionQuote,
		ActionMessage, ActionReaction, ActionInvite, ActionCommand, ActionVoice:
		return true
	}
	return false
}

// ParseAction normalizes s and returns the matching action.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if !a.Valid() {
		return "", fmt.Errorf("%w: %w %q", ErrInvalidEvent, ErrUnknownAction, s)
	}
	return a, nil
}

// EngagementEvent is a single normalized user action emitted by a platform producer.
type EngagementEvent struct {
	SourceEventID  string    // platform-unique id, used for dedup
	UserID         string    // stable per-platform user id
	Username       string    // best-effort display name
	Platform       Platform  // originating platform
	Action         Action    // action tag
	RawMetricBonus int       // optional bonus input (e.g. like count on the source post)
	OccurredAt     time.Time // when the action happened, not when it was ingested
}

// Normalize trims the identifier fields. Every entry point into the
// coordinator calls it, so " a" and "a" share one dedup key.
func (e EngagementEvent) Normalize() EngagementEvent {
	e.SourceEventID = strings.TrimSpace(e.SourceEventID)
	e.UserID = strings.TrimSpace(e.UserID)
	e.Username = strings.TrimSpace(e.Username)
	return e
}

// Validate checks the event against the known vocabulary. Every failure wraps ErrInvalidEvent.
func (e EngagementEvent) Validate() error {
	switch {
	case !e.Platform.Valid():
		return fmt.Errorf("%w: %w %q", ErrInvalidEvent, ErrUnknownPlatform, e.Platform)
	case !e.Action.Valid():
		return fmt.Errorf("%w: %w %q", ErrInvalidEvent, ErrUnknownAction, e.Action)
	case strings.TrimSpace(e.SourceEventID) == "":
		return fmt.Errorf("%w: %w source_event_id", ErrInvalidEvent, ErrMissingField)
	case strings.TrimSpace(e.UserID) == "":
		return fmt.Errorf("%w: %w user_id", ErrInvalidEvent, ErrMissingField)
	case e.RawMetricBonus < 0:
		return fmt.Errorf("%w: negative raw metric bonus %d", ErrInvalidEvent, e.RawMetricBonus)
	}
	return nil
}

// DedupKey returns the (platform, sourceEventId) key used by the dedup filter.
func (e EngagementEvent) DedupKey() string {
	return string(e.Platform) + ":" + e.SourceEventID
}
