// Package events carries the ledger's outbound event stream. Downstream
// indexers consume these to discover passports off-process; nothing in this
// service reads them back for business decisions.
package events

import (
	"context"
	"time"

	id "soulpass/pkg/domain"
)

// Type names one ledger event. The names are a consumer contract.
type Type string

const (
	TypePassportCreated   Type = "passport_created"
	TypeCountsUpdated     Type = "counts_updated"
	TypeActivated         Type = "activated"
	TypeDeactivated       Type = "deactivated"
	TypeRankChanged       Type = "rank_changed"
	TypeBadgeAdded        Type = "badge_added"
	TypePassportDestroyed Type = "passport_destroyed"
	TypeMetadataURISet    Type = "metadata_uri_set"
	TypeLedgerPaused      Type = "ledger_paused"
	TypeLedgerUnpaused    Type = "ledger_unpaused"
)

// Event is emitted from domain logic to capture key ledger actions. Keep it
// transport-agnostic so stores and sinks can fan out.
//
// TokenID/Owner are unset for ledger-wide events (pause/unpause). The payload
// fields carry only what each event type needs; unused ones stay zero and are
// omitted from JSON.
type Event struct {
	ID        string     `json:"id"`
	Type      Type       `json:"type"`
	Timestamp time.Time  `json:"timestamp"`
	TokenID   id.TokenID `json:"token_id"`
	Owner     string     `json:"owner,omitempty"`
	Actor     string     `json:"actor,omitempty"`

	MemberTier  string `json:"member_tier,omitempty"`
	RewardTotal uint64 `json:"reward_total,omitempty"`
	Rank        string `json:"rank,omitempty"`
	Badge       string `json:"badge,omitempty"`
	ActiveFlag  bool   `json:"active,omitempty"`

	// Request correlation, set from request context by the publisher.
	RequestID string `json:"request_id,omitempty"`
	Device    string `json:"device,omitempty"`
}

// Sink receives events. Implementations must be safe for concurrent use.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Store is a sink that also supports reads, for explorers and tests.
type Store interface {
	Sink
	ListByToken(ctx context.Context, tokenID id.TokenID) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
