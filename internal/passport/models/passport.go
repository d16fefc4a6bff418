package models

import (
	"time"

	id "soulpass/pkg/domain"
	dErrors "soulpass/pkg/domain-errors"
)

// Creation defaults. Member tier is free-form and externally assigned; only
// the initial value is fixed here.
const (
	DefaultMemberTier = "Bronze"
	DefaultRank       = "Standard"
)

// Passport is the aggregate root for one soulbound achievement passport.
//
// Invariants:
//   - Owner is non-null and immutable after creation; the only exit path is
//     explicit destruction by the owner.
//   - At most one passport exists per owner at any time (enforced by the
//     store's owner index).
//   - Badges only grow; no operation removes or edits an existing entry.
//   - EcosystemLevel is derived from AchievementCount on every counts update
//     and is never set directly.
//   - IDs are sequential and never reused after destruction.
//
// There is no transfer path. The type has no operation that changes Owner;
// the service answers every transfer-shaped call with CodeNonTransferable.
type Passport struct {
	ID                id.TokenID `json:"id"`
	Owner             id.Address `json:"owner"`
	MemberTier        string     `json:"member_tier"`
	EcosystemLevel    Level      `json:"ecosystem_level"`
	TotalRewardEarned uint64     `json:"total_reward_earned"`
	AchievementCount  uint64     `json:"achievement_count"`
	CollectibleCount  uint64     `json:"collectible_count"`
	Active            bool       `json:"is_active"`
	Rank              string     `json:"rank"`
	Badges            []string   `json:"badges"`
	CustomMetadataURI string     `json:"custom_metadata_uri,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// NewPassport constructs a passport with creation defaults. The store assigns
// the token id on insert.
func NewPassport(owner id.Address, now time.Time) (*Passport, error) {
	if owner.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidOwner, "owner cannot be the null identity")
	}
	return &Passport{
		Owner:          owner,
		MemberTier:     DefaultMemberTier,
		EcosystemLevel: LevelNewcomer,
		Active:         true,
		Rank:           DefaultRank,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ApplyCounts overwrites the caller-supplied absolute values and recomputes
// the ecosystem level. Use inside Execute callbacks.
func (p *Passport) ApplyCounts(memberTier string, rewardTotal, achievements, collectibles uint64, now time.Time) {
	p.MemberTier = memberTier
	p.TotalRewardEarned = rewardTotal
	p.AchievementCount = achievements
	p.CollectibleCount = collectibles
	p.EcosystemLevel = LevelForAchievements(achievements)
	p.UpdatedAt = now
}

// ApplyActive sets the active flag. The flag is independently togglable and
// no state transition is forbidden.
func (p *Passport) ApplyActive(active bool, now time.Time) {
	p.Active = active
	p.UpdatedAt = now
}

// ApplyRankBadge relabels the rank (even if unchanged) and appends exactly
// one badge. Badges are historical markers: no dedup, no edits.
func (p *Passport) ApplyRankBadge(rank, badge string, now time.Time) {
	p.Rank = rank
	p.Badges = append(p.Badges, badge)
	p.UpdatedAt = now
}

// ApplyCustomMetadataURI sets or clears (empty string) the per-record
// metadata override.
func (p *Passport) ApplyCustomMetadataURI(uri string, now time.Time) {
	p.CustomMetadataURI = uri
	p.UpdatedAt = now
}

// CanDestroyBy checks the self-destruction right: only the owner may burn
// its passport.
func (p *Passport) CanDestroyBy(caller id.Address) error {
	if caller != p.Owner {
		return dErrors.New(dErrors.CodeUnauthorized, "only the owner may destroy its passport")
	}
	return nil
}

// Clone returns a deep copy so no caller ever holds a reference into store
// internals.
func (p *Passport) Clone() *Passport {
	cp := *p
	cp.Badges = append([]string(nil), p.Badges...)
	return &cp
}
