package service

import (
	"context"

	"soulpass/internal/events"
	"soulpass/internal/passport/models"
	id "soulpass/pkg/domain"
	"soulpass/pkg/requestcontext"
)

// UpdateCounts overwrites the tier and the three absolute counters supplied
// by the achievement-decision service and rederives the ecosystem level.
// Authority-only; fails while paused.
func (l *Ledger) UpdateCounts(ctx context.Context, tokenID id.TokenID, memberTier string, rewardTotal, achievements, collectibles uint64) error {
	ctx, span := l.startSpan(ctx, "ledger.UpdateCounts")
	defer span.End()

	err := l.updateCounts(ctx, tokenID, memberTier, rewardTotal, achievements, collectibles)
	recordSpanErr(span, err)
	return err
}

func (l *Ledger) updateCounts(ctx context.Context, tokenID id.TokenID, memberTier string, rewardTotal, achievements, collectibles uint64) error {
	if err := l.requireAuthority(ctx); err != nil {
		return err
	}
	if err := l.requireUnpaused(); err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	updated, err := l.store.Execute(ctx, tokenID, nil, func(p *models.Passport) {
		p.ApplyCounts(memberTier, rewardTotal, achievements, collectibles, now)
	})
	if err != nil {
		return wrapStoreErr(err)
	}

	if err := l.emit(ctx, events.Event{
		Type:        events.TypeCountsUpdated,
		TokenID:     tokenID,
		MemberTier:  updated.MemberTier,
		RewardTotal: updated.TotalRewardEarned,
	}); err != nil {
		return err
	}

	l.cache.Invalidate(ctx, tokenID)
	return nil
}

// SetActive toggles the active flag. Authority-only; fails while paused.
// Activation and deactivation emit distinct event types so observers can
// tell suspension apart from routine updates.
func (l *Ledger) SetActive(ctx context.Context, tokenID id.TokenID, active bool) error {
	ctx, span := l.startSpan(ctx, "ledger.SetActive")
	defer span.End()

	err := l.setActive(ctx, tokenID, active)
	recordSpanErr(span, err)
	return err
}

func (l *Ledger) setActive(ctx context.Context, tokenID id.TokenID, active bool) error {
	if err := l.requireAuthority(ctx); err != nil {
		return err
	}
	if err := l.requireUnpaused(); err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	_, err := l.store.Execute(ctx, tokenID, nil, func(p *models.Passport) {
		p.ApplyActive(active, now)
	})
	if err != nil {
		return wrapStoreErr(err)
	}

	eventType := events.TypeDeactivated
	if active {
		eventType = events.TypeActivated
	}
	if err := l.emit(ctx, events.Event{
		Type:       eventType,
		TokenID:    tokenID,
		ActiveFlag: active,
	}); err != nil {
		return err
	}

	l.cache.Invalidate(ctx, tokenID)
	return nil
}

// Read returns a point-in-time snapshot of the record. Side-effect-free.
func (l *Ledger) Read(ctx context.Context, tokenID id.TokenID) (*models.Passport, error) {
	p, err := l.store.FindByID(ctx, tokenID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return p, nil
}
