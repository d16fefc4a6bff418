package service

import (
	"context"

	"soulpass/internal/events"
	"soulpass/internal/passport/models"
	id "soulpass/pkg/domain"
	"soulpass/pkg/requestcontext"
)

// UpdateRankBadge relabels the rank and appends one badge in a single
// indivisible step. Every call grows badge history by exactly one entry;
// labels are taken verbatim (no dedup, no emptiness check beyond what the
// caller passes). Authority-only; fails while paused.
func (l *Ledger) UpdateRankBadge(ctx context.Context, tokenID id.TokenID, rank, badge string) error {
	ctx, span := l.startSpan(ctx, "ledger.UpdateRankBadge")
	defer span.End()

	err := l.updateRankBadge(ctx, tokenID, rank, badge)
	recordSpanErr(span, err)
	return err
}

func (l *Ledger) updateRankBadge(ctx context.Context, tokenID id.TokenID, rank, badge string) error {
	if err := l.requireAuthority(ctx); err != nil {
		return err
	}
	if err := l.requireUnpaused(); err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	updated, err := l.store.Execute(ctx, tokenID, nil, func(p *models.Passport) {
		p.ApplyRankBadge(rank, badge, now)
	})
	if err != nil {
		return wrapStoreErr(err)
	}

	if err := l.emit(ctx, events.Event{
		Type:    events.TypeRankChanged,
		TokenID: tokenID,
		Rank:    updated.Rank,
	}); err != nil {
		return err
	}
	if err := l.emit(ctx, events.Event{
		Type:    events.TypeBadgeAdded,
		TokenID: tokenID,
		Badge:   badge,
	}); err != nil {
		return err
	}

	l.cache.Invalidate(ctx, tokenID)
	return nil
}

// RankOf returns the current rank label.
func (l *Ledger) RankOf(ctx context.Context, tokenID id.TokenID) (string, error) {
	p, err := l.store.FindByID(ctx, tokenID)
	if err != nil {
		return "", wrapStoreErr(err)
	}
	return p.Rank, nil
}

// BadgesOf returns the full badge history in insertion order.
func (l *Ledger) BadgesOf(ctx context.Context, tokenID id.TokenID) ([]string, error) {
	p, err := l.store.FindByID(ctx, tokenID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	if p.Badges == nil {
		return []string{}, nil
	}
	return p.Badges, nil
}
