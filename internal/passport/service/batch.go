package service

import (
	"context"
	"errors"

	"soulpass/internal/events"
	"soulpass/internal/passport/models"
	id "soulpass/pkg/domain"
	dErrors "soulpass/pkg/domain-errors"
	"soulpass/pkg/platform/sentinel"
	"soulpass/pkg/requestcontext"
)

// BatchCreate issues passports to many owners in one call. The batch shape
// is validated up front (non-empty, at most MaxBatchSize) and fails fast
// before any record is created. Individual entries that are the null
// identity or already hold a passport are skipped, not escalated: one
// malformed entry must not abort a large onboarding batch. The returned ids
// are the passports actually created, in input order.
func (l *Ledger) BatchCreate(ctx context.Context, owners []id.Address) ([]id.TokenID, error) {
	ctx, span := l.startSpan(ctx, "ledger.BatchCreate")
	defer span.End()

	created, err := l.batchCreate(ctx, owners)
	recordSpanErr(span, err)
	return created, err
}

func (l *Ledger) batchCreate(ctx context.Context, owners []id.Address) ([]id.TokenID, error) {
	if err := l.requireAuthority(ctx); err != nil {
		return nil, err
	}
	if err := l.requireUnpaused(); err != nil {
		return nil, err
	}
	if len(owners) == 0 {
		return nil, dErrors.New(dErrors.CodeEmptyBatch, "batch contains no owners")
	}
	if len(owners) > MaxBatchSize {
		return nil, dErrors.New(dErrors.CodeBatchTooLarge, "batch exceeds the onboarding cap")
	}

	now := requestcontext.Now(ctx)
	actor := requestcontext.Caller(ctx).String()
	created := make([]id.TokenID, 0, len(owners))

	for _, owner := range owners {
		p, err := models.NewPassport(owner, now)
		if err != nil {
			// Null identity: skip, keep going.
			l.skipBatchEntry(ctx, owner, "null identity")
			continue
		}

		tokenID, err := l.store.Create(ctx, p)
		if errors.Is(err, sentinel.ErrConflict) {
			l.skipBatchEntry(ctx, owner, "owner already holds a passport")
			continue
		}
		if err != nil {
			return nil, wrapStoreErr(err)
		}

		if err := l.emit(ctx, events.Event{
			Type:       events.TypePassportCreated,
			TokenID:    tokenID,
			Owner:      owner.String(),
			Actor:      actor,
			MemberTier: p.MemberTier,
		}); err != nil {
			return nil, err
		}
		if l.metrics != nil {
			l.metrics.IncrementPassportsCreated()
		}
		created = append(created, tokenID)
	}

	l.logger.InfoContext(ctx, "batch onboarding complete",
		"requested", len(owners),
		"created", len(created),
	)
	return created, nil
}

func (l *Ledger) skipBatchEntry(ctx context.Context, owner id.Address, reason string) {
	if l.metrics != nil {
		l.metrics.IncrementBatchSkipped()
	}
	l.logger.WarnContext(ctx, "batch entry skipped",
		"owner", owner.String(),
		"reason", reason,
	)
}
