package service

import (
	"context"

	"soulpass/internal/events"
	"soulpass/internal/passport/models"
	id "soulpass/pkg/domain"
	dErrors "soulpass/pkg/domain-errors"
	"soulpass/pkg/requestcontext"
)

// Create issues a new passport to owner. Authority-only; fails while paused.
// The owner must not be the null identity and must not already hold a
// passport.
func (l *Ledger) Create(ctx context.Context, owner id.Address) (id.TokenID, error) {
	ctx, span := l.startSpan(ctx, "ledger.Create")
	defer span.End()

	tokenID, err := l.create(ctx, owner)
	recordSpanErr(span, err)
	return tokenID, err
}

func (l *Ledger) create(ctx context.Context, owner id.Address) (id.TokenID, error) {
	if err := l.requireAuthority(ctx); err != nil {
		return 0, err
	}
	if err := l.requireUnpaused(); err != nil {
		return 0, err
	}

	p, err := models.NewPassport(owner, requestcontext.Now(ctx))
	if err != nil {
		return 0, err
	}

	tokenID, err := l.store.Create(ctx, p)
	if err != nil {
		return 0, wrapStoreErr(err)
	}

	if err := l.emit(ctx, events.Event{
		Type:       events.TypePassportCreated,
		TokenID:    tokenID,
		Owner:      owner.String(),
		Actor:      requestcontext.Caller(ctx).String(),
		MemberTier: p.MemberTier,
	}); err != nil {
		return 0, err
	}

	if l.metrics != nil {
		l.metrics.IncrementPassportsCreated()
	}
	l.logger.InfoContext(ctx, "passport created",
		"token_id", tokenID.String(),
		"owner", owner.String(),
	)
	return tokenID, nil
}

// Transfer exists only to satisfy transfer-shaped callers: passports are
// soulbound, so it fails unconditionally for every caller, including the
// owner, and changes nothing.
func (l *Ledger) Transfer(ctx context.Context, tokenID id.TokenID, to id.Address) error {
	_, span := l.startSpan(ctx, "ledger.Transfer")
	defer span.End()

	err := dErrors.New(dErrors.CodeNonTransferable, "passports are soulbound and cannot be transferred")
	recordSpanErr(span, err)
	return err
}

// Destroy burns the passport. Only the owner may call it, and it stays
// available while the ledger is paused; destruction frees the owner to
// receive a fresh passport later, but the old id is never reissued.
func (l *Ledger) Destroy(ctx context.Context, tokenID id.TokenID) error {
	ctx, span := l.startSpan(ctx, "ledger.Destroy")
	defer span.End()

	err := l.destroy(ctx, tokenID)
	recordSpanErr(span, err)
	return err
}

func (l *Ledger) destroy(ctx context.Context, tokenID id.TokenID) error {
	caller := requestcontext.Caller(ctx)

	removed, err := l.store.Delete(ctx, tokenID, func(p *models.Passport) error {
		return p.CanDestroyBy(caller)
	})
	if err != nil {
		return wrapStoreErr(err)
	}

	if err := l.emit(ctx, events.Event{
		Type:    events.TypePassportDestroyed,
		TokenID: tokenID,
		Owner:   removed.Owner.String(),
		Actor:   caller.String(),
	}); err != nil {
		return err
	}

	l.cache.Invalidate(ctx, tokenID)
	if l.metrics != nil {
		l.metrics.IncrementPassportsDestroyed()
	}
	l.logger.InfoContext(ctx, "passport destroyed",
		"token_id", tokenID.String(),
		"owner", removed.Owner.String(),
	)
	return nil
}

// Exists reports whether owner currently holds a passport.
func (l *Ledger) Exists(ctx context.Context, owner id.Address) (bool, error) {
	_, err := l.store.FindByOwner(ctx, owner)
	if err == nil {
		return true, nil
	}
	if dErrors.HasCode(wrapStoreErr(err), dErrors.CodeNotFound) {
		return false, nil
	}
	return false, wrapStoreErr(err)
}

// IDOf returns the token id bound to owner.
func (l *Ledger) IDOf(ctx context.Context, owner id.Address) (id.TokenID, error) {
	p, err := l.store.FindByOwner(ctx, owner)
	if err != nil {
		return 0, wrapStoreErr(err)
	}
	return p.ID, nil
}
