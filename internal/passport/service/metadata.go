package service

import (
	"context"

	"soulpass/internal/events"
	"soulpass/internal/passport/models"
	id "soulpass/pkg/domain"
	"soulpass/pkg/requestcontext"
)

// RenderMetadata resolves the metadata URI for a passport: a per-record
// override wins, then the global base, then a synthesized base64 document.
// Rendered documents are cached best-effort; cache failures never fail the
// read.
func (l *Ledger) RenderMetadata(ctx context.Context, tokenID id.TokenID) (string, error) {
	ctx, span := l.startSpan(ctx, "ledger.RenderMetadata")
	defer span.End()

	uri, err := l.renderMetadata(ctx, tokenID)
	recordSpanErr(span, err)
	return uri, err
}

func (l *Ledger) renderMetadata(ctx context.Context, tokenID id.TokenID) (string, error) {
	if uri, ok := l.cache.Get(ctx, tokenID); ok {
		return uri, nil
	}

	p, err := l.store.FindByID(ctx, tokenID)
	if err != nil {
		return "", wrapStoreErr(err)
	}

	uri, err := l.renderer.Render(p)
	if err != nil {
		return "", err
	}
	if l.metrics != nil {
		l.metrics.IncrementMetadataRenders()
	}
	l.cache.Set(ctx, tokenID, uri)
	return uri, nil
}

// SetCustomMetadataURI pins a per-passport metadata override. An empty URI
// clears the override, falling back to the global resolution order.
func (l *Ledger) SetCustomMetadataURI(ctx context.Context, tokenID id.TokenID, uri string) error {
	ctx, span := l.startSpan(ctx, "ledger.SetCustomMetadataURI")
	defer span.End()

	err := l.setCustomMetadataURI(ctx, tokenID, uri)
	recordSpanErr(span, err)
	return err
}

func (l *Ledger) setCustomMetadataURI(ctx context.Context, tokenID id.TokenID, uri string) error {
	if err := l.requireAuthority(ctx); err != nil {
		return err
	}
	if err := l.requireUnpaused(); err != nil {
		return err
	}

	_, err := l.store.Execute(ctx, tokenID, nil, func(p *models.Passport) {
		p.ApplyCustomMetadataURI(uri, requestcontext.Now(ctx))
	})
	if err != nil {
		return wrapStoreErr(err)
	}

	if err := l.emit(ctx, events.Event{
		Type:    events.TypeMetadataURISet,
		TokenID: tokenID,
		Actor:   requestcontext.Caller(ctx).String(),
	}); err != nil {
		return err
	}

	l.cache.Invalidate(ctx, tokenID)
	return nil
}

// SetDefaultMetadataBase replaces the global base URI used for passports
// without a per-record override. Setting an empty base reverts every such
// passport to the synthesized document. All cached renders are invalidated
// since the change affects the whole collection.
func (l *Ledger) SetDefaultMetadataBase(ctx context.Context, base string) error {
	ctx, span := l.startSpan(ctx, "ledger.SetDefaultMetadataBase")
	defer span.End()

	err := l.setDefaultMetadataBase(ctx, base)
	recordSpanErr(span, err)
	return err
}

func (l *Ledger) setDefaultMetadataBase(ctx context.Context, base string) error {
	if err := l.requireAuthority(ctx); err != nil {
		return err
	}
	if err := l.requireUnpaused(); err != nil {
		return err
	}

	l.renderer.SetDefaultBase(base)
	l.cache.InvalidateAll(ctx)
	l.logger.InfoContext(ctx, "default metadata base updated", "base", base)
	return nil
}
