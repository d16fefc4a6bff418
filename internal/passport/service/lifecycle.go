package service

import (
	"context"

	"soulpass/internal/events"
	"soulpass/pkg/requestcontext"
)

// Pause flips the ledger into its paused state. While paused every mutation
// except owner-initiated destruction is rejected; reads are unaffected.
// Pausing an already-paused ledger is a no-op that still succeeds.
func (l *Ledger) Pause(ctx context.Context) error {
	ctx, span := l.startSpan(ctx, "ledger.Pause")
	defer span.End()

	err := l.setPaused(ctx, true)
	recordSpanErr(span, err)
	return err
}

// Unpause lifts the pause switch and restores normal operation.
func (l *Ledger) Unpause(ctx context.Context) error {
	ctx, span := l.startSpan(ctx, "ledger.Unpause")
	defer span.End()

	err := l.setPaused(ctx, false)
	recordSpanErr(span, err)
	return err
}

// Paused reports whether the ledger currently rejects mutations.
func (l *Ledger) Paused() bool {
	l.pauseMu.RLock()
	defer l.pauseMu.RUnlock()
	return l.paused
}

func (l *Ledger) setPaused(ctx context.Context, paused bool) error {
	if err := l.requireAuthority(ctx); err != nil {
		return err
	}

	l.pauseMu.Lock()
	changed := l.paused != paused
	l.paused = paused
	l.pauseMu.Unlock()

	if !changed {
		return nil
	}

	eventType := events.TypeLedgerPaused
	if !paused {
		eventType = events.TypeLedgerUnpaused
	}
	if err := l.emit(ctx, events.Event{
		Type:  eventType,
		Actor: requestcontext.Caller(ctx).String(),
	}); err != nil {
		return err
	}

	l.logger.InfoContext(ctx, "ledger lifecycle changed", "paused", paused)
	return nil
}
