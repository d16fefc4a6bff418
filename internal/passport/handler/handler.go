// Package handler is the thin HTTP layer over the passport ledger. It
// decodes, delegates, and encodes; authorization lives in the service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"soulpass/internal/events"
	"soulpass/internal/passport/models"
	"soulpass/internal/platform/metrics"
	"soulpass/internal/platform/middleware"
	"soulpass/internal/transport/http/shared"
	id "soulpass/pkg/domain"
	dErrors "soulpass/pkg/domain-errors"
)

// Service defines the ledger operations the HTTP layer needs.
type Service interface {
	Create(ctx context.Context, owner id.Address) (id.TokenID, error)
	BatchCreate(ctx context.Context, owners []id.Address) ([]id.TokenID, error)
	Read(ctx context.Context, tokenID id.TokenID) (*models.Passport, error)
	Transfer(ctx context.Context, tokenID id.TokenID, to id.Address) error
	Destroy(ctx context.Context, tokenID id.TokenID) error
	UpdateCounts(ctx context.Context, tokenID id.TokenID, memberTier string, rewardTotal, achievements, collectibles uint64) error
	SetActive(ctx context.Context, tokenID id.TokenID, active bool) error
	UpdateRankBadge(ctx context.Context, tokenID id.TokenID, rank, badge string) error
	RankOf(ctx context.Context, tokenID id.TokenID) (string, error)
	BadgesOf(ctx context.Context, tokenID id.TokenID) ([]string, error)
	Exists(ctx context.Context, owner id.Address) (bool, error)
	IDOf(ctx context.Context, owner id.Address) (id.TokenID, error)
	RenderMetadata(ctx context.Context, tokenID id.TokenID) (string, error)
	SetCustomMetadataURI(ctx context.Context, tokenID id.TokenID, uri string) error
	SetDefaultMetadataBase(ctx context.Context, base string) error
	Pause(ctx context.Context) error
	Unpause(ctx context.Context) error
	Paused() bool
}

// EventReader is the read side of the event store, for explorer endpoints.
type EventReader interface {
	ListByToken(ctx context.Context, tokenID id.TokenID) ([]events.Event, error)
	ListRecent(ctx context.Context, limit int) ([]events.Event, error)
}

// Handler handles passport ledger endpoints.
type Handler struct {
	logger    *slog.Logger
	ledger    Service
	eventsRd  EventReader
	metrics   *metrics.Metrics
	validator middleware.CallerValidator
}

// New creates a new passport Handler. eventsRd may be nil, which disables
// the explorer endpoints.
func New(
	ledger Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	validator middleware.CallerValidator,
	eventsRd EventReader) *Handler {
	return &Handler{
		logger:    logger,
		ledger:    ledger,
		eventsRd:  eventsRd,
		metrics:   m,
		validator: validator,
	}
}

// Register mounts all passport routes. Reads are public; every mutation goes
// through the bearer-token middleware so the service sees a caller identity.
func (h *Handler) Register(r chi.Router) {
	base := chi.NewRouter()
	base.Use(middleware.Recovery(h.logger))
	base.Use(middleware.RequestID)
	base.Use(middleware.RequestTime)
	base.Use(middleware.Device)
	base.Use(middleware.Logger(h.logger))
	base.Use(middleware.Timeout(30 * time.Second))
	base.Use(middleware.ContentTypeJSON)
	base.Use(middleware.LatencyMiddleware(h.metrics))

	base.Group(func(pub chi.Router) {
		pub.Get("/passports/{id}", h.handleRead)
		pub.Get("/passports/{id}/metadata", h.handleRenderMetadata)
		pub.Get("/passports/{id}/rank", h.handleRankOf)
		pub.Get("/passports/{id}/badges", h.handleBadgesOf)
		pub.Get("/owners/{address}", h.handleOwnerLookup)
		if h.eventsRd != nil {
			pub.Get("/passports/{id}/events", h.handleTokenEvents)
			pub.Get("/events", h.handleRecentEvents)
		}
	})

	base.Group(func(auth chi.Router) {
		auth.Use(middleware.RequireAuth(h.validator, h.logger))
		auth.Post("/passports", h.handleCreate)
		auth.Post("/passports/batch", h.handleBatchCreate)
		auth.Post("/passports/{id}/transfer", h.handleTransfer)
		auth.Delete("/passports/{id}", h.handleDestroy)
		auth.Put("/passports/{id}/counts", h.handleUpdateCounts)
		auth.Put("/passports/{id}/active", h.handleSetActive)
		auth.Put("/passports/{id}/rank", h.handleUpdateRankBadge)
		auth.Put("/passports/{id}/metadata-uri", h.handleSetMetadataURI)
		auth.Put("/admin/metadata-base", h.handleSetMetadataBase)
		auth.Post("/admin/pause", h.handlePause)
		auth.Post("/admin/unpause", h.handleUnpause)
		auth.Get("/admin/status", h.handleStatus)
	})

	r.Mount("/", base)
}

func (h *Handler) tokenIDParam(r *http.Request) (id.TokenID, error) {
	return id.ParseTokenID(chi.URLParam(r, "id"))
}

func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := h.decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	owner, err := id.ParseAddress(req.Owner)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	tokenID, err := h.ledger.Create(r.Context(), owner)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"token_id": tokenID,
		"owner":    owner.String(),
	})
}

func (h *Handler) handleBatchCreate(w http.ResponseWriter, r *http.Request) {
	var req batchCreateRequest
	if err := h.decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	created, err := h.ledger.BatchCreate(r.Context(), req.parseOwners())
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, map[string]any{
		"requested": len(req.Owners),
		"created":   created,
	})
}

func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request) {
	tokenID, err := h.tokenIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	p, err := h.ledger.Read(r.Context(), tokenID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	tokenID, err := h.tokenIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req transferRequest
	if err := h.decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	to, err := id.ParseAddress(req.To)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	// Soulbound: this always fails, but routing it through the service keeps
	// the refusal and its error shape in one place.
	err = h.ledger.Transfer(r.Context(), tokenID, to)
	shared.WriteError(w, err)
}

func (h *Handler) handleDestroy(w http.ResponseWriter, r *http.Request) {
	tokenID, err := h.tokenIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.ledger.Destroy(r.Context(), tokenID); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateCounts(w http.ResponseWriter, r *http.Request) {
	tokenID, err := h.tokenIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req updateCountsRequest
	if err := h.decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	err = h.ledger.UpdateCounts(r.Context(), tokenID, req.MemberTier, req.RewardTotal, req.Achievements, req.Collectibles)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	tokenID, err := h.tokenIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req setActiveRequest
	if err := h.decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.ledger.SetActive(r.Context(), tokenID, req.Active); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateRankBadge(w http.ResponseWriter, r *http.Request) {
	tokenID, err := h.tokenIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req rankBadgeRequest
	if err := h.decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.ledger.UpdateRankBadge(r.Context(), tokenID, req.Rank, req.Badge); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRankOf(w http.ResponseWriter, r *http.Request) {
	tokenID, err := h.tokenIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	rank, err := h.ledger.RankOf(r.Context(), tokenID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"rank": rank})
}

func (h *Handler) handleBadgesOf(w http.ResponseWriter, r *http.Request) {
	tokenID, err := h.tokenIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	badges, err := h.ledger.BadgesOf(r.Context(), tokenID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string][]string{"badges": badges})
}

func (h *Handler) handleOwnerLookup(w http.ResponseWriter, r *http.Request) {
	owner, err := id.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	exists, err := h.ledger.Exists(r.Context(), owner)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if !exists {
		shared.WriteJSON(w, http.StatusOK, map[string]any{"exists": false})
		return
	}

	tokenID, err := h.ledger.IDOf(r.Context(), owner)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"exists":   true,
		"token_id": tokenID,
	})
}

func (h *Handler) handleRenderMetadata(w http.ResponseWriter, r *http.Request) {
	tokenID, err := h.tokenIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	uri, err := h.ledger.RenderMetadata(r.Context(), tokenID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]string{"uri": uri})
}

func (h *Handler) handleSetMetadataURI(w http.ResponseWriter, r *http.Request) {
	tokenID, err := h.tokenIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req metadataURIRequest
	if err := h.decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.ledger.SetCustomMetadataURI(r.Context(), tokenID, req.URI); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSetMetadataBase(w http.ResponseWriter, r *http.Request) {
	var req metadataBaseRequest
	if err := h.decode(r, &req); err != nil {
		shared.WriteError(w, err)
		return
	}

	if err := h.ledger.SetDefaultMetadataBase(r.Context(), req.Base); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Pause(r.Context()); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnpause(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.Unpause(r.Context()); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"paused": h.ledger.Paused()})
}

func (h *Handler) handleTokenEvents(w http.ResponseWriter, r *http.Request) {
	tokenID, err := h.tokenIDParam(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	recorded, err := h.eventsRd.ListByToken(r.Context(), tokenID)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read events"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": recorded})
}

func (h *Handler) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	recorded, err := h.eventsRd.ListRecent(r.Context(), limit)
	if err != nil {
		shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read events"))
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"events": recorded})
}
