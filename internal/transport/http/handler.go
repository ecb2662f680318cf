// Package handler is the HTTP surface of the kernel. It translates wire
// requests into engine commands and verdicts back into JSON; lifecycle rules
// live in the engine and the guard evaluator, never here.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"tradelane/internal/audit"
	"tradelane/internal/engine"
	"tradelane/internal/token"
	id "tradelane/pkg/domain"
	dErrors "tradelane/pkg/domain-errors"
	"tradelane/pkg/platform/httputil"
	"tradelane/pkg/requestcontext"
)

const defaultTokenTTL = time.Hour

// Handler wires kernel endpoints to the engine and the audit reader.
type Handler struct {
	engine *engine.Engine
	reader *audit.Reader
	tokens *token.Service
	logger *slog.Logger
}

func New(eng *engine.Engine, reader *audit.Reader, tokens *token.Service, logger *slog.Logger) *Handler {
	return &Handler{
		engine: eng,
		reader: reader,
		tokens: tokens,
		logger: logger,
	}
}

// Register mounts authenticated kernel endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/trades", h.HandleCreateTrade)
	r.Get("/trades/{tradeID}", h.HandleGetTrade)
	r.Post("/trades/{tradeID}/transitions", h.HandleAttemptTransition)
	r.Post("/trades/{tradeID}/context", h.HandleContextUpdate)
	r.Get("/trades/{tradeID}/events", h.HandleTradeEvents)
	r.Get("/companies/{companyID}/events", h.HandleCompanyEvents)
}

// HandleCreateTrade handles POST /trades.
func (h *Handler) HandleCreateTrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	req, ok := httputil.Decode[CreateTradeRequest](w, r, h.logger)
	if !ok {
		return
	}
	params, err := req.ToParams()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if actor.CompanyID != params.BuyerID && actor.CompanyID != params.SellerID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "creator must be the buyer or the seller"))
		return
	}

	created, err := h.engine.CreateTrade(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "trade creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"actor", actor.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromTrade(created))
}

// HandleGetTrade handles GET /trades/{tradeID}.
func (h *Handler) HandleGetTrade(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	tradeID, err := id.ParseTradeID(chi.URLParam(r, "tradeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	t, err := h.engine.GetTrade(ctx, tradeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !t.Involves(actor.CompanyID) {
		// Render not_found, not forbidden: outsiders cannot probe trade ids.
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "trade not found"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTrade(t))
}

// HandleAttemptTransition handles POST /trades/{tradeID}/transitions.
func (h *Handler) HandleAttemptTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	tradeID, err := id.ParseTradeID(chi.URLParam(r, "tradeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[TransitionRequest](w, r, h.logger)
	if !ok {
		return
	}
	target, err := req.Target()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	t, err := h.engine.GetTrade(ctx, tradeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !t.Involves(actor.CompanyID) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "trade not found"))
		return
	}

	result, err := h.engine.AttemptTransition(ctx, engine.TransitionCommand{
		TradeID: tradeID,
		Target:  target,
		Actor:   actor,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "transition attempt failed",
			"request_id", requestcontext.RequestID(ctx),
			"trade_id", tradeID.String(),
			"actor", actor.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "transition attempt decided",
		"request_id", requestcontext.RequestID(ctx),
		"trade_id", tradeID.String(),
		"actor", actor.String(),
		"target", string(target),
		"decision", string(result.Verdict.Decision),
		"reason", string(result.Verdict.Reason),
	)
	httputil.WriteJSON(w, http.StatusOK, FromTransitionResult(result))
}

// HandleContextUpdate handles POST /trades/{tradeID}/context.
func (h *Handler) HandleContextUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	tradeID, err := id.ParseTradeID(chi.URLParam(r, "tradeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.Decode[ContextUpdateRequest](w, r, h.logger)
	if !ok {
		return
	}
	update, err := req.ToUpdate()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := h.engine.ApplyContextUpdate(ctx, tradeID, update, actor)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTrade(updated))
}

// HandleTradeEvents handles GET /trades/{tradeID}/events.
func (h *Handler) HandleTradeEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	tradeID, err := id.ParseTradeID(chi.URLParam(r, "tradeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	t, err := h.engine.GetTrade(ctx, tradeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !t.Involves(actor.CompanyID) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "trade not found"))
		return
	}

	records, err := h.reader.ReadRecentByTrade(ctx, tradeID, limitParam(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, EventsResponse{Events: records})
}

// HandleCompanyEvents handles GET /companies/{companyID}/events.
func (h *Handler) HandleCompanyEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.Actor(ctx)

	companyID, err := id.ParseCompanyID(chi.URLParam(r, "companyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if actor.CompanyID != companyID {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "feed is limited to the actor's own company"))
		return
	}

	records, err := h.reader.ReadRecentByCompany(ctx, companyID, limitParam(r))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, EventsResponse{Events: records})
}

// HandleMintToken handles POST /tokens. Mounted outside the auth middleware;
// deployments front it with their own issuer in production.
func (h *Handler) HandleMintToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.Decode[MintTokenRequest](w, r, h.logger)
	if !ok {
		return
	}
	actor, err := req.ToActor()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	ttl := defaultTokenTTL
	if req.TTLSecs > 0 {
		ttl = time.Duration(req.TTLSecs) * time.Second
	}
	minted, err := h.tokens.Mint(actor, ttl)
	if err != nil {
		h.logger.ErrorContext(ctx, "token minting failed", "error", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "mint token"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TokenResponse{
		Token:     minted,
		ExpiresIn: int64(ttl.Seconds()),
	})
}

func limitParam(r *http.Request) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return limit
}
