package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dvloznov/exchange-desk/internal/api/middleware"
	"github.com/dvloznov/exchange-desk/internal/desk"
	"github.com/dvloznov/exchange-desk/internal/domain"
	"github.com/dvloznov/exchange-desk/internal/jobs"
)

// maxBody caps request bodies; every payload is a handful of short fields.
const maxBody = 16 << 10

// decode reads an optional JSON body into dst. An empty body leaves dst zero.
func decode(r *http.Request, dst interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func actor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	a, ok := middleware.ActorFrom(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Actor is required")
	}
	return a, ok
}

// WizardHandler handles the intake wizard endpoints.
type WizardHandler struct {
	desk *desk.Desk
}

// NewWizardHandler creates a new wizard handler.
func NewWizardHandler(d *desk.Desk) *WizardHandler {
	return &WizardHandler{desk: d}
}

type choiceRequest struct {
	Value string `json:"value"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

// Start handles POST /api/wizard
func (h *WizardHandler) Start(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	respond(w, r, http.StatusCreated)(h.desk.Start(r.Context(), a))
}

// Cancel handles DELETE /api/wizard
func (h *WizardHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	respond(w, r, http.StatusOK)(h.desk.CancelWizard(r.Context(), a))
}

// Choice handles POST /api/wizard/{step} for the four selection steps.
func (h *WizardHandler) Choice(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req choiceRequest
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx := r.Context()
	switch chi.URLParam(r, "step") {
	case "send-method":
		respond(w, r, http.StatusOK)(h.desk.ChooseSendMethod(ctx, a, req.Value))
	case "send-detail":
		respond(w, r, http.StatusOK)(h.desk.ChooseSendDetail(ctx, a, req.Value))
	case "receive-method":
		respond(w, r, http.StatusOK)(h.desk.ChooseReceiveMethod(ctx, a, req.Value))
	case "receive-detail":
		respond(w, r, http.StatusOK)(h.desk.ChooseReceiveDetail(ctx, a, req.Value))
	default:
		middleware.WriteError(w, http.StatusNotFound, "Unknown wizard step")
	}
}

// Amount handles POST /api/wizard/amount
func (h *WizardHandler) Amount(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req amountRequest
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	respond(w, r, http.StatusOK)(h.desk.SubmitAmount(r.Context(), a, req.Amount))
}

// Confirm handles POST /api/wizard/confirm
func (h *WizardHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	respond(w, r, http.StatusCreated)(h.desk.ConfirmTicket(r.Context(), a))
}

// TicketsHandler handles ticket lifecycle endpoints.
type TicketsHandler struct {
	desk *desk.Desk
	log  zerolog.Logger
}

// NewTicketsHandler creates a new tickets handler.
func NewTicketsHandler(d *desk.Desk, log zerolog.Logger) *TicketsHandler {
	return &TicketsHandler{desk: d, log: log}
}

// ListTickets handles GET /api/tickets
func (h *TicketsHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	tickets, err := h.desk.OpenTickets(r.Context(), a)
	if err != nil {
		middleware.WriteDeskError(w, r, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"tickets": tickets,
		"count":   len(tickets),
	})
}

// Claim handles POST /api/tickets/{key}/claim
func (h *TicketsHandler) Claim(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	respond(w, r, http.StatusOK)(h.desk.ClaimTicket(r.Context(), a, chi.URLParam(r, "key")))
}

// Close handles POST /api/tickets/{key}/close
func (h *TicketsHandler) Close(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount string `json:"amount"`
		Reason string `json:"reason"`
	}
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	eff, err := h.desk.CloseTicket(r.Context(), a, chi.URLParam(r, "key"), req.Amount, req.Reason)
	if err != nil && eff.Ticket != nil {
		// Closed, but a follow-up step failed. The closure stands.
		h.log.Warn().Err(err).Str("ticket", eff.Ticket.Key).Msg("Ticket closed with errors")
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"effect":  eff,
			"warning": err.Error(),
		})
		return
	}
	respond(w, r, http.StatusOK)(eff, err)
}

// Middleman handles POST /api/tickets/{key}/middleman
func (h *TicketsHandler) Middleman(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	respond(w, r, http.StatusOK)(h.desk.RequestMiddleman(r.Context(), a, chi.URLParam(r, "key")))
}

// QueriesHandler handles the read-only desk queries and vouches.
type QueriesHandler struct {
	desk *desk.Desk
}

// NewQueriesHandler creates a new queries handler.
func NewQueriesHandler(d *desk.Desk) *QueriesHandler {
	return &QueriesHandler{desk: d}
}

// Total handles GET /api/total
func (h *QueriesHandler) Total(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK)(h.desk.Total(r.Context()))
}

// Fees handles GET /api/fees
func (h *QueriesHandler) Fees(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.desk.Fees())
}

// Vouches handles GET /api/vouches/{user}
func (h *QueriesHandler) Vouches(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK)(h.desk.Vouches(r.Context(), chi.URLParam(r, "user")))
}

// Vouch handles POST /api/vouches/{user}
func (h *QueriesHandler) Vouch(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	respond(w, r, http.StatusCreated)(h.desk.Vouch(r.Context(), a, chi.URLParam(r, "user"), req.Rating, req.Comment))
}

// BlacklistHandler handles blacklist administration.
type BlacklistHandler struct {
	desk *desk.Desk
}

// NewBlacklistHandler creates a new blacklist handler.
func NewBlacklistHandler(d *desk.Desk) *BlacklistHandler {
	return &BlacklistHandler{desk: d}
}

// Check handles GET /api/blacklist/{user}
func (h *BlacklistHandler) Check(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK)(h.desk.BlacklistCheck(r.Context(), chi.URLParam(r, "user")))
}

// Add handles PUT /api/blacklist/{user}
func (h *BlacklistHandler) Add(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decode(r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	respond(w, r, http.StatusOK)(h.desk.BlacklistAdd(r.Context(), a, chi.URLParam(r, "user"), req.Reason))
}

// Remove handles DELETE /api/blacklist/{user}
func (h *BlacklistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	respond(w, r, http.StatusOK)(h.desk.BlacklistRemove(r.Context(), a, chi.URLParam(r, "user")))
}

// respond writes a desk effect with status, or the error mapped to its kind.
func respond(w http.ResponseWriter, r *http.Request, status int) func(desk.Effect, error) {
	return func(eff desk.Effect, err error) {
		if err != nil {
			middleware.WriteDeskError(w, r, err)
			return
		}
		middleware.WriteJSON(w, status, eff)
	}
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "id")

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Debug().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Parse query parameters
	query := r.URL.Query()
	filter := jobs.JobFilter{
		TicketKey: query.Get("ticket"),
		Status:    jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
