package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"mailpilot/internal/model"
	"mailpilot/internal/store"
)

// Pipeline is the orchestration surface the API serves.
type Pipeline interface {
	ProcessBatch(ctx context.Context) (model.BatchResult, error)
	SubmitReply(ctx context.Context, id, finalText string) (model.SendStatus, error)
	Discard(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.ProcessedEmail, error)
	Stats(ctx context.Context) (model.MailboxStats, error)
	Healthy() bool
}

type pipelineHandlers struct {
	p   Pipeline
	log *slog.Logger
}

func (h *pipelineHandlers) processEmails(w http.ResponseWriter, r *http.Request) {
	batch, err := h.p.ProcessBatch(r.Context())
	if err != nil {
		h.log.Error("process batch", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	if batch.Emails == nil {
		batch.Emails = []model.ProcessedEmail{}
	}
	writeJSON(w, http.StatusOK, batch)
}

func (h *pipelineHandlers) listEmails(w http.ResponseWriter, r *http.Request) {
	emails, err := h.p.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if emails == nil {
		emails = []model.ProcessedEmail{}
	}
	writeJSON(w, http.StatusOK, emails)
}

type sendRequest struct {
	Body string `json:"body"`
}

func (h *pipelineHandlers) sendEmail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		writeError(w, http.StatusBadRequest, "reply body must not be empty")
		return
	}

	status, err := h.p.SubmitReply(r.Context(), id, req.Body)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if errors.Is(err, store.ErrInvalidTransition) {
			// The record is terminal; report its real status, not pending.
			writeJSON(w, http.StatusConflict, map[string]string{
				"send_status": string(status),
				"error":       err.Error(),
			})
			return
		}
		// Gateway failure: the record stays pending and the caller sees why.
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"send_status": string(model.SendPending),
			"error":       err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"send_status": string(status)})
}

func (h *pipelineHandlers) discardEmail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.p.Discard(r.Context(), id); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"send_status": string(model.SendFailed)})
}

func (h *pipelineHandlers) emailStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.p.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *pipelineHandlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":                "ok",
		"knowledge_base_loaded": h.p.Healthy(),
	})
}
