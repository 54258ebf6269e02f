package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"noticeboard/internal/notice/model"
	"noticeboard/internal/notice/service"
	"noticeboard/pkg/logger"

	"github.com/gorilla/mux"
)

const (
	msgCreated         = "Notice created successfully"
	msgUpdated         = "Notice updated successfully"
	msgDeleted         = "Notice deleted successfully"
	msgNotFound        = "Notice not found"
	msgInternal        = "Internal Server Error"
	msgInvalidBody     = "Invalid request body"
	msgMissingFields   = "Title and content are required"
	healthCheckTimeout = 2 * time.Second
)

type NoticeHandler struct {
	Service *service.NoticeService
}

func NewNoticeHandler(service *service.NoticeService) *NoticeHandler {
	return &NoticeHandler{Service: service}
}

func (h *NoticeHandler) GetNotices(w http.ResponseWriter, r *http.Request) {
	notices, err := h.Service.ListNotices(r.Context())
	if err != nil {
		h.writeError(w, "list", err)
		return
	}
	writeJSON(w, http.StatusOK, notices)
}

func (h *NoticeHandler) GetNotice(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.GetNotice(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (h *NoticeHandler) CreateNotice(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	n, err := h.Service.CreateNotice(r.Context(), req)
	if err != nil {
		h.writeError(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, model.NoticeResponse{Message: msgCreated, Note: n})
}

func (h *NoticeHandler) UpdateNotice(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	n, err := h.Service.UpdateNotice(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.writeError(w, "update", err)
		return
	}
	writeJSON(w, http.StatusOK, model.NoticeResponse{Message: msgUpdated, Note: n})
}

func (h *NoticeHandler) DeleteNotice(w http.ResponseWriter, r *http.Request) {
	n, err := h.Service.DeleteNotice(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, "delete", err)
		return
	}
	writeJSON(w, http.StatusOK, model.NoticeResponse{Message: msgDeleted, Note: n})
}

func (h *NoticeHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := h.Service.Health(ctx); err != nil {
		logger.Sugar.Errorf("Health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, model.HealthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, model.HealthResponse{Status: "ok"})
}

// writeError maps the service error taxonomy onto a status and JSON body.
func (h *NoticeHandler) writeError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Message: msgMissingFields, Error: err.Error()})
	case errors.Is(err, service.ErrNotFound):
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Message: msgNotFound, Error: err.Error()})
	default:
		logger.Sugar.Errorf("Handler: Failed to %s notice: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Message: msgInternal, Error: err.Error()})
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (model.NoticeRequest, bool) {
	var req model.NoticeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{Message: msgInvalidBody, Error: err.Error()})
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Sugar.Errorf("Error encoding response: %v", err)
	}
}
