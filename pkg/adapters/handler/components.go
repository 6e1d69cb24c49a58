package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/wadjakorntonsri/pretty-links/pkg/core/domain"
	"github.com/wadjakorntonsri/pretty-links/pkg/logger"
	"github.com/wadjakorntonsri/pretty-links/pkg/ports"
)

const maxBodyBytes = 1 << 20

type ComponentHandler struct {
	service ports.ComponentService
}

func NewComponentHandler(service ports.ComponentService) *ComponentHandler {
	return &ComponentHandler{service: service}
}

// CreateComponentRequest payload
type CreateComponentRequest struct {
	Name      string `json:"name"`
	MainURL   string `json:"main_url"`
	LatestURL string `json:"latest_url"`
}

// UpdateComponentRequest payload. Omitted fields are left unchanged.
type UpdateComponentRequest struct {
	MainURL   *string `json:"main_url,omitempty"`
	LatestURL *string `json:"latest_url,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func (h *ComponentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateComponentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	component, err := h.service.Create(r.Context(), principal(r), req.Name, req.MainURL, req.LatestURL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, component)
}

func (h *ComponentHandler) List(w http.ResponseWriter, r *http.Request) {
	components, err := h.service.List(r.Context(), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, components)
}

func (h *ComponentHandler) Get(w http.ResponseWriter, r *http.Request) {
	component, err := h.service.Get(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, component)
}

func (h *ComponentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateComponentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch := domain.ComponentPatch{MainURL: req.MainURL, LatestURL: req.LatestURL}
	component, err := h.service.Update(r.Context(), principal(r), r.PathValue("id"), patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, component)
}

func (h *ComponentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), principal(r), r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ComponentHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *domain.InvalidRecordError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: invalid.Error(), Field: invalid.Field})
	case domain.IsDuplicateID(err):
		writeError(w, http.StatusConflict, err.Error())
	case domain.IsNotFound(err):
		writeError(w, http.StatusNotFound, "no such component")
	default:
		logger.WithContext(r.Context()).WithError(err).Error("component operation failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func principal(r *http.Request) domain.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
