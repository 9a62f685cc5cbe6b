// Package httpapi exposes the contact service over HTTP/JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/tracekeeper/internal/common"
	"github.com/dmitrijs2005/tracekeeper/internal/logging"
	"github.com/dmitrijs2005/tracekeeper/internal/server/exposure"
	"github.com/dmitrijs2005/tracekeeper/internal/server/tempid"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const maxUploadBody = 16 << 20

// ContactService is the business API served by the handlers.
// *services.ContactService implements it.
type ContactService interface {
	GenerateTemporaryIDs(ctx context.Context, userID uuid.UUID) (*tempid.Batch, error)
	UploadContacts(ctx context.Context, userID uuid.UUID, reports []tempid.ContactReport) (int, error)
	ExposureStatus(ctx context.Context, userID uuid.UUID) (exposure.Status, error)
	UploadRequired(ctx context.Context, userID uuid.UUID) (bool, error)
}

type Handler struct {
	contacts ContactService
	validate *validator.Validate
	logger   logging.Logger
}

func NewHandler(contacts ContactService, logger logging.Logger) *Handler {
	return &Handler{
		contacts: contacts,
		validate: validator.New(),
		logger:   logger.With("module", "http"),
	}
}

// uploadRequest keeps report fields loosely typed; items that are not
// usable are dropped by the codec rather than failing the request.
type uploadRequest struct {
	// about one report per 26 s over the whole lookback
	Tokens []uploadItem `json:"tokens" validate:"max=50000"`
}

type uploadItem struct {
	Token            any `json:"token"`
	ContactTimestamp any `json:"contact_timestamp"`
	SignalStrength   any `json:"signal_strength"`
}

type uploadResponse struct {
	Uploaded int `json:"uploaded"`
}

type uploadStatusResponse struct {
	Status bool `json:"status"`
}

type exposureStatusResponse struct {
	Status exposure.Status `json:"status"`
}

func (h *Handler) TemporaryIDs(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	batch, err := h.contacts.GenerateTemporaryIDs(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadBody))
	dec.UseNumber()

	var req uploadRequest
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reports := make([]tempid.ContactReport, 0, len(req.Tokens))
	for _, it := range req.Tokens {
		reports = append(reports, tempid.ReportFromValues(it.Token, it.ContactTimestamp, it.SignalStrength))
	}

	n, err := h.contacts.UploadContacts(r.Context(), userID, reports)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{Uploaded: n})
}

func (h *Handler) UploadStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	required, err := h.contacts.UploadRequired(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadStatusResponse{Status: required})
}

func (h *Handler) ExposureStatus(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserID(r.Context())

	st, err := h.contacts.ExposureStatus(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exposureStatusResponse{Status: st})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case common.IsPolicyError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrBackendUnavailable):
		h.logger.Warn(r.Context(), "backend unavailable", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
