package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/tracekeeper/internal/logging"
	"github.com/gorilla/mux"
)

// NewRouter wires the contact routes under /api/v1/contacts.
func NewRouter(h *Handler, jwtSecret []byte, logger logging.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggerMiddleware(logger))

	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	contacts := r.PathPrefix("/api/v1/contacts").Subrouter()
	contacts.Use(AuthMiddleware(jwtSecret))

	contacts.HandleFunc("/temp_id", h.TemporaryIDs).Methods(http.MethodGet)
	contacts.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	contacts.HandleFunc("/upload/status", h.UploadStatus).Methods(http.MethodGet)
	contacts.HandleFunc("/status", h.ExposureStatus).Methods(http.MethodGet)

	return r
}
