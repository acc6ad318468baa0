package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"iou-ledger/internal/security"
)

// NewRouter registers the bridge endpoints. Everything under /api/v1 needs a
// bearer token; /healthz is public.
func NewRouter(h *BridgeHandler, tokens security.TokenManager) *mux.Router {
	router := mux.NewRouter()
	router.Use(LoggingMiddleware)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(AuthMiddleware(tokens))
	api.HandleFunc("/imports", h.HandleImport).Methods("POST")
	api.HandleFunc("/exports", h.HandleExport).Methods("GET")
	api.HandleFunc("/exports/archive", requireUnrestricted(h.HandleArchiveExport)).Methods("POST")
	api.HandleFunc("/exports/archive", requireUnrestricted(h.HandleListArchive)).Methods("GET")
	api.HandleFunc("/exports/archive/{key}", requireUnrestricted(h.HandleDownloadArchive)).Methods("GET")
	return router
}
