package http

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"iou-ledger/internal/bridge"
	"iou-ledger/internal/domain"
	"iou-ledger/internal/service"
	"iou-ledger/internal/storage"
)

const maxImportBytes = 8 << 20

// BridgeHandler serves the spreadsheet import and CSV export endpoints.
type BridgeHandler struct {
	ledger   service.LedgerService
	exporter *bridge.Exporter
	archive  storage.ArchiveStore
}

func NewBridgeHandler(ledger service.LedgerService, exporter *bridge.Exporter, archive storage.ArchiveStore) *BridgeHandler {
	return &BridgeHandler{ledger: ledger, exporter: exporter, archive: archive}
}

type importResponse struct {
	BatchKey string   `json:"batch_key"`
	DebtIDs  []string `json:"debt_ids"`
}

// HandleImport reads a CSV sheet from the body. The batch identity comes from
// the owner_code, date, source_type and optional owner_id query parameters.
func (h *BridgeHandler) HandleImport(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromRequest(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing actor")
		return
	}
	q := r.URL.Query()
	source := domain.SourceType(q.Get("source_type"))
	if source == "" {
		source = domain.SourceSpreadsheet
	}
	header := bridge.BatchHeader{
		OwnerCode:  q.Get("owner_code"),
		Date:       q.Get("date"),
		SourceType: source,
		OwnerID:    q.Get("owner_id"),
	}

	batch, err := bridge.ReadBatch(http.MaxBytesReader(w, r.Body, maxImportBytes), header)
	if err != nil {
		writeError(w, err)
		return
	}
	debts, err := h.ledger.ImportBatch(r.Context(), actor, batch)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := importResponse{DebtIDs: make([]string, len(debts))}
	for i, d := range debts {
		resp.DebtIDs[i] = d.ID
		resp.BatchKey = d.BatchKey()
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *BridgeHandler) exportOptions(r *http.Request) (bridge.ExportOptions, error) {
	q := r.URL.Query()
	groupBy, err := bridge.ParseGroupBy(q.Get("group_by"))
	if err != nil {
		return bridge.ExportOptions{}, err
	}
	summary := false
	if v := q.Get("summary"); v != "" {
		if summary, err = strconv.ParseBool(v); err != nil {
			return bridge.ExportOptions{}, fmt.Errorf("%w: summary %q is not a boolean", domain.ErrInvalidFilter, v)
		}
	}
	return bridge.ExportOptions{GroupBy: groupBy, Summary: summary}, nil
}

// render queries the caller's visible debts and writes the CSV into a buffer
// so a failure never leaves a truncated response.
func (h *BridgeHandler) render(r *http.Request) (*bytes.Buffer, error) {
	actor, ok := ActorFromRequest(r)
	if !ok {
		return nil, domain.ErrForbidden
	}
	filter, err := bridge.ParseFilter(r.URL.Query())
	if err != nil {
		return nil, err
	}
	opts, err := h.exportOptions(r)
	if err != nil {
		return nil, err
	}
	debts, err := h.ledger.QueryDebts(r.Context(), actor, filter)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := h.exporter.Write(&buf, debts, opts); err != nil {
		return nil, err
	}
	return &buf, nil
}

func (h *BridgeHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	buf, err := h.render(r)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="debts.csv"`)
	w.WriteHeader(http.StatusOK)
	io.Copy(w, buf)
}

// HandleArchiveExport stores the rendered export and returns its key.
// Archive routes are wrapped in requireUnrestricted.
func (h *BridgeHandler) HandleArchiveExport(w http.ResponseWriter, r *http.Request) {
	buf, err := h.render(r)
	if err != nil {
		writeError(w, err)
		return
	}
	key, err := h.archive.Put(r.Context(), "debts.csv", buf)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

type archiveEntry struct {
	Key     string `json:"key"`
	Size    int64  `json:"size"`
	ModTime string `json:"mod_time"`
}

func (h *BridgeHandler) HandleListArchive(w http.ResponseWriter, r *http.Request) {
	objs, err := h.archive.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]archiveEntry, len(objs))
	for i, o := range objs {
		out[i] = archiveEntry{Key: o.Key, Size: o.Size, ModTime: o.ModTime.UTC().Format("2006-01-02T15:04:05Z")}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleDownloadArchive streams a stored snapshot.
func (h *BridgeHandler) HandleDownloadArchive(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	rc, err := h.archive.Open(r.Context(), key)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, key))
	io.Copy(w, rc)
}

// requireUnrestricted limits archive access to admins and managers since
// snapshots written by the scheduler hold every owner's debts.
func requireUnrestricted(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromRequest(r)
		if !ok || !actor.Unrestricted() {
			writeError(w, domain.ErrForbidden)
			return
		}
		next(w, r)
	}
}
