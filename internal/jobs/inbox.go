package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"iou-ledger/internal/bridge"
	"iou-ledger/internal/domain"
	"iou-ledger/internal/logger"
)

const (
	processedDir = "processed"
	failedDir    = "failed"

	settleDelay = 300 * time.Millisecond
	pollEvery   = 250 * time.Millisecond
	retryDelay  = 5 * time.Second
)

// ParseInboxName reads the batch identity from a sheet file name of the form
// OWNER_YYMMDD_SOURCE.csv, e.g. ABC_240301_E.csv.
func ParseInboxName(name string) (bridge.BatchHeader, error) {
	base := filepath.Base(name)
	if !strings.EqualFold(filepath.Ext(base), ".csv") {
		return bridge.BatchHeader{}, fmt.Errorf("%w: %s is not a .csv file", domain.ErrInvalidArgument, base)
	}
	parts := strings.Split(strings.TrimSuffix(base, filepath.Ext(base)), "_")
	if len(parts) != 3 {
		return bridge.BatchHeader{}, fmt.Errorf("%w: %s does not match OWNER_YYMMDD_SOURCE.csv", domain.ErrInvalidArgument, base)
	}
	source := domain.SourceType(strings.ToUpper(parts[2]))
	if err := source.Validate(); err != nil {
		return bridge.BatchHeader{}, err
	}
	if !source.IsBatch() {
		return bridge.BatchHeader{}, fmt.Errorf("%w: %s uses the manual source type", domain.ErrInvalidArgument, base)
	}
	if err := domain.ValidateDate(parts[1]); err != nil {
		return bridge.BatchHeader{}, err
	}
	return bridge.BatchHeader{OwnerCode: parts[0], Date: parts[1], SourceType: source}, nil
}

// InboxWatcher imports sheets dropped into a directory. Imported and
// duplicate sheets move to processed/. Sheets that hit a retryable storage
// error stay in the inbox; anything else moves to failed/.
type InboxWatcher struct {
	jobs *JobRunner
	dir  string
}

func NewInboxWatcher(jr *JobRunner, dir string) (*InboxWatcher, error) {
	for _, sub := range []string{processedDir, failedDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("failed to create inbox directory: %w", err)
		}
	}
	return &InboxWatcher{jobs: jr, dir: dir}, nil
}

// Run processes sheets already present, then watches for new ones until ctx
// is done. Files are handled after they stop changing for a short while.
func (iw *InboxWatcher) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(iw.dir); err != nil {
		return err
	}
	logger.Info("Watching import inbox", "dir", iw.dir)

	// pending maps a sheet to the time it is due for processing.
	pending := map[string]time.Time{}
	sheets, err := iw.sheets()
	if err != nil {
		logger.ErrorContext(ctx, "Inbox scan failed", "error", err)
	}
	for _, path := range sheets {
		pending[path] = time.Now()
	}

	ticker := time.NewTicker(pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if filepath.Dir(ev.Name) != filepath.Clean(iw.dir) || !isSheet(ev.Name) {
				logger.DebugContext(ctx, "Ignoring inbox event", "name", ev.Name, "op", ev.Op.String())
				continue
			}
			pending[ev.Name] = time.Now().Add(settleDelay)
		case <-ticker.C:
			now := time.Now()
			for path, due := range pending {
				if now.Before(due) {
					continue
				}
				delete(pending, path)
				if err := iw.ProcessFile(ctx, path); domain.IsRetryable(err) {
					pending[path] = now.Add(retryDelay)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("Inbox watcher error", "error", err)
		}
	}
}

func (iw *InboxWatcher) sheets() ([]string, error) {
	entries, err := os.ReadDir(iw.dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !isSheet(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(iw.dir, e.Name()))
	}
	return paths, nil
}

// ProcessFile imports one sheet and files it away. The returned error is
// the import outcome. On a retryable error the sheet is left in place;
// otherwise it has been moved.
func (iw *InboxWatcher) ProcessFile(ctx context.Context, path string) error {
	log := logger.WithJob("InboxImport").With("file", filepath.Base(path))

	err := iw.importSheet(ctx, path)
	dest := processedDir
	switch {
	case err == nil:
		log.Info("Imported sheet")
	case errors.Is(err, domain.ErrDuplicateBatch):
		log.Info("Sheet already imported", "error", err)
	case errors.Is(err, os.ErrNotExist):
		return err
	case domain.IsRetryable(err):
		log.Warn("Sheet import will be retried", "error", err)
		return err
	default:
		dest = failedDir
		log.Error("Sheet import failed", "error", err)
	}

	if mvErr := os.Rename(path, filepath.Join(iw.dir, dest, filepath.Base(path))); mvErr != nil {
		log.Error("Failed to move sheet", "error", mvErr)
	}
	return err
}

func (iw *InboxWatcher) importSheet(ctx context.Context, path string) error {
	header, err := ParseInboxName(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	batch, err := bridge.ReadBatch(f, header)
	if err != nil {
		return err
	}
	_, err = iw.jobs.ledger.ImportBatch(ctx, iw.jobs.SystemActor(), batch)
	return err
}

func isSheet(name string) bool {
	base := filepath.Base(name)
	return !strings.HasPrefix(base, ".") && strings.EqualFold(filepath.Ext(base), ".csv")
}
