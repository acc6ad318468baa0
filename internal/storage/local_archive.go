package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"iou-ledger/internal/logger"
)

var (
	ErrNotFound   = errors.New("archive object not found")
	ErrInvalidKey = errors.New("invalid archive key")
)

// LocalArchive implements ArchiveStore on a local directory.
type LocalArchive struct {
	dir string
}

// NewLocalArchive creates dir if needed.
func NewLocalArchive(dir string) (*LocalArchive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}
	return &LocalArchive{dir: dir}, nil
}

func (a *LocalArchive) Dir() string {
	return a.dir
}

// Put writes to a temp file first and renames it into place so readers never
// see a partial snapshot.
func (a *LocalArchive) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "export"
	}
	key := fmt.Sprintf("%s-%s%s", base, uuid.NewString()[:8], extOrDefault(name))

	tmp, err := os.CreateTemp(a.dir, ".upload-*")
	if err != nil {
		logger.StorageCall("put", key, err)
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: r}); err != nil {
		tmp.Close()
		logger.StorageCall("put", key, err)
		return "", fmt.Errorf("failed to write archive object: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close archive object: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(a.dir, key)); err != nil {
		logger.StorageCall("put", key, err)
		return "", fmt.Errorf("failed to store archive object: %w", err)
	}
	logger.StorageCall("put", key, nil)
	return key, nil
}

func (a *LocalArchive) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := a.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open archive object: %w", err)
	}
	return f, nil
}

func (a *LocalArchive) Exists(ctx context.Context, key string) (bool, int64, error) {
	path, err := a.path(key)
	if err != nil {
		return false, 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, 0, nil
		}
		return false, 0, err
	}
	return true, info.Size(), nil
}

func (a *LocalArchive) List(ctx context.Context) ([]ArchiveObject, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	var out []ArchiveObject
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, ArchiveObject{Key: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Key > out[j].Key
		}
		return out[i].ModTime.After(out[j].ModTime)
	})
	return out, nil
}

func (a *LocalArchive) Delete(ctx context.Context, key string) error {
	path, err := a.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		logger.StorageCall("delete", key, err)
		return fmt.Errorf("failed to delete archive object: %w", err)
	}
	logger.StorageCall("delete", key, nil)
	return nil
}

// path confines keys to the archive directory.
func (a *LocalArchive) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return filepath.Join(a.dir, key), nil
}

func extOrDefault(name string) string {
	if ext := filepath.Ext(name); ext != "" {
		return ext
	}
	return ".csv"
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
