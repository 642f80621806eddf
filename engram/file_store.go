package engram

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
)

// FileEngramStore is a Store backed by a date-partitioned directory tree:
// {root}/YYYY/MM/DD/{uuid}.json, as required by spec §4.1 and §6.
type FileEngramStore struct {
	root   string
	logger *slog.Logger
}

// FileStoreOption configures a FileEngramStore, following the teacher's
// functional-options idiom (options.go).
type FileStoreOption func(*FileEngramStore)

// WithLogger attaches a structured logger; the zero value discards output.
func WithLogger(logger *slog.Logger) FileStoreOption {
	return func(s *FileEngramStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewFileEngramStore creates a file-backed store rooted at root. The
// directory is created lazily on first Save.
func NewFileEngramStore(root string, opts ...FileStoreOption) *FileEngramStore {
	s := &FileEngramStore{
		root:   root,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FileEngramStore) pathFor(e Engram) string {
	started := e.StartedAt
	dir := filepath.Join(s.root,
		fmt.Sprintf("%04d", started.Year()),
		fmt.Sprintf("%02d", started.Month()),
		fmt.Sprintf("%02d", started.Day()),
	)
	return filepath.Join(dir, e.ID.String()+".json")
}

// Save writes e to its date-partitioned path via write-temp-then-rename so
// a concurrent reader never observes a partially-written file (spec §4.1
// "Failure semantics").
func (s *FileEngramStore) Save(ctx context.Context, e Engram) error {
	if !e.Finalized() {
		return &NotFinalizedError{ID: e.ID.String()}
	}

	path := s.pathFor(e)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("engram: create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("engram: marshal %s: %w", e.ID, err)
	}

	tmp, err := os.CreateTemp(dir, e.ID.String()+".*.tmp")
	if err != nil {
		return fmt.Errorf("engram: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("engram: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("engram: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("engram: rename into place: %w", err)
	}

	s.logger.DebugContext(ctx, "engram saved", "engram_id", e.ID, "path", path)
	return nil
}

// Get locates {uuid}.json by scanning the date-partitioned tree, verifies
// its content hash, and returns the decoded Engram.
func (s *FileEngramStore) Get(ctx context.Context, id uuid.UUID) (Engram, error) {
	path, err := s.findPath(id)
	if err != nil {
		return Engram{}, err
	}
	if path == "" {
		return Engram{}, &NotFoundError{ID: id.String()}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Engram{}, &NotFoundError{ID: id.String()}
		}
		return Engram{}, fmt.Errorf("engram: read %s: %w", path, err)
	}

	var e Engram
	if err := json.Unmarshal(data, &e); err != nil {
		return Engram{}, fmt.Errorf("engram: unmarshal %s: %w", path, err)
	}

	if !e.VerifyIntegrity() {
		return Engram{}, &IntegrityError{ID: id.String()}
	}
	return e, nil
}

// findPath walks the tree looking for a file named {id}.json.
func (s *FileEngramStore) findPath(id uuid.UUID) (string, error) {
	target := id.String() + ".json"
	var found string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() && d.Name() == target {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("engram: scan store: %w", err)
	}
	return found, nil
}

// List walks the entire tree, decoding every recognized engram file and
// filtering by q. Files that fail to decode are skipped rather than
// causing the call to fail, per spec §4.1's forward-compatibility clause.
func (s *FileEngramStore) List(ctx context.Context, q Query) ([]Engram, error) {
	var results []Engram

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}

		data, readErr := os.ReadFile(path)
		if readErr != nil {
			s.logger.Warn("engram: skipping unreadable file", "path", path, "error", readErr)
			return nil
		}

		var e Engram
		if unmarshalErr := json.Unmarshal(data, &e); unmarshalErr != nil {
			s.logger.Warn("engram: skipping unrecognized file", "path", path)
			return nil
		}

		if matches(e, q) {
			results = append(results, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("engram: scan store: %w", err)
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].StartedAt.After(results[j].StartedAt)
	})
	return results, nil
}

func matches(e Engram, q Query) bool {
	if q.TenantID != "" && e.TenantID != q.TenantID {
		return false
	}
	if q.AgentID != "" && e.AgentID != q.AgentID {
		return false
	}
	if q.SessionID != "" && e.ID.String() != q.SessionID {
		return false
	}
	if !q.FromTime.IsZero() && e.StartedAt.Before(q.FromTime) {
		return false
	}
	if !q.ToTime.IsZero() && e.StartedAt.After(q.ToTime) {
		return false
	}
	return true
}
