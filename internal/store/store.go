package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned for unknown or malformed ids
	ErrNotFound = errors.New("report not found")
	// ErrExpired is returned for reports past their TTL
	ErrExpired = errors.New("report expired")
)

// Entry describes one stored report
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"-"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Stats summarizes the store
type Stats struct {
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
}

// Store keeps generated reports on disk under UUID keys until they expire
type Store struct {
	dir    string
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]Entry
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates dir if needed and returns an empty store
func New(dir string, ttl time.Duration, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create store dir: %w", err)
	}
	s := &Store{
		dir:     dir,
		ttl:     ttl,
		now:     time.Now,
		logger:  zap.NewNop(),
		entries: make(map[string]Entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Create writes data under a fresh id. name is the download file name.
func (s *Store) Create(data []byte, name string) (Entry, error) {
	id := uuid.NewString()
	path := filepath.Join(s.dir, id+filepath.Ext(name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Entry{}, fmt.Errorf("failed to write report: %w", err)
	}

	now := s.now()
	e := Entry{
		ID:        id,
		Name:      name,
		Path:      path,
		Size:      int64(len(data)),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.entries[id] = e
	s.mu.Unlock()

	s.logger.Debug("report stored", zap.String("id", id), zap.String("name", name), zap.Int64("size", e.Size))
	return e, nil
}

// Lookup returns the entry for id
func (s *Store) Lookup(id string) (Entry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Entry{}, ErrNotFound
	}

	s.mu.Lock()
	e, ok := s.entries[id]
	s.mu.Unlock()

	if !ok {
		return Entry{}, ErrNotFound
	}
	if !s.now().Before(e.ExpiresAt) {
		return Entry{}, ErrExpired
	}
	return e, nil
}

// Expire removes every entry whose TTL has passed at now and returns how
// many were removed.
func (s *Store) Expire(now time.Time) (int, error) {
	s.mu.Lock()
	var expired []Entry
	for id, e := range s.entries {
		if !now.Before(e.ExpiresAt) {
			expired = append(expired, e)
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, e := range expired {
		if err := os.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if len(expired) > 0 {
		s.logger.Info("expired reports removed", zap.Int("count", len(expired)))
	}
	return len(expired), errors.Join(errs...)
}

// Stats returns entry count and total size
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Entries: len(s.entries)}
	for _, e := range s.entries {
		st.Bytes += e.Size
	}
	return st
}

// Run expires entries every interval until ctx is done
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Expire(s.now()); err != nil {
				s.logger.Warn("report cleanup failed", zap.Error(err))
			}
		}
	}
}
