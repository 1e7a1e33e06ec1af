// Package store owns the site content for the lifetime of the process. It
// loads content from the hosted database, falls back to the local cache and
// then to the bundled defaults, and applies section updates optimistically.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aselya-coder/PraktisiMengajar/internal/cache"
	"github.com/aselya-coder/PraktisiMengajar/internal/model"
)

// Remote is the hosted content table.
type Remote interface {
	FetchAll(ctx context.Context) ([]model.Row, error)
	Upsert(ctx context.Context, row model.Row) error
}

// Cache holds one serialized copy of the whole content document.
type Cache interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

var (
	ErrRemoteNotConfigured = errors.New("remote content store is not configured")
	ErrRemoteEmpty         = errors.New("remote content store has no rows")
)

// Source names where the current content came from.
type Source string

const (
	SourceNone     Source = "none"
	SourceRemote   Source = "remote"
	SourceCache    Source = "cache"
	SourceDefaults Source = "defaults"
)

// LoadResult describes one pass through the fallback chain.
type LoadResult struct {
	Source Source
	// RemoteErr explains why remote rows were not used.
	RemoteErr error
	// CacheErr explains why the cache was not used when defaults were.
	CacheErr error
	// Missing lists sections absent from the remote rows, filled from defaults.
	Missing []model.SectionKey
	Ignored []string
}

type Status int

const (
	// StatusConfirmed: the record is stored remotely and cached locally.
	StatusConfirmed Status = iota + 1
	// StatusFailed: the remote write failed and content was reloaded.
	StatusFailed
	// StatusRejected: the key or record was invalid; nothing changed.
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusFailed:
		return "failed"
	case StatusRejected:
		return "rejected"
	}
	return "unknown"
}

// UpdateResult is the outcome of Update.
type UpdateResult struct {
	Section model.SectionKey
	Status  Status
	Err     error
	// Reconciled is the reload that followed a failed write.
	Reconciled *LoadResult
}

func (r UpdateResult) OK() bool { return r.Status == StatusConfirmed }

// Message is the notice shown to the editor.
func (r UpdateResult) Message() string {
	if r.OK() {
		return fmt.Sprintf("%s updated successfully", r.Section)
	}
	if r.Err == nil {
		return fmt.Sprintf("Failed to update %s", r.Section)
	}
	return fmt.Sprintf("Failed to update %s: %v", r.Section, r.Err)
}

// Store is the single source of truth for site content during a session.
type Store struct {
	remote   Remote
	cache    Cache
	defaults *model.Content
	log      *zap.Logger
	metrics  *Metrics

	// writeMu serializes loads and updates; mu guards the fields below it.
	writeMu sync.Mutex
	mu      sync.RWMutex
	content *model.Content
	source  Source
	loaded  bool

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

type Option func(*Store)

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New returns a store serving defaults until the first Load. A nil remote
// means no hosted database is configured; a nil cache never hits.
func New(remote Remote, c Cache, defaults *model.Content, opts ...Option) *Store {
	if defaults == nil {
		defaults = &model.Content{}
	}
	if c == nil {
		c = cache.Nop{}
	}
	s := &Store{
		remote:   remote,
		cache:    c,
		defaults: defaults.Clone(),
		log:      zap.NewNop(),
		content:  defaults.Clone(),
		source:   SourceNone,
		subs:     make(map[int]chan Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With(zap.String("module", "store"))
	return s
}

// Load runs the fallback chain: remote rows, then the local cache, then the
// bundled defaults. It never fails; the result says which source won.
func (s *Store) Load(ctx context.Context) LoadResult {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.load(ctx)
}

func (s *Store) load(ctx context.Context) LoadResult {
	content, cov, err := s.fetchRemote(ctx)
	if err == nil {
		s.set(content, SourceRemote)
		s.writeCache(ctx, content)
		if len(cov.Ignored) > 0 {
			s.log.Warn("ignoring rows outside the section set", zap.Strings("keys", cov.Ignored))
		}
		if len(cov.Missing) > 0 {
			s.log.Info("sections missing remotely, using defaults", zap.Stringers("sections", cov.Missing))
		}
		s.log.Info("content loaded", zap.String("source", string(SourceRemote)))
		return s.finishLoad(LoadResult{Source: SourceRemote, Missing: cov.Missing, Ignored: cov.Ignored})
	}

	res := LoadResult{RemoteErr: err}
	if errors.Is(err, ErrRemoteEmpty) || errors.Is(err, ErrRemoteNotConfigured) {
		s.log.Info("remote content unavailable, falling back", zap.Error(err))
	} else {
		s.log.Warn("remote content unreachable, falling back", zap.Error(err))
	}

	cached, cerr := s.readCache(ctx)
	if cerr == nil {
		s.set(cached, SourceCache)
		res.Source = SourceCache
	} else {
		s.set(s.defaults.Clone(), SourceDefaults)
		res.Source = SourceDefaults
		res.CacheErr = cerr
	}
	s.log.Info("content loaded", zap.String("source", string(res.Source)))
	return s.finishLoad(res)
}

func (s *Store) finishLoad(res LoadResult) LoadResult {
	s.metrics.loaded(res.Source)
	s.publish(Event{Kind: EventLoaded, Source: res.Source})
	return res
}

func (s *Store) fetchRemote(ctx context.Context) (*model.Content, model.Coverage, error) {
	if s.remote == nil {
		return nil, model.Coverage{}, ErrRemoteNotConfigured
	}
	start := time.Now()
	rows, err := s.remote.FetchAll(ctx)
	s.metrics.observeRemote("fetch", start, err)
	if err != nil {
		return nil, model.Coverage{}, fmt.Errorf("fetch content: %w", err)
	}
	if len(rows) == 0 {
		return nil, model.Coverage{}, ErrRemoteEmpty
	}
	content, cov, err := model.FromRows(rows, s.defaults)
	if err != nil {
		return nil, model.Coverage{}, fmt.Errorf("malformed remote content: %w", err)
	}
	return content, cov, nil
}

func (s *Store) readCache(ctx context.Context) (*model.Content, error) {
	data, err := s.cache.Read(ctx)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.log.Warn("local cache unreadable", zap.Error(err))
		}
		return nil, err
	}
	content, err := model.Decode(data, s.defaults)
	if err != nil {
		s.log.Warn("discarding malformed local cache", zap.Error(err))
		return nil, fmt.Errorf("malformed cache: %w", err)
	}
	return content, nil
}

func (s *Store) writeCache(ctx context.Context, content *model.Content) {
	data, err := model.Encode(content)
	if err == nil {
		err = s.cache.Write(context.WithoutCancel(ctx), data)
	}
	if err != nil {
		s.log.Warn("failed to write local cache", zap.Error(err))
	}
}

func (s *Store) set(content *model.Content, source Source) {
	s.mu.Lock()
	s.content = content
	s.source = source
	s.loaded = true
	s.mu.Unlock()
}

// Update replaces one section. The new record is visible to readers before
// the remote write starts. When the write fails the store reloads through the
// fallback chain instead of undoing the change field by field.
func (s *Store) Update(ctx context.Context, key model.SectionKey, record any) UpdateResult {
	res := UpdateResult{Section: key}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	row, err := model.EncodeSection(key, record)
	if err == nil {
		s.mu.Lock()
		err = s.content.SetSection(key, record)
		s.mu.Unlock()
	}
	if err != nil {
		res.Status = StatusRejected
		res.Err = err
		s.metrics.updated(key, res.Status)
		return res
	}
	s.publish(Event{Kind: EventTentative, Section: key})

	if err := s.upsert(ctx, row); err != nil {
		res.Status = StatusFailed
		res.Err = err
		s.log.Warn("section update failed, reloading", zap.Stringer("section", key), zap.Error(err))
		// The caller's context may be the reason for the failure; the
		// reconciliation must still run to completion.
		reload := s.load(context.WithoutCancel(ctx))
		res.Reconciled = &reload
		s.metrics.updated(key, res.Status)
		s.publish(Event{Kind: EventReconciled, Section: key, Source: reload.Source})
		return res
	}

	s.writeCache(ctx, s.Content())
	res.Status = StatusConfirmed
	s.log.Info("section updated", zap.Stringer("section", key))
	s.metrics.updated(key, res.Status)
	s.publish(Event{Kind: EventConfirmed, Section: key, Source: s.Source()})
	return res
}

func (s *Store) upsert(ctx context.Context, row model.Row) error {
	if s.remote == nil {
		return ErrRemoteNotConfigured
	}
	start := time.Now()
	err := s.remote.Upsert(ctx, row)
	s.metrics.observeRemote("upsert", start, err)
	return err
}

// Content returns a deep copy of the current content.
func (s *Store) Content() *model.Content {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content.Clone()
}

// Section returns a copy of one section's record.
func (s *Store) Section(key model.SectionKey) (any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.content.Section(key)
}

func (s *Store) Source() Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Loaded reports whether Load has completed at least once.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Defaults returns a copy of the bundled dataset the store falls back to.
func (s *Store) Defaults() *model.Content {
	return s.defaults.Clone()
}
