package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/router-for-me/DiaryHub/internal/models"
	log "github.com/sirupsen/logrus"
)

// Default timings for the watcher loop.
const (
	// DefaultPollInterval controls how often collection snapshots are refreshed.
	DefaultPollInterval = 2 * time.Second
	// defaultQueryTimeout bounds backend query duration.
	defaultQueryTimeout = 10 * time.Second
)

// Marker summarizes a collection so the poller can skip unchanged reloads.
type Marker struct {
	UpdatedAt time.Time
	Key       string
	Count     int64
}

// Source reads collection state for the poller.
type Source interface {
	// Latest returns the newest row marker and the row count of a collection.
	Latest(ctx context.Context, collection string) (Marker, error)
	// List loads every document of a collection.
	List(ctx context.Context, collection string) ([]models.Document, error)
}

type pollMode int

const (
	// pollTick reloads only when the marker moved.
	pollTick pollMode = iota
	// pollCheck reloads unconditionally and dispatches on content change.
	pollCheck
	// pollForce reloads and dispatches unconditionally.
	pollForce
)

type subscription struct {
	ctx context.Context
	fn  func([]models.Document)
}

// collectionState caches the last dispatched snapshot of a collection.
type collectionState struct {
	marker Marker
	hashes map[string]string
}

// Poller turns a pull-only Source into per-collection change subscriptions.
type Poller struct {
	source       Source
	pollInterval time.Duration

	mu     sync.Mutex
	subs   map[string][]subscription
	states map[string]collectionState

	// pollMu serializes polls so snapshots are dispatched in order.
	pollMu sync.Mutex

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPoller constructs a Poller; a non-positive interval uses DefaultPollInterval.
func NewPoller(source Source, pollInterval time.Duration) *Poller {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Poller{
		source:       source,
		pollInterval: pollInterval,
		subs:         make(map[string][]subscription),
		states:       make(map[string]collectionState),
	}
}

// Start launches the polling goroutine; calling it again is a no-op.
func (p *Poller) Start(ctx context.Context) {
	if p == nil || p.source == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(runCtx)
	}()
	log.Infof("docstore watcher started (poll_interval=%s)", p.pollInterval)
}

// Stop cancels the polling goroutine and waits for it to exit.
func (p *Poller) Stop() {
	if p == nil {
		return
	}
	p.runMu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.runMu.Unlock()
	p.wg.Wait()
}

// Subscribe registers fn for collection and delivers the current snapshot.
func (p *Poller) Subscribe(ctx context.Context, collection string, fn func([]models.Document)) error {
	if p == nil || p.source == nil {
		return fmt.Errorf("watcher: not initialized")
	}
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return fmt.Errorf("watcher: missing collection")
	}
	if fn == nil {
		return fmt.Errorf("watcher: nil snapshot func")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	p.mu.Lock()
	p.subs[collection] = append(p.subs[collection], subscription{ctx: ctx, fn: fn})
	p.mu.Unlock()

	return p.poll(ctx, collection, pollForce)
}

// Refresh reloads collection now and dispatches when its content changed.
func (p *Poller) Refresh(ctx context.Context, collection string) error {
	if p == nil || p.source == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return p.poll(ctx, collection, pollCheck)
}

// run executes the periodic polling loop until the context is canceled.
func (p *Poller) run(ctx context.Context) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, collection := range p.collections() {
				if errPoll := p.poll(ctx, collection, pollTick); errPoll != nil && !errors.Is(errPoll, context.Canceled) {
					log.WithError(errPoll).Warnf("docstore watcher: poll %s failed", collection)
				}
			}
		}
	}
}

func (p *Poller) collections() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.subs))
	for collection, subs := range p.subs {
		if len(subs) > 0 {
			out = append(out, collection)
		}
	}
	return out
}

// poll refreshes one collection snapshot and dispatches it when needed.
func (p *Poller) poll(ctx context.Context, collection string, mode pollMode) error {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	qctx, cancel := context.WithTimeout(ctx, defaultQueryTimeout)
	defer cancel()

	marker, errLatest := p.source.Latest(qctx, collection)
	if errLatest != nil {
		return fmt.Errorf("watcher: latest %s: %w", collection, errLatest)
	}

	p.mu.Lock()
	prev, loaded := p.states[collection]
	p.mu.Unlock()

	if mode == pollTick && loaded && markerEqual(prev.marker, marker) {
		return nil
	}

	docs, errList := p.source.List(qctx, collection)
	if errList != nil {
		return fmt.Errorf("watcher: list %s: %w", collection, errList)
	}

	hashes := make(map[string]string, len(docs))
	for _, doc := range docs {
		hashes[doc.Key] = hashBytes(doc.Data)
	}
	changed := !loaded || !sameHashes(prev.hashes, hashes)

	p.mu.Lock()
	p.states[collection] = collectionState{marker: marker, hashes: hashes}
	p.mu.Unlock()

	if !changed && mode != pollForce {
		return nil
	}
	if changed && loaded {
		log.Debugf("docstore watcher: %s changed, dispatching (count=%d)", collection, len(docs))
	}
	p.dispatch(collection, docs)
	return nil
}

func (p *Poller) dispatch(collection string, docs []models.Document) {
	p.mu.Lock()
	current := p.subs[collection]
	live := make([]subscription, 0, len(current))
	for _, sub := range current {
		if sub.ctx.Err() == nil {
			live = append(live, sub)
		}
	}
	p.subs[collection] = live
	p.mu.Unlock()

	for _, sub := range live {
		snapshot := make([]models.Document, len(docs))
		copy(snapshot, docs)
		sub.fn(snapshot)
	}
}

func markerEqual(a, b Marker) bool {
	return a.UpdatedAt.Equal(b.UpdatedAt) && a.Key == b.Key && a.Count == b.Count
}

func sameHashes(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for key, hash := range a {
		if b[key] != hash {
			return false
		}
	}
	return true
}

func hashBytes(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
