package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/router-for-me/DiaryHub/internal/models"
	"gorm.io/datatypes"
)

type fakeSource struct {
	mu        sync.Mutex
	docs      []models.Document
	marker    Marker
	listCalls int
	err       error
}

func (f *fakeSource) Latest(_ context.Context, _ string) (Marker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.marker, f.err
}

func (f *fakeSource) List(_ context.Context, _ string) ([]models.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return append([]models.Document(nil), f.docs...), f.err
}

func (f *fakeSource) set(marker Marker, docs ...models.Document) {
	f.mu.Lock()
	f.marker = marker
	f.docs = docs
	f.mu.Unlock()
}

func doc(key, body string) models.Document {
	return models.Document{Collection: "c", Key: key, Data: datatypes.JSON(body)}
}

func TestPollerSubscribeDeliversInitialSnapshot(t *testing.T) {
	src := &fakeSource{}
	src.set(Marker{Count: 1}, doc("a", `{}`))
	p := NewPoller(src, time.Hour)

	var got []models.Document
	if err := p.Subscribe(context.Background(), "c", func(docs []models.Document) { got = docs }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if len(got) != 1 || got[0].Key != "a" {
		t.Fatalf("unexpected initial snapshot: %+v", got)
	}
}

func TestPollerTickSkipsUnchangedMarker(t *testing.T) {
	src := &fakeSource{}
	src.set(Marker{Count: 1, Key: "1"}, doc("a", `{}`))
	p := NewPoller(src, time.Hour)

	calls := 0
	if err := p.Subscribe(context.Background(), "c", func([]models.Document) { calls++ }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := p.poll(context.Background(), "c", pollTick); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if src.listCalls != 1 {
		t.Fatalf("expected unchanged marker to skip list, got %d list calls", src.listCalls)
	}

	src.set(Marker{Count: 2, Key: "2"}, doc("a", `{}`), doc("b", `{}`))
	if err := p.poll(context.Background(), "c", pollTick); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected dispatch after marker change, got %d", calls)
	}
}

func TestPollerRefreshDispatchesOnlyOnContentChange(t *testing.T) {
	src := &fakeSource{}
	src.set(Marker{Count: 1}, doc("a", `{"v":1}`))
	p := NewPoller(src, time.Hour)

	calls := 0
	if err := p.Subscribe(context.Background(), "c", func([]models.Document) { calls++ }); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := p.Refresh(context.Background(), "c"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected no dispatch for unchanged content, got %d", calls)
	}
	src.set(Marker{Count: 1}, doc("a", `{"v":2}`))
	if err := p.Refresh(context.Background(), "c"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected dispatch for changed content, got %d", calls)
	}
}

func TestPollerSourceErrorIsReturned(t *testing.T) {
	src := &fakeSource{err: errors.New("db down")}
	p := NewPoller(src, time.Hour)
	if err := p.Subscribe(context.Background(), "c", func([]models.Document) {}); err == nil {
		t.Fatalf("expected error from failing source")
	}
}

func TestPollerStartStop(t *testing.T) {
	src := &fakeSource{}
	src.set(Marker{}, doc("a", `{}`))
	p := NewPoller(src, 10*time.Millisecond)

	var mu sync.Mutex
	calls := 0
	if err := p.Subscribe(context.Background(), "c", func([]models.Document) {
		mu.Lock()
		calls++
		mu.Unlock()
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	p.Start(context.Background())
	src.set(Marker{Count: 2}, doc("a", `{}`), doc("b", `{}`))

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := calls
		mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected background poll to dispatch change")
		}
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()
	p.Stop()
}
