package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/domain"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/repository"
)

type fakeBuffer struct {
	mu       sync.Mutex
	pending  map[string]int64
	restored map[string]int64
	drainErr error
}

func newFakeBuffer(pending map[string]int64) *fakeBuffer {
	return &fakeBuffer{pending: pending, restored: map[string]int64{}}
}

func (b *fakeBuffer) Drain(_ context.Context, batchSize int) (map[string]int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.drainErr != nil {
		return nil, b.drainErr
	}
	out := map[string]int64{}
	for id, n := range b.pending {
		if len(out) == batchSize {
			break
		}
		out[id] = n
		delete(b.pending, id)
	}
	return out, nil
}

func (b *fakeBuffer) Restore(_ context.Context, eventID string, delta int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.restored[eventID] += delta
	return nil
}

// failingEvents rejects view updates for one event id
type failingEvents struct {
	repository.EventRepository
	failID string
}

func (f *failingEvents) IncrementViewCount(ctx context.Context, id string, delta int64) error {
	if id == f.failID {
		return errors.New("connection reset")
	}
	return f.EventRepository.IncrementViewCount(ctx, id, delta)
}

func seedEvent(t *testing.T, events repository.EventRepository, id, slug string) {
	t.Helper()
	now := time.Now()
	err := events.Create(context.Background(), &domain.Event{
		ID:          id,
		Slug:        slug,
		OrganizerID: "org-1",
		Title:       slug,
		StartDate:   now,
		EndDate:     now.Add(time.Hour),
		Timezone:    "UTC",
		Status:      domain.EventStatusPublished,
		Visibility:  domain.EventVisibilityPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("seed event: %v", err)
	}
}

func TestDefaultViewFlushWorkerConfig(t *testing.T) {
	config := DefaultViewFlushWorkerConfig()

	if config.FlushInterval != 5*time.Second {
		t.Errorf("FlushInterval = %v, want %v", config.FlushInterval, 5*time.Second)
	}
	if config.BatchSize != 500 {
		t.Errorf("BatchSize = %v, want %v", config.BatchSize, 500)
	}
}

func TestNewViewFlushWorker_FillsInvalidConfig(t *testing.T) {
	worker := NewViewFlushWorker(newFakeBuffer(nil), nil, nil, &ViewFlushWorkerConfig{})

	if worker.config.FlushInterval != 5*time.Second {
		t.Errorf("FlushInterval = %v, want %v", worker.config.FlushInterval, 5*time.Second)
	}
	if worker.config.BatchSize != 500 {
		t.Errorf("BatchSize = %v, want %v", worker.config.BatchSize, 500)
	}
	if worker.running {
		t.Error("Worker should not be running initially")
	}
}

func TestViewFlushWorker_Flush(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	events := store.Events()
	seedEvent(t, events, "e1", "first")
	seedEvent(t, events, "e2", "second")

	buffer := newFakeBuffer(map[string]int64{"e1": 3, "e2": 7})
	worker := NewViewFlushWorker(buffer, events, nil, nil)

	if n := worker.Flush(ctx); n != 2 {
		t.Fatalf("Flush() = %d, want 2", n)
	}

	e1, _ := events.GetByID(ctx, "e1")
	e2, _ := events.GetByID(ctx, "e2")
	if e1.ViewCount != 3 || e2.ViewCount != 7 {
		t.Errorf("view counts = %d, %d, want 3, 7", e1.ViewCount, e2.ViewCount)
	}

	stats := worker.GetStats()
	if stats.TotalFlushed != 2 || stats.LastFlushedCount != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.LastFlushTime.IsZero() {
		t.Error("LastFlushTime should be set")
	}

	if n := worker.Flush(ctx); n != 0 {
		t.Errorf("second Flush() = %d, want 0", n)
	}
}

func TestViewFlushWorker_RestoresOnFailure(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedEvent(t, store.Events(), "ok", "ok")

	buffer := newFakeBuffer(map[string]int64{"ok": 1, "bad": 4})
	worker := NewViewFlushWorker(buffer, &failingEvents{EventRepository: store.Events(), failID: "bad"}, nil, nil)

	if n := worker.Flush(ctx); n != 1 {
		t.Fatalf("Flush() = %d, want 1", n)
	}
	if buffer.restored["bad"] != 4 {
		t.Errorf("restored = %v, want bad=4", buffer.restored)
	}
	if stats := worker.GetStats(); stats.TotalFailed != 1 {
		t.Errorf("TotalFailed = %d, want 1", stats.TotalFailed)
	}
}

func TestViewFlushWorker_DrainError(t *testing.T) {
	buffer := newFakeBuffer(nil)
	buffer.drainErr = errors.New("redis down")
	worker := NewViewFlushWorker(buffer, repository.NewMemoryStore().Events(), nil, nil)

	if n := worker.Flush(context.Background()); n != 0 {
		t.Errorf("Flush() = %d, want 0", n)
	}
}

func TestViewFlushWorker_StopFlushesRemaining(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	seedEvent(t, store.Events(), "e1", "first")

	buffer := newFakeBuffer(map[string]int64{"e1": 5})
	worker := NewViewFlushWorker(buffer, store.Events(), nil, &ViewFlushWorkerConfig{
		FlushInterval: time.Hour,
		BatchSize:     10,
	})

	worker.Start(ctx)
	if !worker.GetStats().IsRunning {
		t.Fatal("worker should be running")
	}
	worker.Stop()
	worker.Stop()

	if worker.GetStats().IsRunning {
		t.Error("worker should be stopped")
	}
	e1, _ := store.Events().GetByID(ctx, "e1")
	if e1.ViewCount != 5 {
		t.Errorf("ViewCount = %d, want 5", e1.ViewCount)
	}
}
