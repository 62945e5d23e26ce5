package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrobolivia/farm-platform/internal/core/domain"
)

type captureRepo struct {
	mu      sync.Mutex
	events  []domain.AuditEvent
	failing bool
	block   chan struct{}
}

func (r *captureRepo) Insert(_ context.Context, event *domain.AuditEvent) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failing {
		return errors.New("store unavailable")
	}
	r.events = append(r.events, *event)
	return nil
}

func (r *captureRepo) FindRecentByKinds(context.Context, []string, int64) ([]domain.AuditEvent, error) {
	return nil, nil
}

func (r *captureRepo) FindByUser(context.Context, string, int64, int64) ([]domain.AuditEvent, error) {
	return nil, nil
}

func (r *captureRepo) CountByKindSince(context.Context, string, time.Time) (int64, error) {
	return 0, nil
}

func (r *captureRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestAuditDispatcher_PersistsEvents(t *testing.T) {
	repo := &captureRepo{}
	d := NewAuditDispatcher(2, repo, zerolog.Nop())
	d.Start(context.Background())

	for i := 0; i < 20; i++ {
		d.Record(domain.AuditEvent{
			Kind:   domain.AuditLoginSuccess,
			UserID: fmt.Sprintf("user-%d", i%3),
		})
	}
	d.Close()

	if got := repo.count(); got != 20 {
		t.Fatalf("expected 20 persisted events, got %d", got)
	}
	if d.Dropped() != 0 {
		t.Fatalf("expected no drops, got %d", d.Dropped())
	}
}

func TestAuditDispatcher_StampsCreatedAt(t *testing.T) {
	repo := &captureRepo{}
	d := NewAuditDispatcher(1, repo, zerolog.Nop())
	d.Start(context.Background())

	d.Record(domain.AuditEvent{Kind: domain.AuditLoginFailed, UserID: "user-1"})
	d.Close()

	if got := repo.count(); got != 1 {
		t.Fatalf("expected 1 event, got %d", got)
	}
	if repo.events[0].CreatedAt.IsZero() {
		t.Fatalf("event persisted without a timestamp")
	}
}

func TestAuditDispatcher_SameActorStaysOrdered(t *testing.T) {
	repo := &captureRepo{}
	d := NewAuditDispatcher(4, repo, zerolog.Nop())
	d.Start(context.Background())

	for i := 0; i < 50; i++ {
		d.Record(domain.AuditEvent{
			Kind:   domain.AuditLoginFailed,
			UserID: "user-1",
			Action: fmt.Sprintf("attempt-%d", i),
		})
	}
	d.Close()

	if got := repo.count(); got != 50 {
		t.Fatalf("expected 50 events, got %d", got)
	}
	for i, e := range repo.events {
		if e.Action != fmt.Sprintf("attempt-%d", i) {
			t.Fatalf("event %d out of order: %s", i, e.Action)
		}
	}
}

func TestAuditDispatcher_StoreOutageIsInvisible(t *testing.T) {
	repo := &captureRepo{failing: true}
	d := NewAuditDispatcher(2, repo, zerolog.Nop())
	d.Start(context.Background())

	// Record must not return an error channel, panic, or block even
	// when every insert fails.
	for i := 0; i < 100; i++ {
		d.Record(domain.AuditEvent{Kind: domain.AuditLoginSuccess, UserID: "user-1"})
	}
	d.Close()

	if got := repo.count(); got != 0 {
		t.Fatalf("failing repo recorded %d events", got)
	}
}

func TestAuditDispatcher_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	block := make(chan struct{})
	repo := &captureRepo{block: block}
	d := NewAuditDispatcher(1, repo, zerolog.Nop())
	d.Start(context.Background())

	// One event is in the worker's hands, the buffer holds the rest;
	// everything past that must drop immediately.
	total := channelBuffer + 50
	done := make(chan struct{})
	go func() {
		for i := 0; i < total; i++ {
			d.Record(domain.AuditEvent{Kind: domain.AuditLoginSuccess, UserID: "user-1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Record blocked on a full buffer")
	}

	if d.Dropped() == 0 {
		t.Fatalf("expected drops with a stalled store")
	}

	close(block)
	d.Close()
}

func TestAuditDispatcher_ConcurrentRecordAndClose(t *testing.T) {
	repo := &captureRepo{}
	d := NewAuditDispatcher(2, repo, zerolog.Nop())
	d.Start(context.Background())

	// Recorders race the shutdown; no send may panic or trip the race
	// detector. Events sent into the race window may stay buffered, so
	// persisted plus dropped is bounded, not exact.
	start := make(chan struct{})
	var wg sync.WaitGroup
	const recorders, perRecorder = 8, 200
	for i := 0; i < recorders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			<-start
			for j := 0; j < perRecorder; j++ {
				d.Record(domain.AuditEvent{
					Kind:   domain.AuditLoginFailed,
					UserID: fmt.Sprintf("user-%d", n),
				})
			}
		}(i)
	}
	close(start)
	d.Close()
	wg.Wait()
	d.Close()

	if got := uint64(repo.count()) + d.Dropped(); got == 0 || got > recorders*perRecorder {
		t.Fatalf("accounting out of bounds: %d persisted + %d dropped of %d recorded",
			repo.count(), d.Dropped(), recorders*perRecorder)
	}
}

func TestAuditDispatcher_RecordAfterClose(t *testing.T) {
	repo := &captureRepo{}
	d := NewAuditDispatcher(1, repo, zerolog.Nop())
	d.Start(context.Background())
	d.Close()

	d.Record(domain.AuditEvent{Kind: domain.AuditLoginSuccess, UserID: "user-1"})

	if d.Dropped() != 1 {
		t.Fatalf("expected post-close record to count as dropped, got %d", d.Dropped())
	}
	if repo.count() != 0 {
		t.Fatalf("post-close event persisted")
	}
}
