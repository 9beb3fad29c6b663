package subscriber

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type memStore struct {
	mu      sync.Mutex
	ids     []int64
	saves   int
	saveErr error
}

func (m *memStore) Load(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.ids), nil
}

func (m *memStore) Save(ctx context.Context, ids []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.ids = slices.Clone(ids)
	return nil
}

func TestService_LoadDeduplicatesKeepingOrder(t *testing.T) {
	store := &memStore{ids: []int64{3, 1, 3, 2, 1}}
	s := NewService(store, testLogger())
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.List(); !slices.Equal(got, []int64{3, 1, 2}) {
		t.Errorf("List: got %v", got)
	}
}

func TestService_AddRemove_SavesOnMutation(t *testing.T) {
	store := &memStore{}
	s := NewService(store, testLogger())
	ctx := context.Background()

	added, err := s.Add(ctx, 10)
	if err != nil || !added {
		t.Fatalf("Add: added=%v err=%v", added, err)
	}
	s.Add(ctx, 20)

	added, err = s.Add(ctx, 10)
	if err != nil || added {
		t.Fatalf("duplicate Add: added=%v err=%v", added, err)
	}
	if store.saves != 2 {
		t.Errorf("duplicate add must not write, saves=%d", store.saves)
	}

	removed, err := s.Remove(ctx, 10)
	if err != nil || !removed {
		t.Fatalf("Remove: removed=%v err=%v", removed, err)
	}
	removed, _ = s.Remove(ctx, 99)
	if removed {
		t.Error("removing an unknown id should report false")
	}
	if store.saves != 3 {
		t.Errorf("saves: got %d", store.saves)
	}
	if !slices.Equal(store.ids, []int64{20}) {
		t.Errorf("stored: got %v", store.ids)
	}
	if s.Contains(10) || !s.Contains(20) || s.Len() != 1 {
		t.Errorf("in-memory state wrong: %v", s.List())
	}
}

func TestService_SaveFailure_RollsBack(t *testing.T) {
	store := &memStore{}
	s := NewService(store, testLogger())
	ctx := context.Background()
	s.Add(ctx, 1)

	store.saveErr = errors.New("disk full")
	if _, err := s.Add(ctx, 2); err == nil {
		t.Fatal("expected error")
	}
	if s.Contains(2) {
		t.Error("failed add must not be visible")
	}
	if _, err := s.Remove(ctx, 1); err == nil {
		t.Fatal("expected error")
	}
	if !s.Contains(1) {
		t.Error("failed remove must keep the subscriber")
	}
}

func TestService_ListIsCopy(t *testing.T) {
	s := NewService(&memStore{}, testLogger())
	s.Add(context.Background(), 1)
	l := s.List()
	l[0] = 99
	if s.List()[0] != 1 {
		t.Error("List must return a copy")
	}
}

func TestService_ConcurrentAdds(t *testing.T) {
	s := NewService(&memStore{}, testLogger())
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			s.Add(context.Background(), id%10)
		}(int64(i))
	}
	wg.Wait()
	if s.Len() != 10 {
		t.Errorf("expected 10 unique subscribers, got %d", s.Len())
	}
}
