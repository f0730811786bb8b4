package secrets

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/runavault/runavault/internal/common"
	"github.com/runavault/runavault/internal/logging"
	"github.com/runavault/runavault/internal/server/models"
)

// fakeStore is an in-memory storage.Store with call counters and injectable
// failures, keyed exactly like the real table.
type fakeStore struct {
	mu   sync.Mutex
	rows map[string]models.DistributionRecord

	putCalls    int
	deleteCalls int

	putErr    error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]models.DistributionRecord)}
}

func storeKey(ownerID, sortKey string) string {
	return ownerID + "\x00" + sortKey
}

func (f *fakeStore) Get(ctx context.Context, ownerID, sortKey string) (*models.DistributionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.rows[storeKey(ownerID, sortKey)]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (f *fakeStore) Put(ctx context.Context, rec *models.DistributionRecord, replace bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	if f.putErr != nil {
		return f.putErr
	}
	key := storeKey(rec.UserID, rec.SortKey)
	if _, exists := f.rows[key]; exists && !replace {
		return fmt.Errorf("%w: user_id %s site %s", common.ErrDuplicate, rec.UserID, rec.SortKey)
	}
	f.rows[key] = *rec
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, ownerID, sortKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.rows, storeKey(ownerID, sortKey))
	return nil
}

func (f *fakeStore) QueryExact(ctx context.Context, ownerID, sortKey string) ([]models.DistributionRecord, error) {
	rec, _ := f.Get(ctx, ownerID, sortKey)
	if rec == nil {
		return nil, nil
	}
	return []models.DistributionRecord{*rec}, nil
}

func (f *fakeStore) QueryPrefix(ctx context.Context, ownerID, prefix string) ([]models.DistributionRecord, error) {
	return f.scan(func(rec models.DistributionRecord) bool {
		return rec.UserID == ownerID && strings.HasPrefix(rec.SortKey, prefix)
	}), nil
}

func (f *fakeStore) QueryByGroup(ctx context.Context, group, subdirectory string) ([]models.DistributionRecord, error) {
	return f.scan(func(rec models.DistributionRecord) bool {
		if rec.SharedWithGroups != group {
			return false
		}
		return subdirectory == "" || rec.Subdirectory == subdirectory
	}), nil
}

func (f *fakeStore) QueryByUser(ctx context.Context, userID string) ([]models.DistributionRecord, error) {
	return f.scan(func(rec models.DistributionRecord) bool {
		return rec.SharedWithUsers == userID
	}), nil
}

func (f *fakeStore) scan(match func(models.DistributionRecord) bool) []models.DistributionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.DistributionRecord
	for _, rec := range f.rows {
		if match(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].SortKey < out[j].SortKey
	})
	return out
}

func (f *fakeStore) sortKeysFor(ownerID string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for _, rec := range f.rows {
		if rec.UserID == ownerID {
			keys = append(keys, rec.SortKey)
		}
	}
	sort.Strings(keys)
	return keys
}

func newTestService(store *fakeStore) *Service {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc := NewService(store, logger)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	nextID := 0
	svc.newID = func() string {
		nextID++
		return fmt.Sprintf("pid-%d", nextID)
	}
	return svc
}
