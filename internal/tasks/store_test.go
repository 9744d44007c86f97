package tasks

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/taskpulse/internal/adapter/metrics"
	"github.com/pscheid92/taskpulse/internal/domain"
	apperrors "github.com/pscheid92/taskpulse/internal/platform/errors"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(ev domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) snapshot() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event(nil), p.events...)
}

func newTestStore(t *testing.T, maxLen int) (*Store, *recordingPublisher, *metrics.Tasks) {
	t.Helper()
	pub := &recordingPublisher{}
	m := metrics.NewTasks(prometheus.NewRegistry())
	return NewStore(maxLen, pub, m), pub, m
}

func TestStore_CreateAndList(t *testing.T) {
	store, pub, _ := newTestStore(t, 200)

	milk, err := store.Create("Buy milk")
	require.NoError(t, err)
	dog, err := store.Create("Walk dog")
	require.NoError(t, err)

	assert.Equal(t, domain.Task{ID: 1, Title: "Buy milk"}, milk)
	assert.Equal(t, domain.Task{ID: 2, Title: "Walk dog"}, dog)
	assert.Equal(t, []domain.Task{
		{ID: 1, Title: "Buy milk", Done: false},
		{ID: 2, Title: "Walk dog", Done: false},
	}, store.List())

	events := pub.snapshot()
	require.Len(t, events, 2)
	for i, want := range []string{"Buy milk", "Walk dog"} {
		assert.Equal(t, domain.EventTaskCreated, events[i].Kind)
		assert.Equal(t, want, events[i].Task.Title)
	}
}

func TestStore_ListReturnsCopy(t *testing.T) {
	store, _, _ := newTestStore(t, 200)
	_, err := store.Create("Buy milk")
	require.NoError(t, err)

	list := store.List()
	list[0].Title = "tampered"
	list[0].Done = true

	assert.Equal(t, "Buy milk", store.List()[0].Title)
	assert.False(t, store.List()[0].Done)
}

func TestStore_TrimsTitle(t *testing.T) {
	store, _, _ := newTestStore(t, 200)
	task, err := store.Create("  Walk dog \n")
	require.NoError(t, err)
	assert.Equal(t, "Walk dog", task.Title)
}

func TestStore_RejectsInvalidTitles(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr error
		reason  string
	}{
		{"empty", "", domain.ErrTitleEmpty, "empty"},
		{"whitespace only", "   \t", domain.ErrTitleEmpty, "empty"},
		{"too long", strings.Repeat("x", 11), domain.ErrTitleTooLong, "too_long"},
		{"too long in runes", strings.Repeat("ü", 11), domain.ErrTitleTooLong, "too_long"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, pub, m := newTestStore(t, 10)

			_, err := store.Create(tt.title)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.True(t, apperrors.IsValidation(err))

			assert.Empty(t, store.List())
			assert.Empty(t, pub.snapshot())
			assert.InDelta(t, 1, testutil.ToFloat64(m.Rejected.WithLabelValues(tt.reason)), 0)
		})
	}
}

func TestStore_MaxLengthIsInclusive(t *testing.T) {
	store, _, _ := newTestStore(t, 10)
	_, err := store.Create(strings.Repeat("ü", 10))
	assert.NoError(t, err)
}

func TestStore_FailedCreateDoesNotConsumeID(t *testing.T) {
	store, _, _ := newTestStore(t, 5)

	_, err := store.Create("ok")
	require.NoError(t, err)
	_, err = store.Create("far too long")
	require.Error(t, err)
	task, err := store.Create("ok 2")
	require.NoError(t, err)

	assert.Equal(t, uint64(2), task.ID)
}

func TestStore_ConcurrentCreatesNeverCollide(t *testing.T) {
	store, pub, m := newTestStore(t, 200)

	const workers, perWorker = 16, 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := store.Create("task")
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	list := store.List()
	require.Len(t, list, workers*perWorker)
	for i, task := range list {
		assert.Equal(t, uint64(i+1), task.ID, "ids must be gapless and increasing")
	}

	// Events are published under the store lock, so they follow id order too.
	events := pub.snapshot()
	require.Len(t, events, len(list))
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Task.ID)
	}

	assert.Equal(t, workers*perWorker, store.Count())
	assert.InDelta(t, workers*perWorker, testutil.ToFloat64(m.Created), 0)
	assert.InDelta(t, workers*perWorker, testutil.ToFloat64(m.Stored), 0)
}

func TestStore_Get(t *testing.T) {
	store, _, _ := newTestStore(t, 50)
	_, err := store.Create("Buy milk")
	require.NoError(t, err)
	_, err = store.Create("Walk dog")
	require.NoError(t, err)

	task, ok := store.Get(2)
	require.True(t, ok)
	assert.Equal(t, domain.Task{ID: 2, Title: "Walk dog"}, task)

	for _, id := range []uint64{0, 3} {
		_, ok := store.Get(id)
		assert.False(t, ok, "id %d", id)
	}
}
