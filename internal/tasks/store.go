package tasks

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/pscheid92/taskpulse/internal/adapter/metrics"
	"github.com/pscheid92/taskpulse/internal/domain"
	apperrors "github.com/pscheid92/taskpulse/internal/platform/errors"
)

type Store struct {
	mu          sync.Mutex
	tasks       []domain.Task
	maxTitleLen int
	publisher   domain.EventPublisher
	metrics     *metrics.Tasks
}

// NewStore creates an empty store. Every successful Create publishes a
// TaskCreated event on publisher before returning.
func NewStore(maxTitleLen int, publisher domain.EventPublisher, m *metrics.Tasks) *Store {
	return &Store{
		maxTitleLen: maxTitleLen,
		publisher:   publisher,
		metrics:     m,
	}
}

// List returns a copy of all tasks in creation order.
func (s *Store) List() []domain.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Get looks a task up by id. Ids start at 1 and have no gaps, so the id is
// also the position in the list.
func (s *Store) Get(id uint64) (domain.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == 0 || id > uint64(len(s.tasks)) {
		return domain.Task{}, false
	}
	return s.tasks[id-1], true
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Create validates title, appends a new task and publishes TaskCreated.
// Invalid titles return a validation error and leave the store untouched.
func (s *Store) Create(title string) (domain.Task, error) {
	title = strings.TrimSpace(title)
	if err := s.validate(title); err != nil {
		return domain.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task := domain.Task{ID: s.nextID(), Title: title}
	s.tasks = append(s.tasks, task)

	s.metrics.Created.Inc()
	s.metrics.Stored.Set(float64(len(s.tasks)))
	slog.Debug("Task created", "task_id", task.ID)

	s.publisher.Publish(domain.TaskCreatedEvent(task))
	return task, nil
}

// nextID is the last id plus one. Must be called with mu held.
func (s *Store) nextID() uint64 {
	if len(s.tasks) == 0 {
		return 1
	}
	return s.tasks[len(s.tasks)-1].ID + 1
}

func (s *Store) validate(title string) error {
	if title == "" {
		s.metrics.Rejected.WithLabelValues("empty").Inc()
		return apperrors.ValidationError("title must not be empty").Because(domain.ErrTitleEmpty)
	}
	if n := utf8.RuneCountInString(title); n > s.maxTitleLen {
		s.metrics.Rejected.WithLabelValues("too_long").Inc()
		return apperrors.ValidationError(fmt.Sprintf("title must be at most %d characters", s.maxTitleLen)).
			Because(domain.ErrTitleTooLong).
			WithField("max_length", s.maxTitleLen).
			WithField("length", n)
	}
	return nil
}
