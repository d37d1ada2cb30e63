package storage

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/ANTOSOJAN/task-management-system/domain"
)

// BreakerSettings configures a Breaker.
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Breaker fails store calls fast after repeated store failures. Missing
// documents and lost write races are answers, not failures, and do not trip it.
type Breaker struct {
	store domain.Store
	cb    *gobreaker.CircuitBreaker
}

// NewBreaker wraps store with a circuit breaker. State changes are logged to
// logger, or to the standard logger when it is nil.
func NewBreaker(store domain.Store, s BreakerSettings, logger *log.Logger) *Breaker {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "document-store",
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConcurrencyConflict) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(log.Fields{"breaker": name, "from": from.String(), "to": to.String()}).Warn("circuit breaker state changed")
		},
	})
	return &Breaker{store: store, cb: cb}
}

// State reports the breaker state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Ping bypasses the breaker so health checks see the real store.
func (b *Breaker) Ping(ctx context.Context) error { return Ping(ctx, b.store) }

func call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		var zero T
		if v, ok := v.(T); ok {
			return v, err
		}
		return zero, err
	}
	return v.(T), nil
}

func do(b *Breaker, fn func() error) error {
	_, err := b.cb.Execute(func() (interface{}, error) { return nil, fn() })
	return err
}

func (b *Breaker) GetUser(ctx context.Context, email string) (*domain.User, error) {
	return call(b, func() (*domain.User, error) { return b.store.GetUser(ctx, email) })
}

func (b *Breaker) CreateUser(ctx context.Context, u domain.User) error {
	return do(b, func() error { return b.store.CreateUser(ctx, u) })
}

func (b *Breaker) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	return call(b, func() (*domain.User, error) { return b.store.FindUserByID(ctx, userID) })
}

func (b *Breaker) AddUserBoard(ctx context.Context, email, boardID string) error {
	return do(b, func() error { return b.store.AddUserBoard(ctx, email, boardID) })
}

func (b *Breaker) RemoveUserBoard(ctx context.Context, email, boardID string) error {
	return do(b, func() error { return b.store.RemoveUserBoard(ctx, email, boardID) })
}

func (b *Breaker) ListBoardMembers(ctx context.Context, boardID string) ([]domain.User, error) {
	return call(b, func() ([]domain.User, error) { return b.store.ListBoardMembers(ctx, boardID) })
}

func (b *Breaker) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	return call(b, func() (*domain.Board, error) { return b.store.GetBoard(ctx, id) })
}

func (b *Breaker) CreateBoard(ctx context.Context, board domain.Board) error {
	return do(b, func() error { return b.store.CreateBoard(ctx, board) })
}

func (b *Breaker) RenameBoard(ctx context.Context, id, title string) error {
	return do(b, func() error { return b.store.RenameBoard(ctx, id, title) })
}

func (b *Breaker) DeleteBoard(ctx context.Context, id string) error {
	return do(b, func() error { return b.store.DeleteBoard(ctx, id) })
}

func (b *Breaker) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	return call(b, func() (*domain.Task, error) { return b.store.GetTask(ctx, id) })
}

func (b *Breaker) CreateTask(ctx context.Context, t domain.Task) error {
	return do(b, func() error { return b.store.CreateTask(ctx, t) })
}

func (b *Breaker) SetTaskCompleted(ctx context.Context, id string, completed bool, at time.Time) error {
	return do(b, func() error { return b.store.SetTaskCompleted(ctx, id, completed, at) })
}

func (b *Breaker) EditTask(ctx context.Context, id string, edit domain.TaskEdit) error {
	return do(b, func() error { return b.store.EditTask(ctx, id, edit) })
}

func (b *Breaker) RemoveTaskAssignee(ctx context.Context, id, email string) error {
	return do(b, func() error { return b.store.RemoveTaskAssignee(ctx, id, email) })
}

func (b *Breaker) DeleteTask(ctx context.Context, id string) error {
	return do(b, func() error { return b.store.DeleteTask(ctx, id) })
}

func (b *Breaker) ListBoardTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	return call(b, func() ([]domain.Task, error) { return b.store.ListBoardTasks(ctx, boardID) })
}

func (b *Breaker) BoardHasTasks(ctx context.Context, boardID string) (bool, error) {
	return call(b, func() (bool, error) { return b.store.BoardHasTasks(ctx, boardID) })
}

var _ domain.Store = (*Breaker)(nil)
