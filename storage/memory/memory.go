// Package memory is an in-process document store for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ANTOSOJAN/task-management-system/domain"
)

// Store keeps users, boards and tasks in maps guarded by a single mutex.
// Records are copied on the way in and out.
type Store struct {
	mu     sync.RWMutex
	users  map[string]domain.User
	boards map[string]domain.Board
	tasks  map[string]domain.Task
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:  make(map[string]domain.User),
		boards: make(map[string]domain.Board),
		tasks:  make(map[string]domain.Task),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) GetUser(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[email]
	if !ok {
		return nil, nil
	}
	u = copyUser(u)
	return &u, nil
}

func (s *Store) CreateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.Email]; ok {
		return fmt.Errorf("create user %s: %w", u.Email, domain.ErrConcurrencyConflict)
	}
	s.users[u.Email] = copyUser(u)
	return nil
}

func (s *Store) FindUserByID(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.UserID == userID {
			u = copyUser(u)
			return &u, nil
		}
	}
	return nil, nil
}

func (s *Store) AddUserBoard(_ context.Context, email, boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	if !u.HasBoard(boardID) {
		u.Boards = append(append([]string(nil), u.Boards...), boardID)
		s.users[email] = u
	}
	return nil
}

func (s *Store) RemoveUserBoard(_ context.Context, email, boardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
	}
	u.Boards = without(u.Boards, boardID)
	s.users[email] = u
	return nil
}

func (s *Store) ListBoardMembers(_ context.Context, boardID string) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.User
	for _, u := range s.users {
		if u.HasBoard(boardID) {
			out = append(out, copyUser(u))
		}
	}
	return out, nil
}

func (s *Store) GetBoard(_ context.Context, id string) (*domain.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.boards[id]
	if !ok {
		return nil, nil
	}
	b = copyBoard(b)
	return &b, nil
}

func (s *Store) CreateBoard(_ context.Context, b domain.Board) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boards[b.ID]; ok {
		return fmt.Errorf("create board %s: %w", b.ID, domain.ErrConcurrencyConflict)
	}
	s.boards[b.ID] = copyBoard(b)
	return nil
}

func (s *Store) RenameBoard(_ context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[id]
	if !ok {
		return fmt.Errorf("board %s: %w", id, domain.ErrNotFound)
	}
	b.Title = title
	s.boards[id] = b
	return nil
}

func (s *Store) DeleteBoard(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.boards, id)
	return nil
}

func (s *Store) GetTask(_ context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	t = copyTask(t)
	return &t, nil
}

func (s *Store) CreateTask(_ context.Context, t domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; ok {
		return fmt.Errorf("create task %s: %w", t.ID, domain.ErrConcurrencyConflict)
	}
	s.tasks[t.ID] = copyTask(t)
	return nil
}

func (s *Store) SetTaskCompleted(_ context.Context, id string, completed bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	t.Completed = completed
	t.CompletedAt = nil
	if completed {
		done := at
		t.CompletedAt = &done
	}
	updated := at
	t.UpdatedAt = &updated
	s.tasks[id] = t
	return nil
}

func (s *Store) EditTask(_ context.Context, id string, edit domain.TaskEdit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	t.Title = edit.Title
	t.DueDate = edit.DueDate
	t.Assignees = append([]string{}, edit.Assignees...)
	updated := edit.UpdatedAt
	t.UpdatedAt = &updated
	s.tasks[id] = t
	return nil
}

func (s *Store) RemoveTaskAssignee(_ context.Context, id, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	t.Assignees = without(t.Assignees, email)
	s.tasks[id] = t
	return nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	return nil
}

func (s *Store) ListBoardTasks(_ context.Context, boardID string) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Task
	for _, t := range s.tasks {
		if t.BoardID == boardID {
			out = append(out, copyTask(t))
		}
	}
	return out, nil
}

func (s *Store) BoardHasTasks(_ context.Context, boardID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.tasks {
		if t.BoardID == boardID {
			return true, nil
		}
	}
	return false, nil
}

func copyUser(u domain.User) domain.User {
	u.Boards = append([]string{}, u.Boards...)
	return u
}

func copyBoard(b domain.Board) domain.Board {
	if b.Description != nil {
		d := *b.Description
		b.Description = &d
	}
	return b
}

func copyTask(t domain.Task) domain.Task {
	t.Assignees = append([]string{}, t.Assignees...)
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		t.CompletedAt = &v
	}
	if t.UpdatedAt != nil {
		v := *t.UpdatedAt
		t.UpdatedAt = &v
	}
	return t
}

func without(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

var _ domain.Store = (*Store)(nil)
