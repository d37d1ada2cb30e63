package domain

import (
	"context"
	"time"
)

// UserStore persists users keyed by email. Getters return nil, nil when the
// document is absent; updates of an absent user return ErrNotFound.
type UserStore interface {
	GetUser(ctx context.Context, email string) (*User, error)
	CreateUser(ctx context.Context, u User) error
	FindUserByID(ctx context.Context, userID string) (*User, error)
	AddUserBoard(ctx context.Context, email, boardID string) error
	RemoveUserBoard(ctx context.Context, email, boardID string) error
	ListBoardMembers(ctx context.Context, boardID string) ([]User, error)
}

// BoardStore persists boards.
type BoardStore interface {
	GetBoard(ctx context.Context, id string) (*Board, error)
	CreateBoard(ctx context.Context, b Board) error
	RenameBoard(ctx context.Context, id, title string) error
	DeleteBoard(ctx context.Context, id string) error
}

// TaskStore persists tasks. DeleteTask of an absent task is not an error.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (*Task, error)
	CreateTask(ctx context.Context, t Task) error
	SetTaskCompleted(ctx context.Context, id string, completed bool, at time.Time) error
	EditTask(ctx context.Context, id string, edit TaskEdit) error
	RemoveTaskAssignee(ctx context.Context, id, email string) error
	DeleteTask(ctx context.Context, id string) error
	ListBoardTasks(ctx context.Context, boardID string) ([]Task, error)
	BoardHasTasks(ctx context.Context, boardID string) (bool, error)
}

// Store is the full document store used by the board service.
type Store interface {
	UserStore
	BoardStore
	TaskStore
}

// TitleClaims reserves task titles per board for a short time so that
// concurrent identical submissions cannot both pass the uniqueness check.
type TitleClaims interface {
	// Claim returns true when the title was newly claimed.
	Claim(ctx context.Context, boardID, title string) (bool, error)
	// Release drops a claim after the insert failed.
	Release(ctx context.Context, boardID, title string) error
}
