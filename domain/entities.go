package domain

import "time"

// Identity is a verified identity claim produced by the identity verifier.
type Identity struct {
	UserID string
	Email  string
}

// User is keyed by email. Boards lists every board the user can access,
// in insertion order.
type User struct {
	Email  string
	UserID string
	Boards []string
}

// HasBoard reports whether boardID is present in the user's board set.
func (u User) HasBoard(boardID string) bool {
	for _, id := range u.Boards {
		if id == boardID {
			return true
		}
	}
	return false
}

// Board is a task board. CreatedBy holds the creator's user id and never changes.
type Board struct {
	ID          string
	Title       string
	Description *string
	CreatedBy   string
	CreatedAt   time.Time
}

// Task belongs to exactly one board. CompletedAt is non-nil exactly when Completed is true.
type Task struct {
	ID          string
	BoardID     string
	Title       string
	DueDate     string
	CreatedBy   string
	CreatedAt   time.Time
	Completed   bool
	CompletedAt *time.Time
	UpdatedAt   *time.Time
	Assignees   []string
}

// HasAssignee reports whether email is among the task assignees.
func (t Task) HasAssignee(email string) bool {
	for _, a := range t.Assignees {
		if a == email {
			return true
		}
	}
	return false
}

// TaskEdit carries the fields overwritten by an edit.
type TaskEdit struct {
	Title     string
	DueDate   string
	Assignees []string
	UpdatedAt time.Time
}
