package domain

import "time"

// UnknownEmail is shown when a creator's user id has no user record.
const UnknownEmail = "Unknown"

// HomeView lists the boards the identity created and the boards shared with it.
type HomeView struct {
	Identity     *Identity
	Boards       []BoardSummary
	SharedBoards []BoardSummary
	Error        ErrorTag
}

type BoardSummary struct {
	ID           string
	Title        string
	Description  string
	IsCreator    bool
	CreatorEmail string
	Tasks        []TaskSummary
}

type TaskSummary struct {
	ID           string
	Title        string
	DueDate      string
	Completed    bool
	Assignees    []string
	CreatorEmail string
}

// BoardView is the detail view of a single board.
type BoardView struct {
	Board     Board
	IsCreator bool
	UserEmail string
	Members   []Member
	Tasks     []TaskView
	Total     int
	Completed int
	Active    int
}

type Member struct {
	Email  string
	UserID string
}

type TaskView struct {
	Task
	CreatorEmail string
}

// CompletedAtTime returns the completion time or the zero time.
func (t TaskView) CompletedAtTime() time.Time {
	if t.CompletedAt == nil {
		return time.Time{}
	}
	return *t.CompletedAt
}
