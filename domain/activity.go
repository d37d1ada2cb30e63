package domain

import "time"

// ActivityType names a board mutation.
type ActivityType string

const (
	BoardCreated   ActivityType = "board-created"
	BoardRenamed   ActivityType = "board-renamed"
	BoardDeleted   ActivityType = "board-deleted"
	MemberAdded    ActivityType = "member-added"
	MembersRemoved ActivityType = "members-removed"
	TaskCreated    ActivityType = "task-created"
	TaskToggled    ActivityType = "task-toggled"
	TaskEdited     ActivityType = "task-edited"
	TaskDeleted    ActivityType = "task-deleted"
)

// Activity describes a successful mutation.
type Activity struct {
	Type     ActivityType `json:"type"`
	BoardID  string       `json:"boardId"`
	TaskID   string       `json:"taskId,omitempty"`
	Actor    string       `json:"actor"`
	Subjects []string     `json:"subjects,omitempty"`
	Time     time.Time    `json:"time"`
}

// ActivityEmitter accepts activities without blocking the caller.
type ActivityEmitter interface {
	Emit(a Activity)
}
