package mongostore

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/ANTOSOJAN/task-management-system/domain"
)

type fieldSet map[string]struct{}

func fields(names ...string) fieldSet {
	s := make(fieldSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

var (
	userFields  = fields("_id", "user_id", "boards")
	boardFields = fields("_id", "title", "description", "createdBy", "createdAt")
	taskFields  = fields("_id", "boardId", "title", "due_date", "createdBy", "createdAt",
		"completed", "completedAt", "updatedAt", "assignees")
)

// decodeStrict rejects documents carrying keys outside known.
func decodeStrict(raw bson.Raw, known fieldSet, v any) error {
	elems, err := raw.Elements()
	if err != nil {
		return err
	}
	for _, e := range elems {
		if _, ok := known[e.Key()]; !ok {
			return fmt.Errorf("unknown field %q", e.Key())
		}
	}
	return bson.Unmarshal(raw, v)
}

type userDoc struct {
	Email  string   `bson:"_id"`
	UserID string   `bson:"user_id"`
	Boards []string `bson:"boards"`
}

func newUserDoc(u domain.User) userDoc {
	boards := u.Boards
	if boards == nil {
		boards = []string{}
	}
	return userDoc{Email: u.Email, UserID: u.UserID, Boards: boards}
}

func (d userDoc) toDomain() domain.User {
	boards := d.Boards
	if boards == nil {
		boards = []string{}
	}
	return domain.User{Email: d.Email, UserID: d.UserID, Boards: boards}
}

type boardDoc struct {
	ID          string    `bson:"_id"`
	Title       string    `bson:"title"`
	Description *string   `bson:"description,omitempty"`
	CreatedBy   string    `bson:"createdBy"`
	CreatedAt   time.Time `bson:"createdAt"`
}

func newBoardDoc(b domain.Board) boardDoc {
	return boardDoc{ID: b.ID, Title: b.Title, Description: b.Description, CreatedBy: b.CreatedBy, CreatedAt: b.CreatedAt}
}

func (d boardDoc) toDomain() domain.Board {
	return domain.Board{ID: d.ID, Title: d.Title, Description: d.Description, CreatedBy: d.CreatedBy, CreatedAt: d.CreatedAt.UTC()}
}

type taskDoc struct {
	ID          string     `bson:"_id"`
	BoardID     string     `bson:"boardId"`
	Title       string     `bson:"title"`
	DueDate     string     `bson:"due_date"`
	CreatedBy   string     `bson:"createdBy"`
	CreatedAt   time.Time  `bson:"createdAt"`
	Completed   bool       `bson:"completed"`
	CompletedAt *time.Time `bson:"completedAt"`
	UpdatedAt   *time.Time `bson:"updatedAt,omitempty"`
	Assignees   []string   `bson:"assignees"`
}

func newTaskDoc(t domain.Task) taskDoc {
	assignees := t.Assignees
	if assignees == nil {
		assignees = []string{}
	}
	return taskDoc{
		ID:          t.ID,
		BoardID:     t.BoardID,
		Title:       t.Title,
		DueDate:     t.DueDate,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
		UpdatedAt:   t.UpdatedAt,
		Assignees:   assignees,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (d taskDoc) toDomain() domain.Task {
	assignees := d.Assignees
	if assignees == nil {
		assignees = []string{}
	}
	return domain.Task{
		ID:          d.ID,
		BoardID:     d.BoardID,
		Title:       d.Title,
		DueDate:     d.DueDate,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   d.CreatedAt.UTC(),
		Completed:   d.Completed,
		CompletedAt: utcPtr(d.CompletedAt),
		UpdatedAt:   utcPtr(d.UpdatedAt),
		Assignees:   assignees,
	}
}
