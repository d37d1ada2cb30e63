package tables

import (
	"bytes"
	"fmt"
	"net/url"
	"time"

	"github.com/bytedance/sonic"

	"github.com/ANTOSOJAN/task-management-system/domain"
)

const (
	userPartition  = "user"
	boardPartition = "board"
	taskPartition  = "task"
)

// keys are present on every entity read with MetadataFormatNone.
type keys struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
	Timestamp    string `json:"Timestamp,omitempty"`
}

// clearTimestamp drops the server-managed property before a write.
func (k *keys) clearTimestamp() { k.Timestamp = "" }

// Array properties are stored as JSON strings; tables have no list type.
type userEntity struct {
	keys
	Email  string `json:"Email"`
	UserID string `json:"UserID"`
	Boards string `json:"Boards"`
}

type boardEntity struct {
	keys
	Title       string  `json:"Title"`
	Description *string `json:"Description,omitempty"`
	CreatedBy   string  `json:"CreatedBy"`
	CreatedAt   string  `json:"CreatedAt"`
}

type taskEntity struct {
	keys
	BoardID     string  `json:"BoardID"`
	Title       string  `json:"Title"`
	DueDate     string  `json:"DueDate"`
	CreatedBy   string  `json:"CreatedBy"`
	CreatedAt   string  `json:"CreatedAt"`
	Completed   bool    `json:"Completed"`
	CompletedAt *string `json:"CompletedAt,omitempty"`
	UpdatedAt   *string `json:"UpdatedAt,omitempty"`
	Assignees   string  `json:"Assignees"`
}

func userRowKey(email string) string { return url.PathEscape(email) }

// decodeStrict rejects properties the record does not declare.
func decodeStrict(data []byte, v any) error {
	dec := sonic.ConfigStd.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func encodeList(list []string) (string, error) {
	if list == nil {
		list = []string{}
	}
	return sonic.ConfigStd.MarshalToString(list)
}

func decodeList(s string) ([]string, error) {
	if s == "" {
		return []string{}, nil
	}
	var list []string
	if err := sonic.ConfigStd.UnmarshalFromString(s, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTimePtr(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func newUserEntity(u domain.User) (userEntity, error) {
	boards, err := encodeList(u.Boards)
	if err != nil {
		return userEntity{}, err
	}
	return userEntity{
		keys:   keys{PartitionKey: userPartition, RowKey: userRowKey(u.Email)},
		Email:  u.Email,
		UserID: u.UserID,
		Boards: boards,
	}, nil
}

func (e userEntity) toDomain() (domain.User, error) {
	boards, err := decodeList(e.Boards)
	if err != nil {
		return domain.User{}, fmt.Errorf("user %s boards: %w", e.Email, err)
	}
	return domain.User{Email: e.Email, UserID: e.UserID, Boards: boards}, nil
}

func newBoardEntity(b domain.Board) boardEntity {
	return boardEntity{
		keys:        keys{PartitionKey: boardPartition, RowKey: b.ID},
		Title:       b.Title,
		Description: b.Description,
		CreatedBy:   b.CreatedBy,
		CreatedAt:   formatTime(b.CreatedAt),
	}
}

func (e boardEntity) toDomain() (domain.Board, error) {
	created, err := time.Parse(time.RFC3339Nano, e.CreatedAt)
	if err != nil {
		return domain.Board{}, fmt.Errorf("board %s createdAt: %w", e.RowKey, err)
	}
	return domain.Board{
		ID:          e.RowKey,
		Title:       e.Title,
		Description: e.Description,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   created,
	}, nil
}

func newTaskEntity(t domain.Task) (taskEntity, error) {
	assignees, err := encodeList(t.Assignees)
	if err != nil {
		return taskEntity{}, err
	}
	return taskEntity{
		keys:        keys{PartitionKey: taskPartition, RowKey: t.ID},
		BoardID:     t.BoardID,
		Title:       t.Title,
		DueDate:     t.DueDate,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   formatTime(t.CreatedAt),
		Completed:   t.Completed,
		CompletedAt: formatTimePtr(t.CompletedAt),
		UpdatedAt:   formatTimePtr(t.UpdatedAt),
		Assignees:   assignees,
	}, nil
}

func (e taskEntity) toDomain() (domain.Task, error) {
	created, err := time.Parse(time.RFC3339Nano, e.CreatedAt)
	if err != nil {
		return domain.Task{}, fmt.Errorf("task %s createdAt: %w", e.RowKey, err)
	}
	completedAt, err := parseTimePtr(e.CompletedAt)
	if err != nil {
		return domain.Task{}, fmt.Errorf("task %s completedAt: %w", e.RowKey, err)
	}
	updatedAt, err := parseTimePtr(e.UpdatedAt)
	if err != nil {
		return domain.Task{}, fmt.Errorf("task %s updatedAt: %w", e.RowKey, err)
	}
	assignees, err := decodeList(e.Assignees)
	if err != nil {
		return domain.Task{}, fmt.Errorf("task %s assignees: %w", e.RowKey, err)
	}
	return domain.Task{
		ID:          e.RowKey,
		BoardID:     e.BoardID,
		Title:       e.Title,
		DueDate:     e.DueDate,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   created,
		Completed:   e.Completed,
		CompletedAt: completedAt,
		UpdatedAt:   updatedAt,
		Assignees:   assignees,
	}, nil
}
