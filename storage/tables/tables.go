// Package tables stores users, boards and tasks in Azure Table Storage.
package tables

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/bytedance/sonic"

	"github.com/ANTOSOJAN/task-management-system/domain"
)

const maxUpdateAttempts = 5

// table is the subset of *aztables.Client used by Store.
type table interface {
	GetEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.GetEntityOptions) (aztables.GetEntityResponse, error)
	AddEntity(ctx context.Context, entity []byte, options *aztables.AddEntityOptions) (aztables.AddEntityResponse, error)
	UpdateEntity(ctx context.Context, entity []byte, options *aztables.UpdateEntityOptions) (aztables.UpdateEntityResponse, error)
	DeleteEntity(ctx context.Context, partitionKey, rowKey string, options *aztables.DeleteEntityOptions) (aztables.DeleteEntityResponse, error)
	NewListEntitiesPager(options *aztables.ListEntitiesOptions) *runtime.Pager[aztables.ListEntitiesResponse]
}

// Store implements domain.Store on three tables.
type Store struct {
	users  table
	boards table
	tasks  table
}

// Tables names the three tables backing a Store.
type Tables struct {
	Users  string
	Boards string
	Tasks  string
}

// ServiceClient creates a table service client with the retry policy used by
// every table client of the service.
func ServiceClient(connStr string) (*aztables.ServiceClient, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	return aztables.NewServiceClientFromConnectionString(connStr, &opts)
}

// New creates a Store from the given connection string.
func New(connStr string, names Tables) (*Store, error) {
	svc, err := ServiceClient(connStr)
	if err != nil {
		return nil, err
	}
	return &Store{
		users:  svc.NewClient(names.Users),
		boards: svc.NewClient(names.Boards),
		tasks:  svc.NewClient(names.Tasks),
	}, nil
}

// CreateTables creates the named tables, ignoring ones that already exist.
func CreateTables(ctx context.Context, svc *aztables.ServiceClient, names Tables) error {
	for _, name := range []string{names.Users, names.Boards, names.Tasks} {
		if name == "" {
			continue
		}
		_, err := svc.NewClient(name).CreateTable(ctx, nil)
		if err != nil {
			var respErr *azcore.ResponseError
			if !(errors.As(err, &respErr) && respErr.ErrorCode == string(aztables.TableAlreadyExists)) {
				return fmt.Errorf("create table %s: %w", name, err)
			}
		}
	}
	return nil
}

var noMetadata = aztables.MetadataFormatNone

func statusCode(err error) int {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode
	}
	return 0
}

// get decodes one entity into v. found is false when the entity does not exist.
func get(ctx context.Context, t table, pk, rk string, v any) (etag azcore.ETag, found bool, err error) {
	resp, err := t.GetEntity(ctx, pk, rk, &aztables.GetEntityOptions{Format: &noMetadata})
	if err != nil {
		if statusCode(err) == 404 {
			return "", false, nil
		}
		return "", false, err
	}
	if err := decodeStrict(resp.Value, v); err != nil {
		return "", false, fmt.Errorf("decode %s/%s: %w", pk, rk, err)
	}
	return resp.ETag, true, nil
}

func add(ctx context.Context, t table, v any) error {
	payload, err := sonic.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := t.AddEntity(ctx, payload, nil); err != nil {
		if statusCode(err) == 409 {
			return domain.ErrConcurrencyConflict
		}
		return err
	}
	return nil
}

// modify replaces an entity after applying mutate to its current state. The
// write is conditional on the ETag read and is retried on a lost race.
func modify[T any](ctx context.Context, t table, pk, rk string, mutate func(*T) error) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var ent T
		etag, found, err := get(ctx, t, pk, rk, &ent)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s/%s: %w", pk, rk, domain.ErrNotFound)
		}
		if err := mutate(&ent); err != nil {
			return err
		}
		if k, ok := any(&ent).(interface{ clearTimestamp() }); ok {
			k.clearTimestamp()
		}
		payload, err := sonic.Marshal(&ent)
		if err != nil {
			return err
		}
		_, err = t.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &etag, UpdateMode: aztables.UpdateModeReplace})
		switch statusCode(err) {
		case 0:
			if err != nil {
				return err
			}
			return nil
		case 412:
			continue
		case 404:
			return fmt.Errorf("%s/%s: %w", pk, rk, domain.ErrNotFound)
		default:
			return err
		}
	}
	return fmt.Errorf("%s/%s: %w", pk, rk, domain.ErrConcurrencyConflict)
}

func remove(ctx context.Context, t table, pk, rk string) error {
	match := azcore.ETagAny
	if _, err := t.DeleteEntity(ctx, pk, rk, &aztables.DeleteEntityOptions{IfMatch: &match}); err != nil && statusCode(err) != 404 {
		return err
	}
	return nil
}

// list decodes every entity matching filter, stopping early when each
// returns false.
func list[T any](ctx context.Context, t table, filter string, top int32, each func(T) (bool, error)) error {
	opts := &aztables.ListEntitiesOptions{Filter: &filter, Format: &noMetadata}
	if top > 0 {
		opts.Top = &top
	}
	pager := t.NewListEntitiesPager(opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, raw := range page.Entities {
			var ent T
			if err := decodeStrict(raw, &ent); err != nil {
				return fmt.Errorf("decode entity: %w", err)
			}
			more, err := each(ent)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}
	}
	return nil
}

func quote(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func partitionFilter(pk string) string {
	return "PartitionKey eq " + quote(pk)
}

// Ping reads at most one user entity.
func (s *Store) Ping(ctx context.Context) error {
	return list(ctx, s.users, partitionFilter(userPartition), 1, func(userEntity) (bool, error) { return false, nil })
}

func (s *Store) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var ent userEntity
	_, found, err := get(ctx, s.users, userPartition, userRowKey(email), &ent)
	if err != nil || !found {
		return nil, err
	}
	u, err := ent.toDomain()
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	ent, err := newUserEntity(u)
	if err != nil {
		return err
	}
	return add(ctx, s.users, ent)
}

func (s *Store) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	var found *domain.User
	filter := partitionFilter(userPartition) + " and UserID eq " + quote(userID)
	err := list(ctx, s.users, filter, 1, func(ent userEntity) (bool, error) {
		if ent.UserID != userID {
			return true, nil
		}
		u, err := ent.toDomain()
		if err != nil {
			return false, err
		}
		found = &u
		return false, nil
	})
	return found, err
}

func (s *Store) AddUserBoard(ctx context.Context, email, boardID string) error {
	return modify(ctx, s.users, userPartition, userRowKey(email), func(ent *userEntity) error {
		u, err := ent.toDomain()
		if err != nil {
			return err
		}
		if !u.HasBoard(boardID) {
			u.Boards = append(u.Boards, boardID)
		}
		ent.Boards, err = encodeList(u.Boards)
		return err
	})
}

func (s *Store) RemoveUserBoard(ctx context.Context, email, boardID string) error {
	return modify(ctx, s.users, userPartition, userRowKey(email), func(ent *userEntity) error {
		boards, err := decodeList(ent.Boards)
		if err != nil {
			return err
		}
		ent.Boards, err = encodeList(without(boards, boardID))
		return err
	})
}

// ListBoardMembers scans the user partition; board ids live inside a JSON
// property and cannot be filtered server side.
func (s *Store) ListBoardMembers(ctx context.Context, boardID string) ([]domain.User, error) {
	var members []domain.User
	err := list(ctx, s.users, partitionFilter(userPartition), 0, func(ent userEntity) (bool, error) {
		u, err := ent.toDomain()
		if err != nil {
			return false, err
		}
		if u.HasBoard(boardID) {
			members = append(members, u)
		}
		return true, nil
	})
	return members, err
}

func (s *Store) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	var ent boardEntity
	_, found, err := get(ctx, s.boards, boardPartition, id, &ent)
	if err != nil || !found {
		return nil, err
	}
	b, err := ent.toDomain()
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) CreateBoard(ctx context.Context, b domain.Board) error {
	return add(ctx, s.boards, newBoardEntity(b))
}

func (s *Store) RenameBoard(ctx context.Context, id, title string) error {
	return modify(ctx, s.boards, boardPartition, id, func(ent *boardEntity) error {
		ent.Title = title
		return nil
	})
}

func (s *Store) DeleteBoard(ctx context.Context, id string) error {
	return remove(ctx, s.boards, boardPartition, id)
}

func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var ent taskEntity
	_, found, err := get(ctx, s.tasks, taskPartition, id, &ent)
	if err != nil || !found {
		return nil, err
	}
	t, err := ent.toDomain()
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) CreateTask(ctx context.Context, t domain.Task) error {
	ent, err := newTaskEntity(t)
	if err != nil {
		return err
	}
	return add(ctx, s.tasks, ent)
}

func (s *Store) SetTaskCompleted(ctx context.Context, id string, completed bool, at time.Time) error {
	return modify(ctx, s.tasks, taskPartition, id, func(ent *taskEntity) error {
		ent.Completed = completed
		ent.CompletedAt = nil
		if completed {
			ent.CompletedAt = formatTimePtr(&at)
		}
		ent.UpdatedAt = formatTimePtr(&at)
		return nil
	})
}

func (s *Store) EditTask(ctx context.Context, id string, edit domain.TaskEdit) error {
	assignees, err := encodeList(edit.Assignees)
	if err != nil {
		return err
	}
	return modify(ctx, s.tasks, taskPartition, id, func(ent *taskEntity) error {
		ent.Title = edit.Title
		ent.DueDate = edit.DueDate
		ent.Assignees = assignees
		ent.UpdatedAt = formatTimePtr(&edit.UpdatedAt)
		return nil
	})
}

func (s *Store) RemoveTaskAssignee(ctx context.Context, id, email string) error {
	return modify(ctx, s.tasks, taskPartition, id, func(ent *taskEntity) error {
		assignees, err := decodeList(ent.Assignees)
		if err != nil {
			return err
		}
		ent.Assignees, err = encodeList(without(assignees, email))
		return err
	})
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return remove(ctx, s.tasks, taskPartition, id)
}

func boardTasksFilter(boardID string) string {
	return partitionFilter(taskPartition) + " and BoardID eq " + quote(boardID)
}

func (s *Store) ListBoardTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	var tasks []domain.Task
	err := list(ctx, s.tasks, boardTasksFilter(boardID), 0, func(ent taskEntity) (bool, error) {
		if ent.BoardID != boardID {
			return true, nil
		}
		t, err := ent.toDomain()
		if err != nil {
			return false, err
		}
		tasks = append(tasks, t)
		return true, nil
	})
	return tasks, err
}

func (s *Store) BoardHasTasks(ctx context.Context, boardID string) (bool, error) {
	var has bool
	err := list(ctx, s.tasks, boardTasksFilter(boardID), 1, func(ent taskEntity) (bool, error) {
		has = ent.BoardID == boardID
		return !has, nil
	})
	return has, err
}

func without(vals []string, v string) []string {
	out := make([]string, 0, len(vals))
	for _, x := range vals {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}

var _ domain.Store = (*Store)(nil)
