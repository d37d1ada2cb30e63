// Package mongostore stores users, boards and tasks in MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/ANTOSOJAN/task-management-system/domain"
)

const (
	UsersCollection  = "users"
	BoardsCollection = "taskBoards"
	TasksCollection  = "tasks"
)

// Store implements domain.Store on three collections of one database.
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	boards *mongo.Collection
	tasks  *mongo.Collection
}

// Connect opens a client for uri and returns a Store on database dbName.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	return New(client, client.Database(dbName)), nil
}

// New wraps an existing database.
func New(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client: client,
		users:  db.Collection(UsersCollection),
		boards: db.Collection(BoardsCollection),
		tasks:  db.Collection(TasksCollection),
	}
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// Ping checks that the primary answers.
func (s *Store) Ping(ctx context.Context) error {
	if s.client == nil {
		return errors.New("mongostore: no client")
	}
	return s.client.Ping(ctx, readpref.Primary())
}

// EnsureIndexes creates the lookup indexes used by member, creator and task queries.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "boards", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if _, err := s.tasks.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "boardId", Value: 1}, {Key: "createdAt", Value: 1}},
	}); err != nil {
		return fmt.Errorf("tasks indexes: %w", err)
	}
	return nil
}

// findOne decodes the first match of filter into v. found is false when
// nothing matched.
func findOne(ctx context.Context, c *mongo.Collection, filter any, fields fieldSet, v any) (bool, error) {
	raw, err := c.FindOne(ctx, filter).Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, nil
		}
		return false, err
	}
	if err := decodeStrict(raw, fields, v); err != nil {
		return false, err
	}
	return true, nil
}

func insert(ctx context.Context, c *mongo.Collection, doc any) error {
	if _, err := c.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrConcurrencyConflict
		}
		return err
	}
	return nil
}

func updateByID(ctx context.Context, c *mongo.Collection, id string, update bson.M) error {
	res, err := c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %s: %w", c.Name(), id, domain.ErrNotFound)
	}
	return nil
}

func findAll[D any](ctx context.Context, c *mongo.Collection, filter any, fields fieldSet, opts ...*options.FindOptions) ([]D, error) {
	cur, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []D
	for cur.Next(ctx) {
		var d D
		if err := decodeStrict(cur.Current, fields, &d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, cur.Err()
}

func (s *Store) GetUser(ctx context.Context, email string) (*domain.User, error) {
	var d userDoc
	found, err := findOne(ctx, s.users, bson.M{"_id": email}, userFields, &d)
	if err != nil || !found {
		return nil, err
	}
	u := d.toDomain()
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u domain.User) error {
	return insert(ctx, s.users, newUserDoc(u))
}

func (s *Store) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	var d userDoc
	found, err := findOne(ctx, s.users, bson.M{"user_id": userID}, userFields, &d)
	if err != nil || !found {
		return nil, err
	}
	u := d.toDomain()
	return &u, nil
}

func (s *Store) AddUserBoard(ctx context.Context, email, boardID string) error {
	return updateByID(ctx, s.users, email, bson.M{"$addToSet": bson.M{"boards": boardID}})
}

func (s *Store) RemoveUserBoard(ctx context.Context, email, boardID string) error {
	return updateByID(ctx, s.users, email, bson.M{"$pull": bson.M{"boards": boardID}})
}

func (s *Store) ListBoardMembers(ctx context.Context, boardID string) ([]domain.User, error) {
	docs, err := findAll[userDoc](ctx, s.users, bson.M{"boards": boardID}, userFields)
	if err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *Store) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	var d boardDoc
	found, err := findOne(ctx, s.boards, bson.M{"_id": id}, boardFields, &d)
	if err != nil || !found {
		return nil, err
	}
	b := d.toDomain()
	return &b, nil
}

func (s *Store) CreateBoard(ctx context.Context, b domain.Board) error {
	return insert(ctx, s.boards, newBoardDoc(b))
}

func (s *Store) RenameBoard(ctx context.Context, id, title string) error {
	return updateByID(ctx, s.boards, id, bson.M{"$set": bson.M{"title": title}})
}

func (s *Store) DeleteBoard(ctx context.Context, id string) error {
	_, err := s.boards.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *Store) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	var d taskDoc
	found, err := findOne(ctx, s.tasks, bson.M{"_id": id}, taskFields, &d)
	if err != nil || !found {
		return nil, err
	}
	t := d.toDomain()
	return &t, nil
}

func (s *Store) CreateTask(ctx context.Context, t domain.Task) error {
	return insert(ctx, s.tasks, newTaskDoc(t))
}

func (s *Store) SetTaskCompleted(ctx context.Context, id string, completed bool, at time.Time) error {
	var completedAt *time.Time
	if completed {
		completedAt = &at
	}
	return updateByID(ctx, s.tasks, id, bson.M{"$set": bson.M{
		"completed":   completed,
		"completedAt": completedAt,
		"updatedAt":   at,
	}})
}

func (s *Store) EditTask(ctx context.Context, id string, edit domain.TaskEdit) error {
	assignees := edit.Assignees
	if assignees == nil {
		assignees = []string{}
	}
	return updateByID(ctx, s.tasks, id, bson.M{"$set": bson.M{
		"title":     edit.Title,
		"due_date":  edit.DueDate,
		"assignees": assignees,
		"updatedAt": edit.UpdatedAt,
	}})
}

func (s *Store) RemoveTaskAssignee(ctx context.Context, id, email string) error {
	return updateByID(ctx, s.tasks, id, bson.M{"$pull": bson.M{"assignees": email}})
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	_, err := s.tasks.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *Store) ListBoardTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	docs, err := findAll[taskDoc](ctx, s.tasks, bson.M{"boardId": boardID}, taskFields,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (s *Store) BoardHasTasks(ctx context.Context, boardID string) (bool, error) {
	n, err := s.tasks.CountDocuments(ctx, bson.M{"boardId": boardID}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ domain.Store = (*Store)(nil)
