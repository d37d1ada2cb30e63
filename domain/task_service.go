package domain

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// TaskInput carries the form fields of add-task and edit-task.
type TaskInput struct {
	Title     string
	DueDate   string
	Assignees []string
}

func (in TaskInput) normalized() TaskInput {
	return TaskInput{
		Title:     strings.TrimSpace(in.Title),
		DueDate:   strings.TrimSpace(in.DueDate),
		Assignees: NormalizeEmails(in.Assignees),
	}
}

// AddTask inserts a task into the board unless a task with the same title
// (exact match) already exists there.
func (s *Service) AddTask(ctx context.Context, id *Identity, boardID string, in TaskInput) (out Outcome) {
	if id == nil {
		return Home()
	}
	ctx, span := s.start(ctx, "add_task", attribute.String("board.id", boardID))
	defer func() { endSpan(span, out) }()

	fields := log.Fields{"user": id.Email, "board": boardID}
	in = in.normalized()
	if in.Title == "" {
		return boardError(boardID, TagTaskFailed)
	}
	if _, err := s.EnsureUser(ctx, *id); err != nil {
		s.storeFailure("add_task", fields, err)
		return boardError(boardID, TagTaskFailed)
	}

	claimed := false
	if s.claims != nil {
		ok, err := s.claims.Claim(ctx, boardID, in.Title)
		switch {
		case err != nil:
			s.log.WithFields(fields).WithError(err).Warn("title claim unavailable")
		case !ok:
			return boardError(boardID, TagTaskExists)
		default:
			claimed = true
		}
	}
	// The claim only covers the check-then-insert window. Once the task is
	// stored the title check sees it, so the claim is released on every path.
	if claimed {
		defer func() {
			if err := s.claims.Release(ctx, boardID, in.Title); err != nil {
				s.log.WithFields(fields).WithError(err).Warn("title claim release failed")
			}
		}()
	}

	existing, err := s.store.ListBoardTasks(ctx, boardID)
	if err != nil {
		s.storeFailure("add_task", fields, err)
		return boardError(boardID, TagTaskFailed)
	}
	for _, t := range existing {
		if t.Title == in.Title {
			return boardError(boardID, TagTaskExists)
		}
	}

	task := Task{
		ID:        s.newID(),
		BoardID:   boardID,
		Title:     in.Title,
		DueDate:   in.DueDate,
		CreatedBy: id.UserID,
		CreatedAt: s.now().UTC(),
		Assignees: in.Assignees,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		s.storeFailure("add_task", fields, err)
		return boardError(boardID, TagTaskFailed)
	}
	s.emit(Activity{Type: TaskCreated, BoardID: boardID, TaskID: task.ID, Actor: id.Email})
	return toBoard(boardID)
}

// ToggleTask flips the completed flag, setting completedAt when the task
// becomes complete and clearing it otherwise.
func (s *Service) ToggleTask(ctx context.Context, id *Identity, boardID, taskID string) (out Outcome) {
	if id == nil {
		return Home()
	}
	ctx, span := s.start(ctx, "toggle_task", attribute.String("board.id", boardID), attribute.String("task.id", taskID))
	defer func() { endSpan(span, out) }()

	fields := log.Fields{"user": id.Email, "board": boardID, "task": taskID}
	if _, err := s.EnsureUser(ctx, *id); err != nil {
		s.storeFailure("toggle_task", fields, err)
		return boardError(boardID, TagToggleFailed)
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		s.storeFailure("toggle_task", fields, err)
		return boardError(boardID, TagToggleFailed)
	}
	if task == nil || task.BoardID != boardID {
		return boardError(boardID, TagTaskNotFound)
	}
	completed := !task.Completed
	if err := s.store.SetTaskCompleted(ctx, taskID, completed, s.now().UTC()); err != nil {
		if errors.Is(err, ErrNotFound) {
			return boardError(boardID, TagTaskNotFound)
		}
		s.storeFailure("toggle_task", fields, err)
		return boardError(boardID, TagToggleFailed)
	}
	s.emit(Activity{Type: TaskToggled, BoardID: boardID, TaskID: taskID, Actor: id.Email})
	return toBoard(boardID)
}

// EditTask overwrites the title, due date and assignees of a task.
func (s *Service) EditTask(ctx context.Context, id *Identity, boardID, taskID string, in TaskInput) (out Outcome) {
	if id == nil {
		return Home()
	}
	ctx, span := s.start(ctx, "edit_task", attribute.String("board.id", boardID), attribute.String("task.id", taskID))
	defer func() { endSpan(span, out) }()

	fields := log.Fields{"user": id.Email, "board": boardID, "task": taskID}
	in = in.normalized()
	if in.Title == "" {
		return boardError(boardID, TagEditFailed)
	}
	if _, err := s.EnsureUser(ctx, *id); err != nil {
		s.storeFailure("edit_task", fields, err)
		return boardError(boardID, TagEditFailed)
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		s.storeFailure("edit_task", fields, err)
		return boardError(boardID, TagEditFailed)
	}
	if task == nil || task.BoardID != boardID {
		return boardError(boardID, TagEditFailed)
	}
	edit := TaskEdit{
		Title:     in.Title,
		DueDate:   in.DueDate,
		Assignees: in.Assignees,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.store.EditTask(ctx, taskID, edit); err != nil {
		s.storeFailure("edit_task", fields, err)
		return boardError(boardID, TagEditFailed)
	}
	s.emit(Activity{Type: TaskEdited, BoardID: boardID, TaskID: taskID, Actor: id.Email})
	return toBoard(boardID)
}

// DeleteTask removes a task. Deleting a task that is already gone succeeds.
func (s *Service) DeleteTask(ctx context.Context, id *Identity, boardID, taskID string) (out Outcome) {
	if id == nil {
		return Home()
	}
	ctx, span := s.start(ctx, "delete_task", attribute.String("board.id", boardID), attribute.String("task.id", taskID))
	defer func() { endSpan(span, out) }()

	fields := log.Fields{"user": id.Email, "board": boardID, "task": taskID}
	if _, err := s.EnsureUser(ctx, *id); err != nil {
		s.storeFailure("delete_task", fields, err)
		return boardError(boardID, TagDeleteFailed)
	}
	task, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		s.storeFailure("delete_task", fields, err)
		return boardError(boardID, TagDeleteFailed)
	}
	if task == nil {
		return toBoard(boardID)
	}
	if task.BoardID != boardID {
		return boardError(boardID, TagDeleteFailed)
	}
	if err := s.store.DeleteTask(ctx, taskID); err != nil {
		s.storeFailure("delete_task", fields, err)
		return boardError(boardID, TagDeleteFailed)
	}
	s.emit(Activity{Type: TaskDeleted, BoardID: boardID, TaskID: taskID, Actor: id.Email})
	return toBoard(boardID)
}
