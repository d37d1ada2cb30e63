package domain

import (
	"context"
	"errors"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// Home builds the home view: boards the caller created and boards shared with
// the caller, each with its tasks. Anonymous callers get an empty view.
func (s *Service) Home(ctx context.Context, id *Identity) HomeView {
	if id == nil {
		return HomeView{}
	}
	ctx, span := s.start(ctx, "home", attribute.String("user.email", id.Email))
	defer span.End()

	view := HomeView{Identity: id, Boards: []BoardSummary{}, SharedBoards: []BoardSummary{}}
	user, err := s.EnsureUser(ctx, *id)
	if err != nil {
		s.storeFailure("home", log.Fields{"user": id.Email}, err)
		view.Error = TagLoadFailed
		return view
	}

	emails := s.newCreatorEmails()
	for _, boardID := range user.Boards {
		board, err := s.store.GetBoard(ctx, boardID)
		if err != nil {
			s.storeFailure("home", log.Fields{"user": id.Email, "board": boardID}, err)
			view.Error = TagLoadFailed
			continue
		}
		if board == nil {
			continue
		}
		tasks, err := s.store.ListBoardTasks(ctx, boardID)
		if err != nil {
			s.storeFailure("home", log.Fields{"user": id.Email, "board": boardID}, err)
			view.Error = TagLoadFailed
			continue
		}
		summary := BoardSummary{
			ID:           board.ID,
			Title:        board.Title,
			IsCreator:    IsCreator(id.UserID, *board),
			CreatorEmail: emails.lookup(ctx, board.CreatedBy),
			Tasks:        make([]TaskSummary, 0, len(tasks)),
		}
		if board.Description != nil {
			summary.Description = *board.Description
		}
		sortTasks(tasks)
		for _, t := range tasks {
			summary.Tasks = append(summary.Tasks, TaskSummary{
				ID:           t.ID,
				Title:        t.Title,
				DueDate:      t.DueDate,
				Completed:    t.Completed,
				Assignees:    t.Assignees,
				CreatorEmail: emails.lookup(ctx, t.CreatedBy),
			})
		}
		if summary.IsCreator {
			view.Boards = append(view.Boards, summary)
		} else {
			view.SharedBoards = append(view.SharedBoards, summary)
		}
	}
	return view
}

// ViewBoard builds the board detail view. A nil view comes with the outcome
// to navigate to instead: home when the caller is anonymous, not a member,
// or the board does not exist.
func (s *Service) ViewBoard(ctx context.Context, id *Identity, boardID string) (*BoardView, Outcome) {
	if id == nil {
		return nil, Home()
	}
	ctx, span := s.start(ctx, "view", attribute.String("board.id", boardID))
	defer span.End()

	fields := log.Fields{"user": id.Email, "board": boardID}
	user, err := s.EnsureUser(ctx, *id)
	if err != nil {
		s.storeFailure("view_board", fields, err)
		return nil, Home()
	}
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		s.storeFailure("view_board", fields, err)
		return nil, Home()
	}
	if board == nil || !CanViewBoard(user, *board) {
		return nil, Home()
	}

	members, err := s.store.ListBoardMembers(ctx, boardID)
	if err != nil {
		s.storeFailure("view_board", fields, err)
		return nil, Home()
	}
	tasks, err := s.store.ListBoardTasks(ctx, boardID)
	if err != nil {
		s.storeFailure("view_board", fields, err)
		return nil, Home()
	}

	view := &BoardView{
		Board:     *board,
		IsCreator: IsCreator(id.UserID, *board),
		UserEmail: id.Email,
		Members:   make([]Member, 0, len(members)),
		Tasks:     make([]TaskView, 0, len(tasks)),
	}
	sort.Slice(members, func(i, j int) bool { return members[i].Email < members[j].Email })
	for _, m := range members {
		view.Members = append(view.Members, Member{Email: m.Email, UserID: m.UserID})
	}
	sortTasks(tasks)
	emails := s.newCreatorEmails()
	for _, t := range tasks {
		view.Tasks = append(view.Tasks, TaskView{Task: t, CreatorEmail: emails.lookup(ctx, t.CreatedBy)})
		view.Total++
		if t.Completed {
			view.Completed++
		}
	}
	view.Active = view.Total - view.Completed
	return view, Outcome{Path: BoardPath(boardID)}
}

// CreateBoard creates a board owned by the caller and adds it to the caller's boards.
func (s *Service) CreateBoard(ctx context.Context, id *Identity, title, description string) (out Outcome) {
	if id == nil {
		return Home()
	}
	ctx, span := s.start(ctx, "create")
	defer func() { endSpan(span, out) }()

	failed := Outcome{Path: CreateBoardFormPath, Tag: TagCreationFailed}
	fields := log.Fields{"user": id.Email}
	title = strings.TrimSpace(title)
	if title == "" {
		return failed
	}
	if _, err := s.EnsureUser(ctx, *id); err != nil {
		s.storeFailure("create_board", fields, err)
		return failed
	}

	board := Board{
		ID:        s.newID(),
		Title:     title,
		CreatedBy: id.UserID,
		CreatedAt: s.now().UTC(),
	}
	if d := strings.TrimSpace(description); d != "" {
		board.Description = &d
	}
	fields["board"] = board.ID
	span.SetAttributes(attribute.String("board.id", board.ID))

	if err := s.store.CreateBoard(ctx, board); err != nil {
		s.storeFailure("create_board", fields, err)
		return failed
	}
	if err := s.store.AddUserBoard(ctx, id.Email, board.ID); err != nil {
		s.storeFailure("create_board", fields, err)
		return failed
	}
	s.emit(Activity{Type: BoardCreated, BoardID: board.ID, Actor: id.Email})
	return Home()
}

// AddUser gives the user identified by email access to the board. Only the
// creator may add users.
func (s *Service) AddUser(ctx context.Context, id *Identity, boardID, email string) (out Outcome) {
	if id == nil {
		return Home()
	}
	ctx, span := s.start(ctx, "add_user", attribute.String("board.id", boardID))
	defer func() { endSpan(span, out) }()

	fields := log.Fields{"user": id.Email, "board": boardID}
	if _, err := s.EnsureUser(ctx, *id); err != nil {
		s.storeFailure("add_user", fields, err)
		return boardError(boardID, TagAddUserFailed)
	}
	if tag := s.requireCreator(ctx, id, boardID, TagAddUserFailed); tag != "" {
		return boardError(boardID, tag)
	}

	email = NormalizeEmail(email)
	if email == "" {
		return boardError(boardID, TagAddUserFailed)
	}
	fields["target"] = email
	if err := s.store.AddUserBoard(ctx, email, boardID); err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.WithFields(fields).Info("add user: no such user")
			return boardError(boardID, TagUserNotFound)
		}
		s.storeFailure("add_user", fields, err)
		return boardError(boardID, TagAddUserFailed)
	}
	s.emit(Activity{Type: MemberAdded, BoardID: boardID, Actor: id.Email, Subjects: []string{email}})
	return toBoard(boardID)
}

// RenameBoard changes the board title. Only the creator may rename; the
// creator itself never changes.
func (s *Service) RenameBoard(ctx context.Context, id *Identity, boardID, newTitle string) (out Outcome) {
	if id == nil {
		return Home()
	}
	ctx, span := s.start(ctx, "rename", attribute.String("board.id", boardID))
	defer func() { endSpan(span, out) }()

	fields := log.Fields{"user": id.Email, "board": boardID}
	if _, err := s.EnsureUser(ctx, *id); err != nil {
		s.storeFailure("rename_board", fields, err)
		return boardError(boardID, TagRenameFailed)
	}
	if tag := s.requireCreator(ctx, id, boardID, TagRenameFailed); tag != "" {
		return boardError(boardID, tag)
	}
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" {
		return boardError(boardID, TagRenameFailed)
	}
	if err := s.store.RenameBoard(ctx, boardID, newTitle); err != nil {
		s.storeFailure("rename_board", fields, err)
		return boardError(boardID, TagRenameFailed)
	}
	s.emit(Activity{Type: BoardRenamed, BoardID: boardID, Actor: id.Email})
	return toBoard(boardID)
}

// DeleteBoard deletes an empty board: one with no tasks and no members other
// than the creator. The emptiness checks and the delete are separate store
// calls and are not atomic.
func (s *Service) DeleteBoard(ctx context.Context, id *Identity, boardID string) (out Outcome) {
	if id == nil {
		return Home()
	}
	ctx, span := s.start(ctx, "delete", attribute.String("board.id", boardID))
	defer func() { endSpan(span, out) }()

	fields := log.Fields{"user": id.Email, "board": boardID}
	if _, err := s.EnsureUser(ctx, *id); err != nil {
		s.storeFailure("delete_board", fields, err)
		return boardError(boardID, TagDeleteBoardFailed)
	}
	if tag := s.requireCreator(ctx, id, boardID, TagDeleteBoardFailed); tag != "" {
		return boardError(boardID, tag)
	}

	hasTasks, err := s.store.BoardHasTasks(ctx, boardID)
	if err != nil {
		s.storeFailure("delete_board", fields, err)
		return boardError(boardID, TagDeleteBoardFailed)
	}
	var members []User
	if !hasTasks {
		members, err = s.store.ListBoardMembers(ctx, boardID)
		if err != nil {
			s.storeFailure("delete_board", fields, err)
			return boardError(boardID, TagDeleteBoardFailed)
		}
	}
	if ok, tag := CanDeleteBoard(hasTasks, members, id.Email); !ok {
		return boardError(boardID, tag)
	}

	if err := s.store.DeleteBoard(ctx, boardID); err != nil {
		s.storeFailure("delete_board", fields, err)
		return boardError(boardID, TagDeleteBoardFailed)
	}
	if err := s.store.RemoveUserBoard(ctx, id.Email, boardID); err != nil && !errors.Is(err, ErrNotFound) {
		s.log.WithFields(fields).WithError(err).Warn("deleted board left in creator's board list")
	}
	s.emit(Activity{Type: BoardDeleted, BoardID: boardID, Actor: id.Email})
	return Home()
}

// RemoveUsers revokes board access for each email and drops those users from
// the assignees of every task on the board. The creator cannot be removed.
func (s *Service) RemoveUsers(ctx context.Context, id *Identity, boardID string, emails []string) (out Outcome) {
	if id == nil {
		return Home()
	}
	ctx, span := s.start(ctx, "remove_users", attribute.String("board.id", boardID))
	defer func() { endSpan(span, out) }()

	fields := log.Fields{"user": id.Email, "board": boardID}
	if _, err := s.EnsureUser(ctx, *id); err != nil {
		s.storeFailure("remove_users", fields, err)
		return boardError(boardID, TagRemoveUserFailed)
	}
	if tag := s.requireCreator(ctx, id, boardID, TagRemoveUserFailed); tag != "" {
		return boardError(boardID, tag)
	}

	emails = NormalizeEmails(emails)
	if len(emails) == 0 {
		return boardError(boardID, TagRemoveUserFailed)
	}
	tasks, err := s.store.ListBoardTasks(ctx, boardID)
	if err != nil {
		s.storeFailure("remove_users", fields, err)
		return boardError(boardID, TagRemoveUserFailed)
	}

	removed := make([]string, 0, len(emails))
	for _, email := range emails {
		if email == id.Email {
			continue
		}
		if err := s.store.RemoveUserBoard(ctx, email, boardID); err != nil {
			s.storeFailure("remove_users", log.Fields{"user": id.Email, "board": boardID, "target": email}, err)
			return boardError(boardID, TagRemoveUserFailed)
		}
		for _, t := range tasks {
			if !t.HasAssignee(email) {
				continue
			}
			err := s.store.RemoveTaskAssignee(ctx, t.ID, email)
			if err != nil && !errors.Is(err, ErrNotFound) {
				s.storeFailure("remove_users", log.Fields{"user": id.Email, "board": boardID, "task": t.ID, "target": email}, err)
				return boardError(boardID, TagRemoveUserFailed)
			}
		}
		removed = append(removed, email)
	}
	if len(removed) > 0 {
		s.emit(Activity{Type: MembersRemoved, BoardID: boardID, Actor: id.Email, Subjects: removed})
	}
	return toBoard(boardID)
}

// requireCreator returns TagNotCreator when the board is absent or not
// created by the caller, failTag when the board cannot be read, and "" when
// the caller is the creator.
func (s *Service) requireCreator(ctx context.Context, id *Identity, boardID string, failTag ErrorTag) ErrorTag {
	board, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		s.storeFailure("get_board", log.Fields{"user": id.Email, "board": boardID}, err)
		return failTag
	}
	if board == nil || !IsCreator(id.UserID, *board) {
		return TagNotCreator
	}
	return ""
}

func sortTasks(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}
