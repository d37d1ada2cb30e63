package api

import (
	"context"

	"github.com/ANTOSOJAN/task-management-system/domain"
)

// BoardService is the board and task service driven by the handlers.
type BoardService interface {
	Home(ctx context.Context, id *domain.Identity) domain.HomeView
	ViewBoard(ctx context.Context, id *domain.Identity, boardID string) (*domain.BoardView, domain.Outcome)
	CreateBoard(ctx context.Context, id *domain.Identity, title, description string) domain.Outcome
	AddUser(ctx context.Context, id *domain.Identity, boardID, email string) domain.Outcome
	RenameBoard(ctx context.Context, id *domain.Identity, boardID, newTitle string) domain.Outcome
	DeleteBoard(ctx context.Context, id *domain.Identity, boardID string) domain.Outcome
	RemoveUsers(ctx context.Context, id *domain.Identity, boardID string, emails []string) domain.Outcome
	AddTask(ctx context.Context, id *domain.Identity, boardID string, in domain.TaskInput) domain.Outcome
	ToggleTask(ctx context.Context, id *domain.Identity, boardID, taskID string) domain.Outcome
	EditTask(ctx context.Context, id *domain.Identity, boardID, taskID string, in domain.TaskInput) domain.Outcome
	DeleteTask(ctx context.Context, id *domain.Identity, boardID, taskID string) domain.Outcome
}

// Verifier is implemented by types able to turn a raw ID token into an identity.
type Verifier interface {
	Verify(token string) (domain.Identity, error)
}

// HealthCheck reports whether the document store answers.
type HealthCheck func(ctx context.Context) error

// PageConfig is passed to the login page to configure the Firebase web SDK.
type PageConfig struct {
	FirebaseAPIKey     string
	FirebaseAuthDomain string
	FirebaseProjectID  string
}

var _ BoardService = (*domain.Service)(nil)
