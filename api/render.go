package api

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ANTOSOJAN/task-management-system/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var pages = []string{"main.html", "create_board.html", "board.html"}

var errorMessages = map[domain.ErrorTag]string{
	domain.TagCreationFailed:    "The board could not be created.",
	domain.TagNotCreator:        "Only the board creator can do that.",
	domain.TagAddUserFailed:     "The user could not be added.",
	domain.TagUserNotFound:      "No user with that email has signed in yet.",
	domain.TagTaskExists:        "A task with that title already exists on this board.",
	domain.TagTaskFailed:        "The task could not be added.",
	domain.TagTaskNotFound:      "That task no longer exists.",
	domain.TagToggleFailed:      "The task could not be updated.",
	domain.TagEditFailed:        "The task could not be edited.",
	domain.TagDeleteFailed:      "The task could not be deleted.",
	domain.TagRenameFailed:      "The board could not be renamed.",
	domain.TagBoardHasTasks:     "Delete every task before deleting the board.",
	domain.TagBoardHasMembers:   "Remove every member before deleting the board.",
	domain.TagDeleteBoardFailed: "The board could not be deleted.",
	domain.TagRemoveUserFailed:  "The users could not be removed.",
	domain.TagLoadFailed:        "Some boards could not be loaded.",
}

func errorMessage(tag domain.ErrorTag) string {
	if tag == "" {
		return ""
	}
	if msg, ok := errorMessages[tag]; ok {
		return msg
	}
	return "Something went wrong."
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Renderer executes the embedded page templates for echo.
type Renderer struct {
	templates map[string]*template.Template
}

// NewRenderer parses every page together with the shared layout.
func NewRenderer() (*Renderer, error) {
	funcs := template.FuncMap{
		"errorMessage": errorMessage,
		"formatTime":   formatTime,
		"deref":        deref,
	}
	r := &Renderer{templates: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.templates[name] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data any, _ echo.Context) error {
	t, ok := r.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

type homePage struct {
	Config PageConfig
	View   domain.HomeView
	Error  domain.ErrorTag
}

type createBoardPage struct {
	Identity *domain.Identity
	Error    domain.ErrorTag
}

type boardPage struct {
	View  *domain.BoardView
	Error domain.ErrorTag
}
