package domain

import "net/url"

// ErrorTag is a machine-readable failure code carried in the error query parameter.
type ErrorTag string

const (
	TagCreationFailed    ErrorTag = "creation_failed"
	TagNotCreator        ErrorTag = "not_creator"
	TagAddUserFailed     ErrorTag = "add_user_failed"
	TagUserNotFound      ErrorTag = "user_not_found"
	TagTaskExists        ErrorTag = "task_exists"
	TagTaskFailed        ErrorTag = "task_failed"
	TagTaskNotFound      ErrorTag = "task_not_found"
	TagToggleFailed      ErrorTag = "toggle_failed"
	TagEditFailed        ErrorTag = "edit_failed"
	TagDeleteFailed      ErrorTag = "delete_failed"
	TagRenameFailed      ErrorTag = "rename_failed"
	TagBoardHasTasks     ErrorTag = "board_has_tasks"
	TagBoardHasMembers   ErrorTag = "board_has_members"
	TagDeleteBoardFailed ErrorTag = "delete_board_failed"
	TagRemoveUserFailed  ErrorTag = "remove_user_failed"
	TagLoadFailed        ErrorTag = "load_failed"
)

const (
	HomePath            = "/"
	CreateBoardFormPath = "/create-board-form"
)

// BoardPath returns the board view path for id.
func BoardPath(id string) string {
	return "/board/" + url.PathEscape(id)
}

// Outcome tells the caller where to navigate next.
type Outcome struct {
	Path string
	Tag  ErrorTag
}

// Home is the outcome for anonymous callers and soft denies.
func Home() Outcome { return Outcome{Path: HomePath} }

func toBoard(id string) Outcome { return Outcome{Path: BoardPath(id)} }

func boardError(id string, tag ErrorTag) Outcome { return Outcome{Path: BoardPath(id), Tag: tag} }

// Failed reports whether the outcome carries an error tag.
func (o Outcome) Failed() bool { return o.Tag != "" }

// Location renders the redirect target, appending ?error=<tag> when tagged.
func (o Outcome) Location() string {
	if o.Tag == "" {
		return o.Path
	}
	return o.Path + "?error=" + url.QueryEscape(string(o.Tag))
}
