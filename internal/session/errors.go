package session

import "errors"

// User-facing error messages.
const (
	MsgCredentialsRequired = "Username and password are required"
	MsgAuthFailed          = "Authentication failed. Please check your credentials."
	MsgLoadFailed          = "Failed to load expenses"
	MsgFieldsRequired      = "All fields are required"
	MsgSaveFailed          = "Failed to save expense. Please try again."
	MsgDeleteFailed        = "Failed to delete expense. Please try again."
)

// Kind classifies a session error.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindLoad
	KindSave
	KindDelete
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindLoad:
		return "load"
	case KindSave:
		return "save"
	case KindDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Error is the single message shown to the user after a failed operation.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches another *Error of the same kind. A target without a message
// matches every message of its kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Sentinels for errors.Is checks by kind.
var (
	ErrValidation = &Error{Kind: KindValidation}
	ErrAuth       = &Error{Kind: KindAuth}
	ErrLoad       = &Error{Kind: KindLoad}
	ErrSave       = &Error{Kind: KindSave}
	ErrDelete     = &Error{Kind: KindDelete}
)

var (
	// ErrNotLoggedIn is returned by expense operations while no token is held.
	ErrNotLoggedIn = errors.New("not logged in")
	// ErrSessionEnded is returned when Logout happened while a request was in flight.
	// The response was discarded.
	ErrSessionEnded = errors.New("session ended before the response arrived")
)

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}
