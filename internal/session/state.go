// Package session holds the client-side auth and expense state machine.
package session

import (
	"slices"

	"gitlab.com/yelinaung/expense-client/internal/models"
)

// Mode selects which auth endpoint a submitted auth form goes to.
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
)

func (m Mode) String() string {
	if m == ModeRegister {
		return "register"
	}
	return "login"
}

// AuthForm holds the raw auth form fields.
type AuthForm struct {
	Username string
	Password string
}

// ExpenseForm holds the raw add/edit form fields.
type ExpenseForm struct {
	Name     string
	Amount   string
	Category string
}

// IsComplete reports whether every field is non-empty.
func (f ExpenseForm) IsComplete() bool {
	return f.Name != "" && f.Amount != "" && f.Category != ""
}

// State is everything one session shows. The zero value is a logged-out
// session in login mode.
type State struct {
	Token     string
	Mode      Mode
	AuthForm  AuthForm
	Expenses  []models.Expense
	Form      ExpenseForm
	EditingID *int64
	Err       *Error
}

// LoggedIn reports whether a bearer token is held.
func (s State) LoggedIn() bool {
	return s.Token != ""
}

// Editing reports whether the form targets an existing expense.
func (s State) Editing() bool {
	return s.EditingID != nil
}

// Clone returns a copy that shares no memory with s.
func (s State) Clone() State {
	out := s
	if s.Expenses != nil {
		out.Expenses = slices.Clone(s.Expenses)
	}
	if s.EditingID != nil {
		id := *s.EditingID
		out.EditingID = &id
	}
	if s.Err != nil {
		e := *s.Err
		out.Err = &e
	}
	return out
}

// Effect is work the controller must run after a transition.
type Effect int

const (
	EffectNone Effect = iota
	// EffectLoadExpenses fires only on the logged-out to logged-in edge.
	EffectLoadExpenses
)

// Event is an input to Reduce.
type Event interface {
	event()
}

type (
	AuthFormChanged    struct{ Form AuthForm }
	ModeToggled        struct{}
	AuthSucceeded      struct{ Token string }
	ExpensesLoaded     struct{ Expenses []models.Expense }
	ExpenseFormChanged struct{ Form ExpenseForm }
	ExpenseCreated     struct{ Expense models.Expense }
	ExpenseDeleted     struct{ ID int64 }
	EditEntered        struct{ Expense models.Expense }
	EditCancelled      struct{}
	LoggedOut          struct{}
	ErrorRaised        struct{ Err *Error }
	ErrorCleared       struct{}
)

// ExpenseUpdated puts the server's record in place of the entry with ID,
// the id the update was sent for.
type ExpenseUpdated struct {
	ID      int64
	Expense models.Expense
}

func (AuthFormChanged) event()    {}
func (ModeToggled) event()        {}
func (AuthSucceeded) event()      {}
func (ExpensesLoaded) event()     {}
func (ExpenseFormChanged) event() {}
func (ExpenseCreated) event()     {}
func (ExpenseUpdated) event()     {}
func (ExpenseDeleted) event()     {}
func (EditEntered) event()        {}
func (EditCancelled) event()      {}
func (LoggedOut) event()          {}
func (ErrorRaised) event()        {}
func (ErrorCleared) event()       {}

// Reduce applies ev to s. It never mutates the slices or pointers held by s.
func Reduce(s State, ev Event) (State, Effect) {
	switch ev := ev.(type) {
	case AuthFormChanged:
		s.AuthForm = ev.Form

	case ModeToggled:
		if s.Mode == ModeLogin {
			s.Mode = ModeRegister
		} else {
			s.Mode = ModeLogin
		}
		s.AuthForm = AuthForm{}
		s.Err = nil

	case AuthSucceeded:
		if ev.Token == "" {
			return s, EffectNone
		}
		wasLoggedIn := s.LoggedIn()
		s.Token = ev.Token
		s.AuthForm = AuthForm{}
		if !wasLoggedIn {
			return s, EffectLoadExpenses
		}

	case ExpensesLoaded:
		if !s.LoggedIn() {
			return s, EffectNone
		}
		s.Expenses = slices.Clone(ev.Expenses)
		if s.Expenses == nil {
			s.Expenses = []models.Expense{}
		}
		s.Err = nil

	case ExpenseFormChanged:
		s.Form = ev.Form

	case ExpenseCreated:
		if !s.LoggedIn() {
			return s, EffectNone
		}
		s.Expenses = append(slices.Clip(s.Expenses), ev.Expense)
		s.Form = ExpenseForm{}
		s.EditingID = nil

	case ExpenseUpdated:
		if !s.LoggedIn() {
			return s, EffectNone
		}
		updated := slices.Clone(s.Expenses)
		for i := range updated {
			if updated[i].ID == ev.ID {
				updated[i] = ev.Expense
			}
		}
		s.Expenses = updated
		s.Form = ExpenseForm{}
		s.EditingID = nil

	case ExpenseDeleted:
		if !s.LoggedIn() {
			return s, EffectNone
		}
		s.Expenses = slices.DeleteFunc(slices.Clone(s.Expenses), func(e models.Expense) bool {
			return e.ID == ev.ID
		})

	case EditEntered:
		if !s.LoggedIn() {
			return s, EffectNone
		}
		id := ev.Expense.ID
		s.EditingID = &id
		s.Form = ExpenseForm{
			Name:     ev.Expense.Name,
			Amount:   ev.Expense.FormAmount(),
			Category: ev.Expense.Category,
		}

	case EditCancelled:
		s.EditingID = nil
		s.Form = ExpenseForm{}
		s.Err = nil

	case LoggedOut:
		// Mode is a property of the auth screen, not the session.
		return State{Mode: s.Mode}, EffectNone

	case ErrorRaised:
		s.Err = ev.Err

	case ErrorCleared:
		s.Err = nil
	}

	return s, EffectNone
}
