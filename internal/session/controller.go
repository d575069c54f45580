package session

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/expense-client/internal/logger"
	"gitlab.com/yelinaung/expense-client/internal/models"
)

// API is the subset of the expense REST client the controller uses.
type API interface {
	Login(ctx context.Context, creds models.Credentials) (string, error)
	Register(ctx context.Context, creds models.Credentials) (string, error)
	ListExpenses(ctx context.Context, token string) ([]models.Expense, error)
	CreateExpense(ctx context.Context, token string, in models.ExpenseInput) (models.Expense, error)
	UpdateExpense(ctx context.Context, token string, id int64, in models.ExpenseInput) (models.Expense, error)
	DeleteExpense(ctx context.Context, token string, id int64) error
}

// Controller runs one session. It is safe for concurrent use; the lock is
// never held across a network call.
type Controller struct {
	api API

	mu    sync.Mutex
	state State
	// generation is bumped by Logout so late responses from the previous
	// session are dropped.
	generation uint64
}

// New creates a logged-out controller.
func New(api API) *Controller {
	return &Controller{api: api}
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// LoggedIn reports whether the session holds a token.
func (c *Controller) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.LoggedIn()
}

// Total sums the amounts of the local list.
func (c *Controller) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.Total(c.state.Expenses)
}

// FindExpense looks up a listed expense by id.
func (c *Controller) FindExpense(id int64) (models.Expense, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.state.Expenses {
		if e.ID == id {
			return e, true
		}
	}
	return models.Expense{}, false
}

// SetAuthForm replaces the auth form fields.
func (c *Controller) SetAuthForm(form AuthForm) {
	c.dispatch(AuthFormChanged{Form: form})
}

// SetExpenseForm replaces the expense form fields.
func (c *Controller) SetExpenseForm(form ExpenseForm) {
	c.dispatch(ExpenseFormChanged{Form: form})
}

// ToggleMode switches between login and register and returns the new mode.
func (c *Controller) ToggleMode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state, _ = Reduce(c.state, ModeToggled{})
	return c.state.Mode
}

// EnterEditMode loads e into the form and points the edit cursor at it.
func (c *Controller) EnterEditMode(e models.Expense) {
	c.dispatch(EditEntered{Expense: e})
}

// CancelEdit clears the edit cursor, the form and the error.
func (c *Controller) CancelEdit() {
	c.dispatch(EditCancelled{})
}

// Logout drops the token and everything loaded with it. It is idempotent.
func (c *Controller) Logout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state, _ = Reduce(c.state, LoggedOut{})
}

// SubmitAuth authenticates with the auth form contents and the current mode.
func (c *Controller) SubmitAuth(ctx context.Context) error {
	c.mu.Lock()
	form, mode := c.state.AuthForm, c.state.Mode
	c.mu.Unlock()
	return c.Authenticate(ctx, models.Credentials{Username: form.Username, Password: form.Password}, mode)
}

// Authenticate logs in or registers. On the first successful authentication
// the expense list is loaded before Authenticate returns; a failed load is
// stored as the current error, not returned.
func (c *Controller) Authenticate(ctx context.Context, creds models.Credentials, mode Mode) error {
	c.mu.Lock()
	c.state, _ = Reduce(c.state, ErrorCleared{})
	if creds.Username == "" || creds.Password == "" {
		err := newError(KindValidation, MsgCredentialsRequired)
		c.state, _ = Reduce(c.state, ErrorRaised{Err: err})
		c.mu.Unlock()
		return err
	}
	gen := c.generation
	c.mu.Unlock()

	call := c.api.Login
	if mode == ModeRegister {
		call = c.api.Register
	}

	token, callErr := call(ctx, creds)
	if callErr != nil {
		logger.Log.Warn().
			Err(callErr).
			Str("mode", mode.String()).
			Str("username", logger.HashUsername(creds.Username)).
			Msg("Authentication failed")
		err := newError(KindAuth, MsgAuthFailed)
		if _, ok := c.applyIfCurrent(gen, ErrorRaised{Err: err}); !ok {
			return ErrSessionEnded
		}
		return err
	}

	effect, ok := c.applyIfCurrent(gen, AuthSucceeded{Token: token})
	if !ok {
		return ErrSessionEnded
	}

	logger.Log.Info().
		Str("mode", mode.String()).
		Str("username", logger.HashUsername(creds.Username)).
		Msg("Authenticated")

	if effect == EffectLoadExpenses {
		_ = c.LoadExpenses(ctx)
	}
	return nil
}

// LoadExpenses replaces the local list with the server's.
func (c *Controller) LoadExpenses(ctx context.Context) error {
	token, gen := c.session()
	if token == "" {
		return ErrNotLoggedIn
	}

	expenses, callErr := c.api.ListExpenses(ctx, token)
	if callErr != nil {
		logger.Log.Warn().Err(callErr).Msg("Failed to load expenses")
		err := newError(KindLoad, MsgLoadFailed)
		if _, ok := c.applyIfCurrent(gen, ErrorRaised{Err: err}); !ok {
			return ErrSessionEnded
		}
		return err
	}

	if _, ok := c.applyIfCurrent(gen, ExpensesLoaded{Expenses: expenses}); !ok {
		return ErrSessionEnded
	}
	logger.Log.Debug().Int("count", len(expenses)).Msg("Expenses loaded")
	return nil
}

// SubmitForm submits the form with the current edit cursor.
func (c *Controller) SubmitForm(ctx context.Context) error {
	c.mu.Lock()
	form := c.state.Form
	var editingID *int64
	if c.state.EditingID != nil {
		id := *c.state.EditingID
		editingID = &id
	}
	c.mu.Unlock()
	return c.SubmitExpense(ctx, form, editingID)
}

// SubmitExpense creates an expense, or updates editingID when it is set.
// The amount is sent as parsed, even when it is not a number.
func (c *Controller) SubmitExpense(ctx context.Context, form ExpenseForm, editingID *int64) error {
	c.mu.Lock()
	if !c.state.LoggedIn() {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	if !form.IsComplete() {
		err := newError(KindValidation, MsgFieldsRequired)
		c.state, _ = Reduce(c.state, ErrorRaised{Err: err})
		c.mu.Unlock()
		return err
	}
	c.state, _ = Reduce(c.state, ErrorCleared{})
	token, gen := c.state.Token, c.generation
	c.mu.Unlock()

	in := models.ExpenseInput{
		Name:     form.Name,
		Amount:   ParseAmount(form.Amount),
		Category: form.Category,
	}

	var (
		saved   models.Expense
		callErr error
		ev      Event
	)
	if editingID != nil {
		saved, callErr = c.api.UpdateExpense(ctx, token, *editingID, in)
		ev = ExpenseUpdated{ID: *editingID, Expense: saved}
	} else {
		saved, callErr = c.api.CreateExpense(ctx, token, in)
		ev = ExpenseCreated{Expense: saved}
	}

	if callErr != nil {
		logger.Log.Warn().Err(callErr).Bool("update", editingID != nil).Msg("Failed to save expense")
		err := newError(KindSave, MsgSaveFailed)
		if _, ok := c.applyIfCurrent(gen, ErrorRaised{Err: err}); !ok {
			return ErrSessionEnded
		}
		return err
	}

	if _, ok := c.applyIfCurrent(gen, ev); !ok {
		return ErrSessionEnded
	}
	logger.Log.Debug().Int64("expense_id", saved.ID).Bool("update", editingID != nil).Msg("Expense saved")
	return nil
}

// DeleteExpense deletes id on the server, then from the local list.
func (c *Controller) DeleteExpense(ctx context.Context, id int64) error {
	c.mu.Lock()
	if !c.state.LoggedIn() {
		c.mu.Unlock()
		return ErrNotLoggedIn
	}
	c.state, _ = Reduce(c.state, ErrorCleared{})
	token, gen := c.state.Token, c.generation
	c.mu.Unlock()

	if callErr := c.api.DeleteExpense(ctx, token, id); callErr != nil {
		logger.Log.Warn().Err(callErr).Int64("expense_id", id).Msg("Failed to delete expense")
		err := newError(KindDelete, MsgDeleteFailed)
		if _, ok := c.applyIfCurrent(gen, ErrorRaised{Err: err}); !ok {
			return ErrSessionEnded
		}
		return err
	}

	if _, ok := c.applyIfCurrent(gen, ExpenseDeleted{ID: id}); !ok {
		return ErrSessionEnded
	}
	logger.Log.Debug().Int64("expense_id", id).Msg("Expense deleted")
	return nil
}

func (c *Controller) session() (string, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Token, c.generation
}

func (c *Controller) dispatch(ev Event) Effect {
	c.mu.Lock()
	defer c.mu.Unlock()
	var effect Effect
	c.state, effect = Reduce(c.state, ev)
	return effect
}

// applyIfCurrent applies ev only if no Logout happened since gen was read.
func (c *Controller) applyIfCurrent(gen uint64, ev Event) (Effect, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return EffectNone, false
	}
	var effect Effect
	c.state, effect = Reduce(c.state, ev)
	return effect, true
}
