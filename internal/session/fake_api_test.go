package session

import (
	"context"
	"errors"
	"sync"

	"gitlab.com/yelinaung/expense-client/internal/models"
)

var errServer = errors.New("expense API returned status 500")

// fakeAPI records calls and answers from its fields.
type fakeAPI struct {
	mu sync.Mutex

	token   string
	authErr error

	list    []models.Expense
	listErr error

	saved   models.Expense
	saveErr error

	deleteErr error

	// block, when set, is waited on before every call returns.
	block chan struct{}

	loginCalls    int
	registerCalls int
	listCalls     int
	createCalls   int
	updateCalls   int
	deleteCalls   int

	lastCreds models.Credentials
	lastInput models.ExpenseInput
	lastID    int64
	lastToken string
}

func (f *fakeAPI) wait() {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
}

func (f *fakeAPI) Login(_ context.Context, creds models.Credentials) (string, error) {
	f.mu.Lock()
	f.loginCalls++
	f.lastCreds = creds
	token, err := f.token, f.authErr
	f.mu.Unlock()
	f.wait()
	return token, err
}

func (f *fakeAPI) Register(_ context.Context, creds models.Credentials) (string, error) {
	f.mu.Lock()
	f.registerCalls++
	f.lastCreds = creds
	token, err := f.token, f.authErr
	f.mu.Unlock()
	f.wait()
	return token, err
}

func (f *fakeAPI) ListExpenses(_ context.Context, token string) ([]models.Expense, error) {
	f.mu.Lock()
	f.listCalls++
	f.lastToken = token
	list, err := f.list, f.listErr
	f.mu.Unlock()
	f.wait()
	return list, err
}

func (f *fakeAPI) CreateExpense(_ context.Context, token string, in models.ExpenseInput) (models.Expense, error) {
	f.mu.Lock()
	f.createCalls++
	f.lastToken = token
	f.lastInput = in
	saved, err := f.saved, f.saveErr
	f.mu.Unlock()
	f.wait()
	return saved, err
}

func (f *fakeAPI) UpdateExpense(_ context.Context, token string, id int64, in models.ExpenseInput) (models.Expense, error) {
	f.mu.Lock()
	f.updateCalls++
	f.lastToken = token
	f.lastID = id
	f.lastInput = in
	saved, err := f.saved, f.saveErr
	f.mu.Unlock()
	f.wait()
	return saved, err
}

func (f *fakeAPI) DeleteExpense(_ context.Context, token string, id int64) error {
	f.mu.Lock()
	f.deleteCalls++
	f.lastToken = token
	f.lastID = id
	err := f.deleteErr
	f.mu.Unlock()
	f.wait()
	return err
}

func (f *fakeAPI) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls + f.registerCalls + f.listCalls + f.createCalls + f.updateCalls + f.deleteCalls
}

// loggedIn returns a controller holding token "tok" and the given list.
func loggedIn(api *fakeAPI, list ...models.Expense) *Controller {
	c := New(api)
	c.state = State{Token: "tok", Expenses: list}
	return c
}
