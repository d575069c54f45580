// Command expensectl is an interactive terminal client for the expense API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"

	"gitlab.com/yelinaung/expense-client/internal/api"
	"gitlab.com/yelinaung/expense-client/internal/config"
	"gitlab.com/yelinaung/expense-client/internal/logger"
	"gitlab.com/yelinaung/expense-client/internal/models"
	"gitlab.com/yelinaung/expense-client/internal/session"
	"gitlab.com/yelinaung/expense-client/internal/telemetry"
	"golang.org/x/term"
)

const helpText = `Commands:
  login [username [password]]     log in
  register [username [password]]  create an account
  mode                            switch the auth mode used by "auth"
  auth [username [password]]      log in or register, per mode
  list                            show expenses and total
  refresh                         reload expenses from the server
  save                            fill the form and add or update an expense
  edit <id>                       start editing an expense
  cancel                          stop editing and clear the form
  delete <id>                     delete an expense
  total                           show the total
  logout                          log out
  help                            show this help
  quit                            exit`

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	fs := flag.NewFlagSet("expensectl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apiURL := fs.String("api", cfg.APIBaseURL, "expense API base URL")
	timeout := fs.Duration("timeout", cfg.APITimeout, "per-request timeout, 0 for none")
	logLevel := fs.String("log-level", "warn", "log level (debug, info, warn, error, disabled)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	logger.Configure(*logLevel, cfg.LogFormat, stderr)
	logger.InitHashSalt()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := telemetry.Setup(ctx, cfg, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Log.Warn().Err(err).Msg("Telemetry shutdown failed")
		}
	}()

	sh := newShell(session.New(api.NewClient(*apiURL, *timeout)), stdin, stdout)
	return sh.loop(ctx)
}

// shell reads one command per line and drives a single session.
type shell struct {
	ctl *session.Controller
	in  *bufio.Scanner
	out io.Writer

	// readPassword reads a password without echo; nil reads a plain line.
	readPassword func(ctx context.Context) (string, error)
}

func newShell(ctl *session.Controller, stdin io.Reader, stdout io.Writer) *shell {
	sh := &shell{
		ctl: ctl,
		in:  bufio.NewScanner(stdin),
		out: stdout,
	}
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		sh.readPassword = func(ctx context.Context) (string, error) {
			return readTerminalPassword(ctx, int(f.Fd()), sh.out)
		}
	}
	return sh
}

func (sh *shell) loop(ctx context.Context) int {
	fmt.Fprintln(sh.out, `expensectl: type "help" for commands.`)
	for {
		fmt.Fprint(sh.out, sh.prompt())
		line, ok := sh.readLine(ctx)
		if ctx.Err() != nil {
			fmt.Fprintln(sh.out)
			return 130
		}
		if !ok {
			fmt.Fprintln(sh.out)
			return 0
		}

		verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
		if verb == "quit" || verb == "exit" {
			return 0
		}
		sh.exec(ctx, strings.ToLower(verb), strings.TrimSpace(rest))
	}
}

func (sh *shell) prompt() string {
	s := sh.ctl.Snapshot()
	switch {
	case s.EditingID != nil:
		return fmt.Sprintf("expenses (editing #%d)> ", *s.EditingID)
	case s.LoggedIn():
		return "expenses> "
	default:
		return s.Mode.String() + "> "
	}
}

// readLine waits for the next input line or for ctx to end. Once ctx has
// ended no further reads are started, so the scanner has one reader at a time.
func (sh *shell) readLine(ctx context.Context) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}

	type result struct {
		line string
		ok   bool
	}
	done := make(chan result, 1)
	go func() {
		ok := sh.in.Scan()
		done <- result{line: sh.in.Text(), ok: ok}
	}()

	select {
	case r := <-done:
		return r.line, r.ok
	case <-ctx.Done():
		return "", false
	}
}

// readTerminalPassword reads a password with echo off. If ctx ends first the
// terminal state is restored before returning.
func readTerminalPassword(ctx context.Context, fd int, out io.Writer) (string, error) {
	state, err := term.GetState(fd)
	if err != nil {
		return "", fmt.Errorf("failed to read terminal state: %w", err)
	}

	type result struct {
		password []byte
		err      error
	}
	done := make(chan result, 1)
	go func() {
		b, err := term.ReadPassword(fd)
		done <- result{password: b, err: err}
	}()

	select {
	case r := <-done:
		fmt.Fprintln(out)
		return string(r.password), r.err
	case <-ctx.Done():
		_ = term.Restore(fd, state)
		fmt.Fprintln(out)
		return "", ctx.Err()
	}
}

func (sh *shell) exec(ctx context.Context, verb, args string) {
	switch verb {
	case "":
	case "help":
		fmt.Fprintln(sh.out, helpText)
	case "login", "register", "auth":
		sh.authenticate(ctx, verb, args)
	case "mode":
		if sh.ctl.LoggedIn() {
			fmt.Fprintln(sh.out, "Already logged in. Use logout to switch accounts.")
			return
		}
		fmt.Fprintf(sh.out, "Mode: %s\n", sh.ctl.ToggleMode())
	case "logout":
		sh.ctl.Logout()
		fmt.Fprintln(sh.out, "Logged out.")
	case "list":
		if sh.requireLogin() {
			sh.printList()
		}
	case "refresh":
		if err := sh.ctl.LoadExpenses(ctx); err != nil {
			sh.printError(err)
			return
		}
		sh.printList()
	case "total":
		if sh.requireLogin() {
			fmt.Fprintf(sh.out, "Total: %s\n", models.FormatMoney(sh.ctl.Total()))
		}
	case "save":
		sh.save(ctx)
	case "edit":
		sh.edit(args)
	case "cancel":
		sh.ctl.CancelEdit()
		fmt.Fprintln(sh.out, "Form cleared.")
	case "delete":
		id, ok := parseID(args)
		if !ok {
			fmt.Fprintln(sh.out, "Usage: delete <id>")
			return
		}
		if err := sh.ctl.DeleteExpense(ctx, id); err != nil {
			sh.printError(err)
			return
		}
		fmt.Fprintf(sh.out, "Deleted #%d.\n", id)
	default:
		fmt.Fprintf(sh.out, "Unknown command %q. Type \"help\" for commands.\n", verb)
	}
}

// authenticate reads credentials from args or prompts. "auth" submits the
// auth form in the current mode; login and register pick the mode themselves.
func (sh *shell) authenticate(ctx context.Context, verb, args string) {
	if sh.ctl.LoggedIn() {
		fmt.Fprintln(sh.out, "Already logged in. Use logout to switch accounts.")
		return
	}

	username, password, _ := strings.Cut(args, " ")
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" {
		username = sh.ask(ctx, "Username: ")
	}
	if password == "" {
		password = sh.askPassword(ctx)
	}
	if ctx.Err() != nil {
		return
	}

	var err error
	switch verb {
	case "auth":
		sh.ctl.SetAuthForm(session.AuthForm{Username: username, Password: password})
		err = sh.ctl.SubmitAuth(ctx)
	case "register":
		err = sh.ctl.Authenticate(ctx, models.Credentials{Username: username, Password: password}, session.ModeRegister)
	default:
		err = sh.ctl.Authenticate(ctx, models.Credentials{Username: username, Password: password}, session.ModeLogin)
	}
	if err != nil {
		sh.printError(err)
		return
	}

	fmt.Fprintln(sh.out, "Logged in.")
	sh.printList()
}

// save prompts for each form field; an empty answer keeps the current value.
func (sh *shell) save(ctx context.Context) {
	if !sh.requireLogin() {
		return
	}

	before := sh.ctl.Snapshot()
	form := before.Form
	form.Name = sh.askDefault(ctx, "Name", form.Name)
	form.Amount = sh.askDefault(ctx, "Amount", form.Amount)
	form.Category = sh.askDefault(ctx, "Category", form.Category)
	if ctx.Err() != nil {
		return
	}
	sh.ctl.SetExpenseForm(form)

	if err := sh.ctl.SubmitForm(ctx); err != nil {
		sh.printError(err)
		return
	}
	if before.EditingID != nil {
		fmt.Fprintf(sh.out, "Updated #%d.\n", *before.EditingID)
	} else {
		fmt.Fprintln(sh.out, "Added.")
	}
	sh.printList()
}

func (sh *shell) edit(args string) {
	if !sh.requireLogin() {
		return
	}
	id, ok := parseID(args)
	if !ok {
		fmt.Fprintln(sh.out, "Usage: edit <id>")
		return
	}
	expense, found := sh.ctl.FindExpense(id)
	if !found {
		fmt.Fprintf(sh.out, "Expense #%d not found.\n", id)
		return
	}
	sh.ctl.EnterEditMode(expense)
	form := sh.ctl.Snapshot().Form
	fmt.Fprintf(sh.out, "Editing #%d: %s | %s | %s. Use save or cancel.\n", id, form.Name, form.Amount, form.Category)
}

func (sh *shell) requireLogin() bool {
	if sh.ctl.LoggedIn() {
		return true
	}
	fmt.Fprintln(sh.out, "Not logged in. Use login or register first.")
	return false
}

func (sh *shell) printList() {
	s := sh.ctl.Snapshot()
	if s.Err != nil {
		fmt.Fprintf(sh.out, "Error: %s\n", s.Err.Message)
	}
	if len(s.Expenses) == 0 {
		fmt.Fprintln(sh.out, "No expenses yet.")
		return
	}

	tw := tabwriter.NewWriter(sh.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tAMOUNT\tCATEGORY")
	for _, e := range s.Expenses {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", e.ID, e.Name, e.FormattedAmount(), e.Category)
	}
	_ = tw.Flush()
	fmt.Fprintf(sh.out, "Total: %s\n", models.FormatMoney(models.Total(s.Expenses)))
}

func (sh *shell) printError(err error) {
	var sessErr *session.Error
	switch {
	case errors.As(err, &sessErr):
		fmt.Fprintf(sh.out, "Error: %s\n", sessErr.Message)
	case errors.Is(err, session.ErrNotLoggedIn):
		fmt.Fprintln(sh.out, "Not logged in. Use login or register first.")
	default:
		fmt.Fprintf(sh.out, "Error: %v\n", err)
	}
}

func (sh *shell) ask(ctx context.Context, prompt string) string {
	fmt.Fprint(sh.out, prompt)
	line, _ := sh.readLine(ctx)
	return strings.TrimSpace(line)
}

func (sh *shell) askDefault(ctx context.Context, field, current string) string {
	if v := sh.ask(ctx, fmt.Sprintf("%s [%s]: ", field, current)); v != "" {
		return v
	}
	return current
}

func (sh *shell) askPassword(ctx context.Context) string {
	if sh.readPassword == nil {
		return sh.ask(ctx, "Password: ")
	}
	fmt.Fprint(sh.out, "Password: ")
	password, err := sh.readPassword(ctx)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to read password")
		return ""
	}
	return strings.TrimSpace(password)
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
