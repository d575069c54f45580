package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgmodels "github.com/go-telegram/bot/models"
	"gitlab.com/yelinaung/expense-client/internal/models"
	"gitlab.com/yelinaung/expense-client/internal/session"
)

const (
	editExpensePrefix   = "edit_expense_"
	deleteExpensePrefix = "delete_expense_"

	// maxListItems keeps /list under Telegram's message size limit.
	maxListItems = 40

	emptyListText   = "No expenses yet. Add your first expense above!"
	loginPromptText = "🔒 Please log in first with <code>/login &lt;username&gt; &lt;password&gt;</code> or <code>/register &lt;username&gt; &lt;password&gt;</code>."
	loggedInText    = "You are already logged in. Use /logout to switch accounts."
	genericFailText = "❌ Something went wrong. Please try again."
)

func escapeHTML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// extractCommandArgs strips the /command prefix (and optional @botname suffix)
// from a message and returns the remaining trimmed arguments.
func extractCommandArgs(text, command string) string {
	args := strings.TrimSpace(strings.TrimPrefix(text, command))
	if strings.HasPrefix(args, "@") {
		if spaceIdx := strings.IndexAny(args, " \n\t"); spaceIdx != -1 {
			args = strings.TrimSpace(args[spaceIdx:])
		} else {
			args = ""
		}
	}
	return args
}

// parseExpenseID reads a positive expense id.
func parseExpenseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// errorText renders an operation error for the chat.
func errorText(err error) string {
	var sessErr *session.Error
	switch {
	case errors.As(err, &sessErr):
		return "❌ " + escapeHTML(sessErr.Message)
	case errors.Is(err, session.ErrNotLoggedIn):
		return loginPromptText
	case errors.Is(err, session.ErrSessionEnded):
		return "You logged out before the request finished."
	default:
		return genericFailText
	}
}

// formatExpenseList renders the list view of s: the current error, the
// edit state, each expense and the total.
func formatExpenseList(s session.State) string {
	var sb strings.Builder

	if s.Err != nil {
		sb.WriteString("⚠️ " + escapeHTML(s.Err.Message) + "\n\n")
	}
	if s.EditingID != nil {
		fmt.Fprintf(&sb, "✏️ Editing expense #%d. Use /save or /cancel.\n\n", *s.EditingID)
	}

	sb.WriteString("📋 <b>Your Expenses</b>\n\n")
	if len(s.Expenses) == 0 {
		sb.WriteString(emptyListText)
		return sb.String()
	}

	for i, e := range s.Expenses {
		if i == maxListItems {
			fmt.Fprintf(&sb, "… and %d more\n", len(s.Expenses)-maxListItems)
			break
		}
		fmt.Fprintf(&sb, "<code>#%d</code> %s · <b>%s</b> · %s\n",
			e.ID, escapeHTML(e.Name), e.FormattedAmount(), escapeHTML(e.Category))
	}

	fmt.Fprintf(&sb, "\n💰 <b>Total: %s</b>", models.FormatMoney(models.Total(s.Expenses)))
	return sb.String()
}

// formatForm renders the add/edit form.
func formatForm(form session.ExpenseForm, editingID *int64) string {
	title := "➕ <b>New Expense</b>"
	if editingID != nil {
		title = fmt.Sprintf("✏️ <b>Editing Expense #%d</b>", *editingID)
	}

	return fmt.Sprintf(`%s

📝 Name: %s
💰 Amount: %s
📁 Category: %s

Change fields with <code>/save name | amount | category</code>; leave a field blank to keep it.`,
		title, formValue(form.Name), formValue(form.Amount), formValue(form.Category))
}

func formValue(v string) string {
	if v == "" {
		return "<i>empty</i>"
	}
	return "<code>" + escapeHTML(v) + "</code>"
}

// listKeyboard has one Edit/Delete row per listed expense.
func listKeyboard(expenses []models.Expense) *tgmodels.InlineKeyboardMarkup {
	if len(expenses) == 0 {
		return nil
	}

	n := min(len(expenses), maxListItems)
	rows := make([][]tgmodels.InlineKeyboardButton, 0, n)
	for _, e := range expenses[:n] {
		id := strconv.FormatInt(e.ID, 10)
		rows = append(rows, []tgmodels.InlineKeyboardButton{
			{Text: "✏️ #" + id, CallbackData: editExpensePrefix + id},
			{Text: "🗑️ #" + id, CallbackData: deleteExpensePrefix + id},
		})
	}
	return &tgmodels.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// parseSaveArgs splits "name | amount | category" and writes the non-empty
// segments over form.
func parseSaveArgs(args string, form session.ExpenseForm) session.ExpenseForm {
	if strings.TrimSpace(args) == "" {
		return form
	}

	parts := strings.SplitN(args, "|", 3)
	fields := []*string{&form.Name, &form.Amount, &form.Category}
	for i, part := range parts {
		if v := strings.TrimSpace(part); v != "" {
			*fields[i] = v
		}
	}
	return form
}
