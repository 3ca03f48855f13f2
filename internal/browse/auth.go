package browse

import (
	"context"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/runger/dishdex/internal/session"
)

// authMode selects what the form submits.
type authMode int

const (
	authLogin authMode = iota
	authRegister
)

type authDoneMsg struct {
	seq   uint64
	mode  authMode
	email string
	err   error
}

// AuthForm is the login and registration screen.
type AuthForm struct {
	auth   Auth
	logger *slog.Logger

	mode     authMode
	email    textinput.Model
	password textinput.Model
	focus    int

	errMsg  string
	infoMsg string
	pending bool
	seq     uint64
}

func NewAuthForm(auth Auth, logger *slog.Logger) AuthForm {
	if logger == nil {
		logger = slog.Default()
	}
	email := textinput.New()
	email.Prompt = ""
	email.Placeholder = "you@example.com"
	email.CharLimit = 254
	email.Cursor.SetMode(cursor.CursorStatic)
	email.Focus()

	pw := textinput.New()
	pw.Prompt = ""
	pw.Placeholder = "password"
	pw.CharLimit = 128
	pw.EchoMode = textinput.EchoPassword
	pw.EchoCharacter = '•'
	pw.Cursor.SetMode(cursor.CursorStatic)

	return AuthForm{auth: auth, logger: logger, email: email, password: pw}
}

// Registering reports whether the form is in registration mode.
func (f *AuthForm) Registering() bool {
	return f.mode == authRegister
}

// SetRegister switches between login and registration, keeping the typed
// email.
func (f *AuthForm) SetRegister(on bool) {
	if on {
		f.mode = authRegister
	} else {
		f.mode = authLogin
	}
	f.errMsg = ""
	f.password.SetValue("")
}

// Error is the message shown under the form.
func (f *AuthForm) Error() string { return f.errMsg }

// Info is the non-error status line.
func (f *AuthForm) Info() string { return f.infoMsg }

// SetFields fills both inputs.
func (f *AuthForm) SetFields(email, password string) {
	f.email.SetValue(email)
	f.password.SetValue(password)
}

// Submit sends the form. The inputs stay editable while the call runs.
func (f *AuthForm) Submit() tea.Cmd {
	email := strings.TrimSpace(f.email.Value())
	password := f.password.Value()
	mode := f.mode

	f.seq++
	seq := f.seq
	f.pending = true
	f.errMsg = ""
	f.infoMsg = ""

	auth := f.auth
	return func() tea.Msg {
		var err error
		if mode == authRegister {
			err = auth.Register(context.Background(), email, password)
		} else {
			err = auth.Login(context.Background(), email, password)
		}
		return authDoneMsg{seq: seq, mode: mode, email: email, err: err}
	}
}

// Handle processes submission results. A successful login navigates to
// the list; a successful registration switches to login.
func (f *AuthForm) Handle(msg tea.Msg) tea.Cmd {
	done, ok := msg.(authDoneMsg)
	if !ok || done.seq != f.seq {
		return nil
	}
	f.pending = false
	if done.err != nil {
		f.logger.Info("account action rejected", "register", done.mode == authRegister, "error", done.err)
		f.errMsg = session.Message(done.err)
		return nil
	}

	f.password.SetValue("")
	if done.mode == authRegister {
		f.mode = authLogin
		f.infoMsg = "Registered. Sign in to continue."
		return func() tea.Msg { return NavigateMsg{Route: RouteLogin} }
	}
	f.logger.Info("signed in", "email", done.email)
	return func() tea.Msg { return NavigateMsg{Route: RouteList} }
}

// HandleKey edits the form.
func (f *AuthForm) HandleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "tab", "down", "shift+tab", "up":
		f.focus = 1 - f.focus
		if f.focus == 0 {
			f.password.Blur()
			f.email.Focus()
		} else {
			f.email.Blur()
			f.password.Focus()
		}
		return nil
	case "enter":
		if f.focus == 0 {
			f.focus = 1
			f.email.Blur()
			f.password.Focus()
			return nil
		}
		return f.Submit()
	case "ctrl+n":
		next := RouteRegister
		if f.mode == authRegister {
			next = RouteLogin
		}
		return func() tea.Msg { return NavigateMsg{Route: next} }
	}

	var cmd tea.Cmd
	if f.focus == 0 {
		f.email, cmd = f.email.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return cmd
}

func (f *AuthForm) View(width int) string {
	title := "Sign in"
	switchHint := "ctrl+n create an account"
	if f.mode == authRegister {
		title = "Create an account"
		switchHint = "ctrl+n back to sign in"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Email") + " " + f.email.View())
	b.WriteRune('\n')
	b.WriteString(labelStyle.Render("Password") + " " + f.password.View())
	b.WriteString("\n\n")

	switch {
	case f.errMsg != "":
		b.WriteString(errorStyle.Render(f.errMsg))
	case f.infoMsg != "":
		b.WriteString(infoStyle.Render(f.infoMsg))
	case f.pending:
		b.WriteString(dimStyle.Render("…"))
	}
	b.WriteRune('\n')
	b.WriteString(dimStyle.Render("enter submit · " + switchHint + " · ctrl+c quit"))
	return b.String()
}
