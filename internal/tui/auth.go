package tui

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/handyhub/internal/session"
	"github.com/naveenspark/handyhub/pkg/client"
	"github.com/naveenspark/handyhub/pkg/domain"
)

type loginDoneMsg struct {
	user *domain.User
	err  error
}

type registerDoneMsg struct {
	user     *domain.User
	signedIn bool
	message  string
	err      error
}

// establish stores a fresh session. Login responses without an embedded
// profile fall back to GET /me with the new token.
func establish(ctx context.Context, c *client.Client, store session.Repository, resp *client.AuthResponse) (*domain.User, error) {
	if resp == nil || resp.Token == "" {
		return nil, errors.New("the server did not return a session")
	}
	if resp.User != nil {
		if err := store.SetSession(resp.Token, resp.User); err != nil {
			return nil, fmt.Errorf("save session: %w", err)
		}
		return resp.User, nil
	}
	if err := store.SetToken(resp.Token); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	u, err := c.GetMe(ctx)
	if err != nil {
		store.Clear() //nolint:errcheck
		return nil, err
	}
	if err := store.SetUser(u); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return u, nil
}

// authError renders a login or registration failure, putting field errors
// onto the form.
func authError(f *form, err error, names map[string]string) string {
	if client.IsNetwork(err) {
		return "Cannot reach the server. Check your connection and try again."
	}
	if he, ok := client.AsHTTPError(err); ok {
		f.setErrors(he.Errors, names)
		if he.Message != "" {
			return he.Message
		}
		return sortedErrors(he.Errors)
	}
	return err.Error()
}

// loginModel is the sign-in form. next is the protected route that sent
// the visitor here; the router validates it before honoring it.
type loginModel struct {
	client     *client.Client
	store      session.Repository
	form       form
	next       string
	info       string
	err        string
	submitting bool
}

var loginFields = map[string]string{"email": "Email", "password": "Password"}

func newLoginModel(c *client.Client, store session.Repository, next string) loginModel {
	return loginModel{
		client: c,
		store:  store,
		next:   next,
		form: form{fields: []formField{
			{label: "Email", hint: "you@example.com"},
			{label: "Password", secret: true},
		}},
	}
}

func (m loginModel) submit() (loginModel, tea.Cmd) {
	email, password := m.form.value(0), m.form.fields[1].value
	m.form.errs = map[string]string{}
	if _, err := mail.ParseAddress(email); err != nil {
		m.form.errs["Email"] = "enter a valid email address"
	}
	if password == "" {
		m.form.errs["Password"] = "password is required"
	}
	if len(m.form.errs) > 0 {
		m.err = ""
		return m, nil
	}
	m.submitting = true
	m.err = ""
	c, store := m.client, m.store
	return m, func() tea.Msg {
		ctx := context.Background()
		resp, err := c.Login(ctx, email, password)
		if err != nil {
			return loginDoneMsg{err: err}
		}
		u, err := establish(ctx, c, store, resp)
		return loginDoneMsg{user: u, err: err}
	}
}

func (m loginModel) Update(msg tea.Msg) (loginModel, tea.Cmd) {
	switch msg := msg.(type) {
	case loginDoneMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = authError(&m.form, msg.err, loginFields)
			m.form.fields[1].value = ""
		}
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch msg.String() {
		case "enter":
			return m.submit()
		case "ctrl+r":
			return m, func() tea.Msg { return navigateMsg{to: "/register"} }
		}
		m.form.key(msg.String())
	}
	return m, nil
}

func (m loginModel) View() string {
	var b strings.Builder
	b.WriteString("\n " + sectionHeaderStyle.Render("── SIGN IN ──") + "\n\n")
	if m.info != "" {
		b.WriteString(" " + noticeStyle.Render(m.info) + "\n\n")
	}
	b.WriteString(m.form.View())
	b.WriteString("\n")
	switch {
	case m.submitting:
		b.WriteString(" " + dimStyle.Render("signing in…") + "\n")
	case m.err != "":
		b.WriteString(" " + errorStyle.Render(m.err) + "\n")
	}
	b.WriteString("\n" + helpBar(
		helpEntry("tab", "next field"),
		helpEntry("enter", "sign in"),
		helpEntry("ctrl+r", "create account"),
		helpEntry("ctrl+c", "quit"),
	) + "\n")
	return b.String()
}

// registerModel is the account creation form.
type registerModel struct {
	client     *client.Client
	store      session.Repository
	form       form
	err        string
	submitting bool
}

const (
	regName = iota
	regEmail
	regPassword
	regPhone
	regRole
)

var registerFields = map[string]string{
	"name":     "Name",
	"email":    "Email",
	"password": "Password",
	"phone":    "Phone",
	"role":     "Account",
}

func newRegisterModel(c *client.Client, store session.Repository) registerModel {
	return registerModel{
		client: c,
		store:  store,
		form: form{fields: []formField{
			regName:     {label: "Name"},
			regEmail:    {label: "Email", hint: "you@example.com"},
			regPassword: {label: "Password", secret: true, hint: "at least 6 characters"},
			regPhone:    {label: "Phone", hint: "optional"},
			regRole:     {label: "Account", value: string(domain.RoleUser), choices: []string{string(domain.RoleUser), string(domain.RoleProvider)}},
		}},
	}
}

func (m registerModel) validate() map[string]string {
	errs := map[string]string{}
	if m.form.value(regName) == "" {
		errs["Name"] = "name is required"
	}
	if _, err := mail.ParseAddress(m.form.value(regEmail)); err != nil {
		errs["Email"] = "enter a valid email address"
	}
	if len([]rune(m.form.fields[regPassword].value)) < 6 {
		errs["Password"] = "use at least 6 characters"
	}
	return errs
}

func (m registerModel) submit() (registerModel, tea.Cmd) {
	m.form.errs = m.validate()
	if len(m.form.errs) > 0 {
		m.err = ""
		return m, nil
	}
	req := client.RegisterRequest{
		Name:     m.form.value(regName),
		Email:    m.form.value(regEmail),
		Password: m.form.fields[regPassword].value,
		Phone:    m.form.value(regPhone),
		Role:     domain.Role(m.form.value(regRole)),
	}
	m.submitting = true
	m.err = ""
	c, store := m.client, m.store
	return m, func() tea.Msg {
		ctx := context.Background()
		resp, err := c.Register(ctx, req)
		if err != nil {
			return registerDoneMsg{err: err}
		}
		if resp.Token == "" {
			return registerDoneMsg{message: resp.Message}
		}
		u, err := establish(ctx, c, store, resp)
		return registerDoneMsg{user: u, signedIn: err == nil, err: err}
	}
}

func (m registerModel) Update(msg tea.Msg) (registerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case registerDoneMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = authError(&m.form, msg.err, registerFields)
		}
		return m, nil

	case tea.KeyMsg:
		if m.submitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+s":
			return m.submit()
		case "enter":
			if m.form.focus == len(m.form.fields)-1 {
				return m.submit()
			}
			m.form.next()
			return m, nil
		case "esc":
			return m, func() tea.Msg { return navigateMsg{to: "/login"} }
		}
		m.form.key(msg.String())
	}
	return m, nil
}

func (m registerModel) View() string {
	var b strings.Builder
	b.WriteString("\n " + sectionHeaderStyle.Render("── CREATE ACCOUNT ──") + "\n\n")
	b.WriteString(m.form.View())
	b.WriteString("\n")
	switch {
	case m.submitting:
		b.WriteString(" " + dimStyle.Render("creating account…") + "\n")
	case m.err != "":
		b.WriteString(" " + errorStyle.Render(m.err) + "\n")
	}
	b.WriteString("\n" + helpBar(
		helpEntry("tab", "next field"),
		helpEntry("ctrl+s", "create"),
		helpEntry("esc", "back to sign in"),
	) + "\n")
	return b.String()
}
