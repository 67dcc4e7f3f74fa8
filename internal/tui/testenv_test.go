package tui

import (
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/naveenspark/handyhub/internal/booking"
	"github.com/naveenspark/handyhub/internal/mockapi"
	"github.com/naveenspark/handyhub/internal/session"
	"github.com/naveenspark/handyhub/pkg/client"
	"github.com/naveenspark/handyhub/pkg/domain"
)

// testEnv is a running mock marketplace with one customer and one provider.
type testEnv struct {
	api     *mockapi.Server
	url     string
	user    domain.User
	userTok string
	prov    domain.User
	provTok string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	api := mockapi.New(mockapi.WithDemoData())
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	e := &testEnv{api: api, url: srv.URL}
	var err error
	e.user, e.userTok, err = api.AddUser(domain.User{Name: "Rahim", Email: "rahim@test", Role: domain.RoleUser}, "secret1")
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	e.prov, e.provTok, err = api.AddUser(domain.User{Name: "Karim", Email: "karim@test", Role: domain.RoleProvider}, "secret1")
	if err != nil {
		t.Fatalf("AddUser: %v", err)
	}
	return e
}

func (e *testEnv) seed(status domain.Status) domain.Booking {
	pid := e.prov.ID
	return e.api.AddBooking(domain.Booking{
		UserID: e.user.ID, ProviderID: &pid, ServiceID: "svc-plumbing",
		Date: "2026-11-02", TimeSlot: "09:00-11:00", Area: "Dhanmondi", Status: status,
	})
}

func newMemStore(t *testing.T) *session.Store {
	t.Helper()
	return session.New(session.NewMemoryBackend(), session.WithEnv(func(string) string { return "" }))
}

// loadedList returns a bookings view whose controller already loaded once.
func loadedList(t *testing.T, kind booking.Kind, c *client.Client, opts ...booking.Option) bookingsModel {
	t.Helper()
	ctrl := booking.New(kind, c, opts...)
	t.Cleanup(ctrl.Close)
	m := newBookingsModel(ctrl, time.Second)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m, _ = m.Update(m.load()())
	return m
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func typeText[M interface {
	Update(tea.Msg) (M, tea.Cmd)
}](m M, s string) M {
	for _, r := range s {
		m, _ = m.Update(keyMsg(string(r)))
	}
	return m
}

var nopLogger = zerolog.Nop()
