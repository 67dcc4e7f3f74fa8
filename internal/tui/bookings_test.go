package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/naveenspark/handyhub/internal/booking"
	"github.com/naveenspark/handyhub/pkg/client"
	"github.com/naveenspark/handyhub/pkg/domain"
)

func TestBookingsPendingShowsOnlyCancel(t *testing.T) {
	env := newTestEnv(t)
	env.seed(domain.StatusPending)
	m := loadedList(t, booking.UserBookings, client.New(env.url, client.StaticToken(env.userTok)))

	view := m.View()
	if !strings.Contains(view, "Plumbing") {
		t.Errorf("expected service name in view, got:\n%s", view)
	}
	if !strings.Contains(view, "Cancel Booking") {
		t.Errorf("expected cancel action in help, got:\n%s", view)
	}
	if strings.Contains(view, "Pay Now") {
		t.Errorf("pending booking must not offer payment, got:\n%s", view)
	}
}

func TestBookingsEmptyState(t *testing.T) {
	env := newTestEnv(t)
	m := loadedList(t, booking.UserBookings, client.New(env.url, client.StaticToken(env.userTok)))

	if view := m.View(); !strings.Contains(view, "no bookings yet") {
		t.Errorf("expected empty state, got:\n%s", view)
	}
}

func TestBookingsFilterCycleReloads(t *testing.T) {
	env := newTestEnv(t)
	env.seed(domain.StatusPending)
	env.seed(domain.StatusCompleted)
	m := loadedList(t, booking.UserBookings, client.New(env.url, client.StaticToken(env.userTok)))

	m, cmd := m.Update(keyMsg("f"))
	if cmd == nil {
		t.Fatal("expected a load command after changing the filter")
	}
	m, _ = m.Update(cmd())
	if m.filter() != domain.StatusPending {
		t.Fatalf("filter = %q, want PENDING", m.filter())
	}
	if got := len(m.ctrl.Snapshot().Bookings); got != 1 {
		t.Errorf("expected 1 pending booking, got %d", got)
	}
	if !strings.Contains(m.View(), "filter: pending") {
		t.Errorf("expected filter label in view")
	}
}

func TestBookingsCancelNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(domain.StatusPending)
	m := loadedList(t, booking.UserBookings, client.New(env.url, client.StaticToken(env.userTok)))

	m, cmd := m.Update(keyMsg("c"))
	if cmd != nil {
		t.Fatal("cancel must not be sent before confirmation")
	}
	if m.pending == nil {
		t.Fatal("expected a pending confirmation")
	}
	if !strings.Contains(m.View(), "Cancel booking for Plumbing") {
		t.Errorf("expected confirmation prompt, got:\n%s", m.View())
	}

	m, _ = m.Update(keyMsg("n"))
	if m.pending != nil {
		t.Fatal("expected n to dismiss the prompt")
	}
	if got, _ := env.api.Booking(seeded.ID); got.Status != domain.StatusPending {
		t.Errorf("status = %s after dismiss, want PENDING", got.Status)
	}

	m, _ = m.Update(keyMsg("c"))
	m, cmd = m.Update(keyMsg("y"))
	if cmd == nil {
		t.Fatal("expected an execute command after confirming")
	}
	m, _ = m.Update(cmd())

	if got, _ := env.api.Booking(seeded.ID); got.Status != domain.StatusCancelled {
		t.Errorf("server status = %s, want CANCELLED", got.Status)
	}
	view := m.View()
	if !strings.Contains(view, "Booking cancelled.") {
		t.Errorf("expected success notice, got:\n%s", view)
	}
	if !strings.Contains(view, "[CANCELLED]") {
		t.Errorf("expected reloaded status, got:\n%s", view)
	}
}

func TestBookingsProviderAcceptHasNoPrompt(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(domain.StatusPending)
	m := loadedList(t, booking.ProviderBookings, client.New(env.url, client.StaticToken(env.provTok)))

	m, cmd := m.Update(keyMsg("a"))
	if cmd == nil {
		t.Fatal("accept should execute immediately")
	}
	m, _ = m.Update(cmd())
	if got, _ := env.api.Booking(seeded.ID); got.Status != domain.StatusConfirmed {
		t.Fatalf("status = %s, want CONFIRMED", got.Status)
	}
	if view := m.View(); !strings.Contains(view, "Mark Completed") {
		t.Errorf("confirmed booking should offer completion, got:\n%s", view)
	}
}

func TestBookingsActionNotAvailable(t *testing.T) {
	env := newTestEnv(t)
	env.seed(domain.StatusPending)
	m := loadedList(t, booking.UserBookings, client.New(env.url, client.StaticToken(env.userTok)))

	m, cmd := m.Update(keyMsg("p"))
	if cmd != nil || m.paying != "" {
		t.Fatal("pending booking must not open the payment picker")
	}
	if !strings.Contains(m.View(), "Pay Now is not available") {
		t.Errorf("expected unavailable message, got:\n%s", m.View())
	}
}

func TestBookingsPayWithEWalletOpensCheckout(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(domain.StatusConfirmed)

	var opened string
	orig := openURL
	openURL = func(u string) error { opened = u; return nil }
	t.Cleanup(func() { openURL = orig })

	m := loadedList(t, booking.Payments, client.New(env.url, client.StaticToken(env.userTok)))
	m, _ = m.Update(keyMsg("p"))
	if m.paying != seeded.ID {
		t.Fatalf("expected picker for %s, got %q", seeded.ID, m.paying)
	}
	if !strings.Contains(m.View(), "bKash") {
		t.Errorf("expected payment methods in picker")
	}
	m, _ = m.Update(keyMsg("j"))
	m, _ = m.Update(keyMsg("j"))
	m, cmd := m.Update(keyMsg("enter"))
	if cmd == nil {
		t.Fatal("expected pay command")
	}
	m, _ = m.Update(cmd())

	if opened == "" {
		t.Error("expected checkout url to be opened")
	}
	got, _ := env.api.Booking(seeded.ID)
	if !got.Paid() || got.PaymentMethod != domain.PaymentNagad {
		t.Errorf("booking = %+v, want paid via NAGAD", got)
	}
	if view := m.View(); !strings.Contains(view, "Nothing to pay") {
		t.Errorf("paid booking should leave the list, got:\n%s", view)
	}
}

func TestBookingsLoadFailureOffersRetry(t *testing.T) {
	m := loadedList(t, booking.UserBookings, client.New("http://127.0.0.1:1", client.StaticToken("tok")))

	view := m.View()
	if !strings.Contains(view, "retry") {
		t.Errorf("expected retry hint on network failure, got:\n%s", view)
	}
	if _, cmd := m.Update(keyMsg("r")); cmd == nil {
		t.Error("expected r to reload")
	}
}

func TestBookingsWrongRoleRedirectsAfterDelay(t *testing.T) {
	env := newTestEnv(t)
	ctrl := booking.New(booking.ProviderBookings, client.New(env.url, client.StaticToken(env.userTok)),
		booking.WithRedirectDelay(time.Millisecond))
	t.Cleanup(ctrl.Close)
	m := newBookingsModel(ctrl, time.Second)

	m, cmd := m.Update(m.load()())
	if cmd == nil {
		t.Fatal("expected a delayed redirect")
	}
	if !strings.Contains(m.View(), "redirecting") {
		t.Errorf("expected wrong-role message to stay on screen, got:\n%s", m.View())
	}
	nav, ok := cmd().(navigateMsg)
	if !ok || nav.to != "/dashboard" || nav.dropSession {
		t.Errorf("got %#v, want navigate to /dashboard", nav)
	}
}

func TestBookingsUnauthenticatedDropsSession(t *testing.T) {
	env := newTestEnv(t)
	ctrl := booking.New(booking.UserBookings, client.New(env.url, client.StaticToken("not-a-token")))
	t.Cleanup(ctrl.Close)
	m := newBookingsModel(ctrl, time.Second)

	_, cmd := m.Update(m.load()())
	if cmd == nil {
		t.Fatal("expected redirect to login")
	}
	nav, ok := cmd().(navigateMsg)
	if !ok || !nav.dropSession || nav.to != "/login?next=%2Fbookings" {
		t.Errorf("got %#v", nav)
	}
}

func TestBookingsDetailOverlayCopiesID(t *testing.T) {
	env := newTestEnv(t)
	seeded := env.seed(domain.StatusConfirmed)

	var copied string
	orig := copyToClipboard
	copyToClipboard = func(s string) error { copied = s; return nil }
	t.Cleanup(func() { copyToClipboard = orig })

	m := loadedList(t, booking.UserBookings, client.New(env.url, client.StaticToken(env.userTok)))
	m, _ = m.Update(keyMsg("enter"))
	if m.detail == nil {
		t.Fatal("expected detail overlay")
	}
	if !m.capturing() {
		t.Error("overlay should capture keys")
	}
	view := m.View()
	if !strings.Contains(view, seeded.ID) || !strings.Contains(view, "Dhanmondi") {
		t.Errorf("expected booking details, got:\n%s", view)
	}

	m, _ = m.Update(keyMsg("y"))
	if copied != seeded.ID {
		t.Errorf("copied %q, want %q", copied, seeded.ID)
	}
	m, _ = m.Update(keyMsg("esc"))
	if m.detail != nil {
		t.Error("expected esc to close the overlay")
	}
}

func TestBookingsProviderDashboardCounts(t *testing.T) {
	env := newTestEnv(t)
	env.seed(domain.StatusPending)
	env.seed(domain.StatusPending)
	env.seed(domain.StatusCompleted)
	m := loadedList(t, booking.ProviderSummary, client.New(env.url, client.StaticToken(env.provTok)))

	view := m.View()
	if !strings.Contains(view, "DASHBOARD") {
		t.Errorf("expected dashboard title, got:\n%s", view)
	}
	if !strings.Contains(view, "pending") || !strings.Contains(view, "total") {
		t.Errorf("expected status counts, got:\n%s", view)
	}
	if strings.Contains(view, "filter:") {
		t.Error("dashboard should not offer a status filter")
	}
}

func TestBookingsClearNoticeOnlyMatchingSeq(t *testing.T) {
	env := newTestEnv(t)
	env.seed(domain.StatusPending)
	m := loadedList(t, booking.ProviderBookings, client.New(env.url, client.StaticToken(env.provTok)))

	m, cmd := m.Update(keyMsg("a"))
	m, _ = m.Update(cmd())
	seq := m.ctrl.Snapshot().Notice.Seq

	m, _ = m.Update(clearNoticeMsg{kind: booking.ProviderBookings, seq: seq - 1})
	if m.ctrl.Snapshot().Notice.Text == "" {
		t.Fatal("stale clear removed the current notice")
	}
	m, _ = m.Update(clearNoticeMsg{kind: booking.ProviderBookings, seq: seq})
	if m.ctrl.Snapshot().Notice.Text != "" {
		t.Error("expected notice to clear")
	}
}
