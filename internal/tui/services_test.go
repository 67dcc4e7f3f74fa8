package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/naveenspark/handyhub/internal/events"
	"github.com/naveenspark/handyhub/pkg/client"
	"github.com/naveenspark/handyhub/pkg/domain"
)

func loadedServices(t *testing.T, c *client.Client, bus *events.Bus) servicesModel {
	t.Helper()
	m := newServicesModel(c, bus, time.Second)
	m.now = func() time.Time { return time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC) }
	m, _ = m.Update(m.load()())
	return m
}

func TestServicesListsCatalog(t *testing.T) {
	env := newTestEnv(t)
	m := loadedServices(t, client.New(env.url, client.StaticToken(env.userTok)), nil)

	view := m.View()
	if !strings.Contains(view, "Plumbing") {
		t.Errorf("expected catalog entries, got:\n%s", view)
	}
	if !strings.Contains(view, "৳") {
		t.Errorf("expected prices, got:\n%s", view)
	}
}

func TestServicesBookingFormValidates(t *testing.T) {
	env := newTestEnv(t)
	m := loadedServices(t, client.New(env.url, client.StaticToken(env.userTok)), nil)

	m, _ = m.Update(keyMsg("enter"))
	if !m.capturing() {
		t.Fatal("expected booking form")
	}
	if got := m.booking.value(bkDate); got != "2026-10-15" {
		t.Errorf("default date = %q, want tomorrow", got)
	}

	m.booking.fields[bkDate].value = "2026-01-01"
	m, cmd := m.Update(keyMsg("ctrl+s"))
	if cmd != nil {
		t.Fatal("invalid booking must not be sent")
	}
	view := m.View()
	if !strings.Contains(view, "not in the past") || !strings.Contains(view, "area is required") {
		t.Errorf("expected validation errors, got:\n%s", view)
	}
}

func TestServicesBookingPublishesChange(t *testing.T) {
	env := newTestEnv(t)
	bus := events.NewBus()
	var got []events.Event
	bus.Subscribe(events.BookingsChanged, func(e events.Event) { got = append(got, e) })

	m := loadedServices(t, client.New(env.url, client.StaticToken(env.userTok)), bus)
	m, _ = m.Update(keyMsg("enter"))
	m.booking.focus = bkSlot
	m, _ = m.Update(keyMsg("l"))
	m.booking.focus = bkArea
	m = typeText(m, "Gulshan")

	m, cmd := m.Update(keyMsg("ctrl+s"))
	if cmd == nil {
		t.Fatal("expected create command")
	}
	m, _ = m.Update(cmd())

	if m.booking != nil {
		t.Error("form should close after success")
	}
	if !strings.Contains(m.View(), "Booking requested") {
		t.Errorf("expected success notice, got:\n%s", m.View())
	}
	if len(got) != 1 {
		t.Fatalf("expected one bookings.changed event, got %d", len(got))
	}
	b, ok := env.api.Booking(got[0].BookingID)
	if !ok || b.Status != domain.StatusPending || b.TimeSlot != domain.TimeSlots[1] || b.Area != "Gulshan" {
		t.Errorf("created booking = %+v", b)
	}
}
