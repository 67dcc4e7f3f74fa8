package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/handyhub/internal/booking"
	"github.com/naveenspark/handyhub/internal/events"
	"github.com/naveenspark/handyhub/internal/guard"
	"github.com/naveenspark/handyhub/pkg/client"
	"github.com/naveenspark/handyhub/pkg/domain"
)

type servicesLoadedMsg struct {
	services []domain.Service
	err      error
}

type bookingCreatedMsg struct {
	booking *domain.Booking
	err     error
}

const (
	bkDate = iota
	bkSlot
	bkArea
	bkNotes
)

var bookingFields = map[string]string{
	"date":     "Date",
	"timeSlot": "Time slot",
	"area":     "Area",
	"notes":    "Notes",
}

// servicesModel is the catalog with an inline booking request form.
type servicesModel struct {
	client    *client.Client
	bus       *events.Bus
	services  []domain.Service
	loaded    bool
	loading   bool
	loadErr   *booking.Failure
	cursor    int
	booking   *form // non-nil while the request form is open
	notice    string
	err       string
	sending   bool
	now       func() time.Time
	height    int
	noticeTTL time.Duration
}

func newServicesModel(c *client.Client, bus *events.Bus, noticeTTL time.Duration) servicesModel {
	return servicesModel{client: c, bus: bus, now: time.Now, noticeTTL: noticeTTL}
}

func (m servicesModel) capturing() bool {
	return m.booking != nil
}

func (m servicesModel) load() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		list, err := c.ListServices(context.Background())
		return servicesLoadedMsg{services: list, err: err}
	}
}

func (m servicesModel) newForm() *form {
	tomorrow := m.now().AddDate(0, 0, 1).Format(time.DateOnly)
	return &form{fields: []formField{
		bkDate:  {label: "Date", value: tomorrow, hint: "YYYY-MM-DD"},
		bkSlot:  {label: "Time slot", value: domain.TimeSlots[0], choices: domain.TimeSlots},
		bkArea:  {label: "Area", hint: "e.g. Dhanmondi"},
		bkNotes: {label: "Notes", hint: "optional"},
	}}
}

func (m servicesModel) validate() map[string]string {
	errs := map[string]string{}
	d, err := time.Parse(time.DateOnly, m.booking.value(bkDate))
	today, _ := time.Parse(time.DateOnly, m.now().Format(time.DateOnly))
	switch {
	case err != nil:
		errs["Date"] = "use the YYYY-MM-DD format"
	case d.Before(today):
		errs["Date"] = "pick a date that is not in the past"
	}
	if !domain.ValidTimeSlot(m.booking.value(bkSlot)) {
		errs["Time slot"] = "pick one of the offered slots"
	}
	if m.booking.value(bkArea) == "" {
		errs["Area"] = "area is required"
	}
	return errs
}

func (m servicesModel) submit() (servicesModel, tea.Cmd) {
	m.booking.errs = m.validate()
	if len(m.booking.errs) > 0 {
		return m, nil
	}
	svc := m.services[m.cursor]
	req := client.CreateBookingRequest{
		ServiceID: svc.ID,
		Date:      m.booking.value(bkDate),
		TimeSlot:  m.booking.value(bkSlot),
		Area:      m.booking.value(bkArea),
		Notes:     m.booking.value(bkNotes),
	}
	m.sending = true
	m.err = ""
	c, bus := m.client, m.bus
	return m, func() tea.Msg {
		b, err := c.CreateBooking(context.Background(), req)
		if err == nil && bus != nil {
			bus.Publish(events.Event{Type: events.BookingsChanged, BookingID: b.ID, Source: "services"})
		}
		return bookingCreatedMsg{booking: b, err: err}
	}
}

func (m servicesModel) Update(msg tea.Msg) (servicesModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height

	case servicesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			f := booking.Classify(msg.err, booking.PhaseLoad)
			m.loadErr = &f
			return m, authRedirect(f, guard.PathServices)
		}
		m.services = msg.services
		m.loaded = true
		m.loadErr = nil
		if m.cursor >= len(m.services) {
			m.cursor = max(0, len(m.services)-1)
		}

	case bookingCreatedMsg:
		m.sending = false
		if msg.err != nil {
			f := booking.Classify(msg.err, booking.PhaseAction)
			if he, ok := client.AsHTTPError(msg.err); ok && len(he.Errors) > 0 && m.booking != nil {
				m.booking.setErrors(he.Errors, bookingFields)
			}
			m.err = f.Message
			return m, authRedirect(f, guard.PathServices)
		}
		m.booking = nil
		m.notice = fmt.Sprintf("Booking requested for %s on %s.", msg.booking.ServiceName(), msg.booking.Date)
		return m, clearLocalNoticeAfter(m.noticeTTL)

	case clearLocalNoticeMsg:
		m.notice = ""

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m servicesModel) handleKey(msg tea.KeyMsg) (servicesModel, tea.Cmd) {
	if m.booking != nil {
		if m.sending {
			return m, nil
		}
		switch msg.String() {
		case "esc":
			m.booking = nil
			m.err = ""
		case "ctrl+s":
			return m.submit()
		case "enter":
			if m.booking.focus == len(m.booking.fields)-1 {
				return m.submit()
			}
			m.booking.next()
		default:
			m.booking.key(msg.String())
		}
		return m, nil
	}

	switch msg.String() {
	case "j", "down":
		if m.cursor < len(m.services)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "r":
		m.loading = true
		return m, m.load()
	case "enter", "b":
		if m.cursor < len(m.services) {
			m.booking = m.newForm()
			m.notice = ""
			m.err = ""
		}
	}
	return m, nil
}

func (m servicesModel) View() string {
	var b strings.Builder
	b.WriteString("\n " + sectionHeaderStyle.Render("── SERVICES ──") + "\n\n")

	switch {
	case !m.loaded && m.loadErr == nil:
		b.WriteString(" " + dimStyle.Render("loading services…") + "\n")
	case m.loadErr != nil && !m.loaded:
		b.WriteString(" " + errorStyle.Render(m.loadErr.Message) + "  " + helpEntry("r", "retry") + "\n")
	case len(m.services) == 0:
		b.WriteString(" " + dimStyle.Render("No services are listed right now.") + "\n")
	}

	if m.booking != nil && m.cursor < len(m.services) {
		svc := m.services[m.cursor]
		b.WriteString(" " + selectedStyle.Render("Book "+svc.Name) + "  " + priceStyle.Render(formatPrice(svc.Price)) + "\n\n")
		b.WriteString(m.booking.View())
		b.WriteString("\n")
		if m.sending {
			b.WriteString(" " + dimStyle.Render("sending request…") + "\n")
		} else if m.err != "" {
			b.WriteString(" " + errorStyle.Render(m.err) + "\n")
		}
		b.WriteString("\n" + helpBar(helpEntry("tab", "next field"), helpEntry("ctrl+s", "request booking"), helpEntry("esc", "back")) + "\n")
		return truncateToHeight(b.String(), m.height)
	}

	for i, svc := range m.services {
		cursor := "  "
		style := normalStyle
		if i == m.cursor {
			cursor = inputPromptStyle.Render("> ")
			style = selectedStyle
		}
		line := cursor + style.Render(fmt.Sprintf("%-20s", truncStr(svc.Name, 20))) + "  " + priceStyle.Render(formatPrice(svc.Price))
		if svc.Category != "" {
			line += "  " + metaStyle.Render(svc.Category)
		}
		b.WriteString(line + "\n")
		if i == m.cursor && svc.Description != "" {
			b.WriteString("    " + dimStyle.Render(truncStr(svc.Description, 70)) + "\n")
		}
	}

	if m.notice != "" {
		b.WriteString("\n " + noticeStyle.Render(m.notice) + "\n")
	}
	b.WriteString("\n" + helpBar(helpEntry("j/k", "move"), helpEntry("enter", "book"), helpEntry("r", "refresh")) + "\n")
	return truncateToHeight(b.String(), m.height)
}
