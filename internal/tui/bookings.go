package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/handyhub/internal/booking"
	"github.com/naveenspark/handyhub/internal/browser"
	"github.com/naveenspark/handyhub/pkg/domain"
)

// openURL is swapped in tests.
var openURL = browser.Open

type bookingsLoadedMsg struct {
	kind booking.Kind
	err  error
}

type actionDoneMsg struct {
	kind    booking.Kind
	res     booking.Result
	err     error
	openErr error
}

type clearNoticeMsg struct {
	kind booking.Kind
	seq  int
}

// navigateMsg asks the router to change route. dropSession clears a
// rejected token first so the login page is reachable.
type navigateMsg struct {
	to          string
	dropSession bool
}

var actionKeys = map[domain.Action]string{
	domain.ActionCancel:   "c",
	domain.ActionAccept:   "a",
	domain.ActionDecline:  "d",
	domain.ActionComplete: "m",
	domain.ActionPay:      "p",
}

func actionKeyHint(a domain.Action) string {
	return helpEntry(actionKeys[a], a.Label())
}

// filters is the status filter cycle. The empty status shows everything.
var filters = append([]domain.Status{""}, domain.Statuses...)

// bookingsModel renders any controller kind: user bookings, provider
// requests, the provider dashboard and the payments list.
type bookingsModel struct {
	ctrl      *booking.Controller
	cursor    int
	filterIdx int
	pending   *booking.Pending
	paying    string // booking id while the method picker is open
	method    int
	detail    *detailModel
	local     string
	noticeTTL time.Duration
	width     int
	height    int
}

func newBookingsModel(ctrl *booking.Controller, noticeTTL time.Duration) bookingsModel {
	return bookingsModel{ctrl: ctrl, noticeTTL: noticeTTL}
}

func (m bookingsModel) kind() booking.Kind {
	return m.ctrl.Kind()
}

func (m bookingsModel) filterable() bool {
	k := m.kind()
	return k == booking.UserBookings || k == booking.ProviderBookings
}

func (m bookingsModel) filter() domain.Status {
	if !m.filterable() {
		return ""
	}
	return filters[m.filterIdx]
}

// capturing reports whether an overlay owns the keyboard.
func (m bookingsModel) capturing() bool {
	return m.pending != nil || m.paying != "" || m.detail != nil
}

func (m bookingsModel) close() {
	if m.ctrl != nil {
		m.ctrl.Close()
	}
}

func (m bookingsModel) load() tea.Cmd {
	c, filter := m.ctrl, m.filter()
	return func() tea.Msg {
		return bookingsLoadedMsg{kind: c.Kind(), err: c.Load(context.Background(), filter)}
	}
}

func (m bookingsModel) execute(p *booking.Pending) tea.Cmd {
	c := m.ctrl
	return func() tea.Msg {
		res, err := c.Execute(context.Background(), p)
		msg := actionDoneMsg{kind: c.Kind(), res: res, err: err}
		if err == nil && res.CheckoutURL != "" {
			msg.openErr = openURL(res.CheckoutURL)
		}
		return msg
	}
}

func (m bookingsModel) selected() (domain.Booking, bool) {
	list := m.ctrl.Snapshot().Bookings
	if m.cursor < 0 || m.cursor >= len(list) {
		return domain.Booking{}, false
	}
	return list[m.cursor], true
}

func (m bookingsModel) clampCursor() bookingsModel {
	n := len(m.ctrl.Snapshot().Bookings)
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	return m
}

func (m bookingsModel) Update(msg tea.Msg) (bookingsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case bookingsLoadedMsg:
		if msg.kind != m.kind() {
			return m, nil
		}
		m = m.clampCursor()
		if msg.err == nil || errors.Is(msg.err, booking.ErrClosed) || errors.Is(msg.err, booking.ErrSuperseded) {
			return m, nil
		}
		return m, m.redirectFor(m.ctrl.Snapshot().LoadErr)

	case actionDoneMsg:
		if msg.kind != m.kind() || errors.Is(msg.err, booking.ErrClosed) {
			return m, nil
		}
		m = m.clampCursor()
		switch {
		case errors.Is(msg.err, booking.ErrInFlight):
			m.local = "That booking is already being updated."
			return m, nil
		case msg.openErr != nil:
			m.local = "Open this link to finish paying: " + msg.res.CheckoutURL
		case msg.res.CheckoutURL != "":
			m.local = "Finish the payment in your browser."
		default:
			m.local = ""
		}
		cmds := []tea.Cmd{m.clearNoticeAfter()}
		if msg.res.Failure.Kind == booking.FailUnauthenticated {
			f := msg.res.Failure
			cmds = append(cmds, m.redirectFor(&f))
		}
		return m, tea.Batch(cmds...)

	case clearNoticeMsg:
		if msg.kind == m.kind() {
			m.ctrl.ClearNotice(msg.seq)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// redirectFor turns a classified load or action failure into navigation.
// Wrong-role failures stay on screen for the controller's redirect delay.
func (m bookingsModel) redirectFor(f *booking.Failure) tea.Cmd {
	if f == nil || f.Redirect == "" {
		return nil
	}
	to := f.Redirect
	if f.Kind == booking.FailUnauthenticated {
		return func() tea.Msg { return navigateMsg{to: to, dropSession: true} }
	}
	return tea.Tick(m.ctrl.RedirectDelay(), func(time.Time) tea.Msg {
		return navigateMsg{to: to}
	})
}

func (m bookingsModel) clearNoticeAfter() tea.Cmd {
	n := m.ctrl.Snapshot().Notice
	if n.Text == "" || m.noticeTTL <= 0 {
		return nil
	}
	kind := m.kind()
	return tea.Tick(m.noticeTTL, func(time.Time) tea.Msg {
		return clearNoticeMsg{kind: kind, seq: n.Seq}
	})
}

func (m bookingsModel) handleKey(msg tea.KeyMsg) (bookingsModel, tea.Cmd) {
	key := msg.String()

	if m.detail != nil {
		d, cmd := m.detail.Update(msg)
		if d.closed {
			m.detail = nil
		} else {
			m.detail = &d
		}
		return m, cmd
	}

	if m.pending != nil {
		switch key {
		case "y", "enter":
			p := m.pending
			m.pending = nil
			p.Confirm()
			return m, m.execute(p)
		case "n", "esc":
			m.pending = nil
		}
		return m, nil
	}

	if m.paying != "" {
		switch key {
		case "j", "down":
			m.method = (m.method + 1) % len(domain.PaymentMethods)
		case "k", "up":
			m.method = (m.method - 1 + len(domain.PaymentMethods)) % len(domain.PaymentMethods)
		case "enter":
			id := m.paying
			m.paying = ""
			p, err := m.ctrl.PreparePay(id, domain.PaymentMethods[m.method])
			if err != nil {
				m.local = prepareError(err)
				return m, nil
			}
			return m, m.execute(p)
		case "esc":
			m.paying = ""
		}
		return m, nil
	}

	n := len(m.ctrl.Snapshot().Bookings)
	switch key {
	case "j", "down":
		if m.cursor < n-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "f":
		if m.filterable() {
			m.filterIdx = (m.filterIdx + 1) % len(filters)
			m.cursor = 0
			return m, m.load()
		}
	case "r":
		m.local = ""
		return m, m.load()
	case "enter":
		if b, ok := m.selected(); ok {
			d := newDetailModel(b, m.ctrl.Actions(b), m.width)
			m.detail = &d
		}
	default:
		for action, k := range actionKeys {
			if k == key {
				return m.startAction(action)
			}
		}
	}
	return m, nil
}

func (m bookingsModel) startAction(action domain.Action) (bookingsModel, tea.Cmd) {
	b, ok := m.selected()
	if !ok {
		return m, nil
	}
	allowed := false
	for _, a := range m.ctrl.Actions(b) {
		if a == action {
			allowed = true
		}
	}
	if !allowed {
		m.local = fmt.Sprintf("%s is not available for this booking.", action.Label())
		return m, nil
	}
	m.local = ""
	if action == domain.ActionPay {
		m.paying = b.ID
		m.method = 0
		return m, nil
	}
	p, err := m.ctrl.Prepare(action, b.ID)
	if err != nil {
		m.local = prepareError(err)
		return m, nil
	}
	if p.NeedsConfirmation() {
		m.pending = p
		return m, nil
	}
	return m, m.execute(p)
}

func prepareError(err error) string {
	switch {
	case errors.Is(err, booking.ErrInFlight):
		return "That booking is already being updated."
	case errors.Is(err, booking.ErrUnknownBooking):
		return "That booking is no longer in the list. Press r to refresh."
	case errors.Is(err, booking.ErrNotAllowed):
		return "That action is no longer available."
	case errors.Is(err, booking.ErrInvalidMethod):
		return "Choose a supported payment method."
	}
	return err.Error()
}

func (m bookingsModel) title() string {
	switch m.kind() {
	case booking.ProviderBookings:
		return "BOOKING REQUESTS"
	case booking.ProviderSummary:
		return "DASHBOARD"
	case booking.Payments:
		return "PAYMENTS"
	}
	return "MY BOOKINGS"
}

func (m bookingsModel) emptyText() string {
	switch m.kind() {
	case booking.ProviderBookings, booking.ProviderSummary:
		return "No booking requests yet."
	case booking.Payments:
		return "Nothing to pay right now."
	}
	if m.filter() != "" {
		return "No " + strings.ToLower(string(m.filter())) + " bookings."
	}
	return "You have no bookings yet. Press 2 to browse services."
}

func (m bookingsModel) View() string {
	if m.detail != nil {
		return m.detail.View()
	}

	s := m.ctrl.Snapshot()
	var b strings.Builder

	header := " " + sectionHeaderStyle.Render("── "+m.title()+" ──")
	if m.filterable() {
		label := "all"
		if f := m.filter(); f != "" {
			label = strings.ToLower(string(f))
		}
		header += "  " + metaStyle.Render("filter: ") + accentStyle.Render(label)
	}
	if s.Loading && s.Loaded {
		header += "  " + metaStyle.Render("refreshing…")
	}
	b.WriteString("\n" + header + "\n\n")

	if s.Summary != nil {
		c := s.Summary.Counts
		b.WriteString(fmt.Sprintf(" %s %s  %s %s  %s %s  %s %s\n\n",
			StatusStyle(domain.StatusPending).Render(fmt.Sprint(c.Pending)), dimStyle.Render("pending"),
			StatusStyle(domain.StatusConfirmed).Render(fmt.Sprint(c.Confirmed)), dimStyle.Render("confirmed"),
			StatusStyle(domain.StatusCompleted).Render(fmt.Sprint(c.Completed)), dimStyle.Render("completed"),
			selectedStyle.Render(fmt.Sprint(c.Total)), dimStyle.Render("total")))
	}

	switch {
	case !s.Loaded && s.LoadErr == nil:
		b.WriteString(" " + dimStyle.Render("loading bookings…") + "\n")
	case !s.Loaded && s.LoadErr != nil:
		b.WriteString(" " + errorStyle.Render(s.LoadErr.Message) + "\n")
		if s.LoadErr.Redirect != "" {
			b.WriteString(" " + metaStyle.Render("redirecting…") + "\n")
		} else if s.LoadErr.Retry {
			b.WriteString(" " + helpEntry("r", "retry") + "\n")
		}
	default:
		if s.LoadErr != nil {
			b.WriteString(" " + errorStyle.Render(s.LoadErr.Message) + "  " + helpEntry("r", "retry") + "\n\n")
		}
		if len(s.Bookings) == 0 {
			b.WriteString(" " + dimStyle.Render(m.emptyText()) + "\n")
		}
		for i, bk := range s.Bookings {
			b.WriteString(m.renderRow(i, bk, s.InFlight) + "\n")
		}
	}

	if s.Notice.Text != "" {
		style := noticeStyle
		if s.Notice.Error {
			style = errorStyle
		}
		b.WriteString("\n " + style.Render(s.Notice.Text) + "\n")
	}
	if m.local != "" {
		b.WriteString("\n " + dimStyle.Render(m.local) + "\n")
	}

	switch {
	case m.pending != nil:
		b.WriteString("\n " + confirmStyle.Render(m.pending.Prompt()) + "  " + helpEntry("y", "yes") + "  " + helpEntry("n", "no") + "\n")
	case m.paying != "":
		b.WriteString("\n " + selectedStyle.Render("Pay with:") + "\n")
		for i, pm := range domain.PaymentMethods {
			cursor := "   "
			style := normalStyle
			if i == m.method {
				cursor = " " + inputPromptStyle.Render(">") + " "
				style = selectedStyle
			}
			b.WriteString(cursor + style.Render(pm.Label()) + "\n")
		}
		b.WriteString(helpBar(helpEntry("j/k", "choose"), helpEntry("enter", "pay"), helpEntry("esc", "cancel")) + "\n")
	default:
		b.WriteString("\n" + m.helpView() + "\n")
	}

	return truncateToHeight(b.String(), m.height)
}

func (m bookingsModel) renderRow(i int, bk domain.Booking, inFlight map[string]domain.Action) string {
	cursor := "  "
	nameStyle := normalStyle
	if i == m.cursor {
		cursor = inputPromptStyle.Render("> ")
		nameStyle = selectedStyle
	}
	line := fmt.Sprintf("%s%s  %s  %s",
		cursor,
		nameStyle.Render(fmt.Sprintf("%-18s", truncStr(bk.ServiceName(), 18))),
		dimStyle.Render(bk.Date+" "+bk.TimeSlot),
		metaStyle.Render(truncStr(bk.Area, 16)),
	)
	line += "  " + StatusBadge(bk.Status)
	if !bk.Price().IsZero() {
		line += "  " + priceStyle.Render(formatPrice(bk.Price()))
	}
	if bk.Paid() {
		line += "  " + noticeStyle.Render("paid")
	}
	if a, busy := inFlight[bk.ID]; busy {
		line += "  " + metaStyle.Render(strings.ToLower(a.Label())+"…")
	}
	if i == m.cursor {
		return selectedRowBg.Render(line)
	}
	return line
}

func (m bookingsModel) helpView() string {
	entries := []string{helpEntry("j/k", "move"), helpEntry("enter", "details")}
	if b, ok := m.selected(); ok {
		for _, a := range m.ctrl.Actions(b) {
			entries = append(entries, actionKeyHint(a))
		}
	}
	if m.filterable() {
		entries = append(entries, helpEntry("f", "filter"))
	}
	entries = append(entries, helpEntry("r", "refresh"))
	return helpBar(entries...)
}
