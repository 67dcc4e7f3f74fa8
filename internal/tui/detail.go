package tui

import (
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/handyhub/pkg/domain"
)

// copyToClipboard is swapped in tests.
var copyToClipboard = clipboard.WriteAll

// detailModel is the booking overlay opened with enter from a list.
type detailModel struct {
	booking domain.Booking
	actions []domain.Action
	closed  bool
	status  string
	width   int
}

func newDetailModel(b domain.Booking, actions []domain.Action, width int) detailModel {
	return detailModel{booking: b, actions: actions, width: width}
}

func (m detailModel) Update(msg tea.Msg) (detailModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q", "enter":
			m.closed = true
		case "y":
			if err := copyToClipboard(m.booking.ID); err != nil {
				m.status = "copy failed: " + err.Error()
			} else {
				m.status = "booking id copied"
			}
		}
	}
	return m, nil
}

func (m detailModel) View() string {
	b := m.booking
	cardWidth := min(56, m.width-4)
	if cardWidth < 34 {
		cardWidth = 34
	}
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Background(surfaceColor).
		Padding(1, 2).
		Width(cardWidth)

	var sb strings.Builder
	sb.WriteString(selectedStyle.Render(b.ServiceName()) + "  " + StatusBadge(b.Status) + "\n")
	sb.WriteString(metaStyle.Render(b.ID) + "\n")
	sb.WriteString(metaStyle.Render("---") + "\n")

	row := func(label, value string) {
		if value == "" {
			return
		}
		sb.WriteString(dimStyle.Render(label+"  ") + normalStyle.Render(value) + "\n")
	}
	row("when    ", b.Date+" "+b.TimeSlot)
	row("area    ", b.Area)
	if !b.Price().IsZero() {
		sb.WriteString(dimStyle.Render("price     ") + priceStyle.Render(formatPrice(b.Price())) + "\n")
	}
	if b.User != nil {
		row("customer", partyLine(b.User))
	}
	switch {
	case b.Provider != nil:
		row("provider", partyLine(b.Provider))
	case !b.Assigned():
		row("provider", "not yet assigned")
	}
	if b.Paid() {
		row("payment ", "paid via "+b.PaymentMethod.Label())
	} else {
		row("payment ", "unpaid")
	}
	row("created ", formatTime(b.CreatedAt))

	sb.WriteString("\n")
	if len(m.actions) == 0 {
		sb.WriteString(metaStyle.Render("no actions available") + "\n")
	} else {
		labels := make([]string, 0, len(m.actions))
		for _, a := range m.actions {
			labels = append(labels, actionKeyHint(a))
		}
		sb.WriteString(strings.Join(labels, "  ") + "\n")
	}
	if m.status != "" {
		sb.WriteString(accentStyle.Render(m.status) + "\n")
	}
	sb.WriteString("\n" + helpEntry("y", "copy id") + "  " + helpEntry("esc", "close"))

	return "\n" + border.Render(sb.String())
}

func partyLine(p *domain.Party) string {
	parts := []string{p.Name}
	if p.Phone != "" {
		parts = append(parts, p.Phone)
	}
	if p.Email != "" {
		parts = append(parts, p.Email)
	}
	return strings.Join(parts, " · ")
}
