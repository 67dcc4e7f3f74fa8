package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/naveenspark/handyhub/internal/booking"
	"github.com/naveenspark/handyhub/internal/guard"
	"github.com/naveenspark/handyhub/pkg/client"
	"github.com/naveenspark/handyhub/pkg/domain"
)

type profileLoadedMsg struct {
	profile *domain.ProviderProfile
	err     error
}

type verificationSentMsg struct {
	profile *domain.ProviderProfile
	err     error
}

const (
	vBio = iota
	vAreas
	vServices
	vNationalID
	vDocument
)

var verificationFields = map[string]string{
	"bio":         "Bio",
	"areas":       "Areas",
	"services":    "Services",
	"nationalId":  "National ID",
	"documentUrl": "Document URL",
}

// verificationModel shows the provider's review status and, while no
// review is pending or granted, the onboarding form.
type verificationModel struct {
	client  *client.Client
	profile *domain.ProviderProfile
	loadErr *booking.Failure
	form    form
	editing bool
	sending bool
	err     string
	notice  string
}

func newVerificationModel(c *client.Client) verificationModel {
	return verificationModel{
		client: c,
		form: form{fields: []formField{
			vBio:        {label: "Bio", hint: "a line about your experience"},
			vAreas:      {label: "Areas", hint: "comma separated, e.g. Dhanmondi, Gulshan"},
			vServices:   {label: "Services", hint: "comma separated service ids"},
			vNationalID: {label: "National ID"},
			vDocument:   {label: "Document URL", hint: "optional"},
		}},
	}
}

func (m verificationModel) capturing() bool {
	return m.editing
}

func (m verificationModel) load() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		p, err := c.GetProviderProfile(context.Background())
		return profileLoadedMsg{profile: p, err: err}
	}
}

func (m verificationModel) submit() (verificationModel, tea.Cmd) {
	m.form.errs = map[string]string{}
	if m.form.value(vBio) == "" {
		m.form.errs["Bio"] = "bio is required"
	}
	if len(splitList(m.form.value(vAreas))) == 0 {
		m.form.errs["Areas"] = "list at least one area"
	}
	if m.form.value(vNationalID) == "" {
		m.form.errs["National ID"] = "national id is required"
	}
	if len(m.form.errs) > 0 {
		return m, nil
	}
	req := client.VerificationRequest{
		Bio:         m.form.value(vBio),
		Areas:       splitList(m.form.value(vAreas)),
		Services:    splitList(m.form.value(vServices)),
		NationalID:  m.form.value(vNationalID),
		DocumentURL: m.form.value(vDocument),
	}
	m.sending = true
	m.err = ""
	c := m.client
	return m, func() tea.Msg {
		p, err := c.SubmitVerification(context.Background(), req)
		return verificationSentMsg{profile: p, err: err}
	}
}

func (m verificationModel) Update(msg tea.Msg) (verificationModel, tea.Cmd) {
	switch msg := msg.(type) {
	case profileLoadedMsg:
		if msg.err != nil {
			f := booking.Classify(msg.err, booking.PhaseLoad)
			m.loadErr = &f
			return m, authRedirect(f, guard.PathProviderVerification)
		}
		m.loadErr = nil
		m.profile = msg.profile
		if p := msg.profile; p != nil {
			m.form.fields[vBio].value = p.Bio
			m.form.fields[vAreas].value = strings.Join(p.Areas, ", ")
			m.form.fields[vServices].value = strings.Join(p.Services, ", ")
			m.form.fields[vNationalID].value = p.NationalID
			m.form.fields[vDocument].value = p.DocumentURL
		}

	case verificationSentMsg:
		m.sending = false
		if msg.err != nil {
			f := booking.Classify(msg.err, booking.PhaseAction)
			if he, ok := client.AsHTTPError(msg.err); ok {
				m.form.setErrors(he.Errors, verificationFields)
			}
			m.err = f.Message
			return m, authRedirect(f, guard.PathProviderVerification)
		}
		m.editing = false
		m.profile = msg.profile
		m.notice = "Verification submitted. We will review it shortly."

	case tea.KeyMsg:
		if m.editing {
			if m.sending {
				return m, nil
			}
			switch msg.String() {
			case "esc":
				m.editing = false
				m.err = ""
			case "ctrl+s":
				return m.submit()
			case "enter":
				if m.form.focus == len(m.form.fields)-1 {
					return m.submit()
				}
				m.form.next()
			default:
				m.form.key(msg.String())
			}
			return m, nil
		}
		switch msg.String() {
		case "e", "enter":
			if m.profile != nil && m.profile.CanSubmitVerification() {
				m.editing = true
				m.notice = ""
			}
		case "r":
			return m, m.load()
		}
	}
	return m, nil
}

func (m verificationModel) View() string {
	var b strings.Builder
	b.WriteString("\n " + sectionHeaderStyle.Render("── VERIFICATION ──") + "\n\n")

	if m.profile == nil {
		if m.loadErr != nil {
			b.WriteString(" " + errorStyle.Render(m.loadErr.Message) + "  " + helpEntry("r", "retry") + "\n")
		} else {
			b.WriteString(" " + dimStyle.Render("loading profile…") + "\n")
		}
		return b.String()
	}

	p := m.profile
	b.WriteString(" " + dimStyle.Render("status  ") + VerificationStyle(p.VerificationStatus).Render(string(p.VerificationStatus)) + "\n")
	if p.ReviewNote != "" {
		b.WriteString(" " + dimStyle.Render("note    ") + normalStyle.Render(p.ReviewNote) + "\n")
	}
	if len(p.Areas) > 0 {
		b.WriteString(" " + dimStyle.Render("areas   ") + normalStyle.Render(strings.Join(p.Areas, ", ")) + "\n")
	}
	b.WriteString("\n")

	if m.editing {
		b.WriteString(m.form.View())
		b.WriteString("\n")
		if m.sending {
			b.WriteString(" " + dimStyle.Render("submitting…") + "\n")
		} else if m.err != "" {
			b.WriteString(" " + errorStyle.Render(m.err) + "\n")
		}
		b.WriteString("\n" + helpBar(helpEntry("tab", "next field"), helpEntry("ctrl+s", "submit"), helpEntry("esc", "cancel")) + "\n")
		return b.String()
	}

	switch p.VerificationStatus {
	case domain.VerificationPending:
		b.WriteString(" " + dimStyle.Render("Your documents are under review.") + "\n")
	case domain.VerificationVerified:
		b.WriteString(" " + noticeStyle.Render("You are verified and can receive bookings.") + "\n")
	}
	if m.notice != "" {
		b.WriteString(" " + noticeStyle.Render(m.notice) + "\n")
	}
	entries := []string{helpEntry("r", "refresh")}
	if p.CanSubmitVerification() {
		entries = append([]string{helpEntry("e", "submit verification")}, entries...)
	}
	b.WriteString("\n" + helpBar(entries...) + "\n")
	return b.String()
}
