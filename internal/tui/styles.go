package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/handyhub/pkg/domain"
)

type shimmerTickMsg time.Time

func shimmerTickCmd() tea.Cmd {
	return tea.Tick(90*time.Millisecond, func(t time.Time) tea.Msg {
		return shimmerTickMsg(t)
	})
}

// Logo gradient endpoints.
var (
	logoDim    = [3]float64{0x13, 0x4e, 0x4a}
	logoBright = [3]float64{0x5e, 0xea, 0xd4}
)

// renderShimmerLogo sweeps a bright band across "HANDYHUB", then rests for a
// few frames before the next pass.
func renderShimmerLogo(frame int) string {
	const (
		text  = "HANDYHUB"
		cycle = 40
		width = 1.6
	)
	head := float64(frame%cycle)*0.4 - 2

	var b strings.Builder
	for i, r := range text {
		d := (float64(i) - head) / width
		glow := math.Exp(-d * d)
		c := lerpColor(logoDim, logoBright, 0.25+0.75*glow)
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(c).Render(string(r)))
		if i < len(text)-1 {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func lerpColor(from, to [3]float64, t float64) lipgloss.Color {
	t = math.Max(0, math.Min(1, t))
	var rgb [3]int
	for i := range rgb {
		rgb[i] = int(math.Round(from[i] + (to[i]-from[i])*t))
	}
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2]))
}

func fg(hex string) lipgloss.Style { return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)) }

var (
	dimStyle              = fg("#94a3b8")
	selectedStyle         = fg("#f1f5f9").Bold(true)
	normalStyle           = fg("#cbd5e1")
	metaStyle             = fg("#64748b")
	helpKeyStyle          = fg("#94a3b8").Bold(true)
	helpLabelStyle        = fg("#64748b")
	accentStyle           = fg("#2dd4bf")
	priceStyle            = fg("#fbbf24")
	noticeStyle           = fg("#34d399")
	errorStyle            = fg("#f87171")
	confirmStyle          = fg("#f59e0b").Bold(true)
	sectionHeaderStyle    = fg("#64748b").Bold(true)
	inputPromptStyle      = fg("#2dd4bf").Bold(true)
	inputPlaceholderStyle = fg("#334155")

	borderColor   = lipgloss.Color("#1e293b")
	surfaceColor  = lipgloss.Color("#0f172a")
	selectedRowBg = lipgloss.NewStyle().Background(lipgloss.Color("#1e293b"))

	statusColors = map[domain.Status]lipgloss.Color{
		domain.StatusPending:   lipgloss.Color("#f59e0b"),
		domain.StatusConfirmed: lipgloss.Color("#38bdf8"),
		domain.StatusCompleted: lipgloss.Color("#34d399"),
		domain.StatusDeclined:  lipgloss.Color("#fb7185"),
		domain.StatusCancelled: lipgloss.Color("#64748b"),
	}

	verificationColors = map[domain.VerificationStatus]lipgloss.Color{
		domain.VerificationUnverified: lipgloss.Color("#94a3b8"),
		domain.VerificationPending:    lipgloss.Color("#f59e0b"),
		domain.VerificationVerified:   lipgloss.Color("#34d399"),
		domain.VerificationRejected:   lipgloss.Color("#f87171"),
	}
)

// StatusStyle returns a bold style colored for the booking status.
func StatusStyle(s domain.Status) lipgloss.Style {
	c, ok := statusColors[s]
	if !ok {
		c = lipgloss.Color("#475569")
	}
	return lipgloss.NewStyle().Foreground(c).Bold(true)
}

// StatusBadge returns a short colored badge, e.g. "[PENDING]".
func StatusBadge(s domain.Status) string {
	if s == "" {
		return ""
	}
	return StatusStyle(s).Render("[" + string(s) + "]")
}

// VerificationStyle returns the style for a provider verification status.
func VerificationStyle(v domain.VerificationStatus) lipgloss.Style {
	if c, ok := verificationColors[v]; ok {
		return lipgloss.NewStyle().Foreground(c).Bold(true)
	}
	return dimStyle
}

// helpEntry renders a single "key label" pair for help bars.
func helpEntry(key, label string) string {
	return helpKeyStyle.Render(key) + " " + helpLabelStyle.Render(label)
}

// helpBar joins entries with the standard spacing.
func helpBar(entries ...string) string {
	return " " + strings.Join(entries, "  ")
}

type helpItem struct {
	label string
	desc  string
	url   string
}

var helpItems = []helpItem{
	{"Terms of Service", "handyhub.app/terms", "https://handyhub.app/terms"},
	{"Privacy Policy", "handyhub.app/privacy", "https://handyhub.app/privacy"},
	{"Help Center", "handyhub.app/help", "https://handyhub.app/help"},
	{"Website", "handyhub.app", "https://handyhub.app"},
}

var helpCommands = [][2]string{
	{"handyhub", "Open the interactive TUI"},
	{"handyhub login", "Sign in with email and password"},
	{"handyhub logout", "Clear your session"},
	{"handyhub whoami", "Show the signed-in account"},
	{"handyhub contact", "Message the support team"},
	{"handyhub --version", "Show version"},
}

var helpKeys = [][2]string{
	{"1-3", "switch tabs"},
	{"f", "cycle status filter"},
	{"enter", "booking details"},
	{"c / a / d / m", "cancel / accept / decline / complete"},
	{"p", "pay a confirmed booking"},
	{"L", "sign out"},
}

// helpView renders the help overlay. cursor selects a link; enter opens it.
func helpView(cursor int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n  %s\n\n  %s\n", accentStyle.Bold(true).Render("H A N D Y H U B"),
		dimStyle.Italic(true).Render("Home services, booked from your terminal."))

	section := func(name string, rows [][2]string) {
		fmt.Fprintf(&b, "\n  %s\n", sectionHeaderStyle.Render(name))
		for _, r := range rows {
			fmt.Fprintf(&b, "    %s  %s\n", selectedStyle.Render(fmt.Sprintf("%-20s", r[0])), dimStyle.Render(r[1]))
		}
	}
	section("Commands", helpCommands)
	section("Keys", helpKeys)

	fmt.Fprintf(&b, "\n  %s\n", sectionHeaderStyle.Render("Links (enter to open)"))
	for i, item := range helpItems {
		marker, label := "    ", normalStyle.Render(fmt.Sprintf("%-20s", item.label))
		if i == cursor {
			marker, label = "  > ", accentStyle.Bold(true).Render(fmt.Sprintf("%-20s", item.label))
		}
		fmt.Fprintf(&b, "%s%s  %s\n", marker, label, metaStyle.Italic(true).Render(item.desc))
	}
	return b.String()
}
