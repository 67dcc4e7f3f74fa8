package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/handyhub/pkg/domain"
)

func TestStatusStyleKnownStatuses(t *testing.T) {
	for _, s := range domain.Statuses {
		want := statusColors[s]
		if got := StatusStyle(s).GetForeground(); got != want {
			t.Errorf("StatusStyle(%s) foreground = %v, want %v", s, got, want)
		}
	}
}

func TestStatusStyleUnknownFallback(t *testing.T) {
	if got := StatusStyle("ARCHIVED").GetForeground(); got == statusColors[domain.StatusPending] {
		t.Error("unknown status should not share the pending color")
	}
}

func TestVerificationStyleDistinct(t *testing.T) {
	seen := map[lipgloss.TerminalColor]bool{}
	for v := range verificationColors {
		c := VerificationStyle(v).GetForeground()
		if seen[c] {
			t.Errorf("verification status %s shares a color", v)
		}
		seen[c] = true
	}
}

func TestShimmerLogoContainsLetters(t *testing.T) {
	logo := renderShimmerLogo(3)
	for _, r := range "HANDYHUB" {
		if !strings.ContainsRune(logo, r) {
			t.Errorf("logo missing %q", r)
		}
	}
}

func TestHelpViewMarksCursor(t *testing.T) {
	view := helpView(1)
	if !strings.Contains(view, "> ") {
		t.Error("expected a cursor marker")
	}
	if !strings.Contains(view, helpItems[1].desc) {
		t.Errorf("expected %q in help", helpItems[1].desc)
	}
}
