package main

import (
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/charmbracelet/lipgloss"

	"github.com/naveenspark/handyhub/internal/session"
	"github.com/naveenspark/handyhub/pkg/domain"
)

var farewells = [...]string{
	"Leaky tap? Loose socket? You know where to find us.",
	"Your bookings will keep. The providers are already on their way.",
	"A fan that wobbles is a fan asking for help.",
	"Every good repair starts with someone booking it.",
	"The best electricians in Dhaka are one keystroke away.",
	"Rain season is coming. The roofers are ready.",
	"Paint dries. Bookings don't. See you soon.",
	"Somewhere a pipe is dripping. Somewhere a plumber is free.",
}

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#14b8a6")).Bold(true)
	quietStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	quoteStyle = quietStyle.Italic(true)
)

func printHelp(w io.Writer) {
	title := titleStyle.Render("H A N D Y H U B")
	quote := quoteStyle.Render(`"Trusted hands for every home."`)

	cmdStyle := lipgloss.NewStyle().Bold(true)
	commands := []struct{ cmd, desc string }{
		{"handyhub", "Open your dashboard (interactive TUI)"},
		{"handyhub login", "Sign in or create an account"},
		{"handyhub logout", "Clear your session"},
		{"handyhub whoami", "Show the signed-in account"},
		{"handyhub contact", "Message support: contact \"<subject>\" <message>"},
		{"handyhub --version", "Show version"},
		{"handyhub help", "You are here"},
	}

	fmt.Fprintf(w, "\n  %s\n\n  %s\n\n  Commands:\n", title, quote)
	for _, c := range commands {
		fmt.Fprintf(w, "    %s  %s\n", cmdStyle.Render(fmt.Sprintf("%-20s", c.cmd)), quietStyle.Render(c.desc))
	}
	fmt.Fprintf(w, "\n  %s\n", quietStyle.Render("Environment:"))
	for _, v := range []string{session.EnvToken, "HANDYHUB_API_URL", "HANDYHUB_CONFIG", "HANDYHUB_LOG_LEVEL"} {
		fmt.Fprintf(w, "    %s\n", quietStyle.Render(v))
	}
	fmt.Fprintf(w, "\n  %s\n\n", quietStyle.Render("https://handyhub.app"))
}

// printFarewell runs after the TUI exits. Signed out visitors get the login hint.
func printFarewell(w io.Writer, u *domain.User) {
	msg := farewells[rand.IntN(len(farewells))]

	name := "HANDYHUB"
	if u != nil && u.Name != "" {
		name = "Bye, " + u.Name
	}
	fmt.Fprintf(w, "\n%s\n%s\n", titleStyle.Render(name), quoteStyle.Render(msg))
	if u == nil {
		fmt.Fprintf(w, "\n%s\n", quietStyle.Render("To sign in: handyhub login"))
	}
	fmt.Fprintln(w)
}
