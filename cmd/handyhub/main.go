package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/naveenspark/handyhub/internal/config"
	"github.com/naveenspark/handyhub/internal/events"
	"github.com/naveenspark/handyhub/internal/guard"
	"github.com/naveenspark/handyhub/internal/logging"
	"github.com/naveenspark/handyhub/internal/metrics"
	"github.com/naveenspark/handyhub/internal/session"
	"github.com/naveenspark/handyhub/internal/tui"
	"github.com/naveenspark/handyhub/pkg/client"
	"github.com/naveenspark/handyhub/pkg/domain"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// env is everything a subcommand needs, built once from config.
type env struct {
	cfg    *config.Config
	logger zerolog.Logger
	store  *session.Store
	bus    *events.Bus
	client *client.Client
	closer io.Closer
}

func (e *env) Close() error {
	if e.closer == nil {
		return nil
	}
	return e.closer.Close()
}

// setup loads config and wires the session store, bus and API client. The
// interactive client logs to a file since the TUI owns the terminal.
func setup(interactive bool, stderr io.Writer) (*env, error) {
	stateDir, err := session.DefaultDir()
	if err != nil {
		// Without a home dir the session lives only in HANDYHUB_TOKEN.
		stateDir = ""
	}
	cfg, err := config.Load("", stateDir)
	if err != nil {
		return nil, err
	}

	e := &env{cfg: cfg, bus: events.NewBus()}
	if interactive {
		logger, closer, err := logging.File(cfg.Log.File, cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		e.logger, e.closer = logger, closer
	} else {
		e.logger = logging.Console(stderr, cfg.Log.Level)
	}
	e.logger = e.logger.With().Str("version", version).Logger()

	e.store = session.New(session.NewFileBackend(cfg.StateDir), session.WithLogger(e.logger))
	e.store.OnChange(func(domain.Session) {
		e.bus.Publish(events.Event{Type: events.SessionChanged, Source: "session", CreatedAt: time.Now()})
	})

	c := client.New(cfg.API.BaseURL, e.store)
	c.SetTimeout(cfg.APITimeout())
	c.UseLogger(e.logger)
	c.UseObserver(metrics.ObserveRequest)
	if cfg.Redis.Address != "" {
		c.UseRedisCache(redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}), cfg.ServicesTTL())
	}
	e.client = c
	return e, nil
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "version", "-v":
			fmt.Fprintln(stdout, "handyhub "+version)
			return nil
		case "help", "--help", "-h":
			printHelp(stdout)
			return nil
		}
	}

	cmd := ""
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "", "login", "logout", "whoami", "contact":
	default:
		printHelp(stdout)
		return fmt.Errorf("unknown command %q", cmd)
	}

	e, err := setup(cmd == "" || cmd == "login", stderr)
	if err != nil {
		return err
	}
	defer e.Close() //nolint:errcheck

	switch cmd {
	case "logout":
		return runLogout(e, stdout)
	case "whoami":
		return runWhoami(context.Background(), e, stdout)
	case "contact":
		return runContact(context.Background(), e, args[1:], stdout)
	case "login":
		return runTUI(e, guard.PathLogin, stdout)
	}
	return runTUI(e, guard.PathDashboard, stdout)
}

// runTUI launches the interactive client at start. Login happens inside the
// TUI form so the password is never echoed.
func runTUI(e *env, start string, stdout io.Writer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()
	metrics.Serve(ctx, e.cfg.Metrics.Address, e.logger)

	app := tui.NewApp(tui.Options{
		Client:        e.client,
		Session:       e.store,
		Bus:           e.bus,
		Logger:        e.logger,
		Recorder:      metrics.IncBookingAction,
		NoticeTTL:     e.cfg.NoticeTimeout(),
		RedirectDelay: e.cfg.WrongRoleRedirectDelay(),
		FocusRefresh:  e.cfg.FocusRefreshRate(),
		Start:         start,
	})

	e.logger.Info().Str("api", e.cfg.API.BaseURL).Str("start", start).Msg("starting tui")
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui error: %w", err)
	}
	printFarewell(stdout, e.store.User())
	return nil
}

func runLogout(e *env, stdout io.Writer) error {
	if !e.store.IsAuthenticated() {
		fmt.Fprintln(stdout, "Already logged out.")
		return nil
	}
	fromEnv := e.store.EnvOverride()
	if err := e.store.Clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	fmt.Fprintln(stdout, "Logged out.")
	if fromEnv {
		fmt.Fprintf(stdout, "%s is still set in your environment. Unset it to stay signed out.\n", session.EnvToken)
	}
	return nil
}

func runWhoami(ctx context.Context, e *env, stdout io.Writer) error {
	token := e.store.Token()
	if token == "" {
		fmt.Fprintln(stdout, "Not signed in. Run: handyhub login")
		return nil
	}

	u := e.store.User()
	if u == nil {
		me, err := e.client.GetMe(ctx)
		if client.IsStatus(err, 401) {
			if err := e.store.Clear(); err != nil {
				e.logger.Warn().Err(err).Msg("clear rejected session")
			}
			fmt.Fprintln(stdout, "Session expired. Run: handyhub login")
			return nil
		}
		if err != nil {
			return fmt.Errorf("fetch profile: %w", err)
		}
		if err := e.store.SetUser(me); err != nil {
			e.logger.Warn().Err(err).Msg("cache profile")
		}
		u = me
	}

	fmt.Fprintf(stdout, "Signed in as %s <%s> (%s)\n", u.Name, u.Email, u.Role)
	exp, err := session.TokenExpiry(token)
	switch {
	case errors.Is(err, session.ErrNoExpiry):
		fmt.Fprintln(stdout, "Token has no expiry")
	case err != nil:
		// Opaque tokens are fine, the server decides validity.
		e.logger.Debug().Err(err).Msg("token is not a JWT")
	default:
		fmt.Fprintf(stdout, "Token expires %s (%s)\n", exp.Local().Format(time.RFC1123), untilText(time.Until(exp)))
	}
	return nil
}

func untilText(d time.Duration) string {
	if d <= 0 {
		return "expired"
	}
	if d < time.Hour {
		return fmt.Sprintf("in %dm", int(d.Minutes()))
	}
	if d < 48*time.Hour {
		return fmt.Sprintf("in %dh", int(d.Hours()))
	}
	return fmt.Sprintf("in %dd", int(d.Hours()/24))
}

func runContact(ctx context.Context, e *env, args []string, stdout io.Writer) error {
	if len(args) < 2 {
		return errors.New(`usage: handyhub contact "<subject>" <message...>`)
	}
	req := client.ContactRequest{
		Subject: strings.TrimSpace(args[0]),
		Message: strings.TrimSpace(strings.Join(args[1:], " ")),
	}
	if req.Subject == "" || req.Message == "" {
		return errors.New("subject and message are required")
	}

	err := e.client.CreateContactMessage(ctx, req)
	if client.IsStatus(err, 401) {
		fmt.Fprintln(stdout, "Sign in first: handyhub login")
		return nil
	}
	if err != nil {
		if he, ok := client.AsHTTPError(err); ok && he.Message != "" {
			return fmt.Errorf("send message: %s", he.Message)
		}
		return fmt.Errorf("send message: %w", err)
	}
	fmt.Fprintln(stdout, "Message sent. Our support team will reply by email.")
	return nil
}
