package tui

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/naveenspark/handyhub/internal/booking"
	"github.com/naveenspark/handyhub/internal/events"
	"github.com/naveenspark/handyhub/internal/guard"
	"github.com/naveenspark/handyhub/internal/session"
	"github.com/naveenspark/handyhub/pkg/client"
	"github.com/naveenspark/handyhub/pkg/domain"
)

type view int

const (
	viewNone view = iota // resolving the session or showing a startup error
	viewLogin
	viewRegister
	viewList
	viewServices
	viewVerification
)

// maxRedirects bounds one navigation so a bad route table cannot spin.
const maxRedirects = 6

// meLoadedMsg carries the profile fetched for a token without a cached user.
type meLoadedMsg struct {
	user *domain.User
	err  error
}

// changedMsg is sent when a controller finished a background reload.
type changedMsg struct{}

// sessionChangedMsg is sent when the stored session changed.
type sessionChangedMsg struct{}

type clearLocalNoticeMsg struct{}

// Options wires the App to its collaborators.
type Options struct {
	Client  *client.Client
	Session session.Repository
	Bus     *events.Bus
	Logger  zerolog.Logger
	// Recorder counts booking actions, e.g. into Prometheus.
	Recorder      booking.Recorder
	NoticeTTL     time.Duration
	RedirectDelay time.Duration
	// FocusRefresh caps reloads triggered by terminal focus, per second.
	// Zero disables refresh on focus.
	FocusRefresh float64
	// Start is the first route, PathDashboard when empty.
	Start string
}

// App is the root Bubbletea model. It owns the route and mounts one view at
// a time, closing the previous view's controller on every route change.
type App struct {
	opts       Options
	route      string
	pending    string // route waiting on profile resolution
	view       view
	guard      *guard.Guard
	login      loginModel
	register   registerModel
	list       bookingsModel
	services   servicesModel
	verify     verificationModel
	banner     string
	helpOpen   bool
	helpCursor int
	width      int
	height     int
	frame      int
	focus      *rate.Limiter
	changes    chan struct{}
	sessions   chan struct{}
}

// NewApp creates the TUI application.
func NewApp(opts Options) App {
	if opts.Start == "" {
		opts.Start = guard.PathDashboard
	}
	a := App{
		opts:     opts,
		guard:    &guard.Guard{},
		changes:  make(chan struct{}, 1),
		sessions: make(chan struct{}, 1),
	}
	if opts.FocusRefresh > 0 {
		a.focus = rate.NewLimiter(rate.Limit(opts.FocusRefresh), 1)
	}
	if opts.Bus != nil {
		sessions := a.sessions
		opts.Bus.Subscribe(events.SessionChanged, func(events.Event) { signal(sessions) })
	}
	return a
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func waitFor(ch chan struct{}, msg tea.Msg) tea.Cmd {
	return func() tea.Msg {
		<-ch
		return msg
	}
}

func (a App) Init() tea.Cmd {
	start := a.opts.Start
	return tea.Batch(
		shimmerTickCmd(),
		waitFor(a.changes, changedMsg{}),
		waitFor(a.sessions, sessionChangedMsg{}),
		func() tea.Msg { return navigateMsg{to: start} },
	)
}

// Route returns the mounted route.
func (a App) Route() string {
	return a.route
}

func (a App) loadMe() tea.Cmd {
	c := a.opts.Client
	return func() tea.Msg {
		u, err := c.GetMe(context.Background())
		return meLoadedMsg{user: u, err: err}
	}
}

// navigate runs to through the guard, following redirects, and mounts the
// resulting view.
func (a App) navigate(to string) (App, tea.Cmd) {
	target := to
	for range maxRedirects {
		path, q := guard.Split(target)
		sess := a.opts.Session.Session()
		d, _ := a.guard.Check(path, sess)
		if d.State == guard.Redirecting {
			a.opts.Logger.Debug().Str("from", path).Str("to", d.Target).Msg("route redirect")
			target = d.Target
			continue
		}
		if path == guard.PathDashboard {
			home := guard.Home(sess.User)
			if home == guard.PathDashboard {
				return a.resolveSession(to)
			}
			target = home
			continue
		}
		return a.mount(path, q)
	}
	a.opts.Logger.Warn().Str("route", to).Msg("redirect limit reached")
	return a, nil
}

// resolveSession fetches the profile for a token that has no cached user.
func (a App) resolveSession(then string) (App, tea.Cmd) {
	a = a.unmount()
	if then == guard.PathDashboard || strings.HasPrefix(then, guard.PathLogin) {
		then = ""
	}
	a.pending = then
	a.route = guard.PathDashboard
	a.banner = ""
	return a, a.loadMe()
}

// recheck re-evaluates the mounted route after the session changed.
func (a App) recheck() (App, tea.Cmd) {
	if a.route == "" {
		return a, nil
	}
	d, redirect := a.guard.Check(a.route, a.opts.Session.Session())
	if d.State == guard.Redirecting && redirect {
		return a.navigate(d.Target)
	}
	return a, nil
}

func (a App) unmount() App {
	if a.view == viewList {
		a.list.close()
	}
	a.view = viewNone
	return a
}

func (a App) bodySize() tea.WindowSizeMsg {
	return tea.WindowSizeMsg{Width: a.width, Height: a.height - 5}
}

func (a App) newController(kind booking.Kind) *booking.Controller {
	changes := a.changes
	opts := []booking.Option{
		booking.WithBus(a.opts.Bus),
		booking.WithLogger(a.opts.Logger),
		booking.WithRecorder(a.opts.Recorder),
		booking.WithNotify(func() { signal(changes) }),
	}
	if a.opts.RedirectDelay > 0 {
		opts = append(opts, booking.WithRedirectDelay(a.opts.RedirectDelay))
	}
	return booking.New(kind, a.opts.Client, opts...)
}

func (a App) mountList(kind booking.Kind) (App, tea.Cmd) {
	a.view = viewList
	a.list = newBookingsModel(a.newController(kind), a.opts.NoticeTTL)
	a.list, _ = a.list.Update(a.bodySize())
	return a, a.list.load()
}

func (a App) mount(path string, q url.Values) (App, tea.Cmd) {
	a = a.unmount()
	a.route = path
	a.banner = ""
	c, store := a.opts.Client, a.opts.Session
	switch path {
	case guard.PathLogin:
		a.view = viewLogin
		a.login = newLoginModel(c, store, q.Get("next"))
		return a, nil
	case guard.PathRegister:
		a.view = viewRegister
		a.register = newRegisterModel(c, store)
		return a, nil
	case guard.PathBookings:
		return a.mountList(booking.UserBookings)
	case guard.PathPayments:
		return a.mountList(booking.Payments)
	case guard.PathProviderBookings:
		return a.mountList(booking.ProviderBookings)
	case guard.PathProviderDashboard:
		return a.mountList(booking.ProviderSummary)
	case guard.PathServices:
		a.view = viewServices
		a.services = newServicesModel(c, a.opts.Bus, a.opts.NoticeTTL)
		a.services, _ = a.services.Update(a.bodySize())
		return a, a.services.load()
	case guard.PathProviderVerification:
		a.view = viewVerification
		a.verify = newVerificationModel(c)
		return a, a.verify.load()
	}
	a.opts.Logger.Debug().Str("route", path).Msg("unknown route")
	return a.navigate(guard.PathDashboard)
}

// reloadActive refreshes whatever the mounted view shows.
func (a App) reloadActive() tea.Cmd {
	switch a.view {
	case viewList:
		return a.list.load()
	case viewServices:
		return a.services.load()
	case viewVerification:
		return a.verify.load()
	}
	return nil
}

func (a App) signOut() (App, tea.Cmd) {
	if err := a.opts.Session.Clear(); err != nil {
		a.opts.Logger.Warn().Err(err).Msg("clear session")
	}
	src := a.route
	a, cmd := a.recheck()
	a.opts.Logger.Info().Str("route", src).Msg("signed out")
	return a, cmd
}

func (a App) capturing() bool {
	switch a.view {
	case viewLogin, viewRegister:
		return true
	case viewList:
		return a.list.capturing()
	case viewServices:
		return a.services.capturing()
	case viewVerification:
		return a.verify.capturing()
	}
	return false
}

type tab struct {
	key   string
	name  string
	route string
}

func (a App) tabs() []tab {
	u := a.opts.Session.User()
	switch {
	case a.opts.Session.Token() == "":
		return []tab{{"1", "Sign in", guard.PathLogin}, {"2", "Register", guard.PathRegister}}
	case domain.IsProvider(u):
		return []tab{
			{"1", "Dashboard", guard.PathProviderDashboard},
			{"2", "Requests", guard.PathProviderBookings},
			{"3", "Verification", guard.PathProviderVerification},
		}
	case domain.IsUser(u):
		return []tab{
			{"1", "Bookings", guard.PathBookings},
			{"2", "Services", guard.PathServices},
			{"3", "Payments", guard.PathPayments},
		}
	}
	return nil
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		body := a.bodySize()
		a.list, _ = a.updateList(body)
		a.services, _ = a.services.Update(body)
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case navigateMsg:
		if msg.dropSession {
			if err := a.opts.Session.Clear(); err != nil {
				a.opts.Logger.Warn().Err(err).Msg("clear session")
			}
		}
		return a.navigate(msg.to)

	case sessionChangedMsg:
		a, cmd := a.recheck()
		return a, tea.Batch(cmd, waitFor(a.sessions, sessionChangedMsg{}))

	case changedMsg:
		if a.view == viewList {
			a.list = a.list.clampCursor()
		}
		return a, waitFor(a.changes, changedMsg{})

	case tea.FocusMsg:
		if a.focus != nil && a.focus.Allow() {
			return a, a.reloadActive()
		}
		return a, nil

	case meLoadedMsg:
		if msg.err != nil {
			f := booking.Classify(msg.err, booking.PhaseLoad)
			if f.Kind == booking.FailUnauthenticated {
				a.opts.Session.Clear() //nolint:errcheck
				return a.navigate(guard.LoginURL(guard.PathLogin, a.pending))
			}
			a.banner = "Could not load your profile. " + f.Message
			return a, nil
		}
		if err := a.opts.Session.SetUser(msg.user); err != nil {
			a.opts.Logger.Warn().Err(err).Msg("cache profile")
		}
		then := a.pending
		a.pending = ""
		if then == "" {
			then = guard.Home(msg.user)
		}
		return a.navigate(then)

	case loginDoneMsg:
		a.login, _ = a.login.Update(msg)
		if msg.err != nil {
			return a, nil
		}
		a.opts.Logger.Info().Str("user_id", msg.user.ID).Str("role", string(msg.user.Role)).Msg("signed in")
		return a.navigate(guard.SafeNext(a.login.next, guard.PathDashboard))

	case registerDoneMsg:
		a.register, _ = a.register.Update(msg)
		switch {
		case msg.err != nil:
			return a, nil
		case msg.signedIn:
			return a.navigate(guard.PathDashboard)
		}
		info := msg.message
		if info == "" {
			info = "Account created. Sign in to continue."
		}
		a, cmd := a.navigate(guard.PathLogin)
		a.login.info = info
		return a, cmd

	case tea.KeyMsg:
		if a.helpOpen {
			switch msg.String() {
			case "h", "esc":
				a.helpOpen = false
			case "q", "ctrl+c":
				return a, tea.Quit
			case "j", "down":
				if a.helpCursor < len(helpItems)-1 {
					a.helpCursor++
				}
			case "k", "up":
				if a.helpCursor > 0 {
					a.helpCursor--
				}
			case "enter":
				if item := helpItems[a.helpCursor]; item.url != "" {
					openURL(item.url) //nolint:errcheck // best-effort browser open
				}
			}
			return a, nil
		}

		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}

		if !a.capturing() {
			switch key := msg.String(); key {
			case "h", "?":
				a.helpOpen = true
				a.helpCursor = 0
				return a, nil
			case "q":
				return a, tea.Quit
			case "L":
				if a.opts.Session.Token() != "" {
					return a.signOut()
				}
			case "1", "2", "3":
				for _, t := range a.tabs() {
					if t.key == key && t.route != a.route {
						return a.navigate(t.route)
					}
				}
				return a, nil
			case "r":
				if a.view == viewNone && a.banner != "" {
					a.banner = ""
					return a, a.loadMe()
				}
			}
		}
	}

	var cmd tea.Cmd
	switch a.view {
	case viewLogin:
		a.login, cmd = a.login.Update(msg)
	case viewRegister:
		a.register, cmd = a.register.Update(msg)
	case viewList:
		a.list, cmd = a.updateList(msg)
	case viewServices:
		a.services, cmd = a.services.Update(msg)
	case viewVerification:
		a.verify, cmd = a.verify.Update(msg)
	}
	return a, cmd
}

// updateList forwards msg to the bookings view when one is mounted.
func (a App) updateList(msg tea.Msg) (bookingsModel, tea.Cmd) {
	if a.list.ctrl == nil {
		return a.list, nil
	}
	return a.list.Update(msg)
}

// authRedirect sends the visitor to sign in when the token was rejected.
func authRedirect(f booking.Failure, from string) tea.Cmd {
	if f.Kind != booking.FailUnauthenticated {
		return nil
	}
	to := guard.LoginURL(guard.PathLogin, from)
	return func() tea.Msg { return navigateMsg{to: to, dropSession: true} }
}

func clearLocalNoticeAfter(d time.Duration) tea.Cmd {
	if d <= 0 {
		return nil
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return clearLocalNoticeMsg{} })
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	logoPad := max(0, (a.width-lipgloss.Width(logo))/2)
	header := strings.Repeat(" ", logoPad) + logo

	if u := a.opts.Session.User(); u != nil && a.opts.Session.Token() != "" {
		who := metaStyle.Render(u.Name + " · " + string(u.Role))
		header += "\n" + strings.Repeat(" ", max(0, (a.width-lipgloss.Width(who))/2)) + who
	} else {
		header += "\n"
	}

	tabs := a.tabs()
	var tabBar strings.Builder
	if len(tabs) > 0 {
		colWidth := a.width / len(tabs)
		for _, t := range tabs {
			var label string
			if t.route == a.route {
				label = accentStyle.Render(t.key) + " " + selectedStyle.Underline(true).Render(t.name)
			} else {
				label = metaStyle.Render(t.key) + " " + dimStyle.Render(t.name)
			}
			w := lipgloss.Width(label)
			left := max(0, (colWidth-w)/2)
			right := max(0, colWidth-w-left)
			tabBar.WriteString(strings.Repeat(" ", left) + label + strings.Repeat(" ", right))
		}
	}

	var body string
	switch a.view {
	case viewLogin:
		body = a.login.View()
	case viewRegister:
		body = a.register.View()
	case viewList:
		body = a.list.View()
	case viewServices:
		body = a.services.View()
	case viewVerification:
		body = a.verify.View()
	default:
		if a.banner != "" {
			body = "\n " + errorStyle.Render(a.banner) + "\n\n" + helpBar(helpEntry("r", "retry"), helpEntry("q", "quit"))
		} else {
			body = "\n " + dimStyle.Render("loading your account…")
		}
	}

	help := helpBar(helpEntry("h", "help"), helpEntry("q", "quit"))
	switch {
	case a.opts.Session.Token() != "":
		help = helpBar(helpEntry("1-3", "tabs"), helpEntry("L", "sign out"), helpEntry("h", "help"), helpEntry("q", "quit"))
	case a.capturing():
		help = helpBar(helpEntry("ctrl+c", "quit"))
	}

	if a.helpOpen {
		body = helpView(a.helpCursor)
		help = helpBar(helpEntry("j/k", "nav"), helpEntry("enter", "open"), helpEntry("esc", "close"))
	}

	// Chrome: header(2) + tabs(1) + help(1) + spacer(1)
	body = strings.TrimRight(truncateToHeight(body, a.height-5), "\n")
	return fmt.Sprintf("%s\n%s\n%s\n\n%s", header, tabBar.String(), body, help)
}
