// Package guard decides, per route, whether the current session may see a
// view or must be redirected elsewhere.
package guard

import (
	"net/url"
	"slices"
	"strings"

	"github.com/naveenspark/handyhub/pkg/domain"
)

// Well-known paths.
const (
	PathLogin                = "/login"
	PathRegister             = "/register"
	PathDashboard            = "/dashboard"
	PathBookings             = "/bookings"
	PathPayments             = "/payments"
	PathServices             = "/services"
	PathProviderDashboard    = "/provider/dashboard"
	PathProviderBookings     = "/provider/bookings"
	PathProviderVerification = "/provider/verification"
)

// Policy is the per-route authorization rule.
type Policy struct {
	RequireAuth bool
	// RedirectTo is the login page for protected routes, or the landing page
	// for public-only routes. Empty on a protected route means PathLogin.
	RedirectTo string
	// AllowedRoles restricts a protected route. Empty allows any role.
	AllowedRoles []domain.Role
}

// State is the outcome of evaluating a Policy.
type State int

const (
	Unchecked State = iota
	Authorized
	Redirecting
)

func (s State) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case Redirecting:
		return "redirecting"
	}
	return "unchecked"
}

// Decision is the guard result. Target is set only when Redirecting.
type Decision struct {
	State  State
	Target string
}

// Decide evaluates p for a visitor at path holding sess.
func Decide(p Policy, path string, sess domain.Session) Decision {
	authed := sess.Token != ""

	if p.RequireAuth {
		if !authed {
			to := p.RedirectTo
			if to == "" {
				to = PathLogin
			}
			return Decision{State: Redirecting, Target: LoginURL(to, path)}
		}
		if len(p.AllowedRoles) > 0 {
			if sess.User == nil || !slices.Contains(p.AllowedRoles, sess.User.Role) {
				return Decision{State: Redirecting, Target: PathDashboard}
			}
		}
		return Decision{State: Authorized}
	}

	if p.RedirectTo != "" && authed {
		return Decision{State: Redirecting, Target: p.RedirectTo}
	}
	return Decision{State: Authorized}
}

// LoginURL returns loginPath with next set to the url-encoded current path.
func LoginURL(loginPath, current string) string {
	if current == "" {
		return loginPath
	}
	q := url.Values{}
	q.Set("next", current)
	return loginPath + "?" + q.Encode()
}

// Home returns the role's landing page. Unknown roles land on the dashboard
// dispatcher, which the router resolves once a profile is present.
func Home(u *domain.User) string {
	switch {
	case domain.IsProvider(u):
		return PathProviderDashboard
	case domain.IsUser(u):
		return PathBookings
	}
	return PathDashboard
}

// SafeNext returns next when it names an internal route, otherwise fallback.
// Absolute URLs, scheme-relative paths and the auth pages are rejected.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	switch u.Path {
	case PathLogin, PathRegister:
		return fallback
	}
	if _, ok := Routes[u.Path]; !ok {
		return fallback
	}
	return u.Path
}

// Split separates a route into its path and query values.
func Split(route string) (string, url.Values) {
	u, err := url.Parse(route)
	if err != nil {
		return route, url.Values{}
	}
	return u.Path, u.Query()
}
