package guard

import "github.com/naveenspark/handyhub/pkg/domain"

var (
	userOnly     = []domain.Role{domain.RoleUser}
	providerOnly = []domain.Role{domain.RoleProvider}
)

// Routes is the route table.
var Routes = map[string]Policy{
	PathLogin:    {RedirectTo: PathDashboard},
	PathRegister: {RedirectTo: PathDashboard},

	PathDashboard: {RequireAuth: true, RedirectTo: PathLogin},

	PathBookings: {RequireAuth: true, RedirectTo: PathLogin, AllowedRoles: userOnly},
	PathPayments: {RequireAuth: true, RedirectTo: PathLogin, AllowedRoles: userOnly},
	PathServices: {RequireAuth: true, RedirectTo: PathLogin, AllowedRoles: userOnly},

	PathProviderDashboard:    {RequireAuth: true, RedirectTo: PathLogin, AllowedRoles: providerOnly},
	PathProviderBookings:     {RequireAuth: true, RedirectTo: PathLogin, AllowedRoles: providerOnly},
	PathProviderVerification: {RequireAuth: true, RedirectTo: PathLogin, AllowedRoles: providerOnly},
}

// Lookup returns the policy for path. Unknown paths are treated as protected.
func Lookup(path string) (Policy, bool) {
	p, ok := Routes[path]
	if !ok {
		return Policy{RequireAuth: true, RedirectTo: PathLogin}, false
	}
	return p, true
}

// Guard tracks the last decision so each (path, target) pair redirects once.
type Guard struct {
	state    State
	lastPath string
	lastTo   string
}

// State returns the last evaluated state, Unchecked before the first Check.
func (g *Guard) State() State {
	return g.state
}

// Check evaluates path against the table. redirect is true only the first
// time a given redirect is decided for the path; repeated evaluations with
// the same outcome return false so callers navigate once.
func (g *Guard) Check(path string, sess domain.Session) (d Decision, redirect bool) {
	p, _ := Lookup(path)
	d = Decide(p, path, sess)
	g.state = d.State
	if d.State != Redirecting {
		g.lastPath, g.lastTo = path, ""
		return d, false
	}
	if g.lastPath == path && g.lastTo == d.Target {
		return d, false
	}
	g.lastPath, g.lastTo = path, d.Target
	return d, true
}

// Reset returns the guard to Unchecked, e.g. after a session change.
func (g *Guard) Reset() {
	*g = Guard{}
}
