package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/naveenspark/handyhub/pkg/domain"
)

var (
	anon     = domain.Session{}
	customer = domain.Session{Token: "t", User: &domain.User{ID: "u1", Role: domain.RoleUser}}
	provider = domain.Session{Token: "t", User: &domain.User{ID: "p1", Role: domain.RoleProvider}}
	noUser   = domain.Session{Token: "t"}
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name string
		path string
		sess domain.Session
		want Decision
	}{
		{"anon on protected", PathBookings, anon, Decision{Redirecting, "/login?next=%2Fbookings"}},
		{"anon on provider", PathProviderBookings, anon, Decision{Redirecting, "/login?next=%2Fprovider%2Fbookings"}},
		{"user on user route", PathBookings, customer, Decision{State: Authorized}},
		{"provider on user route", PathPayments, provider, Decision{Redirecting, PathDashboard}},
		{"user on provider route", PathProviderDashboard, customer, Decision{Redirecting, PathDashboard}},
		{"token without profile on role route", PathBookings, noUser, Decision{Redirecting, PathDashboard}},
		{"any role on dashboard", PathDashboard, provider, Decision{State: Authorized}},
		{"anon on login", PathLogin, anon, Decision{State: Authorized}},
		{"authed on login", PathLogin, customer, Decision{Redirecting, PathDashboard}},
		{"authed on register", PathRegister, provider, Decision{Redirecting, PathDashboard}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := Lookup(tt.path)
			assert.True(t, ok)
			assert.Equal(t, tt.want, Decide(p, tt.path, tt.sess))
		})
	}
}

func TestDecide_DefaultRedirect(t *testing.T) {
	d := Decide(Policy{RequireAuth: true}, "/x", anon)
	assert.Equal(t, Decision{Redirecting, "/login?next=%2Fx"}, d)

	d = Decide(Policy{}, "/x", customer)
	assert.Equal(t, Authorized, d.State)
}

func TestLookup_Unknown(t *testing.T) {
	p, ok := Lookup("/nope")
	assert.False(t, ok)
	assert.True(t, p.RequireAuth)
}

func TestGuard_RedirectsOnce(t *testing.T) {
	var g Guard
	assert.Equal(t, Unchecked, g.State())

	d, redirect := g.Check(PathBookings, anon)
	assert.Equal(t, Redirecting, d.State)
	assert.True(t, redirect)

	_, redirect = g.Check(PathBookings, anon)
	assert.False(t, redirect, "same path and target must not redirect twice")

	d, redirect = g.Check(PathBookings, customer)
	assert.Equal(t, Authorized, d.State)
	assert.False(t, redirect)

	_, redirect = g.Check(PathBookings, anon)
	assert.True(t, redirect, "session change re-arms the redirect")

	g.Reset()
	assert.Equal(t, Unchecked, g.State())
}

func TestHome(t *testing.T) {
	assert.Equal(t, PathBookings, Home(customer.User))
	assert.Equal(t, PathProviderDashboard, Home(provider.User))
	assert.Equal(t, PathDashboard, Home(nil))
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{"", PathDashboard},
		{"/bookings", PathBookings},
		{"/provider/bookings?x=1", PathProviderBookings},
		{"https://evil.example/bookings", PathDashboard},
		{"//evil.example", PathDashboard},
		{`/\evil.example`, PathDashboard},
		{"bookings", PathDashboard},
		{"/login", PathDashboard},
		{"/unknown", PathDashboard},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeNext(tt.next, PathDashboard), "next=%q", tt.next)
	}
}

func TestSplit(t *testing.T) {
	path, q := Split("/login?next=%2Fpayments")
	assert.Equal(t, PathLogin, path)
	assert.Equal(t, "/payments", q.Get("next"))
}
