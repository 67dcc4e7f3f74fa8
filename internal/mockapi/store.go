package mockapi

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/naveenspark/handyhub/pkg/domain"
)

type account struct {
	user     domain.User
	password string
}

// store is the in-memory marketplace state.
type store struct {
	mu       sync.Mutex
	accounts map[string]*account // by user id
	byEmail  map[string]string
	services []domain.Service
	bookings map[string]*domain.Booking
	profiles map[string]*domain.ProviderProfile // by provider user id
	contacts []contactMessage
	now      func() time.Time
}

type contactMessage struct {
	UserID  string
	Subject string
	Message string
}

func newStore() *store {
	return &store{
		accounts: make(map[string]*account),
		byEmail:  make(map[string]string),
		bookings: make(map[string]*domain.Booking),
		profiles: make(map[string]*domain.ProviderProfile),
		now:      time.Now,
	}
}

func (s *store) addAccount(u domain.User, password string) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if _, taken := s.byEmail[email]; taken {
		return domain.User{}, false
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	s.accounts[u.ID] = &account{user: u, password: password}
	s.byEmail[email] = u.ID
	return u, true
}

func (s *store) authenticate(email, password string) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return domain.User{}, false
	}
	acc := s.accounts[id]
	if acc.password != password {
		return domain.User{}, false
	}
	return acc.user, true
}

func (s *store) user(id string) (domain.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		return domain.User{}, false
	}
	return acc.user, true
}

func (s *store) party(id string) *domain.Party {
	acc, ok := s.accounts[id]
	if !ok {
		return nil
	}
	return &domain.Party{ID: acc.user.ID, Name: acc.user.Name, Email: acc.user.Email, Phone: acc.user.Phone}
}

func (s *store) firstProvider() string {
	var ids []string
	for id, acc := range s.accounts {
		if acc.user.Role == domain.RoleProvider {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return ""
	}
	sort.Strings(ids)
	return ids[0]
}

func (s *store) addService(svc domain.Service) domain.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	if svc.ID == "" {
		svc.ID = uuid.NewString()
	}
	s.services = append(s.services, svc)
	return svc
}

func (s *store) service(id string) (domain.Service, bool) {
	for _, svc := range s.services {
		if svc.ID == id {
			return svc, true
		}
	}
	return domain.Service{}, false
}

func (s *store) listServices() []domain.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Service(nil), s.services...)
}

// putBooking inserts b, filling ids, timestamps and embedded summaries.
func (s *store) putBooking(b domain.Booking) domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = domain.StatusPending
	}
	now := s.now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	s.decorate(&b)
	s.bookings[b.ID] = &b
	return b
}

func (s *store) decorate(b *domain.Booking) {
	if svc, ok := s.service(b.ServiceID); ok {
		b.Service = &domain.ServiceSummary{ID: svc.ID, Name: svc.Name, Price: svc.Price}
	}
	b.User = s.party(b.UserID)
	if b.Assigned() {
		b.Provider = s.party(*b.ProviderID)
	}
}

// bookingsWhere returns matching bookings newest first.
func (s *store) bookingsWhere(match func(*domain.Booking) bool) []domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Booking{}
	for _, b := range s.bookings {
		if match(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// mutate runs fn on the booking under the lock. fn returns an apiError to refuse.
func (s *store) mutate(id string, fn func(*domain.Booking) *apiError) (domain.Booking, *apiError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.Booking{}, errNotFound("Booking not found")
	}
	if apiErr := fn(b); apiErr != nil {
		return domain.Booking{}, apiErr
	}
	b.UpdatedAt = s.now().UTC()
	return *b, nil
}

func (s *store) profile(providerID string) (domain.ProviderProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[providerID]
	if !ok {
		return domain.ProviderProfile{}, false
	}
	return *p, true
}

func (s *store) putProfile(p domain.ProviderProfile) domain.ProviderProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.profiles[p.UserID]; ok {
		p.ID = existing.ID
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.UpdatedAt = s.now().UTC()
	s.profiles[p.UserID] = &p
	return p
}

func (s *store) addContact(m contactMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = append(s.contacts, m)
}

// seedDemo loads a small catalog and two demo accounts.
func (s *store) seedDemo() {
	for _, svc := range []domain.Service{
		{ID: "svc-plumbing", Name: "Plumbing", Category: "Home repair", Description: "Leaks, fittings and drains", Price: decimal.RequireFromString("450")},
		{ID: "svc-electrical", Name: "Electrical", Category: "Home repair", Description: "Wiring, sockets and fans", Price: decimal.RequireFromString("600")},
		{ID: "svc-cleaning", Name: "Deep cleaning", Category: "Cleaning", Description: "Full apartment clean", Price: decimal.RequireFromString("1200.50")},
		{ID: "svc-ac", Name: "AC servicing", Category: "Appliance", Description: "Filter and gas check", Price: decimal.RequireFromString("900")},
	} {
		s.addService(svc)
	}
	s.addAccount(domain.User{ID: "user-demo", Name: "Demo User", Email: "user@handyhub.test", Role: domain.RoleUser, Phone: "01700000000"}, "password")
	s.addAccount(domain.User{ID: "provider-demo", Name: "Demo Provider", Email: "provider@handyhub.test", Role: domain.RoleProvider, Phone: "01800000000"}, "password")
}
