// Package booking owns the booking lists shown by each view and the
// request-then-reload lifecycle of booking actions.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/naveenspark/handyhub/internal/events"
	"github.com/naveenspark/handyhub/internal/guard"
	"github.com/naveenspark/handyhub/pkg/client"
	"github.com/naveenspark/handyhub/pkg/domain"
)

var (
	ErrClosed         = errors.New("booking: controller closed")
	ErrSuperseded     = errors.New("booking: a newer load replaced this one")
	ErrInFlight       = errors.New("booking: action already in progress for this booking")
	ErrNotAllowed     = errors.New("booking: action not allowed in the current status")
	ErrUnknownBooking = errors.New("booking: booking not in the current list")
	ErrNotConfirmed   = errors.New("booking: action requires confirmation")
	ErrInvalidMethod  = errors.New("booking: unsupported payment method")
)

// API is the subset of the marketplace client used by controllers.
type API interface {
	ListMyBookings(ctx context.Context, status domain.Status) ([]domain.Booking, error)
	ListProviderBookings(ctx context.Context, status domain.Status) ([]domain.Booking, error)
	ListPayableBookings(ctx context.Context) ([]domain.Booking, error)
	GetProviderDashboardSummary(ctx context.Context) (*domain.DashboardSummary, error)
	CancelBooking(ctx context.Context, id string) (*domain.Booking, error)
	UpdateProviderBookingStatus(ctx context.Context, id string, status domain.Status) (*domain.Booking, error)
	PayBooking(ctx context.Context, id string, method domain.PaymentMethod) (*client.PaymentResult, error)
}

// Kind selects which list a controller manages.
type Kind int

const (
	UserBookings Kind = iota
	ProviderBookings
	ProviderSummary
	Payments
)

func (k Kind) String() string {
	switch k {
	case UserBookings:
		return "user_bookings"
	case ProviderBookings:
		return "provider_bookings"
	case ProviderSummary:
		return "provider_summary"
	case Payments:
		return "payments"
	}
	return "unknown"
}

// Actor is the role whose actions this kind exposes.
func (k Kind) Actor() domain.Role {
	if k == ProviderBookings || k == ProviderSummary {
		return domain.RoleProvider
	}
	return domain.RoleUser
}

// Path is the route the kind is mounted on.
func (k Kind) Path() string {
	switch k {
	case ProviderBookings:
		return guard.PathProviderBookings
	case ProviderSummary:
		return guard.PathProviderDashboard
	case Payments:
		return guard.PathPayments
	}
	return guard.PathBookings
}

// Notice is a transient message produced by an action. Seq increases with
// every notice so a delayed clear only removes the notice it was scheduled for.
type Notice struct {
	Seq   int
	Text  string
	Error bool
}

// Snapshot is a copy of controller state safe to hand to a view.
type Snapshot struct {
	Kind     Kind
	Filter   domain.Status
	Bookings []domain.Booking
	Summary  *domain.DashboardSummary
	Loading  bool
	Loaded   bool
	LoadedAt time.Time
	// LoadErr is the last load failure, cleared by a successful load.
	LoadErr  *Failure
	Notice   Notice
	InFlight map[string]domain.Action
}

// Result describes a finished action.
type Result struct {
	Action      domain.Action
	BookingID   string
	Failure     Failure
	CheckoutURL string
}

// OK reports whether the action took effect.
func (r Result) OK() bool {
	return r.Failure.Success()
}

// Recorder counts executed actions by outcome.
type Recorder func(action, outcome string)

// Controller manages one booking list. It is safe for concurrent use.
type Controller struct {
	kind          Kind
	api           API
	bus           *events.Bus
	logger        zerolog.Logger
	record        Recorder
	notify        func()
	redirectDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	unsubs []func()

	refreshing atomic.Bool

	mu       sync.Mutex
	filter   domain.Status
	bookings []domain.Booking
	summary  *domain.DashboardSummary
	loads    int
	loadSeq  int
	stopLoad context.CancelFunc
	loaded   bool
	loadedAt time.Time
	loadErr  *Failure
	notice   Notice
	inFlight map[string]domain.Action
}

// Option configures a Controller.
type Option func(*Controller)

// WithBus subscribes the controller to invalidation events and publishes its own.
func WithBus(b *events.Bus) Option {
	return func(c *Controller) { c.bus = b }
}

// WithLogger sets the controller logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithRecorder counts executed actions.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.record = r }
}

// WithNotify registers a callback run after background state changes.
func WithNotify(fn func()) Option {
	return func(c *Controller) { c.notify = fn }
}

// WithRedirectDelay sets how long a wrong-role message shows before redirecting.
func WithRedirectDelay(d time.Duration) Option {
	return func(c *Controller) { c.redirectDelay = d }
}

// New returns a controller for kind. Close it when the view unmounts.
func New(kind Kind, api API, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		kind:          kind,
		api:           api,
		logger:        zerolog.Nop(),
		redirectDelay: 2 * time.Second,
		ctx:           ctx,
		cancel:        cancel,
		inFlight:      make(map[string]domain.Action),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("controller", kind.String()).Logger()

	if c.bus != nil {
		c.unsubs = append(c.unsubs, c.bus.Subscribe(events.BookingsChanged, c.onEvent))
		if kind == ProviderSummary {
			c.unsubs = append(c.unsubs, c.bus.Subscribe(events.DashboardRefresh, c.onEvent))
		}
	}
	return c
}

// Kind returns the controller kind.
func (c *Controller) Kind() Kind { return c.kind }

// RedirectDelay is how long a wrong-role load failure shows before the redirect.
func (c *Controller) RedirectDelay() time.Duration { return c.redirectDelay }

// Close cancels in-flight requests and drops any results that arrive later.
func (c *Controller) Close() {
	c.cancel()
	for _, unsub := range c.unsubs {
		unsub()
	}
}

// Closed reports whether Close was called.
func (c *Controller) Closed() bool {
	return c.ctx.Err() != nil
}

func (c *Controller) scope(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		Kind:     c.kind,
		Filter:   c.filter,
		Bookings: append([]domain.Booking(nil), c.bookings...),
		Loading:  c.loads > 0,
		Loaded:   c.loaded,
		LoadedAt: c.loadedAt,
		Notice:   c.notice,
		InFlight: make(map[string]domain.Action, len(c.inFlight)),
	}
	if c.summary != nil {
		sum := *c.summary
		s.Summary = &sum
	}
	if c.loadErr != nil {
		f := *c.loadErr
		s.LoadErr = &f
	}
	for id, a := range c.inFlight {
		s.InFlight[id] = a
	}
	return s
}

// Filter returns the active status filter.
func (c *Controller) Filter() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

// Load fetches the list for filter and replaces local state. Starting a load
// cancels the previous one, and only the latest load may write state.
// Filter is ignored by the summary and payments kinds.
func (c *Controller) Load(ctx context.Context, filter domain.Status) error {
	if c.Closed() {
		return ErrClosed
	}
	ctx, done := c.scope(ctx)
	defer done()

	c.mu.Lock()
	if c.stopLoad != nil {
		c.stopLoad()
	}
	c.stopLoad = done
	c.loadSeq++
	seq := c.loadSeq
	c.filter = filter
	c.loads++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.loads--
		c.mu.Unlock()
	}()

	var (
		list    []domain.Booking
		summary *domain.DashboardSummary
		err     error
	)
	switch c.kind {
	case UserBookings:
		list, err = c.api.ListMyBookings(ctx, filter)
	case ProviderBookings:
		list, err = c.api.ListProviderBookings(ctx, filter)
	case Payments:
		list, err = c.api.ListPayableBookings(ctx)
	case ProviderSummary:
		summary, err = c.api.GetProviderDashboardSummary(ctx)
		list = summary.Bookings()
	}

	if c.Closed() {
		return ErrClosed
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.loadSeq {
		return ErrSuperseded
	}
	if err != nil {
		f := c.resolve(Classify(err, PhaseLoad), PhaseLoad)
		c.loadErr = &f
		c.logger.Warn().Err(err).Str("failure", f.Kind.String()).Msg("load failed")
		return fmt.Errorf("booking.Load: %w", err)
	}
	if c.kind == Payments {
		list = payable(list)
	}
	c.bookings = list
	c.summary = summary
	c.loaded = true
	c.loadedAt = time.Now()
	c.loadErr = nil
	return nil
}

// Reload repeats the last load.
func (c *Controller) Reload(ctx context.Context) error {
	return c.Load(ctx, c.Filter())
}

func payable(list []domain.Booking) []domain.Booking {
	out := list[:0:0]
	for _, b := range list {
		if b.Payable() {
			out = append(out, b)
		}
	}
	return out
}

// resolve fills in redirect targets, which depend on the mounted path.
func (c *Controller) resolve(f Failure, phase Phase) Failure {
	switch {
	case f.Kind == FailUnauthenticated:
		f.Redirect = guard.LoginURL(guard.PathLogin, c.kind.Path())
	case f.Kind == FailWrongRole && phase == PhaseLoad:
		f.Redirect = guard.PathDashboard
	}
	return f
}

// Actions lists the actions the controller's actor may request on b.
func (c *Controller) Actions(b domain.Booking) []domain.Action {
	if c.kind == Payments {
		if domain.Allowed(b, domain.RoleUser, domain.ActionPay) {
			return []domain.Action{domain.ActionPay}
		}
		return nil
	}
	return domain.Actions(b, c.kind.Actor())
}

// Pending is a validated action waiting to be executed.
type Pending struct {
	Action    domain.Action
	BookingID string
	Method    domain.PaymentMethod
	Booking   domain.Booking
	confirmed bool
}

// Confirm records the user's confirmation.
func (p *Pending) Confirm() {
	p.confirmed = true
}

// NeedsConfirmation reports whether Confirm must be called before Execute.
func (p *Pending) NeedsConfirmation() bool {
	return p.Action.NeedsConfirmation() && !p.confirmed
}

// Prompt is the confirmation question shown to the user.
func (p *Pending) Prompt() string {
	name := p.Booking.ServiceName()
	switch p.Action {
	case domain.ActionCancel:
		return fmt.Sprintf("Cancel booking for %s on %s?", name, p.Booking.Date)
	case domain.ActionDecline:
		return fmt.Sprintf("Decline booking for %s on %s?", name, p.Booking.Date)
	case domain.ActionComplete:
		return fmt.Sprintf("Mark %s on %s as completed?", name, p.Booking.Date)
	}
	return p.Action.Label() + "?"
}

// Prepare validates action on bookingID against the current list.
func (c *Controller) Prepare(action domain.Action, bookingID string) (*Pending, error) {
	if action == domain.ActionPay {
		return nil, ErrInvalidMethod
	}
	return c.prepare(action, bookingID, "")
}

// PreparePay validates a payment with method on bookingID.
func (c *Controller) PreparePay(bookingID string, method domain.PaymentMethod) (*Pending, error) {
	if !domain.ValidPaymentMethod(method) {
		return nil, ErrInvalidMethod
	}
	return c.prepare(domain.ActionPay, bookingID, method)
}

func (c *Controller) prepare(action domain.Action, bookingID string, method domain.PaymentMethod) (*Pending, error) {
	if c.Closed() {
		return nil, ErrClosed
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inFlight[bookingID]; busy {
		return nil, ErrInFlight
	}
	b, ok := domain.FindBooking(c.bookings, bookingID)
	if !ok {
		return nil, ErrUnknownBooking
	}
	if c.kind == Payments && action != domain.ActionPay {
		return nil, ErrNotAllowed
	}
	if !domain.Allowed(b, c.kind.Actor(), action) {
		return nil, ErrNotAllowed
	}
	return &Pending{Action: action, BookingID: bookingID, Method: method, Booking: b}, nil
}

// Execute sends p and reloads on success. Local state is never mutated
// optimistically. The returned error is nil only when the action took effect.
func (c *Controller) Execute(ctx context.Context, p *Pending) (Result, error) {
	res := Result{Action: p.Action, BookingID: p.BookingID}
	if c.Closed() {
		return res, ErrClosed
	}
	if p.NeedsConfirmation() {
		return res, ErrNotConfirmed
	}

	c.mu.Lock()
	if _, busy := c.inFlight[p.BookingID]; busy {
		c.mu.Unlock()
		return res, ErrInFlight
	}
	c.inFlight[p.BookingID] = p.Action
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.inFlight, p.BookingID)
		c.mu.Unlock()
	}()

	sctx, done := c.scope(ctx)
	err := c.send(sctx, p, &res)
	done()

	if c.Closed() {
		return res, ErrClosed
	}

	res.Failure = c.resolve(Classify(err, PhaseAction), PhaseAction)
	c.recordOutcome(p.Action, res.Failure)

	if res.OK() {
		c.setNotice(successText(p.Action, res.Failure.Kind), false)
		c.Reload(ctx) //nolint:errcheck // load failures land in LoadErr
		c.publish(p)
		return res, nil
	}

	c.logger.Warn().Err(err).Str("action", string(p.Action)).Str("booking_id", p.BookingID).
		Str("failure", res.Failure.Kind.String()).Msg("action failed")
	c.setNotice(res.Failure.Message, true)
	if res.Failure.Reload {
		c.Reload(ctx) //nolint:errcheck
	}
	return res, fmt.Errorf("booking.Execute %s: %w", p.Action, err)
}

func (c *Controller) send(ctx context.Context, p *Pending, res *Result) error {
	switch p.Action {
	case domain.ActionCancel:
		_, err := c.api.CancelBooking(ctx, p.BookingID)
		return err
	case domain.ActionAccept, domain.ActionDecline, domain.ActionComplete:
		status, _ := domain.ProviderStatusFor(p.Action)
		_, err := c.api.UpdateProviderBookingStatus(ctx, p.BookingID, status)
		return err
	case domain.ActionPay:
		pr, err := c.api.PayBooking(ctx, p.BookingID, p.Method)
		if err == nil && pr != nil {
			res.CheckoutURL = pr.CheckoutURL
		}
		return err
	}
	return ErrNotAllowed
}

func (c *Controller) recordOutcome(a domain.Action, f Failure) {
	if c.record == nil {
		return
	}
	outcome := "success"
	if f.Kind != FailNone {
		outcome = f.Kind.String()
	}
	c.record(string(a), outcome)
}

func (c *Controller) publish(p *Pending) {
	if c.bus == nil {
		return
	}
	src := c.source()
	c.bus.Publish(events.Event{Type: events.BookingsChanged, BookingID: p.BookingID, Source: src})
	if c.kind.Actor() == domain.RoleProvider {
		c.bus.Publish(events.Event{Type: events.DashboardRefresh, BookingID: p.BookingID, Source: src})
	}
}

func (c *Controller) source() string {
	return fmt.Sprintf("%s:%p", c.kind, c)
}

// onEvent reloads in the background. Bursts coalesce into one reload.
func (c *Controller) onEvent(e events.Event) {
	if e.Source == c.source() || c.Closed() {
		return
	}
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.refreshing.Store(false)
		if err := c.Reload(c.ctx); err != nil && !errors.Is(err, ErrClosed) && !errors.Is(err, ErrSuperseded) {
			c.logger.Debug().Err(err).Str("event", e.Type).Msg("background reload failed")
		}
		if c.notify != nil && !c.Closed() {
			c.notify()
		}
	}()
}

func (c *Controller) setNotice(text string, isErr bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notice = Notice{Seq: c.notice.Seq + 1, Text: text, Error: isErr}
}

// ClearNotice removes the notice if it is still the one numbered seq.
func (c *Controller) ClearNotice(seq int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notice.Seq == seq {
		c.notice.Text = ""
		c.notice.Error = false
	}
}

func successText(a domain.Action, kind FailureKind) string {
	if kind == FailAlreadyPaid {
		return msgAlreadyPaid
	}
	switch a {
	case domain.ActionAccept:
		return "Booking accepted."
	case domain.ActionDecline:
		return "Booking declined."
	case domain.ActionComplete:
		return "Booking marked as completed."
	case domain.ActionCancel:
		return "Booking cancelled."
	case domain.ActionPay:
		return "Payment submitted."
	}
	return "Done."
}
