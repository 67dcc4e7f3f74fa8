package booking

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/naveenspark/handyhub/internal/events"
	"github.com/naveenspark/handyhub/pkg/client"
	"github.com/naveenspark/handyhub/pkg/domain"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) ListMyBookings(ctx context.Context, status domain.Status) ([]domain.Booking, error) {
	args := m.Called(ctx, status)
	list, _ := args.Get(0).([]domain.Booking)
	return list, args.Error(1)
}

func (m *mockAPI) ListProviderBookings(ctx context.Context, status domain.Status) ([]domain.Booking, error) {
	args := m.Called(ctx, status)
	list, _ := args.Get(0).([]domain.Booking)
	return list, args.Error(1)
}

func (m *mockAPI) ListPayableBookings(ctx context.Context) ([]domain.Booking, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]domain.Booking)
	return list, args.Error(1)
}

func (m *mockAPI) GetProviderDashboardSummary(ctx context.Context) (*domain.DashboardSummary, error) {
	args := m.Called(ctx)
	s, _ := args.Get(0).(*domain.DashboardSummary)
	return s, args.Error(1)
}

func (m *mockAPI) CancelBooking(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*domain.Booking)
	return b, args.Error(1)
}

func (m *mockAPI) UpdateProviderBookingStatus(ctx context.Context, id string, status domain.Status) (*domain.Booking, error) {
	args := m.Called(ctx, id, status)
	b, _ := args.Get(0).(*domain.Booking)
	return b, args.Error(1)
}

func (m *mockAPI) PayBooking(ctx context.Context, id string, method domain.PaymentMethod) (*client.PaymentResult, error) {
	args := m.Called(ctx, id, method)
	r, _ := args.Get(0).(*client.PaymentResult)
	return r, args.Error(1)
}

var anyArg = mock.Anything

func bk(id string, status domain.Status) domain.Booking {
	return domain.Booking{ID: id, Status: status, ServiceID: "svc", Date: "2026-11-02"}
}

func httpErr(status int, code, msg string) error {
	return &client.HTTPError{StatusCode: status, Code: code, Message: msg}
}

func TestLoad_ReplacesListAndClearsLoading(t *testing.T) {
	api := &mockAPI{}
	api.On("ListMyBookings", anyArg, domain.StatusPending).Return([]domain.Booking{bk("b1", domain.StatusPending)}, nil).Once()
	c := New(UserBookings, api)
	defer c.Close()

	require.NoError(t, c.Load(context.Background(), domain.StatusPending))
	s := c.Snapshot()
	assert.False(t, s.Loading)
	assert.True(t, s.Loaded)
	assert.Len(t, s.Bookings, 1)
	assert.Equal(t, domain.StatusPending, s.Filter)
	api.AssertExpectations(t)
}

func TestLoad_FailureClassification(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		kind     FailureKind
		redirect string
		retry    bool
	}{
		{"wrong role", httpErr(403, "", "Access denied"), FailWrongRole, "/dashboard", false},
		{"unauthenticated", httpErr(401, "", "expired"), FailUnauthenticated, "/login?next=%2Fprovider%2Fbookings", false},
		{"no token", httpErr(401, client.CodeNoToken, "not signed in"), FailUnauthenticated, "/login?next=%2Fprovider%2Fbookings", false},
		{"network", &client.HTTPError{Code: client.CodeNetwork, Message: "x"}, FailRetryable, "", true},
		{"server", httpErr(500, "", "boom"), FailRetryable, "", true},
		{"bad request", httpErr(400, "", "bad filter"), FailRetryable, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{}
			api.On("ListProviderBookings", anyArg, domain.Status("")).Return(nil, tt.err)
			c := New(ProviderBookings, api)
			defer c.Close()

			require.Error(t, c.Load(context.Background(), ""))
			s := c.Snapshot()
			require.NotNil(t, s.LoadErr)
			assert.Equal(t, tt.kind, s.LoadErr.Kind)
			assert.Equal(t, tt.redirect, s.LoadErr.Redirect)
			assert.Equal(t, tt.retry, s.LoadErr.Retry)
			assert.False(t, s.Loading, "loading cleared on error path")
		})
	}
}

func TestLoad_SuccessClearsError(t *testing.T) {
	api := &mockAPI{}
	api.On("ListPayableBookings", anyArg).Return(nil, httpErr(500, "", "boom")).Once()
	api.On("ListPayableBookings", anyArg).Return([]domain.Booking{
		bk("b1", domain.StatusConfirmed),
		{ID: "b2", Status: domain.StatusConfirmed, PaymentStatus: domain.PaymentPaid},
		bk("b3", domain.StatusPending),
	}, nil).Once()
	c := New(Payments, api)
	defer c.Close()

	require.Error(t, c.Load(context.Background(), ""))
	require.NoError(t, c.Reload(context.Background()))
	s := c.Snapshot()
	assert.Nil(t, s.LoadErr)
	require.Len(t, s.Bookings, 1, "payments keeps confirmed unpaid only")
	assert.Equal(t, "b1", s.Bookings[0].ID)
}

func TestLoad_Summary(t *testing.T) {
	api := &mockAPI{}
	api.On("GetProviderDashboardSummary", anyArg).Return(&domain.DashboardSummary{
		Counts:   domain.StatusCounts{Pending: 1, Total: 2},
		Upcoming: []domain.Booking{bk("b1", domain.StatusPending)},
		Recent:   []domain.Booking{bk("b1", domain.StatusPending), bk("b2", domain.StatusCompleted)},
	}, nil)
	c := New(ProviderSummary, api)
	defer c.Close()

	require.NoError(t, c.Load(context.Background(), ""))
	s := c.Snapshot()
	require.NotNil(t, s.Summary)
	assert.Equal(t, 2, s.Summary.Counts.Total)
	assert.Len(t, s.Bookings, 2)
	assert.Equal(t, []domain.Action{domain.ActionAccept, domain.ActionDecline}, c.Actions(s.Bookings[0]))
	assert.Empty(t, c.Actions(s.Bookings[1]))
}

func loaded(t *testing.T, kind Kind, api *mockAPI, list []domain.Booking, opts ...Option) *Controller {
	t.Helper()
	switch kind {
	case UserBookings:
		api.On("ListMyBookings", anyArg, anyArg).Return(list, nil)
	case ProviderBookings:
		api.On("ListProviderBookings", anyArg, anyArg).Return(list, nil)
	case Payments:
		api.On("ListPayableBookings", anyArg).Return(list, nil)
	}
	c := New(kind, api, opts...)
	t.Cleanup(c.Close)
	require.NoError(t, c.Load(context.Background(), ""))
	return c
}

func TestPrepare_Validation(t *testing.T) {
	api := &mockAPI{}
	user := loaded(t, UserBookings, api, []domain.Booking{
		bk("p", domain.StatusPending),
		bk("c", domain.StatusConfirmed),
		bk("done", domain.StatusCompleted),
	})

	_, err := user.Prepare(domain.ActionCancel, "p")
	assert.NoError(t, err)
	_, err = user.Prepare(domain.ActionCancel, "c")
	assert.NoError(t, err)
	_, err = user.Prepare(domain.ActionCancel, "done")
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = user.Prepare(domain.ActionAccept, "p")
	assert.ErrorIs(t, err, ErrNotAllowed, "user may not accept")
	_, err = user.Prepare(domain.ActionCancel, "missing")
	assert.ErrorIs(t, err, ErrUnknownBooking)
	_, err = user.Prepare(domain.ActionPay, "c")
	assert.ErrorIs(t, err, ErrInvalidMethod)
	_, err = user.PreparePay("c", "PAYPAL")
	assert.ErrorIs(t, err, ErrInvalidMethod)
	_, err = user.PreparePay("p", domain.PaymentCOD)
	assert.ErrorIs(t, err, ErrNotAllowed, "pay only from confirmed")
	_, err = user.PreparePay("c", domain.PaymentNagad)
	assert.NoError(t, err)

	prov := loaded(t, ProviderBookings, &mockAPI{}, []domain.Booking{bk("p", domain.StatusPending), bk("c", domain.StatusConfirmed)})
	_, err = prov.Prepare(domain.ActionComplete, "p")
	assert.ErrorIs(t, err, ErrNotAllowed)
	_, err = prov.Prepare(domain.ActionComplete, "c")
	assert.NoError(t, err)
	_, err = prov.Prepare(domain.ActionCancel, "p")
	assert.ErrorIs(t, err, ErrNotAllowed, "provider may not cancel")
}

func TestExecute_RequiresConfirmation(t *testing.T) {
	api := &mockAPI{}
	c := loaded(t, UserBookings, api, []domain.Booking{bk("b1", domain.StatusPending)})

	p, err := c.Prepare(domain.ActionCancel, "b1")
	require.NoError(t, err)
	assert.True(t, p.NeedsConfirmation())
	assert.Contains(t, p.Prompt(), "Cancel booking")

	_, err = c.Execute(context.Background(), p)
	assert.ErrorIs(t, err, ErrNotConfirmed)
	api.AssertNotCalled(t, "CancelBooking", anyArg, anyArg)
}

func TestExecute_AcceptNeedsNoConfirmation(t *testing.T) {
	api := &mockAPI{}
	c := loaded(t, ProviderBookings, api, []domain.Booking{bk("b1", domain.StatusPending)})
	api.On("UpdateProviderBookingStatus", anyArg, "b1", domain.StatusConfirmed).Return(&domain.Booking{}, nil)

	p, err := c.Prepare(domain.ActionAccept, "b1")
	require.NoError(t, err)
	assert.False(t, p.NeedsConfirmation())

	res, err := c.Execute(context.Background(), p)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Equal(t, "Booking accepted.", c.Snapshot().Notice.Text)
	api.AssertNumberOfCalls(t, "ListProviderBookings", 2)
}

func TestExecute_Failures(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		kind       FailureKind
		wantErr    bool
		reloads    int
		noticeErr  bool
		redirect   string
		noticeText string
	}{
		{"not owner reloads", httpErr(403, client.CodeUnauthorizedUser, "not yours"), FailNotOwner, true, 1, true, "", msgNotOwner},
		{"wrong role shows only", httpErr(403, "", "denied"), FailWrongRole, true, 0, true, "", msgWrongRoleAction},
		{"invalid status shows only", httpErr(400, client.CodeInvalidBookingStatus, "Cannot cancel a completed booking"), FailInvalidStatus, true, 0, true, "", "Cannot cancel a completed booking"},
		{"unauthenticated redirects", httpErr(401, "", "expired"), FailUnauthenticated, true, 0, true, "/login?next=%2Fbookings", msgUnauthenticated},
		{"server message", httpErr(422, "", "Too late to cancel"), FailServer, true, 0, true, "", "Too late to cancel"},
		{"network retryable", &client.HTTPError{Code: client.CodeNetwork, Message: "offline"}, FailRetryable, true, 0, true, "", msgNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &mockAPI{}
			c := loaded(t, UserBookings, api, []domain.Booking{bk("b1", domain.StatusConfirmed)})
			api.On("CancelBooking", anyArg, "b1").Return(nil, tt.err)

			p, err := c.Prepare(domain.ActionCancel, "b1")
			require.NoError(t, err)
			p.Confirm()
			res, err := c.Execute(context.Background(), p)

			assert.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.kind, res.Failure.Kind)
			assert.Equal(t, tt.redirect, res.Failure.Redirect)
			n := c.Snapshot().Notice
			assert.Equal(t, tt.noticeErr, n.Error)
			assert.Equal(t, tt.noticeText, n.Text)
			api.AssertNumberOfCalls(t, "ListMyBookings", 1+tt.reloads)
		})
	}
}

func TestExecute_AlreadyPaidIsSuccess(t *testing.T) {
	api := &mockAPI{}
	var recorded []string
	c := loaded(t, Payments, api, []domain.Booking{bk("b1", domain.StatusConfirmed)},
		WithRecorder(func(action, outcome string) { recorded = append(recorded, action+"/"+outcome) }))
	api.On("PayBooking", anyArg, "b1", domain.PaymentCOD).Return(nil, httpErr(409, client.CodeAlreadyPaid, "paid"))

	p, err := c.PreparePay("b1", domain.PaymentCOD)
	require.NoError(t, err)
	res, err := c.Execute(context.Background(), p)

	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.False(t, c.Snapshot().Notice.Error)
	api.AssertNumberOfCalls(t, "ListPayableBookings", 2)
	assert.Equal(t, []string{"pay/already_paid"}, recorded)
}

func TestExecute_PayCheckoutURL(t *testing.T) {
	api := &mockAPI{}
	c := loaded(t, UserBookings, api, []domain.Booking{bk("b1", domain.StatusConfirmed)})
	api.On("PayBooking", anyArg, "b1", domain.PaymentBkash).Return(&client.PaymentResult{CheckoutURL: "https://pay/1"}, nil)

	p, err := c.PreparePay("b1", domain.PaymentBkash)
	require.NoError(t, err)
	res, err := c.Execute(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, "https://pay/1", res.CheckoutURL)
}

func TestInFlightGuard(t *testing.T) {
	api := &mockAPI{}
	c := loaded(t, ProviderBookings, api, []domain.Booking{bk("b1", domain.StatusPending)})

	release := make(chan struct{})
	started := make(chan struct{})
	api.On("UpdateProviderBookingStatus", anyArg, "b1", domain.StatusConfirmed).
		Run(func(mock.Arguments) { close(started); <-release }).
		Return(&domain.Booking{}, nil).Once()

	first, err := c.Prepare(domain.ActionAccept, "b1")
	require.NoError(t, err)
	second, err := c.Prepare(domain.ActionAccept, "b1")
	require.NoError(t, err, "nothing in flight yet")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.Execute(context.Background(), first) //nolint:errcheck
	}()
	<-started

	assert.Equal(t, domain.ActionAccept, c.Snapshot().InFlight["b1"])
	_, err = c.Prepare(domain.ActionDecline, "b1")
	assert.ErrorIs(t, err, ErrInFlight)
	_, err = c.Execute(context.Background(), second)
	assert.ErrorIs(t, err, ErrInFlight)

	close(release)
	wg.Wait()
	assert.Empty(t, c.Snapshot().InFlight)
}

func TestClose_DiscardsLateResults(t *testing.T) {
	api := &mockAPI{}
	started := make(chan struct{})
	api.On("ListMyBookings", anyArg, anyArg).
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).
		Return([]domain.Booking{bk("late", domain.StatusPending)}, nil)
	c := New(UserBookings, api)

	errCh := make(chan error, 1)
	go func() { errCh <- c.Load(context.Background(), "") }()
	<-started
	c.Close()

	assert.ErrorIs(t, <-errCh, ErrClosed)
	assert.Empty(t, c.Snapshot().Bookings)
	assert.ErrorIs(t, c.Load(context.Background(), ""), ErrClosed)
	_, err := c.Prepare(domain.ActionCancel, "late")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestLoad_StaleResponseIsDropped(t *testing.T) {
	api := &mockAPI{}
	started := make(chan struct{})
	release := make(chan struct{})
	api.On("ListMyBookings", anyArg, domain.StatusPending).
		Run(func(mock.Arguments) { close(started); <-release }).
		Return([]domain.Booking{bk("p1", domain.StatusPending)}, nil).Once()
	api.On("ListMyBookings", anyArg, domain.StatusConfirmed).
		Return([]domain.Booking{bk("c1", domain.StatusConfirmed)}, nil).Once()
	c := New(UserBookings, api)
	defer c.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Load(context.Background(), domain.StatusPending) }()
	<-started

	require.NoError(t, c.Load(context.Background(), domain.StatusConfirmed))
	close(release)
	assert.ErrorIs(t, <-errCh, ErrSuperseded)

	s := c.Snapshot()
	assert.Equal(t, domain.StatusConfirmed, s.Filter)
	require.Len(t, s.Bookings, 1)
	assert.Equal(t, "c1", s.Bookings[0].ID)
	assert.Nil(t, s.LoadErr)
	assert.False(t, s.Loading)
}

func TestLoad_NewLoadCancelsPrevious(t *testing.T) {
	api := &mockAPI{}
	started := make(chan struct{})
	api.On("ListMyBookings", anyArg, domain.StatusPending).
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).Once()
	api.On("ListMyBookings", anyArg, domain.StatusCompleted).Return([]domain.Booking{}, nil).Once()
	c := New(UserBookings, api)
	defer c.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- c.Load(context.Background(), domain.StatusPending) }()
	<-started

	require.NoError(t, c.Load(context.Background(), domain.StatusCompleted))
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("previous load was not cancelled")
	}
	assert.Nil(t, c.Snapshot().LoadErr)
}

func TestBus_InvalidatesOtherControllers(t *testing.T) {
	bus := events.NewBus()
	userAPI := &mockAPI{}
	provAPI := &mockAPI{}
	var notified atomic.Int32

	user := loaded(t, UserBookings, userAPI, []domain.Booking{bk("b1", domain.StatusPending)}, WithBus(bus))
	loaded(t, ProviderBookings, provAPI, []domain.Booking{bk("b1", domain.StatusPending)},
		WithBus(bus), WithNotify(func() { notified.Add(1) }))
	summaryAPI := &mockAPI{}
	summaryAPI.On("GetProviderDashboardSummary", anyArg).Return(&domain.DashboardSummary{}, nil)
	summary := New(ProviderSummary, summaryAPI, WithBus(bus))
	t.Cleanup(summary.Close)

	userAPI.On("CancelBooking", anyArg, "b1").Return(&domain.Booking{}, nil)
	p, err := user.Prepare(domain.ActionCancel, "b1")
	require.NoError(t, err)
	p.Confirm()
	_, err = user.Execute(context.Background(), p)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return notified.Load() == 1 }, time.Second, 5*time.Millisecond)
	provAPI.AssertNumberOfCalls(t, "ListProviderBookings", 2)
	// The publisher reloads once, not again from its own event.
	userAPI.AssertNumberOfCalls(t, "ListMyBookings", 2)
	require.Eventually(t, func() bool { return summary.Snapshot().Loaded }, time.Second, 5*time.Millisecond)
}

func TestBus_SummaryListensForDashboardRefresh(t *testing.T) {
	bus := events.NewBus()
	api := &mockAPI{}
	api.On("GetProviderDashboardSummary", anyArg).Return(&domain.DashboardSummary{}, nil)
	done := make(chan struct{}, 1)
	c := New(ProviderSummary, api, WithBus(bus), WithNotify(func() { done <- struct{}{} }))
	defer c.Close()

	bus.Publish(events.Event{Type: events.DashboardRefresh})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("summary did not reload")
	}
	assert.True(t, c.Snapshot().Loaded)

	c.Close()
	assert.Equal(t, 0, bus.Subscribers(events.DashboardRefresh))
}

func TestClearNotice(t *testing.T) {
	api := &mockAPI{}
	c := loaded(t, ProviderBookings, api, []domain.Booking{bk("b1", domain.StatusPending), bk("b2", domain.StatusPending)})
	api.On("UpdateProviderBookingStatus", anyArg, anyArg, anyArg).Return(&domain.Booking{}, nil)

	p1, _ := c.Prepare(domain.ActionAccept, "b1")
	c.Execute(context.Background(), p1) //nolint:errcheck
	seq1 := c.Snapshot().Notice.Seq
	p2, _ := c.Prepare(domain.ActionAccept, "b2")
	c.Execute(context.Background(), p2) //nolint:errcheck

	c.ClearNotice(seq1)
	assert.NotEmpty(t, c.Snapshot().Notice.Text, "stale clear leaves newer notice")
	c.ClearNotice(c.Snapshot().Notice.Seq)
	assert.Empty(t, c.Snapshot().Notice.Text)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, FailNone, Classify(nil, PhaseAction).Kind)
	assert.Equal(t, FailWrongRole, Classify(httpErr(http.StatusForbidden, client.CodeUnauthorizedUser, ""), PhaseLoad).Kind,
		"any 403 on load is a role problem")
	assert.Equal(t, FailNotOwner, Classify(httpErr(http.StatusForbidden, client.CodeUnauthorizedUser, ""), PhaseAction).Kind)
	assert.True(t, Classify(httpErr(409, client.CodeAlreadyPaid, ""), PhaseAction).Success())
	assert.Equal(t, FailRetryable, Classify(context.DeadlineExceeded, PhaseAction).Kind)
}
