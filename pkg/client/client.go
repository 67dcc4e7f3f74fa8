package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/naveenspark/handyhub/pkg/domain"
)

// TokenSource supplies the bearer token for authenticated calls.
// An empty token means no session.
type TokenSource interface {
	Token() string
}

// StaticToken is a fixed TokenSource.
type StaticToken string

// Token returns the fixed token.
func (t StaticToken) Token() string { return string(t) }

// Observer is notified once per completed call with the endpoint name and the
// resulting status (0 for transport failures).
type Observer func(endpoint string, status int)

// Client is the marketplace API client.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     zerolog.Logger
	observe    Observer

	redis    *redis.Client
	cacheTTL time.Duration
}

// New creates a new API client. tokens may be nil for anonymous use.
func New(baseURL string, tokens TokenSource) *Client {
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: zerolog.Nop(),
	}
}

// SetTimeout overrides the per-request timeout.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// UseLogger attaches a logger for per-request debug lines.
func (c *Client) UseLogger(l zerolog.Logger) {
	c.logger = l.With().Str("component", "client").Logger()
}

// UseObserver installs a per-call hook, used for request metrics.
func (c *Client) UseObserver(o Observer) {
	c.observe = o
}

// UseRedisCache configures optional Redis caching for the public services catalog.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// --- Auth ---

// AuthResponse is returned by login and registration.
type AuthResponse struct {
	Token   string       `json:"token"`
	User    *domain.User `json:"user"`
	Message string       `json:"message,omitempty"`
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Phone    string      `json:"phone,omitempty"`
	Role     domain.Role `json:"role"`
}

// Login exchanges credentials for a token and profile.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, call{name: "auth.login", method: http.MethodPost, path: "/api/auth/login", body: body, out: &resp}); err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	return &resp, nil
}

// Register creates an account. The response carries a session when the
// backend confirms registration immediately.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.do(ctx, call{name: "auth.register", method: http.MethodPost, path: "/api/auth/register", body: req, out: &resp}); err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	return &resp, nil
}

// GetMe returns the profile of the token's owner.
func (c *Client) GetMe(ctx context.Context) (*domain.User, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "auth.me", "/api/auth/me", &raw); err != nil {
		return nil, fmt.Errorf("client.GetMe: %w", err)
	}
	var wrapped struct {
		User *domain.User `json:"user"`
	}
	if json.Unmarshal(raw, &wrapped) == nil && wrapped.User != nil {
		return wrapped.User, nil
	}
	var u domain.User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("client.GetMe: decode user: %w", err)
	}
	return &u, nil
}

// --- Bookings ---

// CreateBookingRequest requests a service. ProviderID empty leaves assignment to the backend.
type CreateBookingRequest struct {
	ServiceID  string `json:"serviceId"`
	Date       string `json:"date"`
	TimeSlot   string `json:"timeSlot"`
	Area       string `json:"area"`
	ProviderID string `json:"providerId,omitempty"`
	Notes      string `json:"notes,omitempty"`
}

// ListMyBookings returns the caller's bookings, optionally filtered by status.
func (c *Client) ListMyBookings(ctx context.Context, status domain.Status) ([]domain.Booking, error) {
	var list bookingList
	if err := c.get(ctx, "bookings.my", withStatus("/api/bookings/my", status), &list); err != nil {
		return nil, fmt.Errorf("client.ListMyBookings: %w", err)
	}
	return list, nil
}

// CreateBooking submits a new booking request.
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	var b bookingEnvelope
	if err := c.authed(ctx, "bookings.create", http.MethodPost, "/api/bookings", req, &b); err != nil {
		return nil, fmt.Errorf("client.CreateBooking: %w", err)
	}
	return b.value(), nil
}

// CancelBooking asks the server to cancel one of the caller's bookings.
func (c *Client) CancelBooking(ctx context.Context, id string) (*domain.Booking, error) {
	var b bookingEnvelope
	if err := c.authed(ctx, "bookings.cancel", http.MethodPatch, "/api/bookings/"+url.PathEscape(id)+"/cancel", nil, &b); err != nil {
		return nil, fmt.Errorf("client.CancelBooking: %w", err)
	}
	return b.value(), nil
}

// --- Provider ---

// ListProviderBookings returns bookings assigned to the calling provider.
func (c *Client) ListProviderBookings(ctx context.Context, status domain.Status) ([]domain.Booking, error) {
	var list bookingList
	if err := c.get(ctx, "provider.bookings", withStatus("/api/provider/bookings", status), &list); err != nil {
		return nil, fmt.Errorf("client.ListProviderBookings: %w", err)
	}
	return list, nil
}

// UpdateProviderBookingStatus requests a provider-side status transition.
func (c *Client) UpdateProviderBookingStatus(ctx context.Context, id string, status domain.Status) (*domain.Booking, error) {
	var b bookingEnvelope
	body := map[string]domain.Status{"status": status}
	if err := c.authed(ctx, "provider.bookings.status", http.MethodPatch, "/api/provider/bookings/"+url.PathEscape(id)+"/status", body, &b); err != nil {
		return nil, fmt.Errorf("client.UpdateProviderBookingStatus: %w", err)
	}
	return b.value(), nil
}

// GetProviderDashboardSummary returns aggregated counts plus upcoming and recent bookings.
func (c *Client) GetProviderDashboardSummary(ctx context.Context) (*domain.DashboardSummary, error) {
	var s domain.DashboardSummary
	if err := c.get(ctx, "provider.dashboard", "/api/provider/dashboard/summary", &s); err != nil {
		return nil, fmt.Errorf("client.GetProviderDashboardSummary: %w", err)
	}
	return &s, nil
}

// VerificationRequest is the provider onboarding form.
type VerificationRequest struct {
	Bio         string   `json:"bio"`
	Areas       []string `json:"areas"`
	Services    []string `json:"services,omitempty"`
	NationalID  string   `json:"nationalId"`
	DocumentURL string   `json:"documentUrl,omitempty"`
}

// GetProviderProfile returns the provider profile. A provider who has not
// onboarded yet gets an empty UNVERIFIED profile instead of a 404.
func (c *Client) GetProviderProfile(ctx context.Context) (*domain.ProviderProfile, error) {
	var p domain.ProviderProfile
	if err := c.get(ctx, "provider.profile", "/api/provider/profile", &p); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return domain.EmptyProviderProfile(), nil
		}
		return nil, fmt.Errorf("client.GetProviderProfile: %w", err)
	}
	if p.VerificationStatus == "" {
		p.VerificationStatus = domain.VerificationUnverified
	}
	return &p, nil
}

// SubmitVerification files the provider's verification details.
func (c *Client) SubmitVerification(ctx context.Context, req VerificationRequest) (*domain.ProviderProfile, error) {
	var p domain.ProviderProfile
	if err := c.authed(ctx, "provider.verification", http.MethodPost, "/api/provider/verification", req, &p); err != nil {
		return nil, fmt.Errorf("client.SubmitVerification: %w", err)
	}
	return &p, nil
}

// --- Payments ---

// PaymentResult is the response to a payment submission. CheckoutURL is set
// for e-wallet methods that need an external confirmation step.
type PaymentResult struct {
	Booking       *domain.Booking `json:"booking,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	CheckoutURL   string          `json:"checkoutUrl,omitempty"`
	Message       string          `json:"message,omitempty"`
}

// ListPayableBookings returns the caller's confirmed, unpaid bookings.
func (c *Client) ListPayableBookings(ctx context.Context) ([]domain.Booking, error) {
	var list bookingList
	if err := c.get(ctx, "payments.me", "/api/payments/me", &list); err != nil {
		return nil, fmt.Errorf("client.ListPayableBookings: %w", err)
	}
	return list, nil
}

// PayBooking submits payment for a booking with the given method.
func (c *Client) PayBooking(ctx context.Context, bookingID string, method domain.PaymentMethod) (*PaymentResult, error) {
	var res PaymentResult
	body := map[string]domain.PaymentMethod{"method": method}
	if err := c.authed(ctx, "payments.pay", http.MethodPost, "/api/payments/"+url.PathEscape(bookingID)+"/pay", body, &res); err != nil {
		return nil, fmt.Errorf("client.PayBooking: %w", err)
	}
	return &res, nil
}

// --- Catalog ---

// ListServices returns the public services catalog, served from Redis when cached.
func (c *Client) ListServices(ctx context.Context) ([]domain.Service, error) {
	const cacheKey = "handyhub:services"
	var services []domain.Service
	if c.readCache(ctx, cacheKey, &services) {
		return services, nil
	}
	var wrap serviceList
	if err := c.do(ctx, call{name: "services.list", method: http.MethodGet, path: "/api/services", out: &wrap}); err != nil {
		return nil, fmt.Errorf("client.ListServices: %w", err)
	}
	c.writeCache(ctx, cacheKey, []domain.Service(wrap))
	return wrap, nil
}

// --- Contact ---

// ContactRequest is a message to the marketplace support team.
type ContactRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// CreateContactMessage sends a support message. It requires a session.
func (c *Client) CreateContactMessage(ctx context.Context, req ContactRequest) error {
	if err := c.authed(ctx, "contact.create", http.MethodPost, "/api/contact", req, nil); err != nil {
		return fmt.Errorf("client.CreateContactMessage: %w", err)
	}
	return nil
}

// --- transport ---

type call struct {
	name   string // metrics label
	method string
	path   string
	auth   bool
	body   any
	out    any
}

func (c *Client) get(ctx context.Context, name, path string, out any) error {
	return c.do(ctx, call{name: name, method: http.MethodGet, path: path, auth: true, out: out})
}

func (c *Client) authed(ctx context.Context, name, method, path string, body, out any) error {
	return c.do(ctx, call{name: name, method: method, path: path, auth: true, body: body, out: out})
}

func (c *Client) do(ctx context.Context, cl call) error {
	status, err := c.doRequest(ctx, cl)
	if c.observe != nil {
		c.observe(cl.name, status)
	}
	return err
}

func (c *Client) doRequest(ctx context.Context, cl call) (int, error) {
	token := c.tokens.Token()
	if cl.auth && token == "" {
		// No session: fail locally rather than spend a round trip on a certain 401.
		return http.StatusUnauthorized, &HTTPError{StatusCode: http.StatusUnauthorized, Code: CodeNoToken, Message: "not signed in"}
	}

	var reqBody io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return 0, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, reqBody)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.auth {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("endpoint", cl.name).Str("request_id", requestID).Msg("request failed")
		return 0, &HTTPError{Code: CodeNetwork, Message: "network error, check your connection", Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	c.logger.Debug().
		Str("endpoint", cl.name).
		Str("method", cl.method).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Str("request_id", requestID).
		Msg("request")

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20)) // 4 MB max body
	if err != nil {
		return resp.StatusCode, &HTTPError{StatusCode: resp.StatusCode, Code: CodeNetwork, Message: fmt.Sprintf("failed to read body: %v", err), Err: err}
	}

	if resp.StatusCode >= 300 {
		return resp.StatusCode, parseError(resp.StatusCode, respBody)
	}

	if cl.out != nil && len(bytes.TrimSpace(respBody)) > 0 {
		if err := decodeEnvelope(respBody, cl.out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func withStatus(path string, status domain.Status) string {
	if status == "" {
		return path
	}
	params := url.Values{}
	params.Set("status", string(status))
	return path + "?" + params.Encode()
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
