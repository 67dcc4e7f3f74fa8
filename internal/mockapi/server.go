// Package mockapi is an in-memory marketplace backend implementing the REST
// contract the client speaks. It enforces the booking transition table and
// is used by end-to-end tests and cmd/mockapi.
package mockapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/naveenspark/handyhub/pkg/domain"
)

// Server is the mock backend.
type Server struct {
	store  *store
	secret []byte
	logger zerolog.Logger
	engine *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger logs one line per request.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSecret sets the HS256 signing key.
func WithSecret(secret string) Option {
	return func(s *Server) { s.secret = []byte(secret) }
}

// WithDemoData seeds the catalog and two demo accounts.
func WithDemoData() Option {
	return func(s *Server) { s.store.seedDemo() }
}

// New builds the server and its routes.
func New(opts ...Option) *Server {
	s := &Server{
		store:  newStore(),
		secret: []byte("handyhub-mock-secret"),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api")
	api.GET("/services", s.listServices)

	auth := api.Group("/auth")
	auth.POST("/register", s.register)
	auth.POST("/login", s.login)
	auth.GET("/me", s.requireAuth(), s.me)

	authed := api.Group("", s.requireAuth())
	authed.POST("/contact", s.createContact)

	user := authed.Group("", s.requireRole(domain.RoleUser))
	user.POST("/bookings", s.createBooking)
	user.GET("/bookings/my", s.myBookings)
	user.PATCH("/bookings/:id/cancel", s.cancelBooking)
	user.GET("/payments/me", s.payableBookings)
	user.POST("/payments/:id/pay", s.payBooking)

	provider := authed.Group("/provider", s.requireRole(domain.RoleProvider))
	provider.GET("/bookings", s.providerBookings)
	provider.PATCH("/bookings/:id/status", s.updateStatus)
	provider.GET("/dashboard/summary", s.dashboardSummary)
	provider.GET("/profile", s.providerProfile)
	provider.POST("/verification", s.submitVerification)

	s.engine = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.engine.ServeHTTP(w, r)
}

// AddUser creates an account and returns it with a signed token.
func (s *Server) AddUser(u domain.User, password string) (domain.User, string, error) {
	created, ok := s.store.addAccount(u, password)
	if !ok {
		return domain.User{}, "", fmt.Errorf("mockapi.AddUser: email %q already registered", u.Email)
	}
	tok, err := s.issueToken(created)
	if err != nil {
		return domain.User{}, "", err
	}
	return created, tok, nil
}

// AddService adds a catalog entry.
func (s *Server) AddService(svc domain.Service) domain.Service {
	return s.store.addService(svc)
}

// AddBooking inserts a booking as-is, for test fixtures.
func (s *Server) AddBooking(b domain.Booking) domain.Booking {
	return s.store.putBooking(b)
}

// Booking returns the stored booking.
func (s *Server) Booking(id string) (domain.Booking, bool) {
	list := s.store.bookingsWhere(func(b *domain.Booking) bool { return b.ID == id })
	if len(list) == 0 {
		return domain.Booking{}, false
	}
	return list[0], true
}

type claims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(u domain.User) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(24 * time.Hour)),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("mockapi: sign token: %w", err)
	}
	return signed, nil
}

const ctxUser = "user"

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString := strings.TrimPrefix(header, "Bearer ")
		if header == "" || tokenString == header {
			abort(c, errUnauthorized("Authorization header required"))
			return
		}
		var cl claims
		_, err := jwt.ParseWithClaims(tokenString, &cl, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			abort(c, errUnauthorized("Token is invalid or expired"))
			return
		}
		u, ok := s.store.user(cl.Subject)
		if !ok {
			abort(c, errUnauthorized("User not found"))
			return
		}
		c.Set(ctxUser, u)
		c.Next()
	}
}

func (s *Server) requireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentUser(c).Role != role {
			abort(c, errForbidden("Access denied for this account type", ""))
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.User {
	v, _ := c.Get(ctxUser)
	u, _ := v.(domain.User)
	return u
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Str("request_id", c.GetHeader("X-Request-ID")).
			Msg("request")
	}
}

// apiError is the error envelope {message, errors?, code?}.
type apiError struct {
	status  int
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func abort(c *gin.Context, e *apiError) {
	c.AbortWithStatusJSON(e.status, e)
}

func errUnauthorized(msg string) *apiError {
	return &apiError{status: http.StatusUnauthorized, Message: msg}
}

func errForbidden(msg, code string) *apiError {
	return &apiError{status: http.StatusForbidden, Message: msg, Code: code}
}

func errNotFound(msg string) *apiError {
	return &apiError{status: http.StatusNotFound, Message: msg}
}

func errBadRequest(msg, code string) *apiError {
	return &apiError{status: http.StatusBadRequest, Message: msg, Code: code}
}

func errValidation(fields map[string]string) *apiError {
	return &apiError{status: http.StatusBadRequest, Message: "Validation failed", Errors: fields}
}
