package mockapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/naveenspark/handyhub/pkg/client"
	"github.com/naveenspark/handyhub/pkg/domain"
)

// --- auth ---

type registerRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Phone    string      `json:"phone"`
	Role     domain.Role `json:"role"`
}

func (s *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errBadRequest(err.Error(), ""))
		return
	}
	fields := map[string]string{}
	if strings.TrimSpace(req.Name) == "" {
		fields["name"] = "Name is required"
	}
	if !strings.Contains(req.Email, "@") {
		fields["email"] = "A valid email is required"
	}
	if len(req.Password) < 6 {
		fields["password"] = "Password must be at least 6 characters"
	}
	if req.Role == "" {
		req.Role = domain.RoleUser
	}
	if !req.Role.Valid() {
		fields["role"] = "Role must be user or provider"
	}
	if len(fields) > 0 {
		abort(c, errValidation(fields))
		return
	}

	u, tok, err := s.AddUser(domain.User{Name: req.Name, Email: req.Email, Phone: req.Phone, Role: req.Role}, req.Password)
	if err != nil {
		abort(c, errValidation(map[string]string{"email": "Email is already registered"}))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": tok, "user": u, "message": "Registration successful"})
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errBadRequest(err.Error(), ""))
		return
	}
	u, ok := s.store.authenticate(req.Email, req.Password)
	if !ok {
		abort(c, errUnauthorized("Invalid email or password"))
		return
	}
	tok, err := s.issueToken(u)
	if err != nil {
		abort(c, &apiError{status: http.StatusInternalServerError, Message: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": tok, "user": u})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": currentUser(c)})
}

// --- catalog ---

func (s *Server) listServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"services": s.store.listServices()})
}

// --- user bookings ---

type createBookingRequest struct {
	ServiceID  string `json:"serviceId"`
	Date       string `json:"date"`
	TimeSlot   string `json:"timeSlot"`
	Area       string `json:"area"`
	ProviderID string `json:"providerId"`
}

func (s *Server) createBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errBadRequest(err.Error(), ""))
		return
	}
	fields := map[string]string{}
	if !s.hasService(req.ServiceID) {
		fields["serviceId"] = "Unknown service"
	}
	if req.Date == "" {
		fields["date"] = "Date is required"
	}
	if !domain.ValidTimeSlot(req.TimeSlot) {
		fields["timeSlot"] = "Pick one of the offered time slots"
	}
	if strings.TrimSpace(req.Area) == "" {
		fields["area"] = "Area is required"
	}
	if len(fields) > 0 {
		abort(c, errValidation(fields))
		return
	}

	providerID := req.ProviderID
	if providerID == "" {
		s.store.mu.Lock()
		providerID = s.store.firstProvider()
		s.store.mu.Unlock()
	}
	b := domain.Booking{
		UserID:    currentUser(c).ID,
		ServiceID: req.ServiceID,
		Date:      req.Date,
		TimeSlot:  req.TimeSlot,
		Area:      req.Area,
	}
	if providerID != "" {
		b.ProviderID = &providerID
	}
	c.JSON(http.StatusCreated, gin.H{"booking": s.store.putBooking(b)})
}

func (s *Server) hasService(id string) bool {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	_, ok := s.store.service(id)
	return ok
}

func statusFilter(c *gin.Context) (domain.Status, *apiError) {
	status := domain.Status(strings.ToUpper(c.Query("status")))
	if status != "" && !domain.ValidStatus(status) {
		return "", errBadRequest("Unknown status filter", "")
	}
	return status, nil
}

func (s *Server) myBookings(c *gin.Context) {
	status, apiErr := statusFilter(c)
	if apiErr != nil {
		abort(c, apiErr)
		return
	}
	uid := currentUser(c).ID
	list := s.store.bookingsWhere(func(b *domain.Booking) bool {
		return b.UserID == uid && (status == "" || b.Status == status)
	})
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}

func (s *Server) cancelBooking(c *gin.Context) {
	uid := currentUser(c).ID
	b, apiErr := s.store.mutate(c.Param("id"), func(b *domain.Booking) *apiError {
		if b.UserID != uid {
			return errForbidden("You can only cancel your own bookings", client.CodeUnauthorizedUser)
		}
		return s.transition(b, domain.RoleUser, domain.ActionCancel)
	})
	if apiErr != nil {
		abort(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b, "message": "Booking cancelled"})
}

// --- provider ---

func (s *Server) providerBookings(c *gin.Context) {
	status, apiErr := statusFilter(c)
	if apiErr != nil {
		abort(c, apiErr)
		return
	}
	pid := currentUser(c).ID
	list := s.store.bookingsWhere(func(b *domain.Booking) bool {
		return b.Assigned() && *b.ProviderID == pid && (status == "" || b.Status == status)
	})
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}

func (s *Server) updateStatus(c *gin.Context) {
	var req struct {
		Status domain.Status `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errBadRequest(err.Error(), ""))
		return
	}
	action, ok := providerAction(req.Status)
	if !ok {
		abort(c, errBadRequest("Providers may only set CONFIRMED, DECLINED or COMPLETED", client.CodeInvalidBookingStatus))
		return
	}
	pid := currentUser(c).ID
	b, apiErr := s.store.mutate(c.Param("id"), func(b *domain.Booking) *apiError {
		if !b.Assigned() || *b.ProviderID != pid {
			return errForbidden("This booking is not assigned to you", client.CodeUnauthorizedUser)
		}
		return s.transition(b, domain.RoleProvider, action)
	})
	if apiErr != nil {
		abort(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": b})
}

func providerAction(status domain.Status) (domain.Action, bool) {
	for _, a := range []domain.Action{domain.ActionAccept, domain.ActionDecline, domain.ActionComplete} {
		if to, _ := domain.ProviderStatusFor(a); to == status {
			return a, true
		}
	}
	return "", false
}

func (s *Server) dashboardSummary(c *gin.Context) {
	pid := currentUser(c).ID
	all := s.store.bookingsWhere(func(b *domain.Booking) bool {
		return b.Assigned() && *b.ProviderID == pid
	})
	summary := domain.DashboardSummary{Counts: domain.CountBookings(all), Upcoming: []domain.Booking{}, Recent: []domain.Booking{}}
	for _, b := range all {
		if !b.Status.Terminal() {
			summary.Upcoming = append(summary.Upcoming, b)
		}
	}
	for i := 0; i < len(all) && i < 5; i++ {
		summary.Recent = append(summary.Recent, all[i])
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) providerProfile(c *gin.Context) {
	p, ok := s.store.profile(currentUser(c).ID)
	if !ok {
		abort(c, errNotFound("Provider profile not found"))
		return
	}
	c.JSON(http.StatusOK, p)
}

type verificationRequest struct {
	Bio         string   `json:"bio"`
	Areas       []string `json:"areas"`
	Services    []string `json:"services"`
	NationalID  string   `json:"nationalId"`
	DocumentURL string   `json:"documentUrl"`
}

func (s *Server) submitVerification(c *gin.Context) {
	var req verificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errBadRequest(err.Error(), ""))
		return
	}
	fields := map[string]string{}
	if len(req.Areas) == 0 {
		fields["areas"] = "At least one service area is required"
	}
	if strings.TrimSpace(req.NationalID) == "" {
		fields["nationalId"] = "National ID is required"
	}
	if len(fields) > 0 {
		abort(c, errValidation(fields))
		return
	}
	pid := currentUser(c).ID
	if existing, ok := s.store.profile(pid); ok && !existing.CanSubmitVerification() {
		abort(c, errBadRequest("Verification is already "+strings.ToLower(string(existing.VerificationStatus)), ""))
		return
	}
	p := s.store.putProfile(domain.ProviderProfile{
		UserID:             pid,
		Bio:                req.Bio,
		Areas:              req.Areas,
		Services:           req.Services,
		NationalID:         req.NationalID,
		DocumentURL:        req.DocumentURL,
		VerificationStatus: domain.VerificationPending,
	})
	c.JSON(http.StatusCreated, p)
}

// --- payments ---

func (s *Server) payableBookings(c *gin.Context) {
	uid := currentUser(c).ID
	list := s.store.bookingsWhere(func(b *domain.Booking) bool {
		return b.UserID == uid && b.Payable()
	})
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}

func (s *Server) payBooking(c *gin.Context) {
	var req struct {
		Method domain.PaymentMethod `json:"method"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errBadRequest(err.Error(), ""))
		return
	}
	if !domain.ValidPaymentMethod(req.Method) {
		abort(c, errValidation(map[string]string{"method": "Unsupported payment method"}))
		return
	}
	uid := currentUser(c).ID
	b, apiErr := s.store.mutate(c.Param("id"), func(b *domain.Booking) *apiError {
		if b.UserID != uid {
			return errForbidden("You can only pay for your own bookings", client.CodeUnauthorizedUser)
		}
		if b.Paid() {
			return &apiError{status: http.StatusConflict, Message: "Booking is already paid", Code: client.CodeAlreadyPaid}
		}
		if b.Status != domain.StatusConfirmed {
			return errBadRequest("Only confirmed bookings can be paid", client.CodeInvalidBookingStatus)
		}
		now := s.store.now().UTC()
		b.PaymentStatus = domain.PaymentPaid
		b.PaymentMethod = req.Method
		b.PaidAt = &now
		return nil
	})
	if apiErr != nil {
		abort(c, apiErr)
		return
	}
	resp := gin.H{"booking": b, "transactionId": uuid.NewString()}
	if req.Method.EWallet() {
		resp["checkoutUrl"] = "https://checkout.handyhub.test/" + strings.ToLower(string(req.Method)) + "/" + b.ID
	}
	c.JSON(http.StatusOK, resp)
}

// --- contact ---

func (s *Server) createContact(c *gin.Context) {
	var req struct {
		Subject string `json:"subject"`
		Message string `json:"message"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errBadRequest(err.Error(), ""))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		abort(c, errValidation(map[string]string{"message": "Message is required"}))
		return
	}
	s.store.addContact(contactMessage{UserID: currentUser(c).ID, Subject: req.Subject, Message: req.Message})
	c.JSON(http.StatusCreated, gin.H{"message": "Thanks, we will get back to you"})
}

// --- lifecycle ---

// transition applies action by actor to b per the lifecycle table.
func (s *Server) transition(b *domain.Booking, actor domain.Role, action domain.Action) *apiError {
	to, ok := domain.NextStatus(b.Status, actor, action)
	if !ok {
		return errBadRequest("Cannot "+string(action)+" a booking that is "+strings.ToLower(string(b.Status)), client.CodeInvalidBookingStatus)
	}
	b.Status = to
	return nil
}
