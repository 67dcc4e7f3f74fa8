package booking

import (
	"net/http"

	"github.com/naveenspark/handyhub/pkg/client"
)

// Phase distinguishes load failures from action failures; 403 means
// different things in each.
type Phase int

const (
	PhaseLoad Phase = iota
	PhaseAction
)

// FailureKind is the normalized reason a load or action did not succeed.
type FailureKind int

const (
	FailNone FailureKind = iota
	// FailUnauthenticated: 401. Redirect to login.
	FailUnauthenticated
	// FailWrongRole: 403 on load, or 403 without code on an action.
	FailWrongRole
	// FailNotOwner: 403 UNAUTHORIZED_USER on an action. Reload.
	FailNotOwner
	// FailInvalidStatus: 400 INVALID_BOOKING_STATUS. Show only.
	FailInvalidStatus
	// FailAlreadyPaid: treated as success.
	FailAlreadyPaid
	// FailRetryable: transport failures and 5xx.
	FailRetryable
	// FailServer: any other server refusal.
	FailServer
)

func (k FailureKind) String() string {
	switch k {
	case FailNone:
		return "none"
	case FailUnauthenticated:
		return "unauthenticated"
	case FailWrongRole:
		return "wrong_role"
	case FailNotOwner:
		return "not_owner"
	case FailInvalidStatus:
		return "invalid_status"
	case FailAlreadyPaid:
		return "already_paid"
	case FailRetryable:
		return "retryable"
	}
	return "server"
}

// Failure is the classified form of an error.
type Failure struct {
	Kind    FailureKind
	Message string
	// Reload is set when local state is known to be stale.
	Reload bool
	// Retry is set when repeating the same request may succeed.
	Retry bool
	// Redirect is the route to navigate to, if any.
	Redirect string
	Err      error
}

// Success reports whether the outcome should be treated as a success.
func (f Failure) Success() bool {
	return f.Kind == FailNone || f.Kind == FailAlreadyPaid
}

const (
	msgWrongRoleLoad   = "This page is not available for your account type."
	msgWrongRoleAction = "Your account type cannot perform this action."
	msgNotOwner        = "This booking does not belong to your account. Refreshing the list."
	msgUnauthenticated = "Your session has ended. Please sign in again."
	msgNetwork         = "Network error. Check your connection and retry."
	msgAlreadyPaid     = "This booking was already paid."
)

// Classify maps err to a Failure. The redirect target for login is left to
// the caller, which knows the current path.
func Classify(err error, phase Phase) Failure {
	if err == nil {
		return Failure{Kind: FailNone}
	}
	httpErr, ok := client.AsHTTPError(err)
	if !ok {
		return Failure{Kind: FailRetryable, Message: err.Error(), Retry: true, Err: err}
	}
	f := Failure{Err: err, Message: httpErr.Message}

	switch {
	case httpErr.Code == client.CodeAlreadyPaid:
		f.Kind = FailAlreadyPaid
		f.Message = msgAlreadyPaid
		f.Reload = true
	case httpErr.StatusCode == http.StatusUnauthorized:
		f.Kind = FailUnauthenticated
		f.Message = msgUnauthenticated
	case httpErr.StatusCode == http.StatusForbidden && phase == PhaseLoad:
		f.Kind = FailWrongRole
		f.Message = msgWrongRoleLoad
	case httpErr.StatusCode == http.StatusForbidden && httpErr.Code == client.CodeUnauthorizedUser:
		f.Kind = FailNotOwner
		f.Message = msgNotOwner
		f.Reload = true
	case httpErr.StatusCode == http.StatusForbidden:
		f.Kind = FailWrongRole
		f.Message = msgWrongRoleAction
	case httpErr.StatusCode == http.StatusBadRequest && httpErr.Code == client.CodeInvalidBookingStatus:
		f.Kind = FailInvalidStatus
	case httpErr.StatusCode == 0 || httpErr.StatusCode >= 500:
		f.Kind = FailRetryable
		f.Retry = true
		if httpErr.StatusCode == 0 {
			f.Message = msgNetwork
		}
	default:
		f.Kind = FailServer
	}
	if phase == PhaseLoad && f.Kind == FailServer {
		f.Kind = FailRetryable
		f.Retry = true
	}
	if f.Message == "" {
		f.Message = http.StatusText(httpErr.StatusCode)
	}
	return f
}
