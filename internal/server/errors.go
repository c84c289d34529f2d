package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/tradesettle/internal/audit/domain"
	burdendomain "github.com/smallbiznis/tradesettle/internal/burden/domain"
	commissiondomain "github.com/smallbiznis/tradesettle/internal/commission/domain"
	customerdomain "github.com/smallbiznis/tradesettle/internal/customer/domain"
	hoursdomain "github.com/smallbiznis/tradesettle/internal/hours/domain"
	invoicedomain "github.com/smallbiznis/tradesettle/internal/invoice/domain"
	margindomain "github.com/smallbiznis/tradesettle/internal/margin/domain"
	paymentdomain "github.com/smallbiznis/tradesettle/internal/payment/domain"
	payrolldomain "github.com/smallbiznis/tradesettle/internal/payroll/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
	Outcome string            `json:"outcome,omitempty"`
	Reasons []string          `json:"reasons,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Code
	if code == "" && len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var routingErr *invoicedomain.RoutingError
	if errors.As(err, &routingErr) {
		return http.StatusConflict, errorPayload{
			Type:    "routing_required",
			Message: "invoice requires approval routing",
			Code:    invoicedomain.ErrRoutingRequired.Error(),
			Outcome: string(routingErr.Outcome),
			Reasons: routingErr.Reasons,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
			Code:    err.Error(),
		}
	case isDataIncompleteError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "data_incomplete",
			Message: "required upstream data is missing",
			Code:    rootCode(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, invoicedomain.ErrInvalidInvoiceID),
		errors.Is(err, invoicedomain.ErrInvalidIssuer),
		errors.Is(err, invoicedomain.ErrOverrideNoteRequired),
		errors.Is(err, paymentdomain.ErrInvalidInvoiceID),
		errors.Is(err, paymentdomain.ErrInvalidPaymentID),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrMissingTimestamps),
		errors.Is(err, paymentdomain.ErrReceivedAfterPosted),
		errors.Is(err, paymentdomain.ErrPostedAfterDeposit),
		errors.Is(err, paymentdomain.ErrJustificationRequired),
		errors.Is(err, margindomain.ErrInvalidInvoiceID),
		errors.Is(err, commissiondomain.ErrInvalidPaymentID),
		errors.Is(err, commissiondomain.ErrInvalidRange),
		errors.Is(err, payrolldomain.ErrInvalidWeekStart),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, invoicedomain.ErrInvoiceNotDraft),
		errors.Is(err, invoicedomain.ErrInvoiceAlreadyNumbered),
		errors.Is(err, invoicedomain.ErrPendingHours),
		errors.Is(err, invoicedomain.ErrRejectedHours),
		errors.Is(err, invoicedomain.ErrNoApprovedHours),
		errors.Is(err, paymentdomain.ErrInvoiceDraft),
		errors.Is(err, paymentdomain.ErrInvoiceVoided):
		return true
	default:
		return false
	}
}

func isDataIncompleteError(err error) bool {
	switch {
	case errors.Is(err, burdendomain.ErrMissingStateCode),
		errors.Is(err, burdendomain.ErrMissingWorkersCompRate),
		errors.Is(err, invoicedomain.ErrMissingBaseRate):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, paymentdomain.ErrInvoiceNotFound),
		errors.Is(err, paymentdomain.ErrPaymentNotFound),
		errors.Is(err, margindomain.ErrInvoiceNotFound),
		errors.Is(err, margindomain.ErrSnapshotNotFound),
		errors.Is(err, commissiondomain.ErrPaymentNotFound),
		errors.Is(err, commissiondomain.ErrInvoiceNotFound),
		errors.Is(err, payrolldomain.ErrPacketNotFound),
		errors.Is(err, hoursdomain.ErrOrderNotFound),
		errors.Is(err, customerdomain.ErrNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// rootCode returns the sentinel code at the bottom of a wrapped error chain.
func rootCode(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return rootCode(err)
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case paymentdomain.ErrJustificationRequired.Error():
		return "payments posted more than one day ago need a justification of at least 5 characters"
	case paymentdomain.ErrReceivedAfterPosted.Error():
		return "payment_received_at must not be after payment_posted_at"
	case paymentdomain.ErrPostedAfterDeposit.Error():
		return "payment_posted_at must not be after bank_deposit_at"
	default:
		return "invalid value"
	}
}
