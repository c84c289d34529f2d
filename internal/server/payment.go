package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	commissiondomain "github.com/smallbiznis/tradesettle/internal/commission/domain"
	paymentdomain "github.com/smallbiznis/tradesettle/internal/payment/domain"
	"go.uber.org/zap"
)

type recordPaymentRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	PaymentReceivedAt time.Time       `json:"payment_received_at"`
	PaymentPostedAt   time.Time       `json:"payment_posted_at"`
	BankDepositAt     *time.Time      `json:"bank_deposit_at"`
	Reference         string          `json:"reference"`
	Justification     string          `json:"justification"`
	RecordedByUserID  string          `json:"recorded_by_user_id"`
}

type recordPaymentResponse struct {
	*paymentdomain.RecordResult
	Commission      *commissiondomain.SettleResult `json:"commission,omitempty"`
	CommissionError *errorPayload                  `json:"commission_error,omitempty"`
}

// RecordPayment records the payment, then settles its commission. A failed
// settlement is reported alongside the recorded payment.
func (s *Server) RecordPayment(c *gin.Context) {
	invoiceID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	var req recordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	recordedBy, err := parseOptionalSnowflakeID(req.RecordedByUserID)
	if err != nil {
		AbortWithError(c, newValidationError("recorded_by_user_id", "invalid_recorded_by_user_id", "invalid recorded_by_user_id"))
		return
	}

	ctx := c.Request.Context()
	result, err := s.paymentSvc.Record(ctx, paymentdomain.RecordRequest{
		InvoiceID:        invoiceID,
		Amount:           req.Amount,
		ReceivedAt:       req.PaymentReceivedAt,
		PostedAt:         req.PaymentPostedAt,
		BankDepositAt:    req.BankDepositAt,
		Reference:        req.Reference,
		Justification:    req.Justification,
		RecordedByUserID: recordedBy,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := recordPaymentResponse{RecordResult: result}
	settled, err := s.commissionSvc.SettleForPayment(ctx, result.Payment.ID)
	if err != nil {
		s.log.Warn("commission settlement failed after payment",
			zap.String("payment_id", result.Payment.ID.String()),
			zap.Error(err),
		)
		_, payload := mapError(err)
		resp.CommissionError = &payload
	} else {
		resp.Commission = settled
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListInvoicePayments(c *gin.Context) {
	invoiceID, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	items, err := s.paymentSvc.ListByInvoice(c.Request.Context(), invoiceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (s *Server) GetPayment(c *gin.Context) {
	id, err := parseSnowflakeID(c.Param("id"))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid id"))
		return
	}

	item, err := s.paymentSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}
