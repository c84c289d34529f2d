package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradesettle/internal/commission/domain"
	"github.com/smallbiznis/tradesettle/pkg/money"
)

const postedAtLayout = "2006-01-02T15:04:05.000Z"

var packetHeader = []string{
	"invoiceNumber",
	"invoiceId",
	"customerName",
	"paymentId",
	"paymentPostedAt",
	"paymentAmount",
	"commissionRateApplied",
	"commissionAmount",
	"salespersonUserId",
	"salespersonEmail",
	"commissionRule",
}

func (s *Service) Packet(ctx context.Context, from, to time.Time) ([]domain.PacketRow, error) {
	if from.IsZero() || to.IsZero() || !from.Before(to) {
		return nil, domain.ErrInvalidRange
	}
	events, err := s.repo.ListEventsPostedBetween(ctx, s.db, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return []domain.PacketRow{}, nil
	}

	var paymentIDs, invoiceIDs, userIDs []snowflake.ID
	for _, e := range events {
		paymentIDs = append(paymentIDs, e.InvoicePaymentID)
		invoiceIDs = append(invoiceIDs, e.InvoiceID)
		userIDs = append(userIDs, e.UserID)
	}
	payments, err := s.paymentRepo.FindByIDs(ctx, s.db, paymentIDs)
	if err != nil {
		return nil, err
	}
	invoices, err := s.invoiceRepo.FindByIDs(ctx, s.db, invoiceIDs)
	if err != nil {
		return nil, err
	}
	var customerIDs []snowflake.ID
	for _, inv := range invoices {
		customerIDs = append(customerIDs, inv.CustomerID)
	}
	customers, err := s.customerRepo.FindByIDs(ctx, s.db, customerIDs)
	if err != nil {
		return nil, err
	}
	people, err := s.repo.FindSalespeople(ctx, s.db, userIDs)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.PacketRow, 0, len(events))
	for _, e := range events {
		payment := payments[e.InvoicePaymentID]
		invoice := invoices[e.InvoiceID]
		rows = append(rows, domain.PacketRow{
			InvoiceNumber:         invoice.InvoiceNumber,
			InvoiceID:             e.InvoiceID,
			CustomerName:          customers[invoice.CustomerID].Name,
			PaymentID:             e.InvoicePaymentID,
			PaymentPostedAt:       e.PostedAt,
			PaymentAmountCents:    payment.AmountCents,
			CommissionRateApplied: e.CommissionRate.Mul(e.PayoutMultiplier),
			CommissionCents:       e.PayableCommissionCents,
			SalespersonUserID:     e.UserID,
			SalespersonEmail:      people[e.UserID].Email,
			CommissionRule:        e.Rule(),
		})
	}
	return rows, nil
}

func (s *Service) PacketCSV(ctx context.Context, from, to time.Time) ([]byte, error) {
	rows, err := s.Packet(ctx, from, to)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WritePacketCSV(&buf, rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WritePacketCSV writes the header and rows as CRLF-separated RFC 4180
// records with no trailing line break.
func WritePacketCSV(w io.Writer, rows []domain.PacketRow) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.UseCRLF = true
	if err := cw.Write(packetHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(packetRecord(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	_, err := w.Write(bytes.TrimSuffix(buf.Bytes(), []byte("\r\n")))
	return err
}

func packetRecord(r domain.PacketRow) []string {
	number := ""
	if r.InvoiceNumber != nil {
		number = strconv.FormatInt(*r.InvoiceNumber, 10)
	}
	return []string{
		number,
		r.InvoiceID.String(),
		r.CustomerName,
		r.PaymentID.String(),
		r.PaymentPostedAt.UTC().Format(postedAtLayout),
		money.FormatCents(r.PaymentAmountCents),
		money.Format(r.CommissionRateApplied, 4),
		money.FormatCents(r.CommissionCents),
		r.SalespersonUserID.String(),
		r.SalespersonEmail,
		r.CommissionRule,
	}
}
