package service

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradesettle/internal/payroll/domain"
	"github.com/smallbiznis/tradesettle/pkg/money"
)

var packetHeader = []string{
	"SSN",
	"EmployeeName",
	"LOC",
	"RegRate",
	"RegHours",
	"OTHours",
	"DTHours",
	"HolidayHours",
	"BonusAmount",
	"ReimbAmount",
	"MileageAmount",
	"PerDiemAmount",
	"AdvanceDeductionAmount",
	"ETVDeductionAmount",
	"RegSDHours",
	"OTSDHours",
	"DTSDHours",
}

// WriteCSV writes the packet as CRLF-separated RFC 4180 records with no
// trailing line break. Every numeric column is fixed at two places.
func WriteCSV(w io.Writer, lines []domain.Line) error {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	cw.UseCRLF = true
	if err := cw.Write(packetHeader); err != nil {
		return err
	}
	for _, l := range lines {
		if err := cw.Write(record(l)); err != nil {
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

func record(l domain.Line) []string {
	f := func(d decimal.Decimal) string { return money.Format(d, 2) }
	return []string{
		l.SSN,
		l.EmployeeName,
		l.LocationCode,
		f(l.RegRate),
		f(l.RegHours),
		f(l.OTHours),
		f(l.DTHours),
		f(l.HolidayHours),
		f(l.BonusAmount),
		f(l.ReimbAmount),
		f(l.MileageAmount),
		f(l.PerDiemAmount),
		f(l.AdvanceDeduction),
		f(l.ETVDeduction),
		f(l.RegSDHours),
		f(l.OTSDHours),
		f(l.DTSDHours),
	}
}
