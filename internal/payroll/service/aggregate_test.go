package service_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	hoursdomain "github.com/smallbiznis/tradesettle/internal/hours/domain"
	payrollservice "github.com/smallbiznis/tradesettle/internal/payroll/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func hoursLine(code string, qty, rate string) hoursdomain.HourEntryLine {
	l := hoursdomain.HourEntryLine{EarningCode: code, Unit: hoursdomain.UnitHours, Quantity: dec(qty)}
	if rate != "" {
		l.Rate = decimal.NewNullDecimal(dec(rate))
	}
	return l
}

func dollarLine(code string, amount string) hoursdomain.HourEntryLine {
	return hoursdomain.HourEntryLine{EarningCode: code, Unit: hoursdomain.UnitDollars, Amount: decimal.NewNullDecimal(dec(amount))}
}

func TestAggregateGroupsByEmployeeAndLocation(t *testing.T) {
	loc := func(code string) *hoursdomain.JobLocation { return &hoursdomain.JobLocation{Code: code} }
	sites := map[snowflake.ID]hoursdomain.OrderSite{
		10: {Location: loc("HOU-1")},
		11: {Location: loc("AUS-3")},
	}
	employees := map[snowflake.ID]hoursdomain.Employee{
		1: {ID: 1, FirstName: "Zoe", LastName: "Adams", SSN: "111-22-3333"},
		2: {ID: 2, FirstName: "Al", LastName: "Baker", SSN: "444-55-6666"},
	}
	entries := []hoursdomain.HourEntry{
		{EmployeeID: 2, OrderID: 10, Lines: []hoursdomain.HourEntryLine{
			hoursLine(hoursdomain.CodeREG, "40", "25"),
			hoursLine(hoursdomain.CodeOT, "4", "37.5"),
		}},
		{EmployeeID: 1, OrderID: 10, Lines: []hoursdomain.HourEntryLine{
			hoursLine(hoursdomain.CodeREG, "20", "20"),
			hoursLine(hoursdomain.CodeREGSD, "6", ""),
			dollarLine(hoursdomain.CodeBONUS, "50"),
		}},
		{EmployeeID: 1, OrderID: 11, Lines: []hoursdomain.HourEntryLine{
			hoursLine(hoursdomain.CodeREG, "10", "22"),
			hoursLine(hoursdomain.CodeDT, "2", "44"),
			hoursLine(hoursdomain.CodeHOL, "8", "20"),
			hoursLine(hoursdomain.CodeOTSD, "1.5", ""),
			dollarLine(hoursdomain.CodeREM, "12.34"),
			dollarLine(hoursdomain.CodePD, "30"),
		}},
		{EmployeeID: 1, OrderID: 10, Lines: []hoursdomain.HourEntryLine{
			hoursLine(hoursdomain.CodeREG, "10", "23"),
		}},
	}
	deductions := []hoursdomain.PayrollDeduction{
		{EmployeeID: 1, Type: hoursdomain.DeductionADV, Amount: dec("25")},
		{EmployeeID: 1, Type: hoursdomain.DeductionETV, Amount: dec("10")},
		{EmployeeID: 1, Type: hoursdomain.DeductionETV, Amount: dec("5")},
		{EmployeeID: 9, Type: hoursdomain.DeductionETV, Amount: dec("99")},
	}

	lines := payrollservice.Aggregate(entries, sites, employees, deductions)
	require.Len(t, lines, 3)

	assert.Equal(t, "Adams, Zoe", lines[0].EmployeeName)
	assert.Equal(t, "AUS-3", lines[0].LocationCode)
	assert.Equal(t, "22.00", lines[0].RegRate.StringFixed(2))
	assert.Equal(t, "2", lines[0].DTHours.String())
	assert.Equal(t, "8", lines[0].HolidayHours.String())
	assert.Equal(t, "1.5", lines[0].OTSDHours.String())
	assert.Equal(t, "12.34", lines[0].ReimbAmount.String())
	assert.Equal(t, "30", lines[0].PerDiemAmount.String())
	assert.Equal(t, "25", lines[0].AdvanceDeduction.String())
	assert.Equal(t, "15", lines[0].ETVDeduction.String())

	assert.Equal(t, "HOU-1", lines[1].LocationCode)
	assert.Equal(t, "30", lines[1].RegHours.String())
	// (20 x 20 + 10 x 23) / 30
	assert.Equal(t, "21.00", lines[1].RegRate.StringFixed(2))
	assert.Equal(t, "6", lines[1].RegSDHours.String())
	assert.Equal(t, "50", lines[1].BonusAmount.String())
	assert.True(t, lines[1].AdvanceDeduction.IsZero())

	assert.Equal(t, "Baker, Al", lines[2].EmployeeName)
	assert.Equal(t, "4", lines[2].OTHours.String())
	assert.True(t, lines[2].RegSDHours.IsZero())
	assert.Equal(t, 2, lines[2].Position)
}

func TestWriteCSV(t *testing.T) {
	lines := payrollservice.Aggregate(
		[]hoursdomain.HourEntry{{EmployeeID: 1, OrderID: 10, Lines: []hoursdomain.HourEntryLine{
			hoursLine(hoursdomain.CodeREG, "37.5", "19.333"),
			hoursLine(hoursdomain.CodeDTSD, "2", ""),
		}}},
		map[snowflake.ID]hoursdomain.OrderSite{10: {Location: &hoursdomain.JobLocation{Code: "DAL-02"}}},
		map[snowflake.ID]hoursdomain.Employee{1: {ID: 1, FirstName: "Maria", LastName: "Ortiz", SSN: "123-45-6789"}},
		nil,
	)

	var buf bytes.Buffer
	require.NoError(t, payrollservice.WriteCSV(&buf, lines))

	want := strings.Join([]string{
		"SSN,EmployeeName,LOC,RegRate,RegHours,OTHours,DTHours,HolidayHours,BonusAmount,ReimbAmount,MileageAmount,PerDiemAmount,AdvanceDeductionAmount,ETVDeductionAmount,RegSDHours,OTSDHours,DTSDHours",
		`123-45-6789,"Ortiz, Maria",DAL-02,19.33,37.50,0.00,0.00,0.00,0.00,0.00,0.00,0.00,0.00,0.00,0.00,0.00,2.00`,
	}, "\r\n")
	assert.Equal(t, want, buf.String())
}
