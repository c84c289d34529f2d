package service

import (
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	hoursdomain "github.com/smallbiznis/tradesettle/internal/hours/domain"
	"github.com/smallbiznis/tradesettle/internal/payroll/domain"
)

type lineKey struct {
	employeeID snowflake.ID
	location   string
}

type accumulator struct {
	line       domain.Line
	regDollars decimal.Decimal
}

func newAccumulator(key lineKey, employee hoursdomain.Employee) *accumulator {
	return &accumulator{
		line: domain.Line{
			EmployeeID:       key.employeeID,
			SSN:              employee.SSN,
			EmployeeName:     employee.DisplayName(),
			LocationCode:     key.location,
			RegRate:          decimal.Zero,
			RegHours:         decimal.Zero,
			OTHours:          decimal.Zero,
			DTHours:          decimal.Zero,
			HolidayHours:     decimal.Zero,
			BonusAmount:      decimal.Zero,
			ReimbAmount:      decimal.Zero,
			MileageAmount:    decimal.Zero,
			PerDiemAmount:    decimal.Zero,
			AdvanceDeduction: decimal.Zero,
			ETVDeduction:     decimal.Zero,
			RegSDHours:       decimal.Zero,
			OTSDHours:        decimal.Zero,
			DTSDHours:        decimal.Zero,
		},
		regDollars: decimal.Zero,
	}
}

func (a *accumulator) add(l hoursdomain.HourEntryLine) {
	line := &a.line
	if l.Unit == hoursdomain.UnitDollars {
		switch l.EarningCode {
		case hoursdomain.CodeBONUS:
			line.BonusAmount = line.BonusAmount.Add(l.Cost())
		case hoursdomain.CodeREM:
			line.ReimbAmount = line.ReimbAmount.Add(l.Cost())
		case hoursdomain.CodePD:
			line.PerDiemAmount = line.PerDiemAmount.Add(l.Cost())
		}
		return
	}
	switch l.EarningCode {
	case hoursdomain.CodeREG:
		line.RegHours = line.RegHours.Add(l.Quantity)
		a.regDollars = a.regDollars.Add(l.Cost())
	case hoursdomain.CodeOT:
		line.OTHours = line.OTHours.Add(l.Quantity)
	case hoursdomain.CodeDT:
		line.DTHours = line.DTHours.Add(l.Quantity)
	case hoursdomain.CodeHOL:
		line.HolidayHours = line.HolidayHours.Add(l.Quantity)
	case hoursdomain.CodeREGSD:
		line.RegSDHours = line.RegSDHours.Add(l.Quantity)
	case hoursdomain.CodeOTSD:
		line.OTSDHours = line.OTSDHours.Add(l.Quantity)
	case hoursdomain.CodeDTSD:
		line.DTSDHours = line.DTSDHours.Add(l.Quantity)
	}
}

func (a *accumulator) finish() domain.Line {
	if a.line.RegHours.IsPositive() {
		a.line.RegRate = a.regDollars.Div(a.line.RegHours)
	}
	return a.line
}

// Aggregate groups entry lines by employee and job-site location code.
// Deductions land on the first line of each employee. Rows are ordered by
// employee name, then location code.
func Aggregate(
	entries []hoursdomain.HourEntry,
	sites map[snowflake.ID]hoursdomain.OrderSite,
	employees map[snowflake.ID]hoursdomain.Employee,
	deductions []hoursdomain.PayrollDeduction,
) []domain.Line {
	groups := make(map[lineKey]*accumulator)
	for _, entry := range entries {
		key := lineKey{employeeID: entry.EmployeeID, location: sites[entry.OrderID].LocationCode()}
		acc, ok := groups[key]
		if !ok {
			acc = newAccumulator(key, employees[entry.EmployeeID])
			groups[key] = acc
		}
		for _, l := range entry.Lines {
			acc.add(l)
		}
	}

	lines := make([]domain.Line, 0, len(groups))
	for _, acc := range groups {
		lines = append(lines, acc.finish())
	}
	sort.Slice(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if c := strings.Compare(a.EmployeeName, b.EmployeeName); c != 0 {
			return c < 0
		}
		if a.LocationCode != b.LocationCode {
			return a.LocationCode < b.LocationCode
		}
		return a.EmployeeID < b.EmployeeID
	})

	first := make(map[snowflake.ID]int, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		first[lines[i].EmployeeID] = i
	}
	for _, d := range deductions {
		idx, ok := first[d.EmployeeID]
		if !ok {
			continue
		}
		switch d.Type {
		case hoursdomain.DeductionADV:
			lines[idx].AdvanceDeduction = lines[idx].AdvanceDeduction.Add(d.Amount)
		case hoursdomain.DeductionETV:
			lines[idx].ETVDeduction = lines[idx].ETVDeduction.Add(d.Amount)
		}
	}

	for i := range lines {
		lines[i].Position = i
	}
	return lines
}
