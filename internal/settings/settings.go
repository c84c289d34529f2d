// Package settings exposes the mutable business settings consumed by the
// settlement engines. Consumers decide per call whether to freeze a value.
package settings

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DefaultBankLagDays      = 1
	DefaultPostingGraceDays = 1
	holidayLayout           = "2006-01-02"
)

// Settings is the decoded `settlement` block of settlement.yml.
type Settings struct {
	BankLagDays       *int     `mapstructure:"bankLagDays"`
	PostingGraceDays  *int     `mapstructure:"postingGraceDays"`
	InvoiceFooterText string   `mapstructure:"invoiceFooterText"`
	Holidays          []string `mapstructure:"holidays"`
}

// Provider returns the settings in effect right now.
type Provider interface {
	Current() Settings
}

// BankLag returns the configured bank lag, falling back to one day.
func (s Settings) BankLag() int {
	if s.BankLagDays == nil {
		return DefaultBankLagDays
	}
	return *s.BankLagDays
}

// PostingGrace returns the configured posting grace, falling back to one day.
func (s Settings) PostingGrace() int {
	if s.PostingGraceDays == nil {
		return DefaultPostingGraceDays
	}
	return *s.PostingGraceDays
}

// HolidayDates parses the configured holidays as calendar dates at UTC midnight.
// Malformed entries are skipped; Validate rejects them at load time.
func (s Settings) HolidayDates() []time.Time {
	out := make([]time.Time, 0, len(s.Holidays))
	for _, raw := range s.Holidays {
		d, err := time.Parse(holidayLayout, strings.TrimSpace(raw))
		if err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

// Validate rejects negative day counts and malformed holiday dates.
func (s Settings) Validate() error {
	if s.BankLagDays != nil && *s.BankLagDays < 0 {
		return errors.New("settlement.bankLagDays cannot be negative")
	}
	if s.PostingGraceDays != nil && *s.PostingGraceDays < 0 {
		return errors.New("settlement.postingGraceDays cannot be negative")
	}
	for _, raw := range s.Holidays {
		if _, err := time.Parse(holidayLayout, strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("settlement.holidays: invalid date %q", raw)
		}
	}
	return nil
}

type static struct {
	s Settings
}

// Static returns a Provider that always yields s.
func Static(s Settings) Provider {
	return static{s: s}
}

func (p static) Current() Settings { return p.s }

func IntPtr(v int) *int { return &v }
