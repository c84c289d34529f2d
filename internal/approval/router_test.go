package approval

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoute(t *testing.T) {
	cutoff := time.Date(2025, 1, 8, 14, 0, 0, 0, time.UTC)
	before := cutoff.Add(-time.Hour)
	after := cutoff.Add(time.Minute)

	tests := []struct {
		name    string
		in      Input
		outcome Outcome
		reasons []string
	}{
		{
			name:    "missed cutoff routes to admin",
			in:      Input{Cutoff: cutoff, Now: after},
			outcome: OutcomeRouteAdmin,
			reasons: []string{ReasonMissedCutoff},
		},
		{
			name:    "approved without sentinel is not an override",
			in:      Input{ApprovalStatus: StatusApproved, ApprovalNote: "looks fine", Cutoff: cutoff, Now: after},
			outcome: OutcomeRouteAdmin,
			reasons: []string{ReasonMissedCutoff},
		},
		{
			name:    "sentinel without approval is not an override",
			in:      Input{ApprovalStatus: StatusPending, ApprovalNote: "ADMIN_OVERRIDE: late timesheet", Cutoff: cutoff, Now: after},
			outcome: OutcomeRouteAdmin,
			reasons: []string{ReasonMissedCutoff},
		},
		{
			name:    "admin override bypasses missed cutoff",
			in:      Input{ApprovalStatus: StatusApproved, ApprovalNote: "ADMIN_OVERRIDE: late timesheet", Cutoff: cutoff, Now: after},
			outcome: OutcomeProceedIssue,
			reasons: []string{ReasonAdminOverride},
		},
		{
			name:    "admin override also bypasses customer approval after cutoff",
			in:      Input{ApprovalStatus: StatusApproved, ApprovalNote: "ADMIN_OVERRIDE", CustomerRequiresApproval: true, Cutoff: cutoff, Now: after},
			outcome: OutcomeProceedIssue,
			reasons: []string{ReasonAdminOverride},
		},
		{
			name:    "customer requires approval",
			in:      Input{CustomerRequiresApproval: true, Cutoff: cutoff, Now: before},
			outcome: OutcomeRouteCustomerApproval,
			reasons: []string{ReasonCustomerApprovalRequired},
		},
		{
			name:    "customer approval already recorded",
			in:      Input{ApprovalStatus: StatusApproved, CustomerRequiresApproval: true, Cutoff: cutoff, Now: before},
			outcome: OutcomeProceedIssue,
			reasons: []string{},
		},
		{
			name:    "exactly at cutoff is not missed",
			in:      Input{Cutoff: cutoff, Now: cutoff},
			outcome: OutcomeProceedIssue,
			reasons: []string{},
		},
		{
			name:    "no cutoff known",
			in:      Input{Now: after},
			outcome: OutcomeProceedIssue,
			reasons: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Route(tt.in)
			assert.Equal(t, tt.outcome, got.Outcome)
			assert.Equal(t, tt.reasons, got.Reasons)
			assert.Equal(t, tt.outcome == OutcomeProceedIssue, got.Proceed())
		})
	}
}
