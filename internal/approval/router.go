// Package approval decides whether an invoice may be issued right now.
package approval

import (
	"strings"
	"time"
)

type Outcome string

const (
	OutcomeProceedIssue          Outcome = "PROCEED_ISSUE"
	OutcomeRouteAdmin            Outcome = "ROUTE_ADMIN"
	OutcomeRouteCustomerApproval Outcome = "ROUTE_CUSTOMER_APPROVAL"
)

// Approval statuses recorded on an invoice.
const (
	StatusNone     = ""
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusRejected = "REJECTED"
)

// AdminOverrideSentinel prefixes the approval note of an admin override.
const AdminOverrideSentinel = "ADMIN_OVERRIDE"

const (
	ReasonMissedCutoff             = "Missed cutoff"
	ReasonAdminOverride            = "Admin override"
	ReasonCustomerApprovalRequired = "Customer approval required"
)

// Input is everything the router looks at.
type Input struct {
	ApprovalStatus           string
	ApprovalNote             string
	CustomerRequiresApproval bool
	Cutoff                   time.Time
	Now                      time.Time
}

// Decision is the routing result. Reasons is never nil.
type Decision struct {
	Outcome Outcome
	Reasons []string
}

func (d Decision) Proceed() bool {
	return d.Outcome == OutcomeProceedIssue
}

// AdminOverride reports whether an admin override has been recorded.
func (in Input) AdminOverride() bool {
	return strings.EqualFold(strings.TrimSpace(in.ApprovalStatus), StatusApproved) &&
		strings.HasPrefix(strings.TrimSpace(in.ApprovalNote), AdminOverrideSentinel)
}

// CutoffMissed reports whether now is strictly after the cutoff. A zero
// cutoff is never missed.
func (in Input) CutoffMissed() bool {
	if in.Cutoff.IsZero() {
		return false
	}
	return in.Now.After(in.Cutoff)
}

// Route evaluates the rules in order; the first match wins.
//  1. cutoff missed without override -> ROUTE_ADMIN
//  2. cutoff missed with override    -> PROCEED_ISSUE
//  3. customer approval outstanding  -> ROUTE_CUSTOMER_APPROVAL
//  4. otherwise                      -> PROCEED_ISSUE
func Route(in Input) Decision {
	if in.CutoffMissed() {
		if in.AdminOverride() {
			return Decision{Outcome: OutcomeProceedIssue, Reasons: []string{ReasonAdminOverride}}
		}
		return Decision{Outcome: OutcomeRouteAdmin, Reasons: []string{ReasonMissedCutoff}}
	}
	if in.CustomerRequiresApproval && !strings.EqualFold(strings.TrimSpace(in.ApprovalStatus), StatusApproved) {
		return Decision{Outcome: OutcomeRouteCustomerApproval, Reasons: []string{ReasonCustomerApprovalRequired}}
	}
	return Decision{Outcome: OutcomeProceedIssue, Reasons: []string{}}
}
