// Package deals implements the deal stage policy shared by every workflow
// component: milestone to stage id resolution, the transition rule, and
// closing deals once their invoice is paid.
package deals

import "strings"

// Milestone is a named point in the deal pipeline.
type Milestone int

const (
	MilestoneUnknown Milestone = iota
	MilestoneNew
	MilestoneQuoteSubmitted
	MilestoneInvoiceSubmitted
	MilestonePaymentSubmitted
	MilestonePaymentFailure
	MilestoneClosedWon
	MilestoneBooked
)

var milestoneNames = map[Milestone]string{
	MilestoneUnknown:          "unknown",
	MilestoneNew:              "new",
	MilestoneQuoteSubmitted:   "quote_submitted",
	MilestoneInvoiceSubmitted: "invoice_submitted",
	MilestonePaymentSubmitted: "payment_submitted",
	MilestonePaymentFailure:   "payment_failure",
	MilestoneClosedWon:        "closed_won",
	MilestoneBooked:           "booked",
}

func (m Milestone) String() string {
	if name, ok := milestoneNames[m]; ok {
		return name
	}
	return "unknown"
}

// rank orders milestones along the pipeline. Payment Submitted and Payment
// Failure share a rank: the failure branch loops between them.
func (m Milestone) rank() int {
	switch m {
	case MilestoneNew:
		return 1
	case MilestoneQuoteSubmitted:
		return 2
	case MilestoneInvoiceSubmitted:
		return 3
	case MilestonePaymentSubmitted, MilestonePaymentFailure:
		return 4
	case MilestoneClosedWon:
		return 5
	case MilestoneBooked:
		return 6
	}
	return 0
}

// CanTransition reports whether a deal at from may be moved to to. Forward
// moves (including skipped stages) are allowed, as is the payment retry loop
// between Payment Failure and Payment Submitted. Every other backward move is
// rejected, and so is any move out of or into an unknown milestone.
func CanTransition(from, to Milestone) bool {
	if from == MilestoneUnknown || to == MilestoneUnknown {
		return false
	}
	if from == to {
		return true
	}
	if from.rank() == to.rank() {
		return true
	}
	return to.rank() > from.rank()
}

// ParseMilestone maps a milestone name back to its value.
func ParseMilestone(name string) Milestone {
	needle := strings.ToLower(strings.TrimSpace(name))
	for m, n := range milestoneNames {
		if n == needle {
			return m
		}
	}
	return MilestoneUnknown
}
