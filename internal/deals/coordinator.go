package deals

import (
	"context"
	"strings"
	"sync"

	"inspection_booking_backend/internal/crm"
	"inspection_booking_backend/internal/events"
	"inspection_booking_backend/platform/config"
	"inspection_booking_backend/platform/logger"
)

// Coordinator patches deal stages. All of its methods are best effort: CRM
// failures are logged and never returned to the caller.
type Coordinator struct {
	store  crm.Store
	stages config.StageConfig
	bus    events.Bus
	log    *logger.Logger

	mu          sync.Mutex
	closedWonID string
}

// NewCoordinator creates a Coordinator. bus may be nil.
func NewCoordinator(store crm.Store, stages config.StageConfig, bus events.Bus, log *logger.Logger) *Coordinator {
	return &Coordinator{store: store, stages: stages, bus: bus, log: log}
}

// Advance moves dealID to the stage configured for m. Blank deal ids and
// unconfigured milestones are no-ops; backward moves are ignored.
func (c *Coordinator) Advance(ctx context.Context, dealID string, m Milestone) {
	dealID = strings.TrimSpace(dealID)
	if dealID == "" {
		return
	}
	log := c.log.WithContext(ctx)

	stageID := c.StageID(ctx, m)
	if stageID == "" {
		log.Debug("deal stage not configured", "milestone", m.String(), "dealId", dealID)
		return
	}

	if !c.allowed(ctx, dealID, m) {
		return
	}

	if _, err := c.store.Patch(ctx, crm.Deals, dealID, map[string]any{"deal_stage": stageID}); err != nil {
		log.SideEffectFailed("advance deal stage", err, "dealId", dealID, "milestone", m.String())
		return
	}
	log.Info("deal stage advanced", "dealId", dealID, "milestone", m.String(), "stageId", stageID)
	c.publish(ctx, dealID, m, stageID)
}

// StageID resolves the CRM stage id for m. Closed-Won falls back to a lookup
// by stage name when no id is configured.
func (c *Coordinator) StageID(ctx context.Context, m Milestone) string {
	switch m {
	case MilestoneNew:
		return c.stages.GetDealStageNewID()
	case MilestoneQuoteSubmitted:
		return c.stages.GetDealStageQuoteSubmittedID()
	case MilestoneInvoiceSubmitted:
		return c.stages.GetDealStageInvoiceSubmittedID()
	case MilestonePaymentSubmitted:
		return c.stages.GetDealStagePaymentSubmittedID()
	case MilestonePaymentFailure:
		return c.stages.GetDealStagePaymentFailureID()
	case MilestoneClosedWon:
		return c.closedWon(ctx)
	case MilestoneBooked:
		return c.stages.GetDealStageBookedID()
	}
	return ""
}

func (c *Coordinator) closedWon(ctx context.Context) string {
	if id := strings.TrimSpace(c.stages.GetDealStageClosedWonID()); id != "" {
		return id
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closedWonID != "" {
		return c.closedWonID
	}

	name := c.stages.GetDealStageClosedWonName()
	if name == "" {
		name = "Closed - Won"
	}
	rec, ok, err := crm.FindLatest(ctx, c.store, crm.DealStages, crm.Eq("name", name))
	if err != nil {
		c.log.SideEffectFailed("lookup closed-won stage", err, "name", name)
		return ""
	}
	if !ok {
		c.log.Warn("closed-won stage not found", "name", name)
		return ""
	}
	c.closedWonID = rec.ID()
	return c.closedWonID
}

// allowed reads the deal's current stage and applies CanTransition. A stage
// id that maps to no configured milestone, or an unreadable deal, does not
// block the move.
func (c *Coordinator) allowed(ctx context.Context, dealID string, to Milestone) bool {
	rec, ok, err := crm.GetOptional(ctx, c.store, crm.Deals, dealID, "id", "deal_stage")
	if err != nil || !ok {
		return true
	}
	current := c.milestoneOf(ctx, rec.String("deal_stage"))
	if current == MilestoneUnknown {
		return true
	}
	if current == to {
		return false
	}
	if !CanTransition(current, to) {
		c.log.WithContext(ctx).Info("ignoring backward deal stage transition",
			"dealId", dealID, "from", current.String(), "to", to.String())
		return false
	}
	return true
}

func (c *Coordinator) milestoneOf(ctx context.Context, stageID string) Milestone {
	if stageID == "" {
		return MilestoneUnknown
	}
	for _, m := range []Milestone{
		MilestoneNew,
		MilestoneQuoteSubmitted,
		MilestoneInvoiceSubmitted,
		MilestonePaymentSubmitted,
		MilestonePaymentFailure,
		MilestoneBooked,
	} {
		if c.StageID(ctx, m) == stageID {
			return m
		}
	}
	if id := strings.TrimSpace(c.stages.GetDealStageClosedWonID()); id != "" && id == stageID {
		return MilestoneClosedWon
	}
	c.mu.Lock()
	cached := c.closedWonID
	c.mu.Unlock()
	if cached != "" && cached == stageID {
		return MilestoneClosedWon
	}
	return MilestoneUnknown
}

func (c *Coordinator) publish(ctx context.Context, dealID string, m Milestone, stageID string) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(ctx, events.DealStageChanged{
		BaseEvent: events.NewBaseEvent(),
		DealID:    dealID,
		Milestone: m.String(),
		StageID:   stageID,
	})
}
