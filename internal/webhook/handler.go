package webhook

import (
	"context"
	"net/http"

	"inspection_booking_backend/platform/httpkit"
	"inspection_booking_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Enqueuer hands an event to the reconciliation queue.
type Enqueuer interface {
	EnqueueWebhook(ctx context.Context, ev Event) error
}

// Handler is the gateway-facing edge: verified events are reconciled inline
// or queued, and the response tells the gateway whether to redeliver.
type Handler struct {
	reconciler *Reconciler
	marker     DeliveryMarker
	queue      Enqueuer
	log        *logger.Logger
}

// NewHandler creates a webhook handler. marker and queue may be nil.
func NewHandler(reconciler *Reconciler, marker DeliveryMarker, queue Enqueuer, log *logger.Logger) *Handler {
	return &Handler{reconciler: reconciler, marker: marker, queue: queue, log: log}
}

// HandleStripe processes one verified gateway event.
// POST /api/v1/webhooks/stripe
func (h *Handler) HandleStripe(c *gin.Context) {
	ev, ok := eventFrom(c)
	if !ok {
		httpkit.Error(c, http.StatusBadRequest, "missing event", nil)
		return
	}
	ctx := context.WithValue(c.Request.Context(), logger.EventIDKey, ev.ID)
	log := h.log.WithContext(ctx)

	if !ev.Handled() {
		httpkit.OK(c, gin.H{"received": true})
		return
	}

	if h.marker != nil {
		seen, err := h.marker.Seen(ctx, ev.ID)
		if err != nil {
			log.SideEffectFailed("check delivery marker", err)
		} else if seen {
			log.Info("duplicate gateway event skipped", "type", ev.Type)
			httpkit.OK(c, gin.H{"received": true, "duplicate": true})
			return
		}
	}

	if h.queue != nil {
		err := h.queue.EnqueueWebhook(ctx, ev)
		if err == nil {
			httpkit.OK(c, gin.H{"received": true, "queued": true})
			return
		}
		log.SideEffectFailed("enqueue gateway event", err, "type", ev.Type)
	}

	if err := h.reconciler.Handle(ctx, ev); err != nil {
		log.Error("gateway event reconciliation failed", "type", ev.Type, "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "reconciliation failed", nil)
		return
	}

	if h.marker != nil {
		if err := h.marker.Mark(ctx, ev.ID); err != nil {
			log.SideEffectFailed("mark delivery", err)
		}
	}
	httpkit.OK(c, gin.H{"received": true})
}
