package webhook

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"inspection_booking_backend/platform/logger"

	"github.com/gin-gonic/gin"
	stripewebhook "github.com/stripe/stripe-go/v76/webhook"
)

const (
	signatureHeader = "Stripe-Signature"
	maxPayloadBytes = 65536
	eventContextKey = "webhookEvent"
)

// VerifyStripeSignature reads the raw body, checks the Stripe-Signature
// header against secret and stores the converted Event on the gin context.
// Nothing past this middleware sees an unverified payload.
func VerifyStripeSignature(secret string, log *logger.Logger) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)
	return func(c *gin.Context) {
		if secret == "" {
			log.Error("stripe webhook secret not configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
			return
		}

		header := c.GetHeader(signatureHeader)
		if header == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing signature"})
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxPayloadBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
				return
			}
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable payload"})
			return
		}

		se, err := stripewebhook.ConstructEventWithOptions(payload, header, secret, stripewebhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err != nil {
			log.Warn("webhook signature rejected", "error", err, "client_ip", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}

		ev, err := FromStripe(se)
		if err != nil {
			log.Warn("webhook payload rejected", "error", err, "eventId", se.ID, "type", se.Type)
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
			return
		}

		c.Set(eventContextKey, ev)
		c.Next()
	}
}

func eventFrom(c *gin.Context) (Event, bool) {
	v, ok := c.Get(eventContextKey)
	if !ok {
		return Event{}, false
	}
	ev, ok := v.(Event)
	return ev, ok
}
