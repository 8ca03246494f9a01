// Package webhook receives identity-provider webhooks and mirrors user lifecycle
// events into the user store as a system caller.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"zephyr-lounge/internal/metrics"
	"zephyr-lounge/internal/users"
	"zephyr-lounge/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	headerID        = "svix-id"
	headerTimestamp = "svix-timestamp"
	headerSignature = "svix-signature"

	maxPayloadBytes = 1 << 20
)

// UserSync is the subset of users.Service the handler drives.
type UserSync interface {
	CreateUser(ctx context.Context, in users.CreateInput, isSystemCall bool) (users.User, error)
	UserExists(ctx context.Context, externalID string, isSystemCall bool) (bool, error)
	DeleteUser(ctx context.Context, externalID string, isSystemCall bool) error
}

type Handler struct {
	Verifier Verifier
	// Bypass skips signature checks. Config only allows it in test mode with the test secret.
	Bypass     bool
	Users      UserSync
	Deliveries DeliveryTracker
}

var errInvalidPayload = errors.New("invalid webhook payload")

func (h *Handler) Handle(c *gin.Context) {
	log := logger.FromGin(c)
	ctx := c.Request.Context()

	deliveryID := c.GetHeader(headerID)
	if deliveryID == "" || c.GetHeader(headerTimestamp) == "" || c.GetHeader(headerSignature) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Missing svix headers"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Error reading payload"})
		return
	}

	evt, err := h.verify(payload, c.Request.Header)
	if err != nil {
		log.Warn("webhook verification failed", "delivery_id", deliveryID, "err", err)
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Webhook verification failed"})
		return
	}
	if h.Bypass {
		log.Warn("test mode: webhook signature verification bypassed", "delivery_id", deliveryID)
	}

	if h.Deliveries != nil {
		claimed, err := h.Deliveries.Claim(ctx, deliveryID)
		switch {
		case err != nil:
			// Tracking is best-effort; process rather than drop the delivery.
			log.Warn("webhook delivery claim failed", "delivery_id", deliveryID, "err", err)
		case !claimed:
			log.Info("webhook delivery already processed", "delivery_id", deliveryID, "type", evt.Type)
			metrics.WebhookEvents.WithLabelValues(evt.Type, "duplicate").Inc()
			c.JSON(http.StatusOK, gin.H{"message": "Webhook processed successfully"})
			return
		}
	}

	if err := h.process(ctx, evt); err != nil {
		if h.Deliveries != nil {
			if rerr := h.Deliveries.Release(ctx, deliveryID); rerr != nil {
				log.Warn("webhook delivery release failed", "delivery_id", deliveryID, "err", rerr)
			}
		}
		if errors.Is(err, errInvalidPayload) {
			metrics.WebhookEvents.WithLabelValues(evt.Type, "invalid").Inc()
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
			return
		}
		log.Error("webhook processing failed", "delivery_id", deliveryID, "type", evt.Type, "err", err)
		metrics.WebhookEvents.WithLabelValues(evt.Type, "error").Inc()
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Error processing webhook"})
		return
	}

	metrics.WebhookEvents.WithLabelValues(evt.Type, "processed").Inc()
	c.JSON(http.StatusOK, gin.H{"message": "Webhook processed successfully"})
}

func (h *Handler) verify(payload []byte, headers http.Header) (Event, error) {
	if !h.Bypass {
		if h.Verifier == nil {
			return Event{}, fmt.Errorf("%w: no verifier configured", ErrVerification)
		}
		if err := h.Verifier.Verify(payload, headers); err != nil {
			return Event{}, fmt.Errorf("%w: %v", ErrVerification, err)
		}
	}
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrVerification, err)
	}
	return evt, nil
}

func (h *Handler) process(ctx context.Context, evt Event) error {
	log := logger.From(ctx)

	switch evt.Type {
	case EventUserCreated:
		var d UserData
		if err := json.Unmarshal(evt.Data, &d); err != nil || d.ID == "" {
			return errInvalidPayload
		}
		_, err := h.Users.CreateUser(ctx, users.CreateInput{ExternalID: d.ID, Identifier: d.Identifier()}, true)
		if errors.Is(err, users.ErrDuplicate) {
			log.Info("webhook user already exists", "external_id", d.ID)
			return nil
		}
		if err != nil {
			return err
		}
		log.Info("webhook user created", "external_id", d.ID)
		return nil

	case EventUserDeleted:
		var d UserData
		if err := json.Unmarshal(evt.Data, &d); err != nil || d.ID == "" {
			return errInvalidPayload
		}
		exists, err := h.Users.UserExists(ctx, d.ID, true)
		if err != nil {
			return err
		}
		if !exists {
			return nil
		}
		if err := h.Users.DeleteUser(ctx, d.ID, true); err != nil && !errors.Is(err, users.ErrNotFound) {
			return err
		}
		log.Info("webhook user deleted", "external_id", d.ID)
		return nil

	default:
		log.Info("unhandled webhook event type", "type", evt.Type)
		return nil
	}
}
