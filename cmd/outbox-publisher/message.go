package main

import (
	"fmt"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

// buildMessage turns a resolved row into a Pub/Sub message. The body is the
// stored envelope unchanged; attributes carry the fields subscribers filter
// on, so each event type contributes its own.
func buildMessage(event models.OutboxEvent, resolved *registry.ResolvedEvent) (*gcppubsub.Message, error) {
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"schema_version": strconv.Itoa(resolved.Envelope.Version),
	}
	if !resolved.Envelope.OccurredAt.IsZero() {
		attrs["occurred_at"] = resolved.Envelope.OccurredAt.UTC().Format(time.RFC3339Nano)
	}

	switch p := resolved.Payload.(type) {
	case *payloads.OrderCreatedEvent:
		if p.OrderNumber == "" || p.UserID == uuid.Nil || len(p.Items) == 0 {
			return nil, rejectf("order_created %s is missing order number, user or items", event.AggregateID)
		}
		units := 0
		for _, line := range p.Items {
			units += line.Quantity
		}
		attrs["order_number"] = p.OrderNumber
		attrs["user_id"] = p.UserID.String()
		attrs["source"] = p.Source
		attrs["total_price"] = p.TotalPrice
		attrs["units"] = strconv.Itoa(units)
	case *payloads.UserRegisteredEvent:
		if p.UserID == uuid.Nil {
			return nil, rejectf("user_registered %s has no user id", event.AggregateID)
		}
		attrs["user_id"] = p.UserID.String()
		attrs["referral_code"] = p.ReferralCode
	case *payloads.UserReferredEvent:
		if p.ReferrerID == uuid.Nil || p.NewUserID == uuid.Nil {
			return nil, rejectf("user_referred %s is missing a party", event.AggregateID)
		}
		attrs["user_id"] = p.NewUserID.String()
		attrs["referrer_id"] = p.ReferrerID.String()
	default:
		return nil, rejectf("no message layout for %T", resolved.Payload)
	}

	return &gcppubsub.Message{Data: event.Payload, Attributes: attrs}, nil
}

func rejectf(format string, args ...any) error {
	return registry.NewNonRetryableError(fmt.Errorf(format, args...))
}
