package main

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/registry"
)

func resolvedUserEvent(payload any) (models.OutboxEvent, *registry.ResolvedEvent) {
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventUserRegistered,
		AggregateType: enums.AggregateUser,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{"version":2}`),
	}
	return row, &registry.ResolvedEvent{
		Descriptor: registry.EventDescriptor{Topic: "storefront-users"},
		Envelope:   outbox.PayloadEnvelope{Version: 2, EventID: "evt-1", OccurredAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)},
		Payload:    payload,
	}
}

func TestBuildMessageForRegistration(t *testing.T) {
	userID := uuid.New()
	row, resolved := resolvedUserEvent(&payloads.UserRegisteredEvent{UserID: userID, Username: "lina", ReferralCode: "REF0A1B2C3D"})

	msg, err := buildMessage(row, resolved)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), msg.Attributes["user_id"])
	assert.Equal(t, "REF0A1B2C3D", msg.Attributes["referral_code"])
	assert.Equal(t, "2", msg.Attributes["schema_version"])
	assert.Equal(t, "evt-1", msg.Attributes["event_id"])
	assert.Equal(t, "2026-03-01T10:00:00Z", msg.Attributes["occurred_at"])
	assert.Equal(t, []byte(row.Payload), msg.Data)
}

func TestBuildMessageRejectsIncompletePayloads(t *testing.T) {
	cases := map[string]any{
		"registration without user": &payloads.UserRegisteredEvent{Username: "lina"},
		"referral without referrer": &payloads.UserReferredEvent{NewUserID: uuid.New()},
		"order without number":      &payloads.OrderCreatedEvent{UserID: uuid.New(), Items: []payloads.OrderLine{{Quantity: 1}}},
		"unexpected payload type":   &struct{ ID string }{ID: "x"},
	}
	for name, payload := range cases {
		row, resolved := resolvedUserEvent(payload)
		_, err := buildMessage(row, resolved)
		var rejected registry.NonRetryableError
		assert.True(t, errors.As(err, &rejected), name)
	}
}
