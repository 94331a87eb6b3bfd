package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EnvelopeVersion is the newest envelope layout this build writes and the newest it accepts.
const EnvelopeVersion = 1

var ErrInvalidEnvelope = errors.New("invalid outbox envelope")

type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
}

// PayloadEnvelope wraps every outbox payload. EventID equals the outbox row id, so consumers,
// the dead-letter table and requeues all refer to one identifier.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses raw and rejects unknown versions, malformed event ids and empty data.
// Every failure wraps ErrInvalidEnvelope.
func DecodeEnvelope(raw []byte) (PayloadEnvelope, uuid.UUID, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return PayloadEnvelope{}, uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if envelope.Version < 1 || envelope.Version > EnvelopeVersion {
		return PayloadEnvelope{}, uuid.Nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidEnvelope, envelope.Version)
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return PayloadEnvelope{}, uuid.Nil, fmt.Errorf("%w: event id: %v", ErrInvalidEnvelope, err)
	}
	data := bytes.TrimSpace(envelope.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return PayloadEnvelope{}, uuid.Nil, fmt.Errorf("%w: empty data", ErrInvalidEnvelope)
	}
	return envelope, eventID, nil
}

// EncodeEnvelope wraps data under eventID in the current envelope version.
func EncodeEnvelope(eventID uuid.UUID, occurredAt time.Time, actor *ActorRef, data any) (json.RawMessage, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode event data: %w", err)
	}
	raw, err := json.Marshal(PayloadEnvelope{
		Version:    EnvelopeVersion,
		EventID:    eventID.String(),
		OccurredAt: occurredAt.UTC(),
		Actor:      actor,
		Data:       body,
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return raw, nil
}
