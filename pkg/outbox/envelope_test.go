package outbox

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestDecodeEnvelope(t *testing.T) {
	id := uuid.New()
	envelope, eventID, err := DecodeEnvelope([]byte(`{"version":1,"eventId":"` + id.String() + `","data":{"orderId":"ORD-1"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if eventID != id || envelope.EventID != id.String() {
		t.Fatalf("event id mismatch: %s", eventID)
	}

	rejects := map[string]string{
		"not json":       `{"version":`,
		"future version": `{"version":2,"eventId":"` + id.String() + `","data":{}}`,
		"zero version":   `{"eventId":"` + id.String() + `","data":{}}`,
		"bad event id":   `{"version":1,"eventId":"evt-1","data":{}}`,
		"null data":      `{"version":1,"eventId":"` + id.String() + `","data":null}`,
		"missing data":   `{"version":1,"eventId":"` + id.String() + `"}`,
	}
	for name, raw := range rejects {
		if _, _, err := DecodeEnvelope([]byte(raw)); !errors.Is(err, ErrInvalidEnvelope) {
			t.Fatalf("%s: expected ErrInvalidEnvelope, got %v", name, err)
		}
	}
}
