package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethoparts/marketplace-backend/pkg/enums"
)

// ErrNoDecoder is returned for an event type/version pair nobody registered.
var ErrNoDecoder = errors.New("no decoder registered")

// Decoder turns a raw envelope payload into a typed event.
type Decoder func(payload json.RawMessage) (any, error)

// JSON decodes into a fresh *T.
func JSON[T any](payload json.RawMessage) (any, error) {
	out := new(T)
	if err := json.Unmarshal(payload, out); err != nil {
		return nil, err
	}
	return out, nil
}

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry maps (event type, payload version) to a decoder. It is
// filled during startup and read-only afterwards, so lookups take no lock.
type DecoderRegistry struct {
	decoders map[decoderKey]Decoder
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[decoderKey]Decoder)}
}

// Register adds or replaces the decoder for eventType at version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder Decoder) {
	r.decoders[decoderKey{eventType, version}] = decoder
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	decoder, ok := r.decoders[decoderKey{eventType, version}]
	if !ok {
		return nil, fmt.Errorf("%w for %s@v%d", ErrNoDecoder, eventType, version)
	}
	return decoder(payload)
}
