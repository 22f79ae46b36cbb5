package remote

import (
	"encoding/json"
	"fmt"

	"github.com/pentesthub/hubvault/internal/crypto"
)

// PayloadKind tags a fetched resource as plaintext or envelope.
type PayloadKind int

const (
	PayloadPlain PayloadKind = iota
	PayloadEnvelope
)

// Payload is the parse result for a fetched resource: exactly one of
// Envelope or Plain is set, decided once here at the remote boundary
// rather than by property-probing at call sites.
type Payload struct {
	Kind     PayloadKind
	Envelope *crypto.Envelope
	Plain    json.RawMessage
}

// DetectPayload classifies raw resource content. Any JSON carrying the
// exact envelope algorithm tag is an envelope; everything else is
// already-plaintext.
func DetectPayload(raw []byte) (*Payload, error) {
	if !json.Valid(raw) {
		return nil, fmt.Errorf("resource is not valid JSON")
	}

	if crypto.IsEnvelope(raw) {
		var env crypto.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("parse envelope: %w", err)
		}
		if err := env.Validate(); err != nil {
			return nil, fmt.Errorf("malformed envelope: %w", err)
		}
		return &Payload{Kind: PayloadEnvelope, Envelope: &env}, nil
	}

	return &Payload{Kind: PayloadPlain, Plain: json.RawMessage(raw)}, nil
}
