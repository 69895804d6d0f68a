// Package core wires components C1-C10 together behind a TCP listener:
// per-connection session FSMs (C6) framed over the wire protocol (C5),
// routed by message type (spec §4.5) into the FFI dispatcher (C3), the
// pub/sub layer (C7), and the memory bridge (C2), with the service
// registry (C8) and performance manager (C10) shared across connections.
package core

import (
	"encoding/json"

	"github.com/obinexus/polycall-core/internal/corectx"
	"github.com/obinexus/polycall-core/internal/values"
)

// No wire envelope is specified below the raw framer (spec §6 only fixes
// the 16-byte header); payloads for the structured message types are
// JSON, the same choice the teacher makes for its own control-plane API
// (`pkg/api/server.go`'s JSON responses) rather than inventing a bespoke
// binary format for a concern the spec leaves open.

// argEnvelope is one FFI argument's wire representation: its kind tag plus
// raw value bytes (as produced by values.Value.GetData).
type argEnvelope struct {
	Kind values.Kind `json:"kind"`
	Data []byte      `json:"data"`
}

// commandEnvelope is a COMMAND message payload: the function to invoke,
// the language to dispatch into, and its arguments.
type commandEnvelope struct {
	Function   string        `json:"function"`
	TargetLang string        `json:"target_lang"`
	Args       []argEnvelope `json:"args"`
}

// responseEnvelope is a RESPONSE message payload.
type responseEnvelope struct {
	Kind values.Kind `json:"kind"`
	Data []byte      `json:"data"`
}

// subscribeEnvelope is a SUBSCRIBE message payload.
type subscribeEnvelope struct {
	Topic string `json:"topic"`
}

// subscribeAckEnvelope is returned to the caller (over RESPONSE) carrying
// the subscription id needed for a later UNSUBSCRIBE.
type subscribeAckEnvelope struct {
	SubscriptionID uint64 `json:"subscription_id"`
}

// unsubscribeEnvelope is an UNSUBSCRIBE message payload.
type unsubscribeEnvelope struct {
	SubscriptionID uint64 `json:"subscription_id"`
}

// publishEnvelope is a PUBLISH message payload, used both for the
// outbound client->server publish and the server->subscriber fan-out.
type publishEnvelope struct {
	Topic string `json:"topic"`
	Data  []byte `json:"data"`
}

func decodeEnvelope(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return corectx.NewWithCause("core", corectx.CodeInvalidParameter, "malformed payload", err)
	}
	return nil
}

func encodeEnvelope(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, corectx.NewWithCause("core", corectx.CodeInternal, "failed to encode payload", err)
	}
	return data, nil
}

// argsToValues converts a decoded commandEnvelope's arguments into
// *values.Value, reconstructing each from its kind and raw bytes. Only
// scalar kinds (fixed-width or string) round-trip through this envelope;
// struct/array/callback/object arguments are out of scope for the wire
// protocol and are rejected.
func argsToValues(args []argEnvelope) ([]*values.Value, error) {
	out := make([]*values.Value, len(args))
	for i, a := range args {
		v, err := values.New(a.Kind, nil)
		if err != nil {
			return nil, err
		}
		if a.Kind == values.KindString {
			s := a.Data
			if n := len(s); n > 0 && s[n-1] == 0 {
				s = s[:n-1]
			}
			if err := v.SetString(string(s)); err != nil {
				return nil, err
			}
		} else if err := v.SetData(a.Data); err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// valueToResponse converts a call result into its wire representation.
func valueToResponse(v *values.Value) (responseEnvelope, error) {
	data, err := v.GetData()
	if err != nil {
		return responseEnvelope{}, err
	}
	return responseEnvelope{Kind: v.Kind, Data: data}, nil
}
