// Package wire encodes and decodes the ai-face.v1 envelopes exchanged
// between the authority and displays.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"aiface/internal/scene"
)

const (
	HelloClient   = "mcp-server"
	HelloProtocol = "display-transport.v1"
)

var (
	ErrMalformed         = errors.New("malformed message")
	ErrUnsupportedSchema = errors.New("unsupported schema")
	ErrUnknownType       = errors.New("unknown message type")
	ErrMissingFaceBase   = errors.New("scene has no " + scene.ProtectedShapeID)
)

// Type is the envelope discriminator.
type Type string

const (
	TypeHello          Type = "hello"
	TypeSetScene       Type = "set_scene"
	TypeApplyMutations Type = "apply_mutations"
	TypeReset          Type = "reset"
)

// Envelope is the outer frame of every message.
type Envelope struct {
	Schema  string          `json:"schema"`
	Type    Type            `json:"type"`
	TS      int64           `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

// Message is one of Hello, SetScene, ApplyMutations or Reset.
type Message interface {
	MessageType() Type
}

type Hello struct {
	Client   string `json:"client"`
	Protocol string `json:"protocol"`
}

type SetScene struct {
	Scene scene.Document `json:"scene"`
}

type ApplyMutations struct {
	Mutations []scene.Mutation `json:"mutations"`
}

type Reset struct {
	Reason string `json:"reason,omitempty"`
}

func (Hello) MessageType() Type { return TypeHello }
func (SetScene) MessageType() Type { return TypeSetScene }
func (ApplyMutations) MessageType() Type { return TypeApplyMutations }
func (Reset) MessageType() Type { return TypeReset }

// Encode frames msg in a v1 envelope stamped with ts (unix ms).
func Encode(msg Message, ts int64) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", msg.MessageType(), err)
	}
	return json.Marshal(Envelope{
		Schema:  scene.SchemaV1,
		Type:    msg.MessageType(),
		TS:      ts,
		Payload: payload,
	})
}

func EncodeHello(ts int64) ([]byte, error) {
	return Encode(Hello{Client: HelloClient, Protocol: HelloProtocol}, ts)
}

func EncodeSetScene(doc scene.Document, ts int64) ([]byte, error) {
	return Encode(SetScene{Scene: doc}, ts)
}

func EncodeApplyMutations(mutations []scene.Mutation, ts int64) ([]byte, error) {
	if mutations == nil {
		mutations = []scene.Mutation{}
	}
	return Encode(ApplyMutations{Mutations: mutations}, ts)
}

func EncodeReset(reason string, ts int64) ([]byte, error) {
	return Encode(Reset{Reason: reason}, ts)
}

// Parse decodes a raw envelope. Any schema mismatch, unknown type or
// undecodable payload rejects the whole message. A set_scene document is
// returned sanitized and must hold the protected shape.
func Parse(raw []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.Schema != scene.SchemaV1 {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSchema, env.Schema)
	}
	payload := env.Payload
	if p := bytes.TrimSpace(payload); len(p) == 0 || bytes.Equal(p, []byte("null")) {
		payload = []byte("{}")
	}

	switch env.Type {
	case TypeHello:
		var h Hello
		if err := decodePayload(payload, &h); err != nil {
			return nil, err
		}
		return h, nil
	case TypeSetScene:
		return parseSetScene(payload)
	case TypeApplyMutations:
		var body struct {
			Mutations *[]scene.Mutation `json:"mutations"`
		}
		if err := decodePayload(payload, &body); err != nil {
			return nil, err
		}
		if body.Mutations == nil {
			return nil, fmt.Errorf("%w: apply_mutations without mutations", ErrMalformed)
		}
		return ApplyMutations{Mutations: *body.Mutations}, nil
	case TypeReset:
		var r Reset
		if err := decodePayload(payload, &r); err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
}

func parseSetScene(payload []byte) (Message, error) {
	var body struct {
		Scene *scene.Document `json:"scene"`
	}
	if err := decodePayload(payload, &body); err != nil {
		return nil, err
	}
	if body.Scene == nil {
		return nil, fmt.Errorf("%w: set_scene without scene", ErrMalformed)
	}
	doc := *body.Scene
	if doc.Schema != scene.SchemaV1 {
		return nil, fmt.Errorf("scene document: %w: %q", ErrUnsupportedSchema, doc.Schema)
	}
	doc.Scene = scene.Sanitize(doc.Scene)
	if !doc.Has(scene.ProtectedShapeID) {
		return nil, ErrMissingFaceBase
	}
	return SetScene{Scene: doc}, nil
}

func decodePayload(payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return nil
}
