package cache

import (
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec names accepted by Config.Codec.
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
	CodecCBOR    = "cbor"
)

// Codec encodes entries for storage.
// Decoding into a struct must ignore fields the struct does not declare.
type Codec interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// NewCodec returns the codec registered under name. A positive maxBytes
// rejects larger payloads on Unmarshal.
func NewCodec(name string, maxBytes int) (Codec, error) {
	var c Codec
	switch name {
	case "", CodecJSON:
		c = JSONCodec{}
	case CodecMsgpack:
		c = MsgpackCodec{}
	case CodecCBOR:
		cb, err := NewCBORCodec()
		if err != nil {
			return nil, err
		}
		c = cb
	default:
		return nil, fmt.Errorf("unknown codec %q (want json, msgpack or cbor)", name)
	}

	if maxBytes > 0 {
		return LimitCodec{Inner: c, MaxDecode: maxBytes}, nil
	}
	return c, nil
}

// JSONCodec stores entries as JSON, matching what route handlers return.
type JSONCodec struct{}

func (JSONCodec) Name() string                       { return CodecJSON }
func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// MsgpackCodec stores entries with vmihailenco/msgpack.
// Payload types need `msgpack` tags if their JSON names matter.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string                       { return CodecMsgpack }
func (MsgpackCodec) Marshal(v any) ([]byte, error)      { return msgpack.Marshal(v) }
func (MsgpackCodec) Unmarshal(data []byte, v any) error { return msgpack.Unmarshal(data, v) }

// CBORCodec stores entries as CBOR. Construct with NewCBORCodec.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// NewCBORCodec uses preferred (compact) encoding and RFC3339Nano timestamps.
func NewCBORCodec() (CBORCodec, error) {
	eo := cbor.PreferredUnsortedEncOptions()
	eo.Time = cbor.TimeRFC3339Nano

	em, err := eo.EncMode()
	if err != nil {
		return CBORCodec{}, fmt.Errorf("cbor enc mode: %w", err)
	}
	dm, err := (cbor.DecOptions{}).DecMode()
	if err != nil {
		return CBORCodec{}, fmt.Errorf("cbor dec mode: %w", err)
	}
	return CBORCodec{enc: em, dec: dm}, nil
}

func (c CBORCodec) Name() string                       { return CodecCBOR }
func (c CBORCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c CBORCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

// LimitCodec guards Unmarshal against oversized payloads from the shared backend.
type LimitCodec struct {
	Inner     Codec
	MaxDecode int
}

func (c LimitCodec) Name() string                  { return c.Inner.Name() }
func (c LimitCodec) Marshal(v any) ([]byte, error) { return c.Inner.Marshal(v) }

func (c LimitCodec) Unmarshal(data []byte, v any) error {
	if c.MaxDecode > 0 && len(data) > c.MaxDecode {
		return fmt.Errorf("payload too large: %d > %d bytes", len(data), c.MaxDecode)
	}
	return c.Inner.Unmarshal(data, v)
}
