// Package codec encodes messages and render plans for the bus. JSON goes
// through sonic; the proto format carries the same document as a
// google.protobuf.Struct.
package codec

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	errspkg "github.com/drblury/msgflow/internal/runtime/errors"
)

// Format names a wire format.
type Format string

const (
	FormatJSON  Format = "json"
	FormatProto Format = "proto"
)

// Codec converts values to and from one wire format.
type Codec interface {
	Format() Format
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// ForFormat returns the codec for a configured format name. Empty selects
// JSON.
func ForFormat(name string) (Codec, error) {
	switch Format(strings.ToLower(strings.TrimSpace(name))) {
	case "", FormatJSON:
		return JSON{}, nil
	case FormatProto:
		return Proto{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errspkg.ErrUnsupportedWireFormat, name)
	}
}

// JSON is the default codec.
type JSON struct{}

func (JSON) Format() Format                     { return FormatJSON }
func (JSON) ContentType() string                { return "application/json" }
func (JSON) Marshal(v any) ([]byte, error)      { return Marshal(v) }
func (JSON) Unmarshal(data []byte, v any) error { return Unmarshal(data, v) }

// Proto wraps the JSON document of v in a structpb.Struct. Numbers travel as
// doubles, which is exact for ids below 2^53.
type Proto struct{}

func (Proto) Format() Format      { return FormatProto }
func (Proto) ContentType() string { return "application/x-protobuf" }

func (Proto) Marshal(v any) ([]byte, error) {
	doc, err := Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := Unmarshal(doc, &fields); err != nil {
		return nil, fmt.Errorf("proto codec needs an object: %w", err)
	}
	st, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("build struct: %w", err)
	}
	return proto.Marshal(st)
}

func (Proto) Unmarshal(data []byte, v any) error {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return fmt.Errorf("decode struct: %w", err)
	}
	doc, err := Marshal(st.AsMap())
	if err != nil {
		return err
	}
	return Unmarshal(doc, v)
}
