package encoding

import (
	"encoding/json"
	"fmt"

	"github.com/synheart/wardwatch/internal/models"
)

// Format represents the encoding format
type Format string

const (
	FormatJSON     Format = "json"
	FormatProtobuf Format = "protobuf"
)

// ParseFormat accepts json, protobuf or proto.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "json", "ndjson":
		return FormatJSON, nil
	case "protobuf", "proto", "pb":
		return FormatProtobuf, nil
	}
	return "", fmt.Errorf("unknown format %q (want json or protobuf)", s)
}

// Encoder encodes frames to bytes
type Encoder interface {
	Encode(frame models.Frame) ([]byte, error)
	ContentType() string
}

// Decoder is the inverse of Encoder.
type Decoder interface {
	Decode(data []byte) (models.Frame, error)
}

// Codec encodes and decodes one format.
type Codec interface {
	Encoder
	Decoder
}

// JSONEncoder encodes frames as JSON objects
type JSONEncoder struct{}

func NewJSONEncoder() *JSONEncoder {
	return &JSONEncoder{}
}

func (e *JSONEncoder) Encode(frame models.Frame) ([]byte, error) {
	if len(frame.Data) > 0 && !json.Valid(frame.Data) {
		// keep undecodable payloads so replays reproduce the drop
		raw, err := json.Marshal(string(frame.Data))
		if err != nil {
			return nil, err
		}
		frame.Data = raw
		return json.Marshal(jsonFrame{Frame: frame, Raw: true})
	}
	return json.Marshal(jsonFrame{Frame: frame})
}

func (e *JSONEncoder) Decode(data []byte) (models.Frame, error) {
	var jf jsonFrame
	if err := json.Unmarshal(data, &jf); err != nil {
		return models.Frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	if jf.Raw {
		var s string
		if err := json.Unmarshal(jf.Data, &s); err != nil {
			return models.Frame{}, fmt.Errorf("failed to decode raw frame: %w", err)
		}
		jf.Data = []byte(s)
	}
	return jf.Frame, nil
}

func (e *JSONEncoder) ContentType() string {
	return "application/json"
}

type jsonFrame struct {
	models.Frame
	Raw bool `json:"raw,omitempty"`
}

// NewCodec creates a codec for the given format
func NewCodec(format Format) Codec {
	switch format {
	case FormatProtobuf:
		return NewProtobufEncoder()
	default:
		return NewJSONEncoder()
	}
}
