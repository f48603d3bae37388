package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/synheart/wardwatch/internal/models"
)

// Field names of the protobuf frame message.
const (
	fieldEvent      = "event"
	fieldData       = "data"
	fieldRaw        = "raw"
	fieldReceivedAt = "received_at"
)

// ProtobufEncoder encodes frames as google.protobuf.Struct messages. The payload
// is carried as a structured value, or as a raw string when it is not JSON.
type ProtobufEncoder struct{}

func NewProtobufEncoder() *ProtobufEncoder {
	return &ProtobufEncoder{}
}

func (e *ProtobufEncoder) Encode(frame models.Frame) ([]byte, error) {
	pb, err := frameToProto(frame)
	if err != nil {
		return nil, err
	}
	return proto.Marshal(pb)
}

func (e *ProtobufEncoder) Decode(data []byte) (models.Frame, error) {
	var pb structpb.Struct
	if err := proto.Unmarshal(data, &pb); err != nil {
		return models.Frame{}, fmt.Errorf("failed to decode frame: %w", err)
	}
	return frameFromProto(&pb)
}

func (e *ProtobufEncoder) ContentType() string {
	return "application/x-protobuf"
}

func frameToProto(f models.Frame) (*structpb.Struct, error) {
	fields := map[string]*structpb.Value{
		fieldEvent: structpb.NewStringValue(f.Event),
	}
	if !f.ReceivedAt.IsZero() {
		fields[fieldReceivedAt] = structpb.NewStringValue(f.ReceivedAt.Format(time.RFC3339Nano))
	}

	payload, ok := structPayload(f.Data)
	if !ok {
		fields[fieldRaw] = structpb.NewStringValue(string(f.Data))
		return &structpb.Struct{Fields: fields}, nil
	}
	v, err := structpb.NewValue(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to convert payload: %w", err)
	}
	fields[fieldData] = v
	return &structpb.Struct{Fields: fields}, nil
}

// structPayload decodes data for a structpb value. ok is false when data is not
// JSON or holds an integer that a float64 cannot represent exactly; such payloads
// are kept as raw text.
func structPayload(data []byte) (payload any, ok bool) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return exactNumbers(payload)
}

const maxExactInt = 1 << 53

func exactNumbers(v any) (any, bool) {
	switch t := v.(type) {
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil || n > maxExactInt || n < -maxExactInt {
				return nil, false
			}
			return float64(n), true
		}
		f, err := t.Float64()
		if err != nil {
			return nil, false
		}
		return f, true
	case map[string]any:
		for k, e := range t {
			conv, ok := exactNumbers(e)
			if !ok {
				return nil, false
			}
			t[k] = conv
		}
		return t, true
	case []any:
		for i, e := range t {
			conv, ok := exactNumbers(e)
			if !ok {
				return nil, false
			}
			t[i] = conv
		}
		return t, true
	}
	return v, true
}

func frameFromProto(pb *structpb.Struct) (models.Frame, error) {
	var f models.Frame
	fields := pb.GetFields()

	f.Event = fields[fieldEvent].GetStringValue()
	if ts := fields[fieldReceivedAt].GetStringValue(); ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return models.Frame{}, fmt.Errorf("failed to parse received_at: %w", err)
		}
		f.ReceivedAt = t
	}

	if raw, ok := fields[fieldRaw]; ok {
		f.Data = []byte(raw.GetStringValue())
		return f, nil
	}
	data, err := json.Marshal(fields[fieldData].AsInterface())
	if err != nil {
		return models.Frame{}, fmt.Errorf("failed to encode payload: %w", err)
	}
	f.Data = data
	return f, nil
}
