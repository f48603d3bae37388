package encoding

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/synheart/wardwatch/internal/models"
)

const maxLine = 4 << 20

// FrameWriter appends frames to a recording.
type FrameWriter interface {
	Write(frame models.Frame) error
}

// FrameReader reads frames back in order and returns io.EOF at the end.
type FrameReader interface {
	Read() (models.Frame, error)
}

// NewWriter writes newline-delimited JSON or length-delimited protobuf.
func NewWriter(w io.Writer, format Format) FrameWriter {
	if format == FormatProtobuf {
		return &protoWriter{w: w}
	}
	return &lineWriter{w: w, enc: NewJSONEncoder()}
}

// NewReader reads what NewWriter wrote in the same format.
func NewReader(r io.Reader, format Format) FrameReader {
	if format == FormatProtobuf {
		return &protoReader{r: bufio.NewReader(r)}
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)
	return &lineReader{scanner: scanner, dec: NewJSONEncoder()}
}

type lineWriter struct {
	w   io.Writer
	enc *JSONEncoder
}

func (lw *lineWriter) Write(frame models.Frame) error {
	data, err := lw.enc.Encode(frame)
	if err != nil {
		return err
	}
	if _, err := lw.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

type lineReader struct {
	scanner *bufio.Scanner
	dec     *JSONEncoder
	line    int
}

func (lr *lineReader) Read() (models.Frame, error) {
	for lr.scanner.Scan() {
		lr.line++
		if len(lr.scanner.Bytes()) == 0 {
			continue
		}
		f, err := lr.dec.Decode(lr.scanner.Bytes())
		if err != nil {
			return models.Frame{}, fmt.Errorf("line %d: %w", lr.line, err)
		}
		return f, nil
	}
	if err := lr.scanner.Err(); err != nil {
		return models.Frame{}, fmt.Errorf("error reading recording: %w", err)
	}
	return models.Frame{}, io.EOF
}

type protoWriter struct {
	w io.Writer
}

func (pw *protoWriter) Write(frame models.Frame) error {
	pb, err := frameToProto(frame)
	if err != nil {
		return err
	}
	if _, err := protodelim.MarshalTo(pw.w, pb); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

type protoReader struct {
	r *bufio.Reader
	n int
}

func (pr *protoReader) Read() (models.Frame, error) {
	var pb structpb.Struct
	if err := protodelim.UnmarshalFrom(pr.r, &pb); err != nil {
		if errors.Is(err, io.EOF) {
			return models.Frame{}, io.EOF
		}
		return models.Frame{}, fmt.Errorf("frame %d: %w", pr.n+1, err)
	}
	pr.n++
	return frameFromProto(&pb)
}
