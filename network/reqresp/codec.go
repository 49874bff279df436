package reqresp

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	ssz "github.com/ferranbt/fastssz"
	"github.com/klauspost/compress/snappy"
	"github.com/multiformats/go-varint"
)

// maxPayloadSize bounds the uncompressed size of any payload accepted from the wire.
const maxPayloadSize = 1 << 20

// maxErrorMessageSize bounds error messages sent along a non-success result.
const maxErrorMessageSize = 256

// ResultCode is the first byte of every response.
type ResultCode byte

const (
	ResultSuccess ResultCode = iota
	ResultInvalidRequest
	ResultServerError
	ResultResourceUnavailable
)

var (
	// ErrPayloadTooLarge is returned when the announced payload length exceeds the allowed size.
	ErrPayloadTooLarge = errors.New("reqresp: payload too large")
	// ErrInvalidResponse is returned when the remote answers with an unexpected payload.
	ErrInvalidResponse = errors.New("reqresp: invalid response")
)

// ResponseError is returned by outbound calls when the remote answers with a non-success result.
type ResponseError struct {
	Code    ResultCode
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("reqresp: remote responded with code %d: %s", e.Code, e.Message)
}

// writePayload writes the varint length of the payload followed by its snappy frames.
func writePayload(w io.Writer, payload []byte) error {
	if len(payload) > maxPayloadSize {
		return ErrPayloadTooLarge
	}
	if _, err := w.Write(varint.ToUvarint(uint64(len(payload)))); err != nil {
		return err
	}
	sw := snappy.NewBufferedWriter(w)
	if _, err := sw.Write(payload); err != nil {
		return err
	}
	// Close flushes the frames without closing w.
	return sw.Close()
}

// readPayload reads a payload written by writePayload. expected of -1 accepts any length up to the
// limit.
func readPayload(r *bufio.Reader, expected int) ([]byte, error) {
	length, err := varint.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	if length > maxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	if expected >= 0 && int(length) != expected {
		return nil, fmt.Errorf("%w: payload length %d, expected %d", ErrInvalidResponse, length, expected)
	}

	payload := make([]byte, length)
	if _, err = io.ReadFull(snappy.NewReader(r), payload); err != nil {
		return nil, fmt.Errorf("reading snappy payload: %w", err)
	}
	return payload, nil
}

func writeMessage(w io.Writer, msg ssz.Marshaler) error {
	payload, err := msg.MarshalSSZ()
	if err != nil {
		return err
	}
	return writePayload(w, payload)
}

type sszMessage interface {
	ssz.Marshaler
	ssz.Unmarshaler
}

func readMessage(r *bufio.Reader, msg sszMessage) error {
	payload, err := readPayload(r, msg.SizeSSZ())
	if err != nil {
		return err
	}
	return msg.UnmarshalSSZ(payload)
}

// writeResponse writes a successful response chunk.
func writeResponse(w io.Writer, msg ssz.Marshaler) error {
	if _, err := w.Write([]byte{byte(ResultSuccess)}); err != nil {
		return err
	}
	return writeMessage(w, msg)
}

// writeErrorResponse writes a non-success result with a short message.
func writeErrorResponse(w io.Writer, code ResultCode, msg string) error {
	if len(msg) > maxErrorMessageSize {
		msg = msg[:maxErrorMessageSize]
	}
	if _, err := w.Write([]byte{byte(code)}); err != nil {
		return err
	}
	return writePayload(w, []byte(msg))
}

// readResponse reads a response chunk into msg or returns a *ResponseError.
func readResponse(r *bufio.Reader, msg sszMessage) error {
	code, err := r.ReadByte()
	if err != nil {
		return err
	}
	if ResultCode(code) != ResultSuccess {
		text, err := readPayload(r, -1)
		if err != nil {
			return &ResponseError{Code: ResultCode(code)}
		}
		return &ResponseError{Code: ResultCode(code), Message: string(text)}
	}
	return readMessage(r, msg)
}
