package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	// DefaultBodyLimit caps report, status and settings bodies
	DefaultBodyLimit int64 = 64 << 10

	// BulkBodyLimit caps recipient lists: 5000 addresses of up to 320
	// bytes plus a 4000-character message
	BulkBodyLimit int64 = 2 << 20
)

var (
	// ErrEmptyBody is returned when the request has no body at all
	ErrEmptyBody = errors.New("request body is empty")

	// ErrBodyTooLarge is returned when the body exceeds its limit
	ErrBodyTooLarge = errors.New("request body too large")
)

// DecodeJSON decodes a body of at most DefaultBodyLimit bytes into dst.
func DecodeJSON(r *http.Request, dst interface{}) error {
	return DecodeJSONLimit(r, dst, DefaultBodyLimit)
}

// DecodeJSONLimit decodes exactly one JSON value of at most limit bytes into
// dst. Unknown fields are rejected. Errors are phrased for API clients.
func DecodeJSONLimit(r *http.Request, dst interface{}, limit int64) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrEmptyBody
	}

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, limit))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return decodeError(err, limit)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return decodeError(err, limit)
		}
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func decodeError(err error, limit int64) error {
	var syntaxErr *json.SyntaxError
	var unmarshalTypeErr *json.UnmarshalTypeError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &maxBytesErr):
		return fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, limit)
	case errors.As(err, &syntaxErr):
		return fmt.Errorf("malformed JSON at position %d", syntaxErr.Offset)
	case errors.As(err, &unmarshalTypeErr):
		return fmt.Errorf("invalid value for field %q: expected %s", unmarshalTypeErr.Field, unmarshalTypeErr.Type)
	case errors.Is(err, io.EOF):
		return ErrEmptyBody
	case strings.HasPrefix(err.Error(), "json: unknown field"):
		return fmt.Errorf("unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
	default:
		return errors.New("invalid JSON in request body")
	}
}
