package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Common errors returned by the client.
var (
	// ErrInvalidConfig is returned by New for unusable construction input.
	ErrInvalidConfig = errors.New("invalid client configuration")

	// ErrContextCancelled is returned when the context ends while waiting to retry.
	ErrContextCancelled = errors.New("context cancelled")
)

// maxTextMessage is how many characters of a plain-text or HTML error body
// make it into CanvasError.Message.
const maxTextMessage = 200

// ErrorKind distinguishes failures where no response arrived from failures
// carried by an HTTP response.
type ErrorKind string

const (
	// ErrorKindNetwork means no response was received (DNS, reset, timeout).
	ErrorKindNetwork ErrorKind = "network"

	// ErrorKindHTTP means Canvas answered with a failing status.
	ErrorKindHTTP ErrorKind = "http"

	// ErrorKindDecode means a successful response could not be decoded.
	ErrorKindDecode ErrorKind = "decode"
)

// CanvasError is the single error type surfaced by the client once retries
// are exhausted or a failure is fatal.
type CanvasError struct {
	Kind ErrorKind

	// StatusCode is 0 when no response was received.
	StatusCode int

	// Message is the short human-readable message extracted from the body.
	Message string

	// Method and Path identify the failing operation.
	Method string
	Path   string

	// Body is the raw response body, untouched.
	Body []byte

	// Payload is the decoded body: a JSON value, or the body as a string.
	Payload any

	Err error
}

// Error implements the error interface.
func (e *CanvasError) Error() string {
	op := strings.TrimSpace(e.Method + " " + e.Path)
	switch e.Kind {
	case ErrorKindNetwork:
		if e.Err != nil {
			return fmt.Sprintf("%s: network error: %v", op, e.Err)
		}
		return fmt.Sprintf("%s: network error: %s", op, e.Message)
	case ErrorKindDecode:
		return fmt.Sprintf("%s: invalid response (%d): %v", op, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s: canvas API error (%d): %s", op, e.StatusCode, e.Message)
	}
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *CanvasError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a
// CanvasError or no response was received.
func StatusCode(err error) int {
	var ce *CanvasError
	if errors.As(err, &ce) {
		return ce.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a Canvas 404.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsNetwork reports whether err is a failure where no response arrived.
func IsNetwork(err error) bool {
	var ce *CanvasError
	return errors.As(err, &ce) && ce.Kind == ErrorKindNetwork
}

// bodyKind tags the shapes an error body can take.
type bodyKind int

const (
	bodyText      bodyKind = iota // non-JSON body or a JSON string
	bodyMessage                   // object with a "message" field
	bodyErrorList                 // object with an "errors" array
	bodyOther                     // any other JSON value
)

// errorBody is a decoded error body together with its shape.
type errorBody struct {
	kind    bodyKind
	text    string
	payload any
}

// classifyBody resolves the shape of an error body by ordered match:
// text, then message, then errors array, then anything else.
func classifyBody(raw []byte) errorBody {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return errorBody{kind: bodyText, text: string(raw), payload: string(raw)}
	}

	switch t := v.(type) {
	case string:
		return errorBody{kind: bodyText, text: t, payload: t}
	case map[string]any:
		if msg, ok := t["message"]; ok && present(msg) {
			return errorBody{kind: bodyMessage, text: stringify(msg), payload: t}
		}
		if _, ok := t["errors"].([]any); ok {
			return errorBody{kind: bodyErrorList, payload: t}
		}
	}
	return errorBody{kind: bodyOther, payload: v}
}

// message extracts the short message for each body shape.
func (b errorBody) message() string {
	switch b.kind {
	case bodyText:
		return truncate(b.text, maxTextMessage)
	case bodyMessage:
		return b.text
	case bodyErrorList:
		entries := b.payload.(map[string]any)["errors"].([]any)
		parts := make([]string, 0, len(entries))
		for _, entry := range entries {
			if m, ok := entry.(map[string]any); ok && present(m["message"]) {
				parts = append(parts, stringify(m["message"]))
				continue
			}
			parts = append(parts, stringify(entry))
		}
		return strings.Join(parts, ", ")
	default:
		return stringify(b.payload)
	}
}

// present mirrors a truthiness check: nil, "" and false carry no message.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	default:
		return true
	}
}

// stringify renders strings verbatim and everything else as compact JSON,
// falling back to fmt when serialization fails.
func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

// normalizeError builds the CanvasError for a terminal failure. Exactly one
// of resp or cause describes the failure; a nil resp means no response.
func normalizeError(req *Request, resp *Response, cause error) *CanvasError {
	if resp == nil {
		return &CanvasError{
			Kind:   ErrorKindNetwork,
			Method: req.Method,
			Path:   req.Path,
			Err:    cause,
		}
	}

	body := classifyBody(resp.Body)
	msg := body.message()
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &CanvasError{
		Kind:       ErrorKindHTTP,
		StatusCode: resp.StatusCode,
		Message:    msg,
		Method:     req.Method,
		Path:       req.Path,
		Body:       resp.Body,
		Payload:    body.payload,
		Err:        cause,
	}
}

// decodeError wraps a failure to decode a successful response.
func decodeError(req *Request, resp *Response, cause error) *CanvasError {
	return &CanvasError{
		Kind:       ErrorKindDecode,
		StatusCode: resp.StatusCode,
		Message:    cause.Error(),
		Method:     req.Method,
		Path:       req.Path,
		Body:       resp.Body,
		Err:        cause,
	}
}
