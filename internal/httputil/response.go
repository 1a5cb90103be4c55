// Package httputil holds the JSON request and response helpers shared by the
// FrameStore HTTP layer.
package httputil

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/R3E-Network/framestore/internal/errors"
	"github.com/R3E-Network/framestore/pkg/logger"
)

// MaxBodyBytes caps request bodies read by DecodeJSON and ReadBody.
const MaxBodyBytes = 1 << 20

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// WriteErrorResponse writes the standard error body.
func WriteErrorResponse(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}) {
	if r != nil {
		if traceID := logger.TraceID(r.Context()); traceID != "" {
			w.Header().Set("X-Trace-ID", traceID)
		}
	}
	WriteJSON(w, status, &errors.ServiceError{
		Code:    errors.ErrorCode(code),
		Message: message,
		Details: details,
	})
}

// WriteError converts err to a ServiceError and writes it. Internal errors
// never expose the wrapped cause.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	se := errors.FromError(err)
	WriteErrorResponse(w, r, se.HTTPStatus, string(se.Code), se.Message, se.Details)
}

// Unauthorized writes a 401 with message, or a default one when empty.
func Unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	if message == "" {
		message = "authentication required"
	}
	WriteError(w, r, errors.Unauthorized(message))
}

// DecodeJSON reads a single JSON value from the request body into v. Unknown
// object fields are rejected when v is a struct.
func DecodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.BadRequest("request body is required")
	}
	data, err := ReadBody(r)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return errors.BadRequest("request body is required")
		}
		return errors.BadRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	if dec.More() {
		return errors.BadRequest("request body must contain a single JSON value")
	}
	return nil
}

// ReadBody returns the raw request body, bounded by MaxBodyBytes.
func ReadBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, errors.BadRequest("request body is required")
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return nil, errors.BadRequest("could not read request body")
	}
	if len(data) > MaxBodyBytes {
		return nil, errors.BadRequest("request body too large")
	}
	return data, nil
}

// QueryInt parses an optional integer query parameter.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.InvalidFormat(key, "must be an integer")
	}
	return n, nil
}

// QueryBool parses an optional boolean query parameter.
func QueryBool(r *http.Request, key string, def bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.InvalidFormat(key, "must be a boolean")
	}
	return b, nil
}
