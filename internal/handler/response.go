package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
)

// codeInvalidRequest tags every 400 raised before a request reaches a
// service: bad media type, unreadable body or out-of-range query values.
const codeInvalidRequest = "invalid_request"

var (
	errNotJSON   = errors.New("body must be sent as application/json")
	errEmptyBody = errors.New("body is empty, expected a JSON object")
	errTrailing  = errors.New("body holds data after the JSON object")
)

// apiError is the body of every non-2xx response.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON encodes data as the response body under status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes the {"error","message"} envelope.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, apiError{Error: code, Message: message})
}

// writeInvalidRequest reports err as a 400 invalid_request.
func writeInvalidRequest(w http.ResponseWriter, err error) {
	WriteError(w, http.StatusBadRequest, codeInvalidRequest, err.Error())
}

// ParseJSON decodes a single JSON object from the request body into v.
// Fields v does not declare are rejected, as is anything after the object.
func ParseJSON(r *http.Request, v any) error {
	if !isJSON(r.Header.Get("Content-Type")) {
		return errNotJSON
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("malformed body: %v", err)
	}
	if dec.More() {
		return errTrailing
	}
	return nil
}

// isJSON reports whether a Content-Type header value names JSON. Parameters
// such as charset are ignored.
func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// formatTime renders timestamps as second-precision RFC 3339 in UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
