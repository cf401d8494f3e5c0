package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/adebanjo23/DREW-AI-BACKEND/pkg/errors"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/httputil"
	"github.com/adebanjo23/DREW-AI-BACKEND/pkg/logger"
)

const maxBodyBytes = 1 << 20

// MsgInvalidUserID is returned when user_id is not an integer.
const MsgInvalidUserID = "Invalid user_id format. It must be convertible to an integer."

// flexibleID accepts a JSON number or a numeric string. The raw text is kept
// so presence and format can be checked separately.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a number or a string")
	}
	*f = flexibleID(n.String())
	return nil
}

// Int64 parses the id.
func (f flexibleID) Int64() (int64, error) {
	return strconv.ParseInt(string(f), 10, 64)
}

// errorBody is the flat error shape of the CRM endpoints.
type errorBody struct {
	Error          string   `json:"error"`
	RequiredFields []string `json:"required_fields,omitempty"`
}

// statusBody is the flat {status, message} shape.
type statusBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// decodeBody limits and decodes a JSON request body. On failure it writes a
// 400 and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	_, ok := decodeFields(w, r, dst)
	return ok
}

// decodeFields is decodeBody that also returns the body's top-level keys.
func decodeFields(w http.ResponseWriter, r *http.Request, dst any) (map[string]json.RawMessage, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	var fields map[string]json.RawMessage
	if err == nil {
		err = json.Unmarshal(raw, dst)
	}
	if err == nil {
		err = json.Unmarshal(raw, &fields)
	}
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), nil)
		return nil, false
	}
	return fields, true
}

// hasFields reports whether every name is a key of fields. A present key
// may hold null or an empty value.
func hasFields(fields map[string]json.RawMessage, names []string) bool {
	for _, name := range names {
		if _, ok := fields[name]; !ok {
			return false
		}
	}
	return true
}

// errorMessage picks the status and client-facing message for err.
// Internal failures are logged and never described to the client.
func errorMessage(r *http.Request, err error, fallback *slog.Logger) (int, string) {
	status := apperrors.HTTPStatus(err)

	message := "an internal error occurred"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	if status >= http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(r.Context(), "request failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}
	return status, message
}

// writeFlatError writes err as {"error": message}.
func writeFlatError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	status, message := errorMessage(r, err, fallback)
	httputil.WriteJSON(w, status, errorBody{Error: message})
}

// writeStatusError writes err as {"status": "error", "message": message}.
func writeStatusError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	status, message := errorMessage(r, err, fallback)
	httputil.WriteJSON(w, status, statusBody{Status: "error", Message: message})
}
