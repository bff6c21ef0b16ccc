package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"wealthtrack/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)
}

// quarterParam reads and normalizes a quarter id from the path.
func quarterParam(r *http.Request) string {
	return core.NormalizeQuarterID(sanitizeInput(r.PathValue("id")))
}

// confirmed reports whether the caller acknowledged a destructive action.
func confirmed(r *http.Request) bool {
	ok, err := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return err == nil && ok
}

var errBodyTooLarge = errors.New("request body too large")

// readBody reads at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	b, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return b, nil
}

// decodeJSON decodes a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	b, err := readBody(w, r, limit)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return errors.New("empty request body")
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// bodyErrorStatus maps a body read/decode failure to a status code.
func bodyErrorStatus(err error) int {
	if errors.Is(err, errBodyTooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

// isValidationError reports whether err comes from record validation.
func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrEmptyQuarterID,
		core.ErrQuarterIDTooLong,
		core.ErrUnknownCategory,
		core.ErrMissingCategory,
		core.ErrEmptyEntryID,
		core.ErrDuplicateEntryID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
