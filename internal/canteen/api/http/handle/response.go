package handle

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"canteen-orders/internal/canteen/app/core"
)

var errParseJSON = fmt.Errorf("%w: failed to parse JSON", core.ErrValidation)

var kindStatus = map[string]int{
	"validation":         http.StatusBadRequest,
	"not_found":          http.StatusNotFound,
	"closed":             http.StatusConflict,
	"insufficient_stock": http.StatusBadRequest,
	"forbidden":          http.StatusForbidden,
	"conflict":           http.StatusConflict,
	"unauthorized":       http.StatusUnauthorized,
	"busy":               http.StatusServiceUnavailable,
	"internal":           http.StatusInternalServerError,
}

// StatusOf returns the HTTP status for an error kind.
func StatusOf(err error) int {
	if code, ok := kindStatus[core.Kind(err)]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// jsonResponse writes data as a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(data)
}

// jsonError writes {"error", "kind", "code"}. Internal errors are not echoed to clients.
func jsonError(w http.ResponseWriter, err error) {
	kind := core.Kind(err)
	code := StatusOf(err)
	msg := err.Error()
	if kind == "internal" {
		msg = "internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": msg,
		"kind":  kind,
		"code":  code,
	})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errParseJSON
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s: %q", core.ErrValidation, name, r.PathValue(name))
	}
	return id, nil
}

func principal(r *http.Request) (core.Principal, error) {
	p, ok := core.PrincipalFrom(r.Context())
	if !ok {
		return core.Principal{}, errors.New("principal missing from request context")
	}
	return p, nil
}
