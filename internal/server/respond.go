package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"cofound/internal/auth"
	"cofound/internal/types"
)

// errorBody is the JSON error envelope. Code is one of the failure taxonomy:
// validation, not_found, permission_denied, conflict, unauthenticated,
// internal.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Field   string `json:"field,omitempty"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps the error taxonomy onto status codes and the envelope.
// Unrecognized errors are reported as internal without leaking detail.
func writeError(w http.ResponseWriter, err error) {
	var body errorBody

	switch {
	case errors.Is(err, auth.ErrUnauthenticated):
		body.Error.Code = "unauthenticated"
		body.Error.Message = "authentication required"
		writeJSON(w, http.StatusUnauthorized, body)
	case errors.Is(err, types.ErrPermissionDenied):
		body.Error.Code = "permission_denied"
		body.Error.Message = "caller lacks access to this resource"
		writeJSON(w, http.StatusForbidden, body)
	case errors.Is(err, types.ErrNotFound):
		body.Error.Code = "not_found"
		body.Error.Message = err.Error()
		writeJSON(w, http.StatusNotFound, body)
	case errors.Is(err, types.ErrConflict):
		body.Error.Code = "conflict"
		body.Error.Message = err.Error()
		writeJSON(w, http.StatusConflict, body)
	default:
		if ve, ok := types.IsValidation(err); ok {
			body.Error.Code = "validation"
			body.Error.Message = ve.Msg
			body.Error.Field = ve.Field
			writeJSON(w, http.StatusBadRequest, body)
			return
		}
		body.Error.Code = "internal"
		body.Error.Message = "internal error"
		writeJSON(w, http.StatusInternalServerError, body)
	}
}

// decodeJSON reads a request body into v, reporting malformed JSON as a
// validation failure.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &types.ValidationError{Field: "body", Msg: fmt.Sprintf("malformed JSON: %v", err)}
	}
	return nil
}
