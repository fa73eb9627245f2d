package handler

import (
	"encoding/json"
	"net/http"

	"github.com/chatwire/chatwire/internal/model"
)

// writeJSON serializes v as JSON and writes it to the response with the
// given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. code is one of the stable machine codes from the model package;
// the optional ctx map carries extra diagnostic fields.
func writeError(w http.ResponseWriter, status int, code, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, status, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// readJSON decodes the request body as JSON into v. The body is closed
// after decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// listResponse wraps resources in the standard list envelope.
func listResponse(resource interface{}, count int) model.ListResponse {
	return model.ListResponse{
		Resource: resource,
		Meta:     &model.ResponseMeta{Count: count},
	}
}
