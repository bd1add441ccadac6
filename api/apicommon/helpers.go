// Package apicommon provides common helper functions for the API.
package apicommon

import (
	"encoding/json"
	"net/http"

	"github.com/vocdoni/donations-backend/errors"
	"go.vocdoni.io/dvote/log"
)

// MaxBodyBytes is the largest request body accepted by the API.
const MaxBodyBytes = int64(65536)

// HTTPWriteJSON helper function allows to write a JSON response.
func HTTPWriteJSON(w http.ResponseWriter, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		errors.ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// HTTPWriteMethodNotAllowed writes a plain text 405 response.
func HTTPWriteMethodNotAllowed(w http.ResponseWriter) {
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
