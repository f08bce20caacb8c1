package api

import (
	"encoding/json"
	"net/http"

	"github.com/vytor/lingoflash/internal/coordinator"
	"github.com/vytor/lingoflash/internal/errors"
	"github.com/vytor/lingoflash/internal/logger"
)

const cacheSourceHeader = "X-Cache-Source"

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.FromContext(r.Context()).Warn("failed to encode response: %v", err)
	}
}

// writeResult writes a cached read and tags where it came from.
func writeResult[T any](w http.ResponseWriter, r *http.Request, res coordinator.Result[T]) {
	w.Header().Set(cacheSourceHeader, string(res.Source))
	data := res.Data
	if data == nil {
		data = []T{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"data": data})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewBadRequestError("invalid JSON body: " + err.Error())
	}
	return nil
}
