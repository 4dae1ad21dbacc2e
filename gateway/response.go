package gateway

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

const (
	msgMissingKeyOrValue = "Missing key or value"
	msgMissingKey        = "Missing key"
	msgInvalidBody       = "Invalid request body"
	msgBodyTooLarge      = "Request body too large"
	msgSetFailed         = "Failed to set value"
	msgGetFailed         = "Failed to get value"
	msgDeleteFailed      = "Failed to delete value"
	msgDestroyFailed     = "Failed to destroy namespace"
	msgStoreNotFound     = "Store not found"
	msgStoreUnavailable  = "Store unavailable"
	msgBusy              = "Server busy"
)

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// dataValue returns stored bytes as a JSON value. Bytes written through the
// gateway are always JSON; anything else is returned as a JSON string.
func dataValue(val []byte) json.RawMessage {
	if json.Valid(val) {
		return val
	}
	quoted, _ := json.Marshal(string(val))
	return quoted
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, resp response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		g.logger.Warn("Error writing response", zap.Error(err))
	}
}

func (g *Gateway) ok(w http.ResponseWriter) {
	g.writeJSON(w, http.StatusOK, response{Success: true})
}

func (g *Gateway) fail(w http.ResponseWriter, status int, msg string) {
	g.writeJSON(w, status, response{Error: msg})
}
