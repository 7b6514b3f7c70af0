package httpx

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
)

// WriteJSON writes v as the response body with status code. Every response of
// this server may carry tokens or token metadata, so none is cacheable.
//
// The body is encoded before anything is written; a value that fails to encode
// becomes a bare 500 instead of a truncated 200.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("encode response", slog.Any("error", err))
		NoCache(w)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	NoCache(w)
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

// WriteNoContent answers 204 for operations with nothing to echo.
func WriteNoContent(w http.ResponseWriter) {
	NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// NoCache sets the headers RFC 6749 section 5.1 requires on token responses.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}
