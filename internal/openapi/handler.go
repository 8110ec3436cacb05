package openapi

import (
	"encoding/json"
	"net/http"
	"sync"
)

// Handler serves the generated spec. The route surface is static, so the
// document is built once and cached.
type Handler struct {
	once sync.Once
	body []byte
	err  error
}

// NewHandler creates a new Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// ServeSpec writes the OpenAPI document as JSON.
// GET /openapi.json
func (h *Handler) ServeSpec(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		h.body, h.err = json.Marshal(GenerateSpec(""))
	})
	if h.err != nil {
		http.Error(w, `{"error":{"code":500,"message":"spec generation failed"}}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(h.body)
}
