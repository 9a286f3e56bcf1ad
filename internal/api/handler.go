package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/simpleprefs/internal/prefs"
)

const maxRequestBodySize = 1 << 20 // 1MB

type Deps struct {
	Prefs *prefs.Prefs
	Token string
}

type putRequest struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// NewHandler returns the preference inspector. Everything except /health
// requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/prefs", handleListPrefs(deps))
		r.Delete("/prefs", handleClearPrefs(deps))
		r.Get("/prefs/{key}", handleGetPref(deps))
		r.Put("/prefs/{key}", handlePutPref(deps))
		r.Delete("/prefs/{key}", handleDeletePref(deps))
		r.Get("/opened-count", handleOpenedCount(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleListPrefs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, Entries(deps.Prefs.GetAll()))
	}
}

func handleGetPref(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		typ := r.URL.Query().Get("type")

		if typ == "" {
			v, ok := deps.Prefs.Store().Get(key)
			if !ok {
				httpError(w, http.StatusNotFound, "not_found", "preference %q not found", key)
				return
			}
			writeJSON(w, entryOf(v))
			return
		}

		entry, err := ReadTyped(deps.Prefs, typ, key, r.URL.Query().Get("default"))
		if err != nil {
			writeReadError(w, err)
			return
		}
		writeJSON(w, entry)
	}
}

func handlePutPref(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		var req putRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Type == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "type is required")
			return
		}

		v, err := decodeTyped(req.Type, req.Value)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}
		if err := deps.Prefs.Put(key, v); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to write preference: %v", err)
			return
		}

		writeJSON(w, map[string]string{"status": "updated"})
	}
}

func handleDeletePref(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		if !deps.Prefs.Contains(key) {
			httpError(w, http.StatusNotFound, "not_found", "preference %q not found", key)
			return
		}
		if err := deps.Prefs.Remove(key); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to remove preference: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "deleted"})
	}
}

func handleClearPrefs(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Prefs.Clear(); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to clear preferences: %v", err)
			return
		}
		writeJSON(w, map[string]string{"status": "cleared"})
	}
}

func handleOpenedCount(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := deps.Prefs.AppOpenedCount()
		if err != nil {
			writeReadError(w, err)
			return
		}
		writeJSON(w, map[string]int32{"count": n})
	}
}

func writeReadError(w http.ResponseWriter, err error) {
	var mismatch *prefs.TypeMismatchError
	switch {
	case errors.As(err, &mismatch):
		httpError(w, http.StatusConflict, "type_mismatch", "%s", mismatch.Error())
	case errors.Is(err, errBadRequest):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "failed to read preference: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
