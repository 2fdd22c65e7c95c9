package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/galinilin/docgemma-connect/internal/sessions"
)

// decodeJSONRequest decodes r's body into dst, rejecting unknown fields
// and bodies over maxAPIRequestBodyBytes.
func decodeJSONRequest(w http.ResponseWriter, r *http.Request, dst any) (int, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAPIRequestBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return http.StatusRequestEntityTooLarge, err
		}
		return http.StatusBadRequest, err
	}
	return 0, nil
}

// jsonResponse writes data as a JSON response.
func (s *server) jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.cfg.Logger.Error(context.Background(), "json encode error", "error", err)
	}
}

// jsonError writes a JSON error response.
func (s *server) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		s.cfg.Logger.Error(context.Background(), "json encode error", "error", err)
	}
}

// handleCreateSession implements POST /sessions.
func (s *server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.cfg.Store.Create(r.Context())
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	s.jsonResponse(w, sess)
}

// handleListSessions implements GET /sessions.
func (s *server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.cfg.Store.List(r.Context())
	if err != nil {
		s.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.jsonResponse(w, list)
}

// handleGetSession implements GET /sessions/{id}.
func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.cfg.Store.Get(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.jsonResponse(w, sess)
}

// handleDeleteSession implements DELETE /sessions/{id}.
func (s *server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.cfg.Store.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetMessages implements GET /sessions/{id}/messages.
func (s *server) handleGetMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess, err := s.cfg.Store.Get(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err)
		return
	}
	s.jsonResponse(w, sess.Messages)
}

// toolListing is one entry of GET /tools' response (spec §6.1).
type toolListing struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Args        map[string]string `json:"args"`
	ArgOrder    []string          `json:"arg_order"`
}

// handleListTools implements GET /tools.
func (s *server) handleListTools(w http.ResponseWriter, r *http.Request) {
	names := s.cfg.Registry.Names()
	out := make([]toolListing, 0, len(names))
	for _, name := range names {
		def, ok := s.cfg.Registry.Lookup(name)
		if !ok {
			continue
		}
		out = append(out, toolListing{
			Name:        def.Name,
			Description: def.Description,
			Args:        def.Args,
			ArgOrder:    def.ArgOrder,
		})
	}
	s.jsonResponse(w, out)
}

func (s *server) respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, sessions.ErrNotFound) {
		s.jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	s.jsonError(w, err.Error(), http.StatusInternalServerError)
}
