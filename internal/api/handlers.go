package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/launchforge/forgekit/pkg/catalog"
	"github.com/launchforge/forgekit/pkg/errors"
	"github.com/launchforge/forgekit/pkg/resolve"
)

// resolveRequest is the JSON body shared by the resolution endpoints.
// Service refs use the "type/provider[@constraint]" text form.
type resolveRequest struct {
	Services []string        `json:"services"`
	Bundles  []string        `json:"bundles,omitempty"`
	Options  resolve.Options `json:"options"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	req, refs, ok := s.decodeResolveRequest(w, r)
	if !ok {
		return
	}
	result := s.resolver.Resolve(r.Context(), resolve.Request{
		Services: refs,
		Bundles:  req.Bundles,
		Options:  req.Options,
	})
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	req, refs, ok := s.decodeResolveRequest(w, r)
	if !ok {
		return
	}
	validation, err := s.resolver.ValidateCombination(r.Context(), refs, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validation)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	req, refs, ok := s.decodeResolveRequest(w, r)
	if !ok {
		return
	}
	suggestions, err := s.resolver.Suggest(r.Context(), refs, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	req, refs, ok := s.decodeResolveRequest(w, r)
	if !ok {
		return
	}
	order, err := s.resolver.InjectionOrder(r.Context(), refs, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	req, refs, ok := s.decodeResolveRequest(w, r)
	if !ok {
		return
	}
	cycles, err := s.resolver.DetectCycles(r.Context(), refs, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cycles": cycles})
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	if typ := r.URL.Query().Get("type"); typ != "" {
		services, err := s.catalog.ListByType(r.Context(), catalog.ServiceType(typ))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"services": services})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": s.catalog.Services()})
}

func (s *Server) handleListBundles(w http.ResponseWriter, r *http.Request) {
	bundles, err := s.catalog.ListBundles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bundles": bundles})
}

func (s *Server) handleGetBundle(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.catalog.GetBundle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	cleared, err := s.resolver.ClearCache(r.Context(), r.URL.Query().Get("pattern"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"cleared": cleared})
}

// decodeResolveRequest parses the shared request body and its refs. On
// failure it writes the error response and returns ok=false.
func (s *Server) decodeResolveRequest(w http.ResponseWriter, r *http.Request) (resolveRequest, []catalog.Ref, bool) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body"))
		return req, nil, false
	}
	refs := make([]catalog.Ref, 0, len(req.Services))
	for _, spec := range req.Services {
		ref, err := catalog.ParseRef(spec)
		if err != nil {
			writeError(w, err)
			return req, nil, false
		}
		refs = append(refs, ref)
	}
	return req, refs, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a resolution error to an HTTP status and JSON body.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidRef, errors.ErrCodeInvalidVersion,
		errors.ErrCodeInvalidStrategy, errors.ErrCodeInvalidCatalog:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeServiceNotFound, errors.ErrCodeBundleNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeMissingDependency, errors.ErrCodeCircularDependency,
		errors.ErrCodeConflict, errors.ErrCodeAmbiguousSelection, errors.ErrCodeIncompatible:
		status = http.StatusUnprocessableEntity
	case errors.ErrCodeTimeout:
		status = http.StatusGatewayTimeout
	}
	writeJSON(w, status, map[string]string{
		"code":  string(code),
		"error": errors.UserMessage(err),
	})
}
