package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dagnyr/canvas-critic/internal/catalog"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.catalog.Categories())
}

func (s *Server) handleListClasses(w http.ResponseWriter, r *http.Request) {
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		s.respondJSON(w, http.StatusOK, s.catalog.ClassesInCategory(category))
		return
	}
	s.respondJSON(w, http.StatusOK, s.catalog.Classes())
}

func (s *Server) handleGetClass(w http.ResponseWriter, r *http.Request) {
	cls, err := s.catalog.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Class not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load class")
		return
	}
	s.respondJSON(w, http.StatusOK, cls)
}
