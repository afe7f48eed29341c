package main

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lychee-technology/formadmin"
	"github.com/lychee-technology/formadmin/internal"
	"github.com/lychee-technology/formadmin/internal/vulninjection"
	"go.uber.org/zap"
)

const (
	headerRequestedWith = "X-Requested-With"
	headerActor         = "X-Actor"
	errCodeBadRequest   = "BAD_REQUEST"
)

// action is one of the formadmin.Controller methods.
type action func(formadmin.Controller, context.Context, *formadmin.Request) (*formadmin.Response, error)

// handleAction resolves the model controller and runs act against the request.
func (s *Server) handleAction(act action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctrl, err := s.admin.Controller(chi.URLParam(r, "model"))
		if err != nil {
			s.writeAdminError(w, r, err)
			return
		}

		req, err := s.buildRequest(w, r)
		if err != nil {
			zap.S().Debugw("malformed request body", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusBadRequest, errCodeBadRequest, "malformed request body")
			return
		}
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}

		resp, err := act(ctrl, r.Context(), req)
		if err != nil {
			s.writeAdminError(w, r, err)
			return
		}
		s.respond(w, r, resp)
	}
}

// buildRequest copies everything a controller needs out of the HTTP request.
func (s *Server) buildRequest(w http.ResponseWriter, r *http.Request) (*formadmin.Request, error) {
	req := &formadmin.Request{
		Method:      r.Method,
		ID:          chi.URLParam(r, "id"),
		Query:       r.URL.Query(),
		UserID:      strings.TrimSpace(r.Header.Get(headerActor)),
		DataRequest: isDataRequest(r),
	}
	if req.ID == "" {
		req.ID = req.Query.Get("id")
	}
	if r.Method != http.MethodPost {
		return req, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.Upload.MaxUploadSize)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.config.Upload.MaxUploadSize); err != nil {
			return nil, err
		}
		req.Files = internal.UploadsFromForm(r.MultipartForm)
	} else if err := r.ParseForm(); err != nil {
		return nil, err
	}
	req.Form = r.PostForm
	return req, nil
}

func isDataRequest(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get(headerRequestedWith), "XMLHttpRequest")
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, resp *formadmin.Response) {
	switch resp.Kind {
	case formadmin.ResponseRedirect:
		http.Redirect(w, r, resp.Location, resp.Status)
	case formadmin.ResponseJSON:
		if err := writeJSON(w, resp.Status, resp.Payload); err != nil {
			zap.S().Warnw("failed to write response", "path", r.URL.Path, "error", err)
		}
	default:
		if err := renderView(r.Context(), w, resp.Status, resp.View); err != nil {
			zap.S().Errorw("failed to render page", "view", resp.View.Name, "error", err)
		}
	}
}

// writeAdminError maps not-found errors to 404, validation errors to 422 and
// everything else to 500 without exposing the cause.
func (s *Server) writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := http.StatusInternalServerError, formadmin.ErrCodeInternalError, "internal server error"

	var adminErr *formadmin.AdminError
	if errors.As(err, &adminErr) {
		switch adminErr.Type {
		case formadmin.ErrorTypeNotFound:
			status, code, message = http.StatusNotFound, adminErr.Code, adminErr.Message
		case formadmin.ErrorTypeValidation:
			status, code, message = http.StatusUnprocessableEntity, adminErr.Code, adminErr.Message
		}
	}

	if status == http.StatusInternalServerError {
		zap.S().Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeError(w, status, code, message)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if isDataRequest(r) {
		writeJSON(w, http.StatusOK, map[string]any{"models": s.admin.Models()})
		return
	}
	if err := renderIndex(r.Context(), w, s.config.Admin.RoutePrefix, s.admin.Models()); err != nil {
		zap.S().Errorw("failed to render index", "error", err)
	}
}

// fixtureResponse is a fixture plus the inputs of each enabled vulnerability kind.
type fixtureResponse struct {
	*vulninjection.Fixture
	Active map[string][]string `json:"active"`
}

func (s *Server) handleFixtures(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"contexts": vulninjection.Contexts()})
}

func (s *Server) handleFixture(w http.ResponseWriter, r *http.Request) {
	fixture, err := vulninjection.Load(chi.URLParam(r, "context"))
	if err != nil {
		s.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fixtureResponse{Fixture: fixture, Active: fixture.Active()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	results := s.admin.HealthCheck(r.Context(), 2*time.Second)

	status := http.StatusOK
	checks := make(map[string]string, len(results))
	for name, err := range results {
		if err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, status, map[string]any{"status": http.StatusText(status), "checks": checks})
}
