package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/TobiSchelling/cubo/internal/advisor"
	"github.com/TobiSchelling/cubo/internal/apperr"
	"github.com/TobiSchelling/cubo/internal/report"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Type  string `json:"type"`
	Field string `json:"field,omitempty"`
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	if errors.Is(err, report.ErrNothingToReport) {
		return http.StatusUnprocessableEntity
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNoActiveSession:
		return http.StatusUnauthorized
	case apperr.KindBackend:
		return http.StatusServiceUnavailable
	case apperr.KindProxy:
		if advisor.IsTimeout(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func bodyFor(err error) errorBody {
	var e *apperr.Error
	if errors.As(err, &e) {
		return errorBody{Error: e.Msg, Type: e.Kind.String(), Field: e.Field}
	}
	return errorBody{Error: "internal error", Type: apperr.KindUnknown.String()}
}

// isForm reports whether r was submitted by an HTML form. Form submissions
// are answered with a redirect back to the dashboard instead of JSON.
func isForm(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data"
}

// writeJSON encodes v before touching the status line so an encoding failure
// still reaches the client as an error.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.logger.Error("encoding response failed", zap.String("op", "server.writeJSON"), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.Warn("writing response failed", zap.String("op", "server.writeJSON"), zap.Error(err))
	}
}

// respond answers a successful mutation.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, status int, v any) {
	if isForm(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if v == nil {
		w.WriteHeader(status)
		return
	}
	s.writeJSON(w, status, v)
}

// fail answers an error as JSON, or for forms as a redirect carrying the
// message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := bodyFor(err)
	if status >= 500 {
		s.logger.Warn("request error",
			zap.String("op", "server.fail"),
			zap.String("request_id", requestID(r.Context())),
			zap.String("type", body.Type),
			zap.Error(err))
	}

	if isForm(r) {
		http.Redirect(w, r, "/?error="+url.QueryEscape(body.Error), http.StatusSeeOther)
		return
	}
	s.writeJSON(w, status, body)
}

// failText answers an error on an HTML route.
func (s *Server) failText(w http.ResponseWriter, err error) {
	http.Error(w, bodyFor(err).Error, statusFor(err))
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("body", "invalid JSON body")
	}
	return nil
}

func parseForm(r *http.Request) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		return apperr.Validation("body", "invalid form body")
	}
	return nil
}

func formFloat(r *http.Request, field string) (float64, error) {
	v := strings.TrimSpace(r.PostFormValue(field))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, apperr.Validation(field, field+" must be a number")
	}
	return f, nil
}

func formOptFloat(r *http.Request, field string) (*float64, error) {
	if strings.TrimSpace(r.PostFormValue(field)) == "" {
		return nil, nil
	}
	f, err := formFloat(r, field)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func formInt(r *http.Request, field string) (int, error) {
	v := strings.TrimSpace(r.PostFormValue(field))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Validation(field, field+" must be a whole number")
	}
	return n, nil
}
