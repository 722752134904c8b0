package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dmitrijs2005/sharekeeper/internal/common"
	"github.com/dmitrijs2005/sharekeeper/internal/server/services"
)

// StatusConflict is the non-standard status for share conflicts: an
// existing share for the same receiver or an unsupported CSE type.
const StatusConflict = 420

// maxFormBody caps a form body read outside ParseForm.
const maxFormBody = 1 << 20

type idResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// createShare handles POST with form fields password, receiver, type,
// expires (Unix seconds), editable and shareable.
func (s *HTTPServer) createShare(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, common.InvalidInput("Invalid request"))
		return
	}

	req := services.CreateShareRequest{
		PasswordID: r.Form.Get("password"),
		Receiver:   r.Form.Get("receiver"),
		Type:       r.Form.Get("type"),
	}
	if req.Type == "" {
		req.Type = common.ShareTypeUser
	}

	var err error
	if req.Expires, err = formExpires(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Editable, err = formBool(r, "editable", false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Shareable, err = formBool(r, "shareable", false); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.shares.CreateShare(r.Context(), userIDFromContext(r.Context()), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

func (s *HTTPServer) updateShare(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, r, common.InvalidInput("Invalid request"))
		return
	}

	req := services.UpdateShareRequest{ID: r.Form.Get("id")}

	var err error
	if req.Expires, err = formExpires(r); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Editable, err = formBool(r, "editable", false); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Shareable, err = formBool(r, "shareable", true); err != nil {
		s.writeError(w, r, err)
		return
	}

	id, err := s.shares.UpdateShare(r.Context(), userIDFromContext(r.Context()), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

// deleteShare takes id from the query string or a form-urlencoded body.
func (s *HTTPServer) deleteShare(w http.ResponseWriter, r *http.Request) {
	shareID, err := formValue(r, "id")
	if err != nil {
		s.writeError(w, r, common.InvalidInput("Invalid request"))
		return
	}

	id, err := s.shares.DeleteShare(r.Context(), userIDFromContext(r.Context()), shareID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

func (s *HTTPServer) sharingInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.shares.GetSharingInfo(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, info)
}

func (s *HTTPServer) sharePartners(w http.ResponseWriter, r *http.Request) {
	partners, err := s.shares.FindSharePartners(r.Context(), userIDFromContext(r.Context()), r.URL.Query().Get("search"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, partners)
}

// formExpires reads expires as Unix seconds. Empty or 0 means no expiry.
func formExpires(r *http.Request) (*time.Time, error) {
	v := r.Form.Get("expires")
	if v == "" {
		return nil, nil
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, common.InvalidInput("Invalid expiration date")
	}
	if n == 0 {
		return nil, nil
	}

	t := time.Unix(n, 0).UTC()
	return &t, nil
}

func formBool(r *http.Request, key string, def bool) (bool, error) {
	v := r.Form.Get(key)
	if v == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, common.InvalidInput("Invalid value for " + key)
	}
	return b, nil
}

// formValue reads key from the query or the request body. ParseForm only
// reads bodies of POST, PUT and PATCH, so a DELETE body is decoded here.
func formValue(r *http.Request, key string) (string, error) {
	if err := r.ParseForm(); err != nil {
		return "", err
	}
	if v := r.Form.Get(key); v != "" || r.Method != http.MethodDelete || r.Body == nil {
		return v, nil
	}

	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct != "application/x-www-form-urlencoded" {
		return "", nil
	}

	b, err := io.ReadAll(io.LimitReader(r.Body, maxFormBody+1))
	if err != nil {
		return "", fmt.Errorf("error reading body: %w", err)
	}
	if len(b) > maxFormBody {
		return "", errors.New("form body too large")
	}
	values, err := url.ParseQuery(string(b))
	if err != nil {
		return "", fmt.Errorf("error parsing body: %w", err)
	}
	return values.Get(key), nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorConflict):
		return StatusConflict
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and writes the error body. Only policy
// errors expose their message; everything else gets a generic one.
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)

	var message string
	var apiErr *common.APIError
	switch {
	case errors.As(err, &apiErr):
		message = apiErr.Message
	case status == http.StatusInternalServerError:
		message = "Internal error"
	default:
		message = http.StatusText(status)
	}

	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.Warn(r.Context(), "request rejected", "path", r.URL.Path, "status", status, "error", err)
	}

	writeJSON(w, status, errorResponse{Status: "error", Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, `{"status":"error","message":"failed to encode response"}`, http.StatusInternalServerError)
	}
}
