package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/duzagac/village-backend/admin"
	"github.com/duzagac/village-backend/common"
	"github.com/duzagac/village-backend/log"
)

// parseForm parses the form in a request and handles the error appropriately
func parseForm() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		err := r.ParseForm()

		if err != nil {
			return &HTTPError{
				IError:    err,
				Level:     1,
				Status:    http.StatusBadRequest,
				ErrorCode: ErrParsing,
			}
		}
		return nil
	}
}

// checkAdmin marks the request as admin when it carries a valid session. It never stops the chain.
func checkAdmin() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		rc.isAdmin = rc.site.Gate != nil && rc.site.Gate.Verify(r.Context(), admin.TokenFrom(r)) == nil
		return nil
	}
}

// requireAdmin answers exactly like an unknown route when the session is missing or invalid.
func requireAdmin() Handler {
	return func(rc *RouterContext, w http.ResponseWriter, r *http.Request) *HTTPError {
		if rc.site.Gate == nil {
			return notFoundError(nil)
		}
		if err := rc.site.Gate.Verify(r.Context(), admin.TokenFrom(r)); err != nil {
			if !errors.Is(err, admin.ErrNoSession) {
				log.Warn.Printf("%s %s: admin session: %v\n", r.Method, r.URL.Path, err)
			}
			return notFoundError(err)
		}
		rc.isAdmin = true
		return nil
	}
}

func notFoundError(err error) *HTTPError {
	return &HTTPError{
		IError:    err,
		Level:     1,
		Status:    http.StatusNotFound,
		ErrorCode: ErrNotFound,
	}
}

func handleInternalError(err error) *HTTPError {
	return &HTTPError{
		ErrorCode: ErrInternal,
		IError:    err,
		Level:     3,
		Status:    http.StatusInternalServerError,
	}
}

// formValue returns the trimmed form field as the browser sent it.
func formValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.Form.Get(key))
}

// textValue is formValue composed to NFC, for text that gets cut by characters.
func textValue(r *http.Request, key string) string {
	return common.Clean(r.Form.Get(key))
}

func writeJSON(w http.ResponseWriter, v interface{}) *HTTPError {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		return handleInternalError(err)
	}
	return nil
}

// redirect sends the browser back with 303 so a reload does not repeat the POST.
func redirect(w http.ResponseWriter, r *http.Request, to string) *HTTPError {
	http.Redirect(w, r, to, http.StatusSeeOther)
	return nil
}

// nextURL is the same-site "next" form field, or "/".
func nextURL(r *http.Request) string {
	return common.SafeRedirect(strings.TrimSpace(r.Form.Get("next")), "/")
}
