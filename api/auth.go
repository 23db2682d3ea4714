/*
auth.go - Session login and the request gates

PURPOSE:
  Login bcrypt-compares against the stored hash and rotates the session
  token before storing the authenticated user. Every data route sits
  behind RequireSession; report routes additionally accept a signed
  department bearer token so headless pulls (cron, external dashboards)
  can fetch PDFs without a browser session.
*/
package api

import (
	"encoding/gob"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SessionUser is the authenticated identity carried by the session.
type SessionUser struct {
	ID           string
	Username     string
	DepartmentID string
}

const sessionUserKey = "user"

func init() {
	// scs stores session data gob-encoded.
	gob.Register(SessionUser{})
}

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !h.decode(w, r, &body) {
		return
	}

	user, err := h.Store.GetUserByUsername(r.Context(), body.Username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)) != nil {
		h.Log.Info("login rejected", zap.String("username", body.Username))
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid username or password"))
		return
	}

	// Rotate the token on privilege change.
	if err := h.Sessions.RenewToken(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Sessions.Put(r.Context(), sessionUserKey, SessionUser{
		ID:           user.ID,
		Username:     user.Username,
		DepartmentID: user.DepartmentID,
	})

	h.Log.Info("login", zap.String("username", user.Username))
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "success",
		"username": user.Username,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Destroy(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// sessionUser returns the authenticated user, or a zero value when the
// session carries none.
func (h *Handler) sessionUser(r *http.Request) (SessionUser, bool) {
	u, ok := h.Sessions.Get(r.Context(), sessionUserKey).(SessionUser)
	return u, ok && u.ID != ""
}

// =============================================================================
// GATES
// =============================================================================

// RequireSession rejects requests without an authenticated session.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.sessionUser(r); !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody("authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSessionOrToken additionally accepts a bearer token signed with
// the department secret, carrying a department_id claim. Report routes
// use this gate.
func (h *Handler) RequireSessionOrToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.sessionUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		if h.departmentFromToken(r) != "" {
			next.ServeHTTP(w, r)
			return
		}
		writeJSON(w, http.StatusUnauthorized, errorBody("authentication required"))
	})
}

// departmentFromToken validates the Authorization bearer token and
// returns its department_id claim, or "" when absent or invalid.
func (h *Handler) departmentFromToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	raw, found := strings.CutPrefix(auth, "Bearer ")
	if !found || len(h.TokenSecret) == 0 {
		return ""
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.TokenSecret, nil
	})
	if err != nil || !token.Valid {
		return ""
	}
	dept, _ := claims["department_id"].(string)
	return dept
}

// departmentID resolves the caller's department from the session or,
// failing that, the bearer token.
func (h *Handler) departmentID(r *http.Request) string {
	if u, ok := h.sessionUser(r); ok {
		return u.DepartmentID
	}
	return h.departmentFromToken(r)
}
