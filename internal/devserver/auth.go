package devserver

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/csheth/versescout/internal/api"
)

type contextKey string

const identityKey contextKey = "identity"

type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// IssueToken signs a session token for identity. An empty ID is derived from
// the email so repeated sign-ins map to the same user.
func (s *Server) IssueToken(identity api.Identity) (string, time.Time, error) {
	if identity.ID == "" {
		identity.ID = userIDFor(identity.Email)
	}
	now := s.now()
	expires := now.Add(s.cfg.SessionTTL)
	claims := sessionClaims{
		Email: identity.Email,
		Name:  identity.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

func userIDFor(email string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(email))).String()
}

func (s *Server) parseToken(raw string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.cfg.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}
	s.mu.Lock()
	_, revoked := s.revoked[claims.ID]
	s.mu.Unlock()
	if revoked {
		return nil, errors.New("session ended")
	}
	return claims, nil
}

func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" {
			writeError(w, http.StatusUnauthorized, api.KindUnauthenticated, "Authorization token required")
			return
		}
		claims, err := s.parseToken(raw)
		if err != nil {
			message := "Invalid token"
			if errors.Is(err, jwt.ErrTokenExpired) {
				message = "Token has expired"
			}
			writeError(w, http.StatusUnauthorized, api.KindUnauthenticated, message)
			return
		}
		identity := api.Identity{ID: claims.Subject, Email: claims.Email, Name: claims.Name}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(ctx context.Context) api.Identity {
	identity, _ := ctx.Value(identityKey).(api.Identity)
	return identity
}

// handleLogin is the development identity provider: it signs the caller in
// immediately, optionally as ?name=...&email=....
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	email := strings.TrimSpace(query.Get("email"))
	if email == "" {
		email = "reader@example.com"
	}
	name := strings.TrimSpace(query.Get("name"))
	if name == "" {
		name = "Reader"
	}
	identity := api.Identity{ID: userIDFor(email), Email: email, Name: name}
	token, expires, err := s.IssueToken(identity)
	if err != nil {
		s.logger.Error("sign token", "err", err)
		writeError(w, http.StatusInternalServerError, api.KindInternal, "Internal server error during login.")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info("signed in", "user", identity.ID)
	writeJSON(w, http.StatusOK, api.LoginReply{Token: token, Expires: expires.Unix(), User: identity})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	if raw := tokenFromRequest(r); raw != "" {
		if claims, err := s.parseToken(raw); err == nil {
			s.mu.Lock()
			s.revoked[claims.ID] = claims.ExpiresAt.Time
			s.mu.Unlock()
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, api.MessageReply{Message: "Logged out successfully"})
}

func (s *Server) handleIdentity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, identityFrom(r.Context()))
}
