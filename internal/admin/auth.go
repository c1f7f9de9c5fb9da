package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionTTL is how long an admin token stays valid.
const DefaultSessionTTL = 8 * time.Hour

const sessionSubject = "admin"

type contextKey string

const sessionKey contextKey = "adminSession"

// Session is the authenticated admin context handed to board handlers.
type Session struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthConfig configures an Authenticator. Exactly one of Passphrase or
// PassphraseHash is needed; a plain passphrase is hashed on construction.
type AuthConfig struct {
	Passphrase     string
	PassphraseHash string
	Secret         string
	TTL            time.Duration
	Now            func() time.Time
}

// Authenticator checks the shared admin passphrase and issues HS256 session
// tokens with a fixed lifetime.
type Authenticator struct {
	hash   []byte
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time // token id -> expiry
}

func NewAuthenticator(cfg AuthConfig) (*Authenticator, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("admin: signing secret is required")
	}
	hash := []byte(cfg.PassphraseHash)
	if len(hash) == 0 {
		if cfg.Passphrase == "" {
			return nil, errors.New("admin: passphrase or passphrase hash is required")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(cfg.Passphrase), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("admin: hash passphrase: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("admin: passphrase hash: %w", err)
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Authenticator{
		hash:    hash,
		secret:  []byte(cfg.Secret),
		ttl:     cfg.TTL,
		now:     cfg.Now,
		revoked: make(map[string]time.Time),
	}, nil
}

// Login exchanges the passphrase for a signed token.
func (a *Authenticator) Login(passphrase string) (string, Session, error) {
	if bcrypt.CompareHashAndPassword(a.hash, []byte(passphrase)) != nil {
		return "", Session{}, ErrInvalidPassphrase
	}
	now := a.now().Truncate(time.Second)
	s := Session{
		ID:        uuid.NewString(),
		Subject:   sessionSubject,
		IssuedAt:  now,
		ExpiresAt: now.Add(a.ttl),
	}
	claims := jwt.RegisteredClaims{
		ID:        s.ID,
		Subject:   s.Subject,
		IssuedAt:  jwt.NewNumericDate(s.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", Session{}, fmt.Errorf("admin: sign token: %w", err)
	}
	return token, s, nil
}

// Verify parses token and returns the session it carries.
func (a *Authenticator) Verify(token string) (Session, error) {
	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Session{}, ErrSessionExpired
		}
		return Session{}, ErrInvalidToken
	}
	if !parsed.Valid || claims.Subject != sessionSubject || claims.ID == "" {
		return Session{}, ErrInvalidToken
	}
	if a.isRevoked(claims.ID) {
		return Session{}, ErrInvalidToken
	}
	s := Session{ID: claims.ID, Subject: claims.Subject, ExpiresAt: claims.ExpiresAt.Time}
	if claims.IssuedAt != nil {
		s.IssuedAt = claims.IssuedAt.Time
	}
	return s, nil
}

// Logout revokes the session's token until it would have expired anyway.
func (a *Authenticator) Logout(s Session) {
	a.mu.Lock()
	defer a.mu.Unlock()
	now := a.now()
	for id, exp := range a.revoked {
		if now.After(exp) {
			delete(a.revoked, id)
		}
	}
	a.revoked[s.ID] = s.ExpiresAt
}

func (a *Authenticator) isRevoked(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.revoked[id]
	return ok
}

// Middleware rejects requests without a valid session and stores the
// session in the request context. Websocket upgrades may pass the token as
// the "token" query parameter since browsers cannot set headers on them.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		s, err := a.Verify(token)
		if err != nil {
			msg := "invalid token"
			if errors.Is(err, ErrSessionExpired) {
				msg = "session expired"
			}
			writeError(w, http.StatusUnauthorized, msg)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithSession(r.Context(), s)))
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
		return r.URL.Query().Get("token")
	}
	return ""
}

// ContextWithSession returns a copy of ctx carrying s.
func ContextWithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromContext returns the admin session if present.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey).(Session)
	return s, ok
}
