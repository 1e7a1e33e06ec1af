// Package auth checks admin credentials against the configured user table and
// issues signed session tokens.
package auth

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// CookieName is the cookie carrying the session token.
const CookieName = "site_session"

const issuer = "praktisi-mengajar-admin"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidSession     = errors.New("invalid session")
	ErrEmptyPassword      = errors.New("password must not be empty")
)

// Credential is one entry of the admin user table.
type Credential struct {
	Username     string
	Name         string
	PasswordHash string
}

// User is a signed-in administrator.
type User struct {
	Username string
	Name     string
}

// DisplayName prefers the configured name over the username.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

type claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	users  map[string]Credential
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	log    *zap.Logger
	// compared against when the username is unknown so both paths cost a bcrypt run
	dummyHash []byte
}

type Option func(*Authenticator)

func WithLogger(log *zap.Logger) Option {
	return func(a *Authenticator) {
		if log != nil {
			a.log = log
		}
	}
}

// WithClock replaces time.Now for token issue and validation.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// New builds an authenticator. An empty secret gets a random one, so
// sessions do not survive a restart.
func New(creds []Credential, secret string, ttl time.Duration, opts ...Option) (*Authenticator, error) {
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	a := &Authenticator{
		users: make(map[string]Credential, len(creds)),
		ttl:   ttl,
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With(zap.String("module", "auth"))

	for _, c := range creds {
		name := strings.TrimSpace(c.Username)
		if name == "" {
			return nil, errors.New("admin username is required")
		}
		if _, err := bcrypt.Cost([]byte(c.PasswordHash)); err != nil {
			return nil, fmt.Errorf("admin user %s: invalid password hash: %w", name, err)
		}
		c.Username = name
		a.users[name] = c
	}

	if secret == "" {
		buf := make([]byte, 32)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		a.secret = buf
		a.log.Warn("no session secret configured, using a random one; sessions end on restart")
	} else {
		a.secret = []byte(secret)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-password"), bcrypt.MinCost)
	if err != nil {
		return nil, err
	}
	a.dummyHash = dummy
	return a, nil
}

// Enabled reports whether any admin user is configured.
func (a *Authenticator) Enabled() bool { return len(a.users) > 0 }

func (a *Authenticator) TTL() time.Duration { return a.ttl }

// Login checks a username and password against the user table.
func (a *Authenticator) Login(username, password string) (User, error) {
	c, ok := a.users[strings.TrimSpace(username)]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
		return User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		a.log.Info("failed admin login", zap.String("username", c.Username))
		return User{}, ErrInvalidCredentials
	}
	a.log.Info("admin login", zap.String("username", c.Username))
	return User{Username: c.Username, Name: c.Name}, nil
}

// Issue signs a session token for u and returns it with its expiry.
func (a *Authenticator) Issue(u User) (string, time.Time, error) {
	now := a.now()
	exp := now.Add(a.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Name: u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session: %w", err)
	}
	return signed, exp, nil
}

// Verify validates a session token. Tokens for users no longer in the table
// are rejected.
func (a *Authenticator) Verify(tokenStr string) (User, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenStr, &c, func(*jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	cred, ok := a.users[c.Subject]
	if !ok {
		return User{}, fmt.Errorf("%w: unknown user %q", ErrInvalidSession, c.Subject)
	}
	return User{Username: cred.Username, Name: cred.Name}, nil
}

// SessionCookie wraps a token issued by Issue.
func SessionCookie(token string, expires time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expires the session cookie.
func ClearCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// HashPassword returns a bcrypt hash for the admin user table.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
