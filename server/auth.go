package main

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrBadCredentials  = errors.New("invalid username or password")
	ErrNameTaken       = errors.New("username already taken")
	ErrTooManyAttempts = errors.New("too many login attempts, try again later")

	errAuthInternal = errors.New("internal error")
)

const (
	tokenIssuer      = "agent-arena"
	tokenLifetime    = 7 * 24 * time.Hour
	bcryptCost       = 12
	minPasswordLen   = 8
	minUsernameLen   = 2
	maxUsernameLen   = 16
	loginRateWindow  = time.Minute
	maxLoginAttempts = 10
	maxTrackedLogins = 1024 // addresses held before expired windows are swept
	secretSetting    = "jwt_secret"
)

// Operator names end up in session logs and on the stats panel.
var operatorNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// operatorClaims is the token body. Subject carries the operator ID.
type operatorClaims struct {
	Name string `json:"usr"`
	jwt.RegisteredClaims
}

// Auth issues and checks operator tokens. Only operators may change a running
// session's learning parameters or lifecycle.
type Auth struct {
	db     *DB
	key    []byte
	logins *loginLimiter
}

// NewAuth loads the signing key from db, creating it on first start. With a
// nil db the key lives only as long as the process.
func NewAuth(db *DB) *Auth {
	return &Auth{
		db:     db,
		key:    signingKey(db),
		logins: newLoginLimiter(maxLoginAttempts, loginRateWindow),
	}
}

func signingKey(db *DB) []byte {
	if db != nil {
		if b, err := hex.DecodeString(db.GetSetting(secretSetting)); err == nil && len(b) == 32 {
			return b
		}
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("[auth] signing key: %v", err)
	}
	if db != nil {
		if err := db.SetSetting(secretSetting, hex.EncodeToString(key)); err != nil {
			log.Printf("[auth] signing key not persisted, tokens die with this process: %v", err)
		}
	}
	return key
}

// validateCredentials applies the account rules for a new operator.
func validateCredentials(name, password string) error {
	if n := len(name); n < minUsernameLen || n > maxUsernameLen {
		return fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	if !operatorNameRe.MatchString(name) {
		return errors.New("username may use letters, digits, '.', '_' and '-' and must start with a letter or digit")
	}
	if len(password) < minPasswordLen {
		return fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}
	if strings.Contains(strings.ToLower(password), strings.ToLower(name)) {
		return errors.New("password must not contain the username")
	}
	return nil
}

// Register creates an operator account and returns its ID and a token.
func (a *Auth) Register(username, password string) (int64, string, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return 0, "", err
	}

	taken, err := a.db.UsernameExists(username)
	switch {
	case err != nil:
		log.Printf("[auth] register %s: %v", username, err)
		return 0, "", errAuthInternal
	case taken:
		return 0, "", ErrNameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		log.Printf("[auth] register %s: hash: %v", username, err)
		return 0, "", errAuthInternal
	}
	id, err := a.db.CreateOperator(username, string(hash))
	if err != nil {
		log.Printf("[auth] register %s: %v", username, err)
		return 0, "", errAuthInternal
	}
	log.Printf("[auth] operator %s registered as #%d", username, id)
	return a.issue(id, username)
}

// Login checks the password and returns the operator's ID and a fresh token.
// Attempts are counted per address; a successful login clears the count.
func (a *Auth) Login(username, password, ip string) (int64, string, error) {
	if !a.logins.allow(ip) {
		return 0, "", ErrTooManyAttempts
	}

	op, err := a.db.GetOperatorByUsername(strings.TrimSpace(username))
	if err != nil {
		log.Printf("[auth] login %s: %v", username, err)
		return 0, "", errAuthInternal
	}
	if op == nil || op.PassHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(op.PassHash), []byte(password)) != nil {
		return 0, "", ErrBadCredentials
	}

	a.logins.forget(ip)
	return a.issue(op.ID, op.Username)
}

// ValidateToken returns the operator a token was issued to. Tokens must be
// HS256, carry this server's issuer and an expiry, and name an operator.
func (a *Auth) ValidateToken(tokenStr string) (int64, string, error) {
	var claims operatorClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims,
		func(*jwt.Token) (interface{}, error) { return a.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, "", err
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 || claims.Name == "" {
		return 0, "", errors.New("token does not name an operator")
	}
	return id, claims.Name, nil
}

func (a *Auth) issue(id int64, name string) (int64, string, error) {
	now := time.Now()
	claims := operatorClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(id, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.key)
	if err != nil {
		log.Printf("[auth] sign token for #%d: %v", id, err)
		return 0, "", errAuthInternal
	}
	return id, token, nil
}

// loginLimiter counts login attempts per address in fixed windows.
type loginLimiter struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	seen   map[string]*loginWindow
	now    func() time.Time
}

type loginWindow struct {
	attempts int
	resetAt  time.Time
}

func newLoginLimiter(limit int, window time.Duration) *loginLimiter {
	return &loginLimiter{
		limit:  limit,
		window: window,
		seen:   make(map[string]*loginWindow),
		now:    time.Now,
	}
}

// allow records an attempt from ip and reports whether it is within the limit.
func (l *loginLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.seen[ip]
	if !ok || now.After(w.resetAt) {
		if !ok && len(l.seen) >= maxTrackedLogins {
			l.sweep(now)
		}
		l.seen[ip] = &loginWindow{attempts: 1, resetAt: now.Add(l.window)}
		return true
	}
	w.attempts++
	return w.attempts <= l.limit
}

func (l *loginLimiter) forget(ip string) {
	l.mu.Lock()
	delete(l.seen, ip)
	l.mu.Unlock()
}

func (l *loginLimiter) sweep(now time.Time) {
	for ip, w := range l.seen {
		if now.After(w.resetAt) {
			delete(l.seen, ip)
		}
	}
}
