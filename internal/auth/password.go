package auth

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminDisabled      = errors.New("admin login is not configured")
)

const (
	bcryptCost        = 12
	minPasswordLength = 8
	adminSubject      = "admin"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword compares a password with its hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// AdminAuthenticator exchanges the shared admin password for an access token.
type AdminAuthenticator struct {
	passwordHash string
	tokens       *JWTService
}

// NewAdminAuthenticator returns an authenticator that rejects every login
// when passwordHash is empty.
func NewAdminAuthenticator(passwordHash string, tokens *JWTService) *AdminAuthenticator {
	return &AdminAuthenticator{passwordHash: passwordHash, tokens: tokens}
}

func (a *AdminAuthenticator) Login(password string) (string, time.Time, error) {
	if a.passwordHash == "" {
		return "", time.Time{}, ErrAdminDisabled
	}
	if !CheckPassword(password, a.passwordHash) {
		return "", time.Time{}, ErrInvalidCredentials
	}
	return a.tokens.GenerateAccessToken(adminSubject, RoleAdmin)
}
