// Package auth hashes passwords and issues the bearer tokens that identify
// the current user on every request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"agora/models"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// DefaultTokenTTL is how long issued tokens stay valid
const DefaultTokenTTL = 7 * 24 * time.Hour

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// CheckPassword compares password with a stored hash. Users without a
// password never match.
func CheckPassword(hash, password string) error {
	if hash == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Tokens signs and verifies HS256 session tokens
type Tokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokens(secret string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue returns a signed token for user
func (t *Tokens) Issue(user models.User) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"user_id":  user.Id,
		"handle":   user.Handle,
		"username": user.Username,
		"exp":      now.Add(t.ttl).Unix(),
		"iat":      now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the user it was issued for
func (t *Tokens) Parse(tokenString string) (models.CurrentUser, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil {
		return models.CurrentUser{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.CurrentUser{}, ErrInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return models.CurrentUser{}, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	handle, _ := claims["handle"].(string)
	username, _ := claims["username"].(string)

	return models.CurrentUser{
		ID:       userID,
		Handle:   handle,
		Username: username,
	}, nil
}
