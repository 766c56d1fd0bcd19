package auth

import (
	"errors"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// --- Context Keys ---

// contextKey is a custom type used for context keys to avoid collisions.
type contextKey string

const (
	UserIDKey contextKey = "userID"
)

// --- JWT Claims ---

// CustomClaims includes standard JWT claims plus our custom ones.
// AuthSessionID is compared against the user's current auth_session_id on
// every request: logging in on another device (or logout-all) rotates it,
// which invalidates every previously issued token.
type CustomClaims struct {
	UserID        uuid.UUID `json:"user_id"`
	AuthSessionID uuid.UUID `json:"auth_session_id"`
	jwt.RegisteredClaims
}

// NewAccessToken generates a new JWT access token.
func NewAccessToken(userID, authSessionID uuid.UUID, jwtSecret string, expiration time.Duration) (string, error) {
	claims := CustomClaims{
		UserID:        userID,
		AuthSessionID: authSessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "sofia-backend",
			Subject:   userID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		log.Printf("Error signing JWT token for UserID %s: %v", userID, err)
		return "", err
	}

	return signedToken, nil
}

// --- Email Verification Tokens ---

// ErrInvalidVerifyToken is returned when a verification token is expired,
// malformed, or was minted for a different purpose.
var ErrInvalidVerifyToken = errors.New("invalid or expired verification token")

const verifyPurpose = "email-verify"

// verifyClaims are the claims carried by email verification links. They are
// deliberately separate from access tokens so one can never stand in for the other.
type verifyClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// NewVerificationToken generates a short-lived token embedded in the
// verification link emailed to the user.
func NewVerificationToken(email, jwtSecret string, expiration time.Duration) (string, error) {
	claims := verifyClaims{
		Email:   email,
		Purpose: verifyPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "sofia-backend",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// ParseVerificationToken validates a verification token and returns the email
// it was issued for.
func ParseVerificationToken(tokenString, jwtSecret string) (string, error) {
	claims := &verifyClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidVerifyToken
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidVerifyToken
	}
	if claims.Purpose != verifyPurpose || claims.Email == "" {
		return "", ErrInvalidVerifyToken
	}
	return claims.Email, nil
}
