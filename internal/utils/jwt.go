// Package utils holds the staff credential helpers: bcrypt password hashes
// and the HS256 access tokens handed out by /v1/auth/login.
package utils

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "guest-pass"

// AccessToken is a signed JWT and the moment it stops being accepted.
// Door devices keep one for a whole shift.
type AccessToken struct {
    Token string
    Exp   time.Time
}

// StaffClaims is what the auth middleware extracts from a valid token.
type StaffClaims struct {
    Subject string // staff email
    Role    string // ADMIN or SCANNER
}

var ErrInvalidToken = errors.New("invalid token")

type staffJWT struct {
    Role string `json:"role"`
    jwt.RegisteredClaims
}

func NewAccessToken(secret, subject, role string, ttlMin int) (AccessToken, error) {
    now := time.Now().UTC().Truncate(time.Second)
    exp := now.Add(time.Duration(ttlMin) * time.Minute)
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, staffJWT{
        Role: role,
        RegisteredClaims: jwt.RegisteredClaims{
            Issuer:    tokenIssuer,
            Subject:   subject,
            IssuedAt:  jwt.NewNumericDate(now),
            ExpiresAt: jwt.NewNumericDate(exp),
        },
    }).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessToken accepts only HS256 tokens that carry an expiry, a
// subject and a role.  Every failure is reported as ErrInvalidToken.
func ParseAccessToken(secret, raw string) (StaffClaims, error) {
    var claims staffJWT
    _, err := jwt.ParseWithClaims(raw, &claims,
        func(*jwt.Token) (any, error) { return []byte(secret), nil },
        jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
        jwt.WithExpirationRequired(),
    )
    if err != nil || claims.Subject == "" || claims.Role == "" {
        return StaffClaims{}, ErrInvalidToken
    }
    return StaffClaims{Subject: claims.Subject, Role: claims.Role}, nil
}
