package protocol

import (
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	jwtIssuer          = "arangodb"
	defaultJWTTokenTTL = time.Hour
)

// superuserClaims are the claims ArangoDB expects in a token signed with the
// server's JWT secret.
type superuserClaims struct {
	ServerID string `json:"server_id"`
	jwt.RegisteredClaims
}

func basicAuthorization(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

// bearerAuthorization signs a short-lived superuser token with secret.
func bearerAuthorization(secret, serverID string, ttl time.Duration, now time.Time) (string, error) {
	claims := &superuserClaims{
		ServerID: serverID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "signing superuser token")
	}
	return "bearer " + signed, nil
}

// authorization returns the Authorization header value for the connection, or
// "" when no credentials are configured. Basic credentials take precedence
// over a JWT secret.
func (c *Connection) authorization() (string, error) {
	if c.username != "" && c.password != "" {
		return basicAuthorization(c.username, c.password), nil
	}
	if c.jwtSecret != "" {
		return bearerAuthorization(c.jwtSecret, c.alias, c.jwtTTL, time.Now())
	}
	return "", nil
}
