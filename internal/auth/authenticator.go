package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/teslo-shop/realtime-gateway/internal/ierr"
)

// Claims carries the user id in a custom "id" claim; tokens minted by
// other backend services use the registered "sub" claim instead, so
// both are accepted.
type Claims struct {
	jwt.RegisteredClaims
	UserId string `json:"id,omitempty"`
}

type Authenticator struct {
	secret    []byte
	apiKeys   []string
	jwtParser *jwt.Parser
}

func NewAuthenticator(secret string, apiKeys []string) *Authenticator {
	jwtParser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	return &Authenticator{
		secret:    []byte(secret),
		apiKeys:   apiKeys,
		jwtParser: jwtParser,
	}
}

func (a *Authenticator) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("unexpected signing method"))
	}
	return a.secret, nil
}

// VerifyToken validates a bearer credential and extracts the subject
// user id.
func (a *Authenticator) VerifyToken(tokenString string) (string, error) {
	claims := Claims{}

	_, err := a.jwtParser.ParseWithClaims(tokenString, &claims, a.keyFunc)
	if err != nil {
		return "", ierr.New(ierr.ErrorCodeUnauthenticated, err)
	}

	subject := claims.UserId
	if subject == "" {
		subject = claims.Subject
	}

	if subject == "" {
		return "", ierr.New(ierr.ErrorCodeInvalidArgument, errors.New("token carries no user id"))
	}

	return subject, nil
}

// VerifyAPIKey checks a key for the REST hooks in constant time.
func (a *Authenticator) VerifyAPIKey(apiKey string) error {
	for _, key := range a.apiKeys {
		if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
			return nil
		}
	}

	return ierr.New(ierr.ErrorCodeUnauthenticated, errors.New("invalid api key"))
}
