package utils

import (
	"errors"
	"time"

	"taskforge/config"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceClaims identify a privileged service caller. The engine trigger
// and the collaborator write endpoints act on behalf of the system, not an
// end user, so the token carries a service name rather than a user id.
type ServiceClaims struct {
	Service string `json:"service"`
	OrgID   uint   `json:"org_id,omitempty"`
	jwt.RegisteredClaims
}

func GenerateServiceToken(service string, orgID uint, ttl time.Duration) (string, error) {
	claims := &ServiceClaims{
		Service: service,
		OrgID:   orgID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.ServiceSecret))
}

func ParseServiceToken(tokenString string) (*ServiceClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.ServiceSecret), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*ServiceClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
