// Package token mints and validates actor tokens. Dashboards obtain a token
// for their party (buyer, seller, logistics) and present it on every kernel
// call; the kernel only needs party and company from it.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "tradelane/pkg/domain"
	dErrors "tradelane/pkg/domain-errors"
)

// Claims carried by an actor token.
type Claims struct {
	Party     string `json:"party"`
	CompanyID string `json:"company_id"`
	jwt.RegisteredClaims
}

// Service handles actor token creation and validation.
type Service struct {
	signingKey []byte
	issuer     string
}

func NewService(signingKey string, issuer string) *Service {
	return &Service{signingKey: []byte(signingKey), issuer: issuer}
}

// Mint issues an HS256 token for the given actor.
func (s *Service) Mint(actor id.Actor, expiresIn time.Duration) (string, error) {
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Party:     string(actor.Party),
		CompanyID: actor.CompanyID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})
	return newToken.SignedString(s.signingKey)
}

// Validate parses a token string and resolves the actor it represents.
func (s *Service) Validate(tokenString string) (id.Actor, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}

	party, err := id.ParseParty(claims.Party)
	if err != nil {
		return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "token party is not a trade party")
	}
	companyID, err := id.ParseCompanyID(claims.CompanyID)
	if err != nil {
		return id.Actor{}, dErrors.New(dErrors.CodeUnauthorized, "token company id is invalid")
	}

	return id.Actor{Party: party, CompanyID: companyID}, nil
}
