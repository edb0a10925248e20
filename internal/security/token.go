package security

import (
	"errors"
	"strconv"
	"time"

	"hireflow-backend/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrExpiredToken   = errors.New("token has expired")
	ErrWrongTokenType = errors.New("wrong token type for this endpoint")
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeService TokenType = "service"
)

const accessAudience = "hireflow-api"

// UserClaims identifies a member acting inside one organization
type UserClaims struct {
	UserID         int32             `json:"user_id"`
	OrganizationID int32             `json:"org_id"`
	Role           domain.MemberRole `json:"role,omitempty"`
	Email          string            `json:"email,omitempty"`
	Type           TokenType         `json:"type"`
	jwt.RegisteredClaims
}

type TokenManager interface {
	GenerateAccessToken(userID, orgID int32, role domain.MemberRole, email string) (string, error)
	GenerateServiceToken(name string, orgID int32) (string, error)
	ValidateToken(tokenString string) (*UserClaims, error)
}

type tokenManager struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

func NewTokenManager(secret, issuer string, expiry time.Duration) TokenManager {
	if expiry <= 0 {
		expiry = time.Hour
	}
	return &tokenManager{
		secret: []byte(secret),
		issuer: issuer,
		expiry: expiry,
		now:    time.Now,
	}
}

func (m *tokenManager) GenerateAccessToken(userID, orgID int32, role domain.MemberRole, email string) (string, error) {
	now := m.now()
	claims := UserClaims{
		UserID:         userID,
		OrganizationID: orgID,
		Role:           role,
		Email:          email,
		Type:           TokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(int(userID)),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{accessAudience},
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// GenerateServiceToken issues a token for a machine caller such as the
// reminder cronjob. It carries no user and may only read.
func (m *tokenManager) GenerateServiceToken(name string, orgID int32) (string, error) {
	now := m.now()
	claims := UserClaims{
		OrganizationID: orgID,
		Type:           TokenTypeService,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   name,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{accessAudience},
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

func (m *tokenManager) ValidateToken(tokenString string) (*UserClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithAudience(accessAudience),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*UserClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type == TokenTypeAccess && claims.UserID == 0 && claims.Subject != "" {
		uid, _ := strconv.Atoi(claims.Subject)
		claims.UserID = int32(uid)
	}
	if claims.OrganizationID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RequestContext converts validated claims into the identity threaded
// through workflow calls.
func (c *UserClaims) RequestContext() domain.RequestContext {
	return domain.RequestContext{
		ActorID:        c.UserID,
		OrganizationID: c.OrganizationID,
		Role:           c.Role,
	}
}
