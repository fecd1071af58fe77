package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jasperfordesq-ai/nexus-broker/internal/pkg/reqctx"
)

// ErrTenantMissing возвращается, если в токене нет сообщества.
var ErrTenantMissing = errors.New("в токене отсутствует tenant_id")

// TokenManager проверяет access токены, выпущенные основной платформой.
type TokenManager struct {
	accessSecret []byte
	accessTTL    time.Duration
}

func NewTokenManager(accessSecret string, accessTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret: []byte(accessSecret),
		accessTTL:    accessTTL,
	}
}

// GenerateAccess выпускает access токен для актора. Используется в тестах и служебных утилитах.
func (m *TokenManager) GenerateAccess(actor reqctx.Actor) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       actor.UserID.String(),
		"tenant_id": actor.TenantID.String(),
		"role":      actor.Role,
		"name":      actor.Name,
		"iat":       now.Unix(),
		"exp":       now.Add(m.accessTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.accessSecret)
}

// ParseAccess проверяет подпись и срок действия и собирает актора из клеймов.
func (m *TokenManager) ParseAccess(token string) (reqctx.Actor, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return m.accessSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return reqctx.Actor{}, err
	}
	if !parsed.Valid {
		return reqctx.Actor{}, jwt.ErrTokenInvalidClaims
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return reqctx.Actor{}, jwt.ErrTokenInvalidClaims
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return reqctx.Actor{}, jwt.ErrTokenInvalidClaims
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return reqctx.Actor{}, err
	}

	rawTenant, _ := claims["tenant_id"].(string)
	if rawTenant == "" {
		return reqctx.Actor{}, ErrTenantMissing
	}
	tenantID, err := uuid.Parse(rawTenant)
	if err != nil {
		return reqctx.Actor{}, err
	}

	role, _ := claims["role"].(string)
	name, _ := claims["name"].(string)

	return reqctx.Actor{
		TenantID: tenantID,
		UserID:   userID,
		Name:     name,
		Role:     role,
	}, nil
}
