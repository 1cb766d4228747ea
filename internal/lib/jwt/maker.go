package jwt

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/hobbyfinder/internal/models"
)

// CustomClaims описывает данные сессии, хранящиеся в JWT.
// Subject содержит идентификатор участника, ID идентификатор самого токена.
type CustomClaims struct {
	Participant          models.ParticipantType `json:"participant"` // Тип участника: пользователь или партнер
	jwt.RegisteredClaims                        // Стандартные claims JWT (sub, jti, exp, iat)
}

// Identity возвращает участника, которому выдан токен.
func (c *CustomClaims) Identity() models.Identity {
	return models.Identity{Type: c.Participant, ID: c.Subject}
}

// GenerateToken создает подписанный HS256 токен для участника.
func (j *MakerImpl) GenerateToken(identity models.Identity) (string, error) {
	const op = "jwt.GenerateToken"
	if identity.ID == "" {
		return "", fmt.Errorf("%s: empty participant id", op)
	}
	now := time.Now()
	claims := CustomClaims{
		Participant: identity.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(j.secretKey))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return signed, nil
}

// ParseToken парсит JWT токен, проверяет его подпись и валидность.
func (j *MakerImpl) ParseToken(tokenStr string) (*CustomClaims, error) {
	const op = "jwt.ParseToken"
	token, err := jwt.ParseWithClaims(tokenStr, &CustomClaims{}, func(_ *jwt.Token) (any, error) {
		return []byte(j.secretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%s: invalid token", op)
	}
	return claims, nil
}
