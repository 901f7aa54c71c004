package middleware

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Dosada05/tournament-wallet/models"
	"github.com/golang-jwt/jwt/v4"
)

// Определяем константы для имен JWT claims
const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"
)

var ErrNoPrincipal = errors.New("user claims not found in context")

func GetPrincipal(ctx context.Context) (models.Principal, error) {
	p, ok := ctx.Value(principalContextKey).(models.Principal)
	if !ok || p.UserID == "" {
		return models.Principal{}, ErrNoPrincipal
	}
	return p, nil
}

func GetUserIDFromContext(ctx context.Context) (string, error) {
	p, err := GetPrincipal(ctx)
	if err != nil {
		return "", err
	}
	return p.UserID, nil
}

func principalFromClaims(claims jwt.MapClaims) (models.Principal, error) {
	userIDClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return models.Principal{}, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}

	var userID string
	switch v := userIDClaim.(type) {
	case string:
		userID = strings.TrimSpace(v)
	case float64:
		// Числовые ID из старых токенов
		if v != math.Trunc(v) || v <= 0 {
			return models.Principal{}, fmt.Errorf("invalid user ID value in '%s' claim: %v", jwtClaimUserID, v)
		}
		userID = strconv.FormatInt(int64(v), 10)
	default:
		return models.Principal{}, fmt.Errorf("invalid type for '%s' claim: expected string, got %T", jwtClaimUserID, userIDClaim)
	}
	if userID == "" {
		return models.Principal{}, fmt.Errorf("empty '%s' claim in token", jwtClaimUserID)
	}

	roleStr, _ := claims[jwtClaimRole].(string)
	role := models.UserRole(roleStr)
	switch role {
	case models.RoleAdmin, models.RolePlayer:
	case "":
		role = models.RolePlayer
	default:
		return models.Principal{}, fmt.Errorf("invalid role value in claim: %q", roleStr)
	}

	return models.Principal{UserID: userID, Role: role}, nil
}
