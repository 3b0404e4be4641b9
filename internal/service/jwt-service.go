package service

import (
	"access_service/internal/apperrors"
	"access_service/internal/config"
	"access_service/internal/models"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type JWTService struct{}

func NewJWTService() *JWTService {
	return &JWTService{}
}

// ParseActor extracts the acting user from a bearer token issued by the auth
// service. The address comes from the request, not the token.
func (jwt_s *JWTService) ParseActor(tokenString, address string) (models.Actor, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(config.ServiceConfig.JWTSecret), nil
	})
	if err != nil {
		return models.Actor{}, fmt.Errorf("error parsing token: %s", err)
	}
	if !token.Valid {
		return models.Actor{}, fmt.Errorf("invalid token")
	}

	userID, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return models.Actor{}, &apperrors.ValidationError{Field: "token", Reason: "subject is not a valid user id"}
	}

	return models.Actor{ID: userID, Address: address}, nil
}
