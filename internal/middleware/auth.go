// Package middleware provides authentication, logging, tracing and rate
// limiting middleware for the application.
package middleware

import (
	"errors"
	"strconv"
	"strings"

	"snapshare/internal/config"
	"snapshare/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Token issuer and audience shared with the auth service.
const (
	TokenIssuer   = "snapshare-api"
	TokenAudience = "snapshare-client"
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

var (
	errNoToken        = errors.New("authorization header required")
	errHeaderFormat   = errors.New("invalid authorization header format")
	errInvalidToken   = errors.New("invalid or expired token")
	errInvalidSubject = errors.New("invalid token subject")
)

// ParseToken validates an HS256 token and returns the user id in its subject.
func ParseToken(secret, tokenString string) (uint, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return 0, errInvalidToken
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return 0, errInvalidSubject
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil || userID == 0 {
		return 0, errInvalidSubject
	}
	return uint(userID), nil
}

// bearerToken extracts the token from "Bearer <token>" or "Token <token>".
func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get("Authorization")
	if header == "" {
		return "", errNoToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || (parts[0] != "Bearer" && parts[0] != "Token") {
		return "", errHeaderFormat
	}
	return parts[1], nil
}

func unauthorized(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(err.Error()))
}

// AuthRequired rejects requests without a valid token and stores the caller
// id in c.Locals("userID").
func AuthRequired(c *fiber.Ctx) error {
	tokenString, err := bearerToken(c)
	if err != nil {
		return unauthorized(c, err)
	}
	userID, err := ParseToken(cfg.JWTSecret, tokenString)
	if err != nil {
		return unauthorized(c, err)
	}

	c.Locals("userID", userID)
	return c.Next()
}

// AuthOptional lets anonymous requests through. A token that is present must
// still be valid.
func AuthOptional(c *fiber.Ctx) error {
	tokenString, err := bearerToken(c)
	if errors.Is(err, errNoToken) {
		return c.Next()
	}
	if err != nil {
		return unauthorized(c, err)
	}
	userID, err := ParseToken(cfg.JWTSecret, tokenString)
	if err != nil {
		return unauthorized(c, err)
	}

	c.Locals("userID", userID)
	return c.Next()
}

// WebSocketAuthRequired reads the token from the "token" query parameter,
// falling back to the Authorization header.
func WebSocketAuthRequired(c *fiber.Ctx) error {
	tokenString := c.Query("token")
	if tokenString == "" {
		var err error
		if tokenString, err = bearerToken(c); err != nil {
			return unauthorized(c, err)
		}
	}
	userID, err := ParseToken(cfg.JWTSecret, tokenString)
	if err != nil {
		return unauthorized(c, err)
	}

	c.Locals("userID", userID)
	return c.Next()
}

// UserID returns the authenticated caller id set by the auth middleware.
func UserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("userID").(uint)
	return id, ok && id != 0
}
