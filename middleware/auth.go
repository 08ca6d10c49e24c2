package middleware

import (
	"context"
	"log"
	"net/http"
	"strings"

	"fieldsched/utils"
)

type contextKey string

const (
	ContextUserID   contextKey = "userID"
	ContextUserName contextKey = "userName"
	ContextRole     contextKey = "role"
	ContextOrgID    contextKey = "orgID"
)

// AuthMiddleware validates the bearer token and places the caller's identity
// and organization into the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WebSocket upgrades authenticate via query token in the handler.
		if r.Header.Get("Upgrade") == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			utils.RespondWithError(w, http.StatusUnauthorized, "Missing or invalid Authorization header")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := utils.ValidateJWT(tokenString)
		if err != nil {
			log.Printf("AuthMiddleware: JWT validation failed: %v", err)
			utils.RespondWithError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		if claims.OrganizationID == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "Token carries no organization")
			return
		}

		ctx := context.WithValue(r.Context(), ContextUserID, claims.UserID)
		ctx = context.WithValue(ctx, ContextUserName, claims.Name)
		ctx = context.WithValue(ctx, ContextRole, claims.Role)
		ctx = context.WithValue(ctx, ContextOrgID, claims.OrganizationID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
