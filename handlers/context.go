// handlers/context.go
package handlers

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"fieldsched/middleware"
)

// orgIDFromRequest pulls the authenticated organization id out of the
// request context.
func orgIDFromRequest(r *http.Request) (primitive.ObjectID, bool) {
	hex, ok := r.Context().Value(middleware.ContextOrgID).(string)
	if !ok || hex == "" {
		return primitive.NilObjectID, false
	}
	orgID, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return orgID, true
}

// callerIdentity returns the authenticated user's id and display name for
// history attribution.
func callerIdentity(r *http.Request) (string, string) {
	userID, _ := r.Context().Value(middleware.ContextUserID).(string)
	userName, _ := r.Context().Value(middleware.ContextUserName).(string)
	if userID == "" {
		userID = "system"
	}
	return userID, userName
}
