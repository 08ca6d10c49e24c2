package routes

import (
	"github.com/gorilla/mux"

	"fieldsched/handlers"
	"fieldsched/middleware"
	"fieldsched/websocket"
)

// HTTP method constants for better maintainability
var (
	MethodsGetOnly    = []string{"GET", "OPTIONS"}
	MethodsPostOnly   = []string{"POST", "OPTIONS"}
	MethodsPutOnly    = []string{"PUT", "OPTIONS"}
	MethodsDeleteOnly = []string{"DELETE", "OPTIONS"}
)

const (
	PathAPI    = "/api"
	PathHealth = "/health"
)

func RegisterRoutes(r *mux.Router) {
	// ====================
	// HEALTH CHECK (Public)
	// ====================
	r.HandleFunc(PathHealth, handlers.HealthCheck).Methods(MethodsGetOnly...)

	// ====================
	// AUTHENTICATION ROUTES (Public - No auth required)
	// ====================
	r.HandleFunc("/api/auth/login", handlers.Login).Methods(MethodsPostOnly...)
	r.HandleFunc("/api/auth/register", handlers.Register).Methods(MethodsPostOnly...)
	r.HandleFunc("/api/auth/validate", handlers.ValidateToken).Methods(MethodsGetOnly...)

	// ====================
	// WEBSOCKET (token-authenticated in the handler)
	// ====================
	r.HandleFunc("/api/ws", websocket.ServeWS)

	// ====================
	// PROTECTED API ROUTES (Require authentication)
	// ====================
	apiRouter := r.PathPrefix(PathAPI).Subrouter()
	apiRouter.Use(middleware.AuthMiddleware)

	// ====================
	// TEAM MEMBERS (roster)
	// ====================
	apiRouter.HandleFunc("/teams", handlers.ListTeamMembers).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/teams", handlers.CreateTeamMember).Methods(MethodsPostOnly...)
	apiRouter.HandleFunc("/teams/{id}", handlers.GetTeamMember).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/teams/{id}", handlers.UpdateTeamMember).Methods(MethodsPutOnly...)
	apiRouter.HandleFunc("/teams/{id}", handlers.DeleteTeamMember).Methods(MethodsDeleteOnly...)

	// ====================
	// INSTALLATIONS (jobs)
	// ====================
	apiRouter.HandleFunc("/installations", handlers.ListInstallations).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/installations", handlers.CreateInstallation).Methods(MethodsPostOnly...)
	apiRouter.HandleFunc("/installations/{id}", handlers.GetInstallation).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/installations/{id}", handlers.UpdateInstallation).Methods(MethodsPutOnly...)
	apiRouter.HandleFunc("/installations/{id}", handlers.DeleteInstallation).Methods(MethodsDeleteOnly...)

	// ====================
	// ASSIGNMENTS
	// ====================
	apiRouter.HandleFunc("/assignments", handlers.ListAssignments).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/assignments", handlers.CreateAssignment).Methods(MethodsPostOnly...)
	apiRouter.HandleFunc("/assignments/{id}", handlers.GetAssignment).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/assignments/{id}", handlers.UpdateAssignment).Methods(MethodsPutOnly...)
	apiRouter.HandleFunc("/assignments/{id}", handlers.DeleteAssignment).Methods(MethodsDeleteOnly...)
	apiRouter.HandleFunc("/assignments/{id}/history", handlers.GetAssignmentHistory).Methods(MethodsGetOnly...)

	// ====================
	// SCHEDULING ENGINE
	// ====================
	apiRouter.HandleFunc("/schedule/propose", handlers.ProposeAssignment).Methods(MethodsPostOnly...)
	apiRouter.HandleFunc("/schedule/bulk", handlers.RunBulkAssignment).Methods(MethodsPostOnly...)
	apiRouter.HandleFunc("/schedule/conflicts", handlers.DetectConflicts).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/schedule/conflicts/{id}/resolve", handlers.ResolveConflict).Methods(MethodsPostOnly...)
	apiRouter.HandleFunc("/schedule/workload", handlers.ComputeWorkload).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/schedule/matrix", handlers.BuildMatrix).Methods(MethodsGetOnly...)
	apiRouter.HandleFunc("/schedule/matrix/cell", handlers.UpdateMatrixCell).Methods(MethodsPutOnly...)
	apiRouter.HandleFunc("/schedule/summary", handlers.GetScheduleSummary).Methods(MethodsGetOnly...)
}
