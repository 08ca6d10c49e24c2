// handlers/assignment_handler.go
package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fieldsched/models"
	"fieldsched/store"
	"fieldsched/utils"
	"fieldsched/websocket"
)

type CreateAssignmentRequest struct {
	InstallationID  string `json:"installationId"`
	LeadID          string `json:"leadId"`
	AssistantID     string `json:"assistantId,omitempty"`
	Priority        string `json:"priority,omitempty"`
	ScheduledDate   string `json:"scheduledDate"` // YYYY-MM-DD
	StartTime       string `json:"startTime"`
	DurationMinutes int    `json:"durationMinutes"`
}

type UpdateAssignmentRequest struct {
	Version         int64   `json:"version"`
	Status          string  `json:"status,omitempty"`
	LeadID          string  `json:"leadId,omitempty"`
	AssistantID     *string `json:"assistantId,omitempty"`
	ScheduledDate   string  `json:"scheduledDate,omitempty"`
	StartTime       string  `json:"startTime,omitempty"`
	DurationMinutes *int    `json:"durationMinutes,omitempty"`
	Reason          string  `json:"reason"`
}

// respondStoreError maps repository errors onto HTTP statuses.
func respondStoreError(w http.ResponseWriter, err error) {
	var validation *store.ValidationError
	var concurrency *store.ConcurrencyError
	var notFound *store.NotFoundError
	switch {
	case errors.As(err, &validation):
		utils.RespondWithError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &concurrency):
		utils.RespondWithError(w, http.StatusConflict, concurrency.Error())
	case errors.As(err, &notFound):
		utils.RespondWithError(w, http.StatusNotFound, notFound.Error())
	default:
		log.Printf("assignment store error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "assignment operation failed")
	}
}

func ListAssignments(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	assignments := assignmentStore.List(orgID)

	if status := r.URL.Query().Get("status"); status != "" {
		filtered := assignments[:0]
		for _, a := range assignments {
			if a.Status == status {
				filtered = append(filtered, a)
			}
		}
		assignments = filtered
	}
	if assignments == nil {
		assignments = []models.Assignment{}
	}

	utils.RespondWithJSON(w, http.StatusOK, assignments)
}

func CreateAssignment(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}
	userID, userName := callerIdentity(r)

	var req CreateAssignmentRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	installationID, err := primitive.ObjectIDFromHex(req.InstallationID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid installation id format")
		return
	}
	leadID, err := primitive.ObjectIDFromHex(req.LeadID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid lead id format")
		return
	}
	assistantID := primitive.NilObjectID
	if req.AssistantID != "" {
		assistantID, err = primitive.ObjectIDFromHex(req.AssistantID)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid assistant id format")
			return
		}
	}
	scheduled, err := parseDate(req.ScheduledDate)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	assignment := models.Assignment{
		OrganizationID:  orgID,
		InstallationID:  installationID,
		LeadID:          leadID,
		AssistantID:     assistantID,
		Priority:        req.Priority,
		ScheduledDate:   scheduled,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
	}

	created, err := assignmentStore.Create(r.Context(), assignment, userID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	setInstallationStatus(r.Context(), installationID, models.InstallationAssigned)
	websocket.SendAssignmentCreated(orgID, created, userID, userName)
	utils.RespondWithJSON(w, http.StatusCreated, created)
}

func GetAssignment(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid assignment id format")
		return
	}

	assignment, err := assignmentStore.Get(id)
	if err != nil || assignment.OrganizationID != orgID {
		utils.RespondWithError(w, http.StatusNotFound, "assignment not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, assignment)
}

func UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}
	userID, userName := callerIdentity(r)

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid assignment id format")
		return
	}

	var req UpdateAssignmentRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.Reason == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "reason is required")
		return
	}

	before, err := assignmentStore.Get(id)
	if err != nil || before.OrganizationID != orgID {
		utils.RespondWithError(w, http.StatusNotFound, "assignment not found")
		return
	}

	update := store.UpdateRequest{
		Version:     req.Version,
		Status:      req.Status,
		StartTime:   req.StartTime,
		Reason:      req.Reason,
		PerformedBy: userID,
	}
	if req.LeadID != "" {
		leadID, err := primitive.ObjectIDFromHex(req.LeadID)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "invalid lead id format")
			return
		}
		update.LeadID = &leadID
	}
	if req.AssistantID != nil {
		assistantID := primitive.NilObjectID
		if *req.AssistantID != "" {
			assistantID, err = primitive.ObjectIDFromHex(*req.AssistantID)
			if err != nil {
				utils.RespondWithError(w, http.StatusBadRequest, "invalid assistant id format")
				return
			}
		}
		update.AssistantID = &assistantID
	}
	if req.ScheduledDate != "" {
		scheduled, err := parseDate(req.ScheduledDate)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		update.ScheduledDate = &scheduled
	}
	update.DurationMinutes = req.DurationMinutes

	updated, err := assignmentStore.Update(r.Context(), id, update)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	if updated.Status != before.Status {
		switch updated.Status {
		case models.AssignmentInProgress:
			setInstallationStatus(r.Context(), updated.InstallationID, models.InstallationInProgress)
		case models.AssignmentCompleted:
			setInstallationStatus(r.Context(), updated.InstallationID, models.InstallationCompleted)
		case models.AssignmentCancelled:
			setInstallationStatus(r.Context(), updated.InstallationID, models.InstallationPending)
		}
		websocket.SendAssignmentStatusChange(orgID, id.Hex(), before.Status, updated.Status, userID, userName)
	} else {
		websocket.SendAssignmentUpdated(orgID, id.Hex(), updated, userID, userName)
	}

	utils.RespondWithJSON(w, http.StatusOK, updated)
}

func DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}
	userID, userName := callerIdentity(r)

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid assignment id format")
		return
	}

	reason := r.URL.Query().Get("reason")
	if reason == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "reason query parameter is required")
		return
	}

	existing, err := assignmentStore.Get(id)
	if err != nil || existing.OrganizationID != orgID {
		utils.RespondWithError(w, http.StatusNotFound, "assignment not found")
		return
	}

	deleted, err := assignmentStore.Delete(r.Context(), id, userID, reason)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	setInstallationStatus(r.Context(), deleted.InstallationID, models.InstallationPending)
	websocket.SendAssignmentStatusChange(orgID, id.Hex(), existing.Status, deleted.Status, userID, userName)
	utils.RespondWithJSON(w, http.StatusOK, deleted)
}

func GetAssignmentHistory(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid assignment id format")
		return
	}

	assignment, err := assignmentStore.Get(id)
	if err != nil || assignment.OrganizationID != orgID {
		utils.RespondWithError(w, http.StatusNotFound, "assignment not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"assignmentId": id.Hex(),
		"history":      assignment.History,
		"entries":      len(assignment.History),
	})
}
