// handlers/schedule_handler.go
package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fieldsched/engine"
	"fieldsched/models"
	"fieldsched/store"
	"fieldsched/utils"
	"fieldsched/websocket"
)

// loadSnapshot assembles the immutable engine state for one organization:
// roster and jobs from mongo, assignments from the repository façade.
func loadSnapshot(ctx context.Context, orgID primitive.ObjectID) (*engine.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var teams []models.TeamMember
	cursor, err := teamCollection.Find(ctx, bson.M{"organizationId": orgID})
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	if err := cursor.All(ctx, &teams); err != nil {
		return nil, fmt.Errorf("decode teams: %w", err)
	}

	var installations []models.Installation
	cursor, err = installationCollection.Find(ctx, bson.M{"organizationId": orgID})
	if err != nil {
		return nil, fmt.Errorf("load installations: %w", err)
	}
	if err := cursor.All(ctx, &installations); err != nil {
		return nil, fmt.Errorf("decode installations: %w", err)
	}

	return &engine.Snapshot{
		Teams:         teams,
		Installations: installations,
		Assignments:   assignmentStore.List(orgID),
	}, nil
}

// parseRange reads start/end query params, defaulting to the next 7 days.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	start, end := now, now.AddDate(0, 0, 6)

	if s := r.URL.Query().Get("start"); s != "" {
		parsed, err := parseDate(s)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = parsed
	}
	if e := r.URL.Query().Get("end"); e != "" {
		parsed, err := parseDate(e)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = parsed
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end date is before start date")
	}
	return start, end, nil
}

func criteriaOrDefault(c *engine.Criteria) engine.Criteria {
	if c == nil {
		return engine.DefaultCriteria()
	}
	return *c
}

type ProposeRequest struct {
	InstallationID string           `json:"installationId"`
	Criteria       *engine.Criteria `json:"criteria,omitempty"`
}

// ProposeAssignment scores candidate team members for one installation and
// returns the ranked proposal without committing anything.
func ProposeAssignment(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	var req ProposeRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	installationID, err := primitive.ObjectIDFromHex(req.InstallationID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid installation id format")
		return
	}

	snap, err := loadSnapshot(r.Context(), orgID)
	if err != nil {
		log.Printf("snapshot load error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load scheduling state")
		return
	}

	inst, found := snap.Installation(installationID)
	if !found {
		utils.RespondWithError(w, http.StatusNotFound, "installation not found")
		return
	}

	result, err := engine.Propose(snap, inst, criteriaOrDefault(req.Criteria))
	if err != nil {
		var noCandidate *engine.NoCandidateError
		if errors.As(err, &noCandidate) {
			utils.RespondWithJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":             noCandidate.Error(),
				"failedConstraints": noCandidate.FailedConstraints,
			})
			return
		}
		log.Printf("propose error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "proposal failed")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, result)
}

type BulkAssignmentRequest struct {
	InstallationIDs []string           `json:"installationIds"`
	Criteria        *engine.Criteria   `json:"criteria,omitempty"`
	Options         engine.BulkOptions `json:"options"`
}

// RunBulkAssignment drives the optimizer over many installations. Committed
// assignments flow through the repository; dry runs commit nothing.
func RunBulkAssignment(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}
	userID, userName := callerIdentity(r)

	var req BulkAssignmentRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if len(req.InstallationIDs) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "installationIds is required")
		return
	}

	snap, err := loadSnapshot(r.Context(), orgID)
	if err != nil {
		log.Printf("snapshot load error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load scheduling state")
		return
	}

	// Resolve ids in input order; unknown ids fail their own item later via
	// an empty installation list entry, so report them up front instead.
	installations := make([]models.Installation, 0, len(req.InstallationIDs))
	for _, hex := range req.InstallationIDs {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, fmt.Sprintf("invalid installation id: %s", hex))
			return
		}
		inst, found := snap.Installation(id)
		if !found {
			utils.RespondWithError(w, http.StatusNotFound, fmt.Sprintf("installation not found: %s", hex))
			return
		}
		installations = append(installations, inst)
	}

	ctx := r.Context()
	commit := func(planned models.Assignment) (models.Assignment, error) {
		created, err := assignmentStore.Create(ctx, planned, userID)
		if err != nil {
			return models.Assignment{}, err
		}
		setInstallationStatus(ctx, created.InstallationID, models.InstallationAssigned)
		websocket.SendAssignmentCreated(orgID, created, userID, userName)
		return created, nil
	}

	result := engine.RunBulk(snap, installations, criteriaOrDefault(req.Criteria), req.Options, commit)
	log.Printf("bulk assignment run %s: %d ok, %d failed, dryRun=%v (%dms)",
		result.RunID, result.Successful, result.Failed, result.DryRun, result.DurationMillis)

	utils.RespondWithJSON(w, http.StatusOK, result)
}

// DetectConflicts recomputes the conflict list from current state.
func DetectConflicts(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	snap, err := loadSnapshot(r.Context(), orgID)
	if err != nil {
		log.Printf("snapshot load error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load scheduling state")
		return
	}

	conflicts := engine.Detect(snap, 0, time.Now().UTC())
	websocket.SendConflictsDetected(orgID, len(conflicts))

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"conflicts": conflicts,
		"count":     len(conflicts),
	})
}

type ResolveConflictRequest struct {
	Method       string `json:"method"` // reassign, shift_time, split_team
	TeamMemberID string `json:"teamMemberId,omitempty"`
	NewStartTime string `json:"newStartTime,omitempty"`
	Reason       string `json:"reason"`
}

// ResolveConflict applies one suggested resolution to the conflict's moved
// assignment and records a conflict_resolved history entry.
func ResolveConflict(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}
	userID, _ := callerIdentity(r)
	conflictID := mux.Vars(r)["id"]

	var req ResolveConflictRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.Reason == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "reason is required")
		return
	}

	snap, err := loadSnapshot(r.Context(), orgID)
	if err != nil {
		log.Printf("snapshot load error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load scheduling state")
		return
	}

	var conflict *models.Conflict
	for _, c := range engine.Detect(snap, 0, time.Now().UTC()) {
		if c.ID == conflictID {
			found := c
			conflict = &found
			break
		}
	}
	if conflict == nil {
		utils.RespondWithError(w, http.StatusNotFound, "conflict not found (it may already be resolved)")
		return
	}

	// The suggestions name the assignment they were scored against (the
	// latest-starting job); the conflict's id list is hex-sorted and cannot be
	// used to recover it.
	movedHex := ""
	for _, res := range conflict.SuggestedResolutions {
		if res.AssignmentID != "" {
			movedHex = res.AssignmentID
			break
		}
	}
	if movedHex == "" {
		utils.RespondWithError(w, http.StatusConflict, "conflict has no applicable resolution target")
		return
	}
	movedID, err := primitive.ObjectIDFromHex(movedHex)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "conflict references an invalid assignment id")
		return
	}
	moved, err := assignmentStore.Get(movedID)
	if err != nil {
		respondStoreError(w, err)
		return
	}

	update := store.UpdateRequest{
		Version:     moved.Version,
		Reason:      fmt.Sprintf("resolving %s conflict: %s", conflict.Type, req.Reason),
		PerformedBy: userID,
	}
	switch req.Method {
	case models.ResolveReassign:
		targetHex := req.TeamMemberID
		if targetHex == "" {
			for _, res := range conflict.SuggestedResolutions {
				if res.Method == models.ResolveReassign {
					targetHex = res.TeamMemberID
					break
				}
			}
		}
		target, err := primitive.ObjectIDFromHex(targetHex)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "teamMemberId is required for reassign")
			return
		}
		update.LeadID = &target
	case models.ResolveShiftTime:
		if req.NewStartTime == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "newStartTime is required for shift_time")
			return
		}
		update.StartTime = req.NewStartTime
	case models.ResolveSplitTeam:
		if moved.AssistantID.IsZero() {
			utils.RespondWithError(w, http.StatusBadRequest, "assignment has no assistant to promote")
			return
		}
		promoted := moved.AssistantID
		cleared := primitive.NilObjectID
		update.LeadID = &promoted
		update.AssistantID = &cleared
	default:
		utils.RespondWithError(w, http.StatusBadRequest, "method must be one of reassign, shift_time, split_team")
		return
	}

	if _, err := assignmentStore.Update(r.Context(), movedID, update); err != nil {
		respondStoreError(w, err)
		return
	}
	resolved, err := assignmentStore.AppendHistory(r.Context(), movedID, models.HistoryEntry{
		Action:      models.ActionConflictResolved,
		PerformedBy: userID,
		NewValue:    fmt.Sprintf("%s via %s", conflictID, req.Method),
		Reason:      req.Reason,
	})
	if err != nil {
		respondStoreError(w, err)
		return
	}

	// Fresh scoped pass confirms the fix took.
	fresh, err := loadSnapshot(r.Context(), orgID)
	if err != nil {
		log.Printf("snapshot reload error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to reload scheduling state")
		return
	}
	remaining := engine.DetectScoped(fresh, 0, time.Now().UTC(), resolved.LeadID, models.DateKey(resolved.ScheduledDate))

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"resolved":           true,
		"conflictId":         conflictID,
		"method":             req.Method,
		"assignment":         resolved,
		"remainingConflicts": remaining,
	})
}

// ComputeWorkload returns per-member per-day workload records plus the
// aggregate over the requested range.
func ComputeWorkload(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	start, end, err := parseRange(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := loadSnapshot(r.Context(), orgID)
	if err != nil {
		log.Printf("snapshot load error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load scheduling state")
		return
	}

	conflicts := engine.Detect(snap, 0, time.Now().UTC())
	records, summary := engine.ComputeWorkload(snap, start, end, conflicts)
	if records == nil {
		records = []models.WorkloadRecord{}
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"records": records,
		"summary": summary,
	})
}

// BuildMatrix returns the (date x team) schedule grid.
func BuildMatrix(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	start, end, err := parseRange(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := loadSnapshot(r.Context(), orgID)
	if err != nil {
		log.Printf("snapshot load error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load scheduling state")
		return
	}

	conflicts := engine.Detect(snap, 0, time.Now().UTC())
	matrix := engine.BuildMatrix(snap, start, end, conflicts)

	utils.RespondWithJSON(w, http.StatusOK, matrix)
}

type UpdateCellRequest struct {
	Date          string   `json:"date"` // YYYY-MM-DD
	TeamMemberID  string   `json:"teamMemberId"`
	AssignmentIDs []string `json:"assignmentIds"`
	Reason        string   `json:"reason"`
	Force         bool     `json:"force"` // accept despite freshly detected conflicts
}

// UpdateMatrixCell moves the listed assignments into a (date, team) cell,
// e.g. after a drag-and-drop. The move is checked against a scoped conflict
// detection pass before it is accepted; conflicts block it unless forced.
func UpdateMatrixCell(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}
	userID, userName := callerIdentity(r)

	var req UpdateCellRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if req.Reason == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "reason is required")
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	memberID, err := primitive.ObjectIDFromHex(req.TeamMemberID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid team member id format")
		return
	}

	snap, err := loadSnapshot(r.Context(), orgID)
	if err != nil {
		log.Printf("snapshot load error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load scheduling state")
		return
	}
	if _, found := snap.Team(memberID); !found {
		utils.RespondWithError(w, http.StatusNotFound, "team member not found")
		return
	}

	// Collect moves and build the trial snapshot for the pre-commit check.
	type move struct {
		id      primitive.ObjectID
		version int64
	}
	var moves []move
	trial := &engine.Snapshot{Teams: snap.Teams, Installations: snap.Installations}
	moving := map[string]bool{}
	for _, hex := range req.AssignmentIDs {
		moving[hex] = true
	}
	for _, a := range snap.Assignments {
		if moving[a.ID.Hex()] {
			if a.LeadID != memberID || models.DateKey(a.ScheduledDate) != models.DateKey(date) {
				moves = append(moves, move{id: a.ID, version: a.Version})
			}
			relocated := a
			relocated.LeadID = memberID
			relocated.ScheduledDate = date
			trial.Assignments = append(trial.Assignments, relocated)
			delete(moving, a.ID.Hex())
			continue
		}
		trial.Assignments = append(trial.Assignments, a)
	}
	if len(moving) > 0 {
		for hex := range moving {
			utils.RespondWithError(w, http.StatusNotFound, fmt.Sprintf("assignment not found: %s", hex))
			return
		}
	}

	dateKey := models.DateKey(date)
	before := engine.DetectScoped(snap, 0, time.Now().UTC(), memberID, dateKey)
	after := engine.DetectScoped(trial, 0, time.Now().UTC(), memberID, dateKey)
	if len(after) > len(before) && !req.Force {
		utils.RespondWithJSON(w, http.StatusConflict, map[string]interface{}{
			"error":     "cell update would introduce conflicts",
			"conflicts": after,
		})
		return
	}

	for _, m := range moves {
		update := store.UpdateRequest{
			Version:       m.version,
			LeadID:        &memberID,
			ScheduledDate: &date,
			Reason:        req.Reason,
			PerformedBy:   userID,
		}
		updated, err := assignmentStore.Update(r.Context(), m.id, update)
		if err != nil {
			respondStoreError(w, err)
			return
		}
		websocket.SendAssignmentUpdated(orgID, m.id.Hex(), updated, userID, userName)
	}

	// Rebuild the cell from committed state with a final scoped re-check.
	fresh, err := loadSnapshot(r.Context(), orgID)
	if err != nil {
		log.Printf("snapshot reload error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to reload scheduling state")
		return
	}
	conflicts := engine.DetectScoped(fresh, 0, time.Now().UTC(), memberID, dateKey)
	matrix := engine.BuildMatrix(fresh, date, date, conflicts)

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"cell":      matrix.Cells[dateKey][memberID.Hex()],
		"conflicts": conflicts,
	})
}

// GetScheduleSummary is the dashboard aggregate: counts, utilization, and
// the worst open conflicts.
func GetScheduleSummary(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	snap, err := loadSnapshot(r.Context(), orgID)
	if err != nil {
		log.Printf("snapshot load error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load scheduling state")
		return
	}

	statusCounts := map[string]int{}
	unassigned := 0
	for _, inst := range snap.Installations {
		statusCounts[inst.Status]++
		if inst.Status == models.InstallationPending {
			if _, has := snap.HasActiveAssignment(inst.ID); !has {
				unassigned++
			}
		}
	}

	conflicts := engine.Detect(snap, 0, time.Now().UTC())
	topConflicts := conflicts
	sortConflictsBySeverity(topConflicts)
	if len(topConflicts) > 5 {
		topConflicts = topConflicts[:5]
	}

	now := time.Now().UTC().Truncate(24 * time.Hour)
	_, summary := engine.ComputeWorkload(snap, now, now.AddDate(0, 0, 6), conflicts)

	utils.RespondWithJSON(w, http.StatusOK, map[string]interface{}{
		"installationsByStatus":   statusCounts,
		"unassignedInstallations": unassigned,
		"activeAssignments":       countActive(snap.Assignments),
		"conflictCount":           len(conflicts),
		"topConflicts":            topConflicts,
		"workload":                summary,
	})
}

func countActive(assignments []models.Assignment) int {
	n := 0
	for _, a := range assignments {
		if a.Active() {
			n++
		}
	}
	return n
}

func sortConflictsBySeverity(conflicts []models.Conflict) {
	for i := 1; i < len(conflicts); i++ {
		for j := i; j > 0 && models.SeverityRank(conflicts[j].Severity) > models.SeverityRank(conflicts[j-1].Severity); j-- {
			conflicts[j], conflicts[j-1] = conflicts[j-1], conflicts[j]
		}
	}
}
