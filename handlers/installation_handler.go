// handlers/installation_handler.go
package handlers

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fieldsched/models"
	"fieldsched/utils"
)

type InstallationRequest struct {
	CustomerName    string         `json:"customerName,omitempty"`
	Address         models.Address `json:"address"`
	ScheduledDate   string         `json:"scheduledDate"` // YYYY-MM-DD
	StartTime       string         `json:"startTime"`     // HH:MM
	DurationMinutes int            `json:"durationMinutes"`
	Priority        string         `json:"priority"`
	RequiredSkills  []string       `json:"requiredSkills,omitempty"`
	Deadline        *string        `json:"deadline,omitempty"` // YYYY-MM-DD
	Notes           string         `json:"notes,omitempty"`
}

func (req *InstallationRequest) validate() error {
	if req.ScheduledDate == "" {
		return fmt.Errorf("scheduledDate is required")
	}
	if req.DurationMinutes <= 0 {
		return fmt.Errorf("durationMinutes must be positive")
	}
	switch req.Priority {
	case "", models.PriorityLow, models.PriorityMedium, models.PriorityHigh, models.PriorityUrgent:
	default:
		return fmt.Errorf("priority must be one of low, medium, high, urgent")
	}
	return nil
}

// parseDate parses the YYYY-MM-DD wire format.
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, expected YYYY-MM-DD")
	}
	return t, nil
}

func parseDatePointer(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseDate(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// generateJobCode produces a unique human-readable installation code.
func generateJobCode() string {
	timestamp := time.Now().Format("20060102")
	randomNum, _ := rand.Int(rand.Reader, big.NewInt(10000))
	return fmt.Sprintf("INST-%s-%04d", timestamp, randomNum.Int64())
}

func ListInstallations(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{"organizationId": orgID}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}
	if priority := r.URL.Query().Get("priority"); priority != "" {
		filter["priority"] = priority
	}
	if date := r.URL.Query().Get("date"); date != "" {
		day, err := parseDate(date)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter["scheduledDate"] = bson.M{"$gte": day, "$lt": day.AddDate(0, 0, 1)}
	}

	opts := options.Find().SetSort(bson.D{{Key: "scheduledDate", Value: 1}, {Key: "startTime", Value: 1}})
	cursor, err := installationCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("installations Find error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "database query failed")
		return
	}
	defer cursor.Close(ctx)

	var installations []models.Installation
	if err = cursor.All(ctx, &installations); err != nil {
		log.Printf("cursor decode error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to decode installations")
		return
	}
	if installations == nil {
		installations = []models.Installation{}
	}

	utils.RespondWithJSON(w, http.StatusOK, installations)
}

func CreateInstallation(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	var req InstallationRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := req.validate(); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	scheduled, err := parseDate(req.ScheduledDate)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	deadline, err := parseDatePointer(req.Deadline)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}

	now := time.Now().UTC()
	inst := models.Installation{
		ID:              primitive.NewObjectID(),
		OrganizationID:  orgID,
		JobCode:         generateJobCode(),
		CustomerName:    req.CustomerName,
		Address:         req.Address,
		ScheduledDate:   scheduled,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Priority:        priority,
		RequiredSkills:  req.RequiredSkills,
		Status:          models.InstallationPending,
		Deadline:        deadline,
		Notes:           req.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := installationCollection.InsertOne(ctx, inst); err != nil {
		log.Printf("installation insert error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to create installation")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, inst)
}

func GetInstallation(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid installation id format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var inst models.Installation
	err = installationCollection.FindOne(ctx, bson.M{"_id": id, "organizationId": orgID}).Decode(&inst)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.RespondWithError(w, http.StatusNotFound, "installation not found")
			return
		}
		log.Printf("installation FindOne error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "database query failed")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, inst)
}

func UpdateInstallation(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid installation id format")
		return
	}

	var req InstallationRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := req.validate(); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	scheduled, err := parseDate(req.ScheduledDate)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	deadline, err := parseDatePointer(req.Deadline)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	update := bson.M{
		"customerName":    req.CustomerName,
		"address":         req.Address,
		"scheduledDate":   scheduled,
		"startTime":       req.StartTime,
		"durationMinutes": req.DurationMinutes,
		"requiredSkills":  req.RequiredSkills,
		"notes":           req.Notes,
		"updatedAt":       time.Now().UTC(),
	}
	if req.Priority != "" {
		update["priority"] = req.Priority
	}
	if deadline != nil {
		update["deadline"] = deadline
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := installationCollection.UpdateOne(ctx,
		bson.M{"_id": id, "organizationId": orgID},
		bson.M{"$set": update})
	if err != nil {
		log.Printf("installation update error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to update installation")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "installation not found")
		return
	}

	var inst models.Installation
	if err := installationCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&inst); err != nil {
		log.Printf("installation refetch error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load installation")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, inst)
}

func DeleteInstallation(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid installation id format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := installationCollection.UpdateOne(ctx,
		bson.M{"_id": id, "organizationId": orgID},
		bson.M{"$set": bson.M{"status": models.InstallationCancelled, "updatedAt": time.Now().UTC()}})
	if err != nil {
		log.Printf("installation cancel error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to cancel installation")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "installation not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": models.InstallationCancelled})
}

// setInstallationStatus mirrors assignment lifecycle changes onto the
// underlying installation document.
func setInstallationStatus(ctx context.Context, installationID primitive.ObjectID, status string) {
	_, err := installationCollection.UpdateOne(ctx,
		bson.M{"_id": installationID},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}})
	if err != nil {
		log.Printf("installation status sync error for %s: %v", installationID.Hex(), err)
	}
}
