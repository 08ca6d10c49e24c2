// handlers/team_handler.go
package handlers

import (
	"context"
	"fmt"
	"log"
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

type TeamMemberRequest struct {
	Name          string              `json:"name"`
	Email         string              `json:"email,omitempty"`
	Region        string              `json:"region,omitempty"`
	Active        *bool               `json:"active,omitempty"`
	DailyCapacity int                 `json:"dailyCapacity"`
	Skills        []string            `json:"skills,omitempty"`
	HomeBase      models.Address      `json:"homeBase"`
	Efficiency    float64             `json:"efficiency,omitempty"`
	TravelRating  float64             `json:"travelRating,omitempty"`
	Availability  models.Availability `json:"availability"`
}

func (req *TeamMemberRequest) validate() error {
	if req.Name == "" || len(req.Name) > 120 {
		return fmt.Errorf("name is required and must be less than 120 characters")
	}
	if req.DailyCapacity < 0 || req.DailyCapacity > 24 {
		return fmt.Errorf("dailyCapacity must be between 0 and 24")
	}
	if req.Efficiency < 0 || req.Efficiency > 1 {
		return fmt.Errorf("efficiency must be between 0 and 1")
	}
	return nil
}

func ListTeamMembers(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	filter := bson.M{"organizationId": orgID}
	if active := r.URL.Query().Get("active"); active == "true" {
		filter["active"] = true
	}
	if region := r.URL.Query().Get("region"); region != "" {
		filter["region"] = region
	}
	if skill := r.URL.Query().Get("skill"); skill != "" {
		filter["skills"] = skill
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := teamCollection.Find(ctx, filter, opts)
	if err != nil {
		log.Printf("team members Find error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "database query failed")
		return
	}
	defer cursor.Close(ctx)

	var members []models.TeamMember
	if err = cursor.All(ctx, &members); err != nil {
		log.Printf("cursor decode error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to decode team members")
		return
	}
	if members == nil {
		members = []models.TeamMember{}
	}

	utils.RespondWithJSON(w, http.StatusOK, members)
}

func CreateTeamMember(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	var req TeamMemberRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := req.validate(); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now().UTC()
	member := models.TeamMember{
		ID:             primitive.NewObjectID(),
		OrganizationID: orgID,
		Name:           req.Name,
		Email:          req.Email,
		Region:         req.Region,
		Active:         true,
		DailyCapacity:  req.DailyCapacity,
		Skills:         req.Skills,
		HomeBase:       req.HomeBase,
		Efficiency:     req.Efficiency,
		TravelRating:   req.TravelRating,
		Availability:   req.Availability,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.Active != nil {
		member.Active = *req.Active
	}
	if member.DailyCapacity == 0 {
		member.DailyCapacity = 2
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if _, err := teamCollection.InsertOne(ctx, member); err != nil {
		log.Printf("team member insert error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to create team member")
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, member)
}

func GetTeamMember(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid team member id format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var member models.TeamMember
	err = teamCollection.FindOne(ctx, bson.M{"_id": id, "organizationId": orgID}).Decode(&member)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			utils.RespondWithError(w, http.StatusNotFound, "team member not found")
			return
		}
		log.Printf("team member FindOne error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "database query failed")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, member)
}

func UpdateTeamMember(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid team member id format")
		return
	}

	var req TeamMemberRequest
	if err := utils.ParseJSON(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	if err := req.validate(); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	update := bson.M{
		"name":          req.Name,
		"email":         req.Email,
		"region":        req.Region,
		"dailyCapacity": req.DailyCapacity,
		"skills":        req.Skills,
		"homeBase":      req.HomeBase,
		"efficiency":    req.Efficiency,
		"travelRating":  req.TravelRating,
		"availability":  req.Availability,
		"updatedAt":     time.Now().UTC(),
	}
	if req.Active != nil {
		update["active"] = *req.Active
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	result, err := teamCollection.UpdateOne(ctx,
		bson.M{"_id": id, "organizationId": orgID},
		bson.M{"$set": update})
	if err != nil {
		log.Printf("team member update error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to update team member")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "team member not found")
		return
	}

	var member models.TeamMember
	if err := teamCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&member); err != nil {
		log.Printf("team member refetch error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to load team member")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, member)
}

func DeleteTeamMember(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgIDFromRequest(r)
	if !ok {
		utils.RespondWithError(w, http.StatusUnauthorized, "organization id required")
		return
	}

	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "invalid team member id format")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// Members are deactivated, not removed, so existing assignments keep a
	// resolvable reference.
	result, err := teamCollection.UpdateOne(ctx,
		bson.M{"_id": id, "organizationId": orgID},
		bson.M{"$set": bson.M{"active": false, "updatedAt": time.Now().UTC()}})
	if err != nil {
		log.Printf("team member deactivate error: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "failed to deactivate team member")
		return
	}
	if result.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "team member not found")
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
