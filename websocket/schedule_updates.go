// websocket/schedule_updates.go
package websocket

import (
	"encoding/json"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduleUpdate represents a real-time scheduling event
type ScheduleUpdate struct {
	Type         string      `json:"type"` // ASSIGNMENT_CREATED, ASSIGNMENT_UPDATED, ASSIGNMENT_DELETED, ASSIGNMENT_STATUS_CHANGE, CONFLICTS_DETECTED
	AssignmentID string      `json:"assignmentId,omitempty"`
	Data         interface{} `json:"data,omitempty"`
	Timestamp    time.Time   `json:"timestamp"`
	UserID       string      `json:"userId,omitempty"`
	UserName     string      `json:"userName,omitempty"`
}

// BroadcastScheduleUpdate sends update to all connected clients in organization
func BroadcastScheduleUpdate(orgID primitive.ObjectID, update ScheduleUpdate) {
	hub.mutex.Lock()
	defer hub.mutex.Unlock()

	if clients, ok := hub.clients[orgID.Hex()]; ok {
		data, err := json.Marshal(update)
		if err != nil {
			log.Printf("Failed to marshal schedule update: %v", err)
			return
		}

		for client := range clients {
			select {
			case client.send <- data:
			default:
				close(client.send)
				delete(clients, client)
			}
		}
	}
}

// SendAssignmentCreated broadcasts new assignment creation
func SendAssignmentCreated(orgID primitive.ObjectID, assignment interface{}, userID, userName string) {
	BroadcastScheduleUpdate(orgID, ScheduleUpdate{
		Type:      "ASSIGNMENT_CREATED",
		Data:      assignment,
		Timestamp: time.Now(),
		UserID:    userID,
		UserName:  userName,
	})
}

// SendAssignmentUpdated broadcasts assignment updates
func SendAssignmentUpdated(orgID primitive.ObjectID, assignmentID string, changes interface{}, userID, userName string) {
	BroadcastScheduleUpdate(orgID, ScheduleUpdate{
		Type:         "ASSIGNMENT_UPDATED",
		AssignmentID: assignmentID,
		Data:         changes,
		Timestamp:    time.Now(),
		UserID:       userID,
		UserName:     userName,
	})
}

// SendAssignmentStatusChange broadcasts status changes
func SendAssignmentStatusChange(orgID primitive.ObjectID, assignmentID string, oldStatus, newStatus string, userID, userName string) {
	BroadcastScheduleUpdate(orgID, ScheduleUpdate{
		Type:         "ASSIGNMENT_STATUS_CHANGE",
		AssignmentID: assignmentID,
		Data: map[string]interface{}{
			"oldStatus": oldStatus,
			"newStatus": newStatus,
		},
		Timestamp: time.Now(),
		UserID:    userID,
		UserName:  userName,
	})
}

// SendConflictsDetected broadcasts the result of a detection pass
func SendConflictsDetected(orgID primitive.ObjectID, conflictCount int) {
	BroadcastScheduleUpdate(orgID, ScheduleUpdate{
		Type:      "CONFLICTS_DETECTED",
		Data:      map[string]interface{}{"count": conflictCount},
		Timestamp: time.Now(),
	})
}
