// handlers/collections.go
package handlers

import (
	"go.mongodb.org/mongo-driver/mongo"

	"fieldsched/database"
	"fieldsched/store"
)

var (
	userCollection         *mongo.Collection
	teamCollection         *mongo.Collection
	installationCollection *mongo.Collection
	assignmentCollection   *mongo.Collection

	assignmentStore *store.AssignmentStore
)

func InitCollections() {
	userCollection = database.Collection("users")
	teamCollection = database.Collection("team_members")
	installationCollection = database.Collection("installations")
	assignmentCollection = database.Collection("assignments")
}

// InitStore builds the repository façade over the assignments collection and
// returns it so main can prime the cache. InitCollections must run first.
func InitStore() *store.AssignmentStore {
	assignmentStore = store.NewAssignmentStore(store.NewMongoPersister(assignmentCollection))
	return assignmentStore
}
