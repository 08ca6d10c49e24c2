// store/assignment_store.go
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fieldsched/models"
)

// AssignmentStore is the repository façade over assignments: an in-memory
// cache holding the scheduling ground truth, flushed through a Persister on
// every committed mutation. Writes are serialized; a status change and its
// history entry are applied as one atomic unit, so readers never observe one
// without the other. Stale-version writes are rejected with a
// *ConcurrencyError.
type AssignmentStore struct {
	mu          sync.RWMutex
	assignments map[primitive.ObjectID]models.Assignment
	persister   Persister
}

func NewAssignmentStore(p Persister) *AssignmentStore {
	if p == nil {
		p = nopPersister{}
	}
	return &AssignmentStore{
		assignments: map[primitive.ObjectID]models.Assignment{},
		persister:   p,
	}
}

// Load primes the cache from the durable store.
func (s *AssignmentStore) Load(ctx context.Context) error {
	assignments, err := s.persister.LoadAssignments(ctx)
	if err != nil {
		return fmt.Errorf("load assignments: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = make(map[primitive.ObjectID]models.Assignment, len(assignments))
	for _, a := range assignments {
		s.assignments[a.ID] = a
	}
	return nil
}

// Create validates and stores a new assignment with its creation history
// entry. Validation failures reject the assignment before any mutation.
func (s *AssignmentStore) Create(ctx context.Context, a models.Assignment, performedBy string) (models.Assignment, error) {
	if a.InstallationID.IsZero() {
		return models.Assignment{}, &ValidationError{Field: "installationId", Message: "is required"}
	}
	if a.LeadID.IsZero() {
		return models.Assignment{}, &ValidationError{Field: "leadId", Message: "is required"}
	}
	if a.ScheduledDate.IsZero() {
		return models.Assignment{}, &ValidationError{Field: "scheduledDate", Message: "is required"}
	}
	if a.DurationMinutes <= 0 {
		return models.Assignment{}, &ValidationError{Field: "durationMinutes", Message: "must be positive"}
	}

	now := time.Now().UTC()
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if a.Status == "" {
		a.Status = models.AssignmentAssigned
	}
	a.Version = 1
	a.CreatedAt = now
	a.UpdatedAt = now
	a.History = []models.HistoryEntry{{
		ID:          uuid.NewString(),
		Action:      models.ActionCreated,
		PerformedBy: performedBy,
		PerformedAt: now,
		NewValue:    fmt.Sprintf("lead=%s status=%s", a.LeadID.Hex(), a.Status),
	}}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assignments[a.ID]; exists {
		return models.Assignment{}, &ValidationError{Field: "id", Message: "already exists"}
	}
	if err := s.persister.SaveAssignment(ctx, a); err != nil {
		return models.Assignment{}, fmt.Errorf("flush assignment %s: %w", a.ID.Hex(), err)
	}
	s.assignments[a.ID] = a
	return cloned(a), nil
}

// Get returns a copy of the assignment.
func (s *AssignmentStore) Get(id primitive.ObjectID) (models.Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[id]
	if !ok {
		return models.Assignment{}, &NotFoundError{AssignmentID: id.Hex()}
	}
	return cloned(a), nil
}

// List returns the assignments for an organization (all when orgID is zero),
// ordered by id for deterministic consumers.
func (s *AssignmentStore) List(orgID primitive.ObjectID) []models.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Assignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		if !orgID.IsZero() && a.OrganizationID != orgID {
			continue
		}
		out = append(out, cloned(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Hex() < out[j].ID.Hex() })
	return out
}

// History returns the append-only history of one assignment.
func (s *AssignmentStore) History(id primitive.ObjectID) ([]models.HistoryEntry, error) {
	a, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return a.History, nil
}

// UpdateRequest carries one assignment mutation. Version must match the
// current stored version and Reason is mandatory. Nil pointer fields are
// left unchanged.
type UpdateRequest struct {
	Version         int64
	Status          string
	LeadID          *primitive.ObjectID
	AssistantID     *primitive.ObjectID
	ScheduledDate   *time.Time
	StartTime       string
	DurationMinutes *int
	Reason          string
	PerformedBy     string
}

// Update applies the mutation and appends exactly one history entry, as one
// atomic unit under the write lock.
func (s *AssignmentStore) Update(ctx context.Context, id primitive.ObjectID, req UpdateRequest) (models.Assignment, error) {
	if req.Reason == "" {
		return models.Assignment{}, &ValidationError{Field: "reason", Message: "is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.assignments[id]
	if !ok {
		return models.Assignment{}, &NotFoundError{AssignmentID: id.Hex()}
	}
	if req.Version != current.Version {
		return models.Assignment{}, &ConcurrencyError{
			AssignmentID: id.Hex(),
			Expected:     req.Version,
			Actual:       current.Version,
		}
	}

	updated := cloned(current)
	action := ""
	prev, next := "", ""

	if req.Status != "" && req.Status != current.Status {
		if !validTransition(current.Status, req.Status) {
			return models.Assignment{}, &ValidationError{
				Field:   "status",
				Message: fmt.Sprintf("cannot transition from %s to %s", current.Status, req.Status),
			}
		}
		action = statusAction(req.Status)
		prev, next = current.Status, req.Status
		updated.Status = req.Status
	}
	if req.LeadID != nil && *req.LeadID != current.LeadID {
		if req.LeadID.IsZero() {
			return models.Assignment{}, &ValidationError{Field: "leadId", Message: "is required"}
		}
		if action == "" {
			action = models.ActionReassigned
			prev, next = current.LeadID.Hex(), req.LeadID.Hex()
		}
		updated.LeadID = *req.LeadID
	}
	if req.AssistantID != nil {
		if action == "" && *req.AssistantID != current.AssistantID {
			action = models.ActionReassigned
			prev, next = current.AssistantID.Hex(), req.AssistantID.Hex()
		}
		updated.AssistantID = *req.AssistantID
	}
	rescheduled := false
	if req.ScheduledDate != nil && !req.ScheduledDate.Equal(current.ScheduledDate) {
		rescheduled = true
		updated.ScheduledDate = *req.ScheduledDate
	}
	if req.StartTime != "" && req.StartTime != current.StartTime {
		rescheduled = true
		updated.StartTime = req.StartTime
	}
	if req.DurationMinutes != nil && *req.DurationMinutes != current.DurationMinutes {
		if *req.DurationMinutes <= 0 {
			return models.Assignment{}, &ValidationError{Field: "durationMinutes", Message: "must be positive"}
		}
		rescheduled = true
		updated.DurationMinutes = *req.DurationMinutes
	}
	if rescheduled && action == "" {
		action = models.ActionRescheduled
		prev = fmt.Sprintf("%s %s", models.DateKey(current.ScheduledDate), current.StartTime)
		next = fmt.Sprintf("%s %s", models.DateKey(updated.ScheduledDate), updated.StartTime)
	}
	if action == "" {
		return models.Assignment{}, &ValidationError{Field: "update", Message: "contains no changes"}
	}

	now := time.Now().UTC()
	updated.Version = current.Version + 1
	updated.UpdatedAt = now
	updated.History = append(updated.History, models.HistoryEntry{
		ID:            uuid.NewString(),
		Action:        action,
		PerformedBy:   req.PerformedBy,
		PerformedAt:   now,
		PreviousValue: prev,
		NewValue:      next,
		Reason:        req.Reason,
	})

	if err := s.persister.SaveAssignment(ctx, updated); err != nil {
		return models.Assignment{}, fmt.Errorf("flush assignment %s: %w", id.Hex(), err)
	}
	s.assignments[id] = updated
	return cloned(updated), nil
}

// AppendHistory adds a standalone history entry (e.g. conflict_resolved)
// without touching any other field.
func (s *AssignmentStore) AppendHistory(ctx context.Context, id primitive.ObjectID, entry models.HistoryEntry) (models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.assignments[id]
	if !ok {
		return models.Assignment{}, &NotFoundError{AssignmentID: id.Hex()}
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.PerformedAt.IsZero() {
		entry.PerformedAt = time.Now().UTC()
	}

	updated := cloned(current)
	updated.Version = current.Version + 1
	updated.UpdatedAt = entry.PerformedAt
	updated.History = append(updated.History, entry)

	if err := s.persister.SaveAssignment(ctx, updated); err != nil {
		return models.Assignment{}, fmt.Errorf("flush assignment %s: %w", id.Hex(), err)
	}
	s.assignments[id] = updated
	return cloned(updated), nil
}

// Delete is logical: it cancels the assignment and appends an unassigned
// entry. The document stays readable and its history intact.
func (s *AssignmentStore) Delete(ctx context.Context, id primitive.ObjectID, performedBy, reason string) (models.Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.assignments[id]
	if !ok {
		return models.Assignment{}, &NotFoundError{AssignmentID: id.Hex()}
	}

	now := time.Now().UTC()
	updated := cloned(current)
	updated.Status = models.AssignmentCancelled
	updated.Version = current.Version + 1
	updated.UpdatedAt = now
	updated.History = append(updated.History, models.HistoryEntry{
		ID:            uuid.NewString(),
		Action:        models.ActionUnassigned,
		PerformedBy:   performedBy,
		PerformedAt:   now,
		PreviousValue: current.Status,
		NewValue:      models.AssignmentCancelled,
		Reason:        reason,
	})

	if err := s.persister.SaveAssignment(ctx, updated); err != nil {
		return models.Assignment{}, fmt.Errorf("flush assignment %s: %w", id.Hex(), err)
	}
	s.assignments[id] = updated
	return cloned(updated), nil
}

// HardDelete physically removes a record, for corrections only. The caller
// is responsible for logging the removal elsewhere before invoking it.
func (s *AssignmentStore) HardDelete(ctx context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assignments[id]; !ok {
		return &NotFoundError{AssignmentID: id.Hex()}
	}
	if err := s.persister.RemoveAssignment(ctx, id); err != nil {
		return fmt.Errorf("remove assignment %s: %w", id.Hex(), err)
	}
	delete(s.assignments, id)
	return nil
}

// validTransition enforces the assignment lifecycle:
// assigned -> in_progress -> completed, cancellable until completed.
func validTransition(from, to string) bool {
	switch from {
	case models.AssignmentAssigned:
		return to == models.AssignmentInProgress || to == models.AssignmentCancelled
	case models.AssignmentInProgress:
		return to == models.AssignmentCompleted || to == models.AssignmentCancelled
	default:
		return false
	}
}

func statusAction(status string) string {
	switch status {
	case models.AssignmentInProgress:
		return models.ActionStarted
	case models.AssignmentCompleted:
		return models.ActionCompleted
	case models.AssignmentCancelled:
		return models.ActionCancelled
	default:
		return models.ActionAssigned
	}
}

// cloned copies an assignment with its own history slice so cached documents
// are never aliased by callers.
func cloned(a models.Assignment) models.Assignment {
	out := a
	out.History = make([]models.HistoryEntry, len(a.History))
	copy(out.History, a.History)
	return out
}
