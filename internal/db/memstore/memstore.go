// Package memstore is an in-memory implementation of the db collections for
// tests. It enforces the same unique constraints and conditional updates as
// the Mongo store.
package memstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ukydev/propdocs-maintenance/internal/db"
	"github.com/ukydev/propdocs-maintenance/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store holds every collection in memory behind one mutex.
type Store struct {
	mu sync.Mutex

	properties     map[primitive.ObjectID]models.Property
	assets         map[primitive.ObjectID]models.Asset
	schedules      map[primitive.ObjectID]models.MaintenanceSchedule
	tasks          map[primitive.ObjectID]models.MaintenanceTask
	serviceRecords map[primitive.ObjectID]models.ServiceRecord
	notifications  map[primitive.ObjectID]models.Notification
	activity       []models.ActivityLog

	// FailInsertNotification, when set, is returned by InsertNotification.
	FailInsertNotification error
}

// New returns an empty store.
func New() *Store {
	return &Store{
		properties:     map[primitive.ObjectID]models.Property{},
		assets:         map[primitive.ObjectID]models.Asset{},
		schedules:      map[primitive.ObjectID]models.MaintenanceSchedule{},
		tasks:          map[primitive.ObjectID]models.MaintenanceTask{},
		serviceRecords: map[primitive.ObjectID]models.ServiceRecord{},
		notifications:  map[primitive.ObjectID]models.Notification{},
	}
}

var (
	_ db.PropertyCollection      = (*Store)(nil)
	_ db.AssetCollection         = (*Store)(nil)
	_ db.ScheduleCollection      = (*Store)(nil)
	_ db.TaskCollection          = (*Store)(nil)
	_ db.ServiceRecordCollection = (*Store)(nil)
	_ db.NotificationCollection  = (*Store)(nil)
	_ db.ActivityCollection      = (*Store)(nil)
)

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", db.ErrInvalidID, id)
	}
	return oid, nil
}

func assignID(id *primitive.ObjectID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, db.ErrNotFound)
}

func byID[T any](items map[primitive.ObjectID]T, id func(T) primitive.ObjectID) []T {
	out := make([]T, 0, len(items))
	for _, v := range items {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := id(out[i]), id(out[j])
		return a.Hex() < b.Hex()
	})
	return out
}

func page[T any](sorted []T, id func(T) primitive.ObjectID, keep func(T) bool, afterID primitive.ObjectID, limit int) []T {
	out := []T{}
	for _, v := range sorted {
		if !afterID.IsZero() && id(v).Hex() <= afterID.Hex() {
			continue
		}
		if !keep(v) {
			continue
		}
		out = append(out, v)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Properties

func (s *Store) InsertProperty(_ context.Context, p *models.Property) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignID(&p.ID)
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	s.properties[p.ID] = *p
	return nil
}

func (s *Store) FindPropertyByID(_ context.Context, id string) (*models.Property, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.properties[oid]
	if !ok {
		return nil, notFound("property")
	}
	return &p, nil
}

func (s *Store) FindPropertiesByOwner(_ context.Context, ownerID string) ([]models.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Property{}
	for _, p := range byID(s.properties, func(p models.Property) primitive.ObjectID { return p.ID }) {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) CountPropertiesByOwner(_ context.Context, ownerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, p := range s.properties {
		if p.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdateProperty(_ context.Context, id string, p models.Property) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[oid]; !ok {
		return notFound("property")
	}
	p.ID = oid
	p.UpdatedAt = time.Now().UTC()
	s.properties[oid] = p
	return nil
}

func (s *Store) DeleteProperty(_ context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.properties[oid]; !ok {
		return notFound("property")
	}
	delete(s.properties, oid)
	return nil
}

// Assets

func (s *Store) InsertAsset(_ context.Context, a *models.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignID(&a.ID)
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	s.assets[a.ID] = *a
	return nil
}

func (s *Store) FindAssetByID(_ context.Context, id string) (*models.Asset, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[oid]
	if !ok {
		return nil, notFound("asset")
	}
	return &a, nil
}

func (s *Store) FindAssetsByProperty(_ context.Context, propertyID string) ([]models.Asset, error) {
	oid, err := parseID(propertyID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := byID(s.assets, func(a models.Asset) primitive.ObjectID { return a.ID })
	return page(sorted, func(a models.Asset) primitive.ObjectID { return a.ID },
		func(a models.Asset) bool { return a.PropertyID == oid }, primitive.NilObjectID, 0), nil
}

func (s *Store) CountAssetsByProperty(_ context.Context, propertyID string) (int, error) {
	oid, err := parseID(propertyID)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.assets {
		if a.PropertyID == oid {
			n++
		}
	}
	return n, nil
}

func (s *Store) UpdateAsset(_ context.Context, id string, a models.Asset) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[oid]; !ok {
		return notFound("asset")
	}
	a.ID = oid
	a.UpdatedAt = time.Now().UTC()
	s.assets[oid] = a
	return nil
}

func (s *Store) FindAssetsWithWarrantyBetween(_ context.Context, from, to time.Time, afterID primitive.ObjectID, limit int) ([]models.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := byID(s.assets, func(a models.Asset) primitive.ObjectID { return a.ID })
	return page(sorted, func(a models.Asset) primitive.ObjectID { return a.ID }, func(a models.Asset) bool {
		return a.WarrantyExpiry != nil && !a.WarrantyExpiry.Before(from) && a.WarrantyExpiry.Before(to)
	}, afterID, limit), nil
}

func (s *Store) DeleteAsset(_ context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[oid]; !ok {
		return notFound("asset")
	}
	delete(s.assets, oid)
	return nil
}

// Schedules

func (s *Store) InsertSchedule(_ context.Context, sc *models.MaintenanceSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignID(&sc.ID)
	sc.CreatedAt = time.Now().UTC()
	sc.UpdatedAt = sc.CreatedAt
	s.schedules[sc.ID] = *sc
	return nil
}

func (s *Store) FindScheduleByID(_ context.Context, id string) (*models.MaintenanceSchedule, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schedules[oid]
	if !ok {
		return nil, notFound("schedule")
	}
	return &sc, nil
}

func scheduleID(sc models.MaintenanceSchedule) primitive.ObjectID { return sc.ID }

func (s *Store) FindSchedulesByAsset(_ context.Context, assetID string) ([]models.MaintenanceSchedule, error) {
	oid, err := parseID(assetID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return page(byID(s.schedules, scheduleID), scheduleID,
		func(sc models.MaintenanceSchedule) bool { return sc.AssetID == oid }, primitive.NilObjectID, 0), nil
}

func (s *Store) FindActiveSchedules(_ context.Context, afterID primitive.ObjectID, limit int) ([]models.MaintenanceSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return page(byID(s.schedules, scheduleID), scheduleID,
		func(sc models.MaintenanceSchedule) bool { return sc.IsActive }, afterID, limit), nil
}

func (s *Store) UpdateSchedule(_ context.Context, id string, sc models.MaintenanceSchedule) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[oid]; !ok {
		return notFound("schedule")
	}
	sc.ID = oid
	sc.UpdatedAt = time.Now().UTC()
	s.schedules[oid] = sc
	return nil
}

func (s *Store) SetScheduleActive(_ context.Context, id string, active bool) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.schedules[oid]
	if !ok {
		return notFound("schedule")
	}
	sc.IsActive = active
	s.schedules[oid] = sc
	return nil
}

func (s *Store) DeleteSchedule(_ context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[oid]; !ok {
		return notFound("schedule")
	}
	delete(s.schedules, oid)
	return nil
}

// Tasks

func taskID(t models.MaintenanceTask) primitive.ObjectID { return t.ID }

func (s *Store) InsertTask(_ context.Context, t *models.MaintenanceTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tasks {
		if existing.ScheduleID == t.ScheduleID && existing.DueDate.Equal(t.DueDate) {
			return db.ErrDuplicateTask
		}
	}
	assignID(&t.ID)
	if t.Status == "" {
		t.Status = models.TaskStatusPending
	}
	t.CreatedAt = time.Now().UTC()
	t.UpdatedAt = t.CreatedAt
	s.tasks[t.ID] = *t
	return nil
}

func (s *Store) FindTaskByID(_ context.Context, id string) (*models.MaintenanceTask, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[oid]
	if !ok {
		return nil, notFound("task")
	}
	return &t, nil
}

func (s *Store) tasksOf(scheduleID primitive.ObjectID, keep func(models.MaintenanceTask) bool) []models.MaintenanceTask {
	out := []models.MaintenanceTask{}
	for _, t := range s.tasks {
		if t.ScheduleID == scheduleID && keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out
}

func (s *Store) FindTasksBySchedule(_ context.Context, scheduleID string) ([]models.MaintenanceTask, error) {
	oid, err := parseID(scheduleID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasksOf(oid, func(models.MaintenanceTask) bool { return true }), nil
}

func (s *Store) FindOpenTaskForSchedule(_ context.Context, scheduleID string) (*models.MaintenanceTask, error) {
	oid, err := parseID(scheduleID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	open := s.tasksOf(oid, func(t models.MaintenanceTask) bool { return t.Status.IsOpen() })
	if len(open) == 0 {
		return nil, notFound("open task")
	}
	return &open[0], nil
}

func (s *Store) FindOpenTasks(_ context.Context, afterID primitive.ObjectID, limit int) ([]models.MaintenanceTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return page(byID(s.tasks, taskID), taskID,
		func(t models.MaintenanceTask) bool { return t.Status.IsOpen() }, afterID, limit), nil
}

func (s *Store) FindTasks(_ context.Context, f db.TaskFilter) ([]models.MaintenanceTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.MaintenanceTask{}
	for _, t := range byID(s.tasks, taskID) {
		if t.OwnerID != f.OwnerID || (f.Priority != "" && t.Priority != f.Priority) {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
			continue
		}
		if (f.DueFrom != nil && t.DueDate.Before(*f.DueFrom)) || (f.DueTo != nil && !t.DueDate.Before(*f.DueTo)) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) SetOpenTaskPriority(_ context.Context, scheduleID string, priority models.Priority) error {
	oid, err := parseID(scheduleID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tasks {
		if t.ScheduleID == oid && t.Status.IsOpen() {
			t.Priority = priority
			t.UpdatedAt = time.Now().UTC()
			s.tasks[id] = t
		}
	}
	return nil
}

func (s *Store) MarkOverdue(_ context.Context, id string) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[oid]
	if !ok || t.Status != models.TaskStatusPending {
		return false, nil
	}
	t.Status = models.TaskStatusOverdue
	t.UpdatedAt = time.Now().UTC()
	s.tasks[oid] = t
	return true, nil
}

func (s *Store) CompleteTask(_ context.Context, id string, c models.TaskCompletion) (bool, error) {
	oid, err := parseID(id)
	if err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[oid]
	if !ok || !t.Status.IsOpen() {
		return false, nil
	}
	completedAt := c.CompletedAt
	t.Status = models.TaskStatusCompleted
	t.CompletedAt = &completedAt
	t.CompletedBy = c.CompletedBy
	t.Notes = c.Notes
	t.ActualCost = c.ActualCost
	t.ActualTime = c.ActualTime
	t.CostVariance = c.CostVariance
	t.UpdatedAt = time.Now().UTC()
	s.tasks[oid] = t
	return true, nil
}

func (s *Store) DeleteOpenTasksBySchedule(_ context.Context, scheduleID string) error {
	oid, err := parseID(scheduleID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tasks {
		if t.ScheduleID == oid && t.Status.IsOpen() {
			delete(s.tasks, id)
		}
	}
	return nil
}

func (s *Store) DeleteTasksBySchedule(_ context.Context, scheduleID string) error {
	oid, err := parseID(scheduleID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.tasks {
		if t.ScheduleID == oid {
			delete(s.tasks, id)
		}
	}
	return nil
}

// Service records

func (s *Store) InsertServiceRecord(_ context.Context, r *models.ServiceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignID(&r.ID)
	r.CreatedAt = time.Now().UTC()
	s.serviceRecords[r.ID] = *r
	return nil
}

func (s *Store) FindServiceRecordByID(_ context.Context, id string) (*models.ServiceRecord, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.serviceRecords[oid]
	if !ok {
		return nil, notFound("service record")
	}
	return &r, nil
}

func (s *Store) FindServiceRecordsByAsset(_ context.Context, assetID string) ([]models.ServiceRecord, error) {
	oid, err := parseID(assetID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ServiceRecord{}
	for _, r := range s.serviceRecords {
		if r.AssetID == oid {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceDate.After(out[j].ServiceDate) })
	return out, nil
}

func (s *Store) DeleteServiceRecordsByAsset(_ context.Context, assetID string) error {
	oid, err := parseID(assetID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.serviceRecords {
		if r.AssetID == oid {
			delete(s.serviceRecords, id)
		}
	}
	return nil
}

// Notifications

func notificationID(n models.Notification) primitive.ObjectID { return n.ID }

func (s *Store) InsertNotification(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailInsertNotification != nil {
		return s.FailInsertNotification
	}
	if n.DedupeKey != "" {
		for _, existing := range s.notifications {
			if existing.DedupeKey == n.DedupeKey {
				return fmt.Errorf("%w: %s", db.ErrDuplicateNotification, n.DedupeKey)
			}
		}
	}
	assignID(&n.ID)
	n.CreatedAt = time.Now().UTC()
	s.notifications[n.ID] = *n
	return nil
}

func (s *Store) FindNotificationsByUser(_ context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := byID(s.notifications, notificationID)
	out := []models.Notification{}
	for i := len(sorted) - 1; i >= 0; i-- {
		n := sorted[i]
		if n.UserID != userID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id, userID string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[oid]
	if !ok || n.UserID != userID {
		return notFound("notification")
	}
	n.IsRead = true
	s.notifications[oid] = n
	return nil
}

func (s *Store) FindFiredOffsets(_ context.Context, sourceID string, notificationType models.NotificationType) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []int{}
	for _, n := range s.notifications {
		if n.SourceID == sourceID && n.Type == notificationType && n.ReminderOffset != nil {
			out = append(out, *n.ReminderOffset)
		}
	}
	return out, nil
}

func claimed(n models.Notification, now time.Time) bool {
	return n.ClaimedUntil != nil && n.ClaimedUntil.After(now)
}

func (s *Store) FindUndispatched(_ context.Context, now time.Time, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return page(byID(s.notifications, notificationID), notificationID, func(n models.Notification) bool {
		return n.DispatchedAt == nil && !claimed(n, now)
	}, primitive.NilObjectID, limit), nil
}

func (s *Store) ClaimDispatch(_ context.Context, id primitive.ObjectID, now, until time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.DispatchedAt != nil || claimed(n, now) {
		return false, nil
	}
	n.ClaimedUntil = &until
	s.notifications[id] = n
	return true, nil
}

func (s *Store) ReleaseDispatch(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.DispatchedAt != nil {
		return nil
	}
	n.ClaimedUntil = nil
	s.notifications[id] = n
	return nil
}

func (s *Store) MarkDispatched(_ context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.DispatchedAt != nil {
		return false, nil
	}
	n.DispatchedAt = &at
	n.ClaimedUntil = nil
	s.notifications[id] = n
	return true, nil
}

// Activity

func (s *Store) InsertActivity(_ context.Context, entry *models.ActivityLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignID(&entry.ID)
	s.activity = append(s.activity, *entry)
	return nil
}

func (s *Store) FindActivityByUser(_ context.Context, userID string, limit int) ([]models.ActivityLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.ActivityLog{}
	for i := len(s.activity) - 1; i >= 0; i-- {
		if s.activity[i].UserID == userID {
			out = append(out, s.activity[i])
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Notifications returns every stored notification ordered by id.
func (s *Store) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return byID(s.notifications, notificationID)
}

// Tasks returns every stored task ordered by id.
func (s *Store) Tasks() []models.MaintenanceTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return byID(s.tasks, taskID)
}
