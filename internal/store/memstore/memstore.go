// Package memstore provides in-memory implementations of the store
// interfaces. They back service and job-handler tests; WithTx returns the
// receiver since there is no transaction to bind.
package memstore

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/crewboard/crewboard-api/internal/domain"
	"github.com/crewboard/crewboard-api/internal/store"
)

// UserStore is an in-memory store.UserStore.
type UserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]domain.User
}

var _ store.UserStore = (*UserStore)(nil)

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[uuid.UUID]domain.User)}
}

func (s *UserStore) Create(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *UserStore) Update(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return store.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *UserStore) WithTx(tx *sql.Tx) store.UserStore { return s }

// ProjectStore is an in-memory store.ProjectStore.
type ProjectStore struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]domain.Project
	members  map[uuid.UUID]map[uuid.UUID]domain.Membership
}

var _ store.ProjectStore = (*ProjectStore)(nil)

func NewProjectStore() *ProjectStore {
	return &ProjectStore{
		projects: make(map[uuid.UUID]domain.Project),
		members:  make(map[uuid.UUID]map[uuid.UUID]domain.Membership),
	}
}

func (s *ProjectStore) Create(ctx context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects[project.ID] = *project
	owner, err := domain.NewMembership(project.ID, project.OwnerID, domain.RoleOwner)
	if err != nil {
		return err
	}
	s.members[project.ID] = map[uuid.UUID]domain.Membership{project.OwnerID: *owner}
	return nil
}

func (s *ProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	return &p, nil
}

func (s *ProjectStore) Update(ctx context.Context, project *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[project.ID]; !ok {
		return store.ErrProjectNotFound
	}
	s.projects[project.ID] = *project
	return nil
}

func (s *ProjectStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return store.ErrProjectNotFound
	}
	delete(s.projects, id)
	delete(s.members, id)
	return nil
}

func (s *ProjectStore) ListByMember(ctx context.Context, userID uuid.UUID) ([]*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Project
	for pid, members := range s.members {
		if _, ok := members[userID]; ok {
			if p, exists := s.projects[pid]; exists {
				proj := p
				out = append(out, &proj)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *ProjectStore) AddMember(ctx context.Context, m *domain.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[m.ProjectID]; !ok {
		return store.ErrProjectNotFound
	}
	if s.members[m.ProjectID] == nil {
		s.members[m.ProjectID] = make(map[uuid.UUID]domain.Membership)
	}
	s.members[m.ProjectID][m.UserID] = *m
	return nil
}

func (s *ProjectStore) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.members[projectID]
	if _, ok := members[userID]; !ok {
		return store.ErrMembershipNotFound
	}
	delete(members, userID)
	return nil
}

func (s *ProjectStore) ListMembers(ctx context.Context, projectID uuid.UUID) ([]*domain.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Membership
	for _, m := range s.members[projectID] {
		member := m
		out = append(out, &member)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *ProjectStore) WithTx(tx *sql.Tx) store.ProjectStore { return s }

// TaskStore is an in-memory store.TaskStore.
type TaskStore struct {
	mu          sync.RWMutex
	tasks       map[uuid.UUID]domain.Task
	attachments map[uuid.UUID]domain.Attachment
}

var _ store.TaskStore = (*TaskStore)(nil)

func NewTaskStore() *TaskStore {
	return &TaskStore{
		tasks:       make(map[uuid.UUID]domain.Task),
		attachments: make(map[uuid.UUID]domain.Attachment),
	}
}

func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = *task
	return nil
}

func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return &t, nil
}

func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	s.tasks[task.ID] = *task
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *TaskStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Task
	for _, t := range s.tasks {
		if t.ProjectID == projectID {
			task := t
			out = append(out, &task)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *TaskStore) SetViewCount(ctx context.Context, taskID uuid.UUID, views int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return store.ErrTaskNotFound
	}
	t.ViewCount = views
	s.tasks[taskID] = t
	return nil
}

func (s *TaskStore) CreateAttachment(ctx context.Context, a *domain.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments[a.ID] = *a
	return nil
}

func (s *TaskStore) GetAttachment(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attachments[id]
	if !ok {
		return nil, store.ErrAttachmentNotFound
	}
	return &a, nil
}

func (s *TaskStore) UpdateAttachment(ctx context.Context, a *domain.Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attachments[a.ID]; !ok {
		return store.ErrAttachmentNotFound
	}
	s.attachments[a.ID] = *a
	return nil
}

func (s *TaskStore) ListAttachmentsByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Attachment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Attachment
	for _, a := range s.attachments {
		if a.TaskID == taskID {
			att := a
			out = append(out, &att)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *TaskStore) DeleteAttachment(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attachments, id)
	return nil
}

func (s *TaskStore) WithTx(tx *sql.Tx) store.TaskStore { return s }

// CommentStore is an in-memory store.CommentStore.
type CommentStore struct {
	mu       sync.RWMutex
	comments map[uuid.UUID]domain.Comment
	tasks    *TaskStore // for project-wide comment counts
}

var _ store.CommentStore = (*CommentStore)(nil)

func NewCommentStore(tasks *TaskStore) *CommentStore {
	return &CommentStore{
		comments: make(map[uuid.UUID]domain.Comment),
		tasks:    tasks,
	}
}

func (s *CommentStore) Create(ctx context.Context, comment *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.comments[comment.ID] = *comment
	return nil
}

func (s *CommentStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	if !ok {
		return nil, store.ErrCommentNotFound
	}
	return &c, nil
}

func (s *CommentStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Comment
	for _, c := range s.comments {
		if c.TaskID == taskID {
			comment := c
			out = append(out, &comment)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *CommentStore) DeleteByTask(ctx context.Context, taskID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed int64
	for id, c := range s.comments {
		if c.TaskID == taskID {
			delete(s.comments, id)
			removed++
		}
	}
	return removed, nil
}

func (s *CommentStore) CountByProject(ctx context.Context, projectID uuid.UUID) (int, error) {
	taskIDs := make(map[uuid.UUID]bool)
	tasks, err := s.tasks.ListByProject(ctx, projectID)
	if err != nil {
		return 0, err
	}
	for _, t := range tasks {
		taskIDs[t.ID] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, c := range s.comments {
		if taskIDs[c.TaskID] {
			count++
		}
	}
	return count, nil
}

func (s *CommentStore) WithTx(tx *sql.Tx) store.CommentStore { return s }

// StatsStore is an in-memory store.StatsStore.
type StatsStore struct {
	mu    sync.RWMutex
	stats map[uuid.UUID]domain.ProjectStats
}

var _ store.StatsStore = (*StatsStore)(nil)

func NewStatsStore() *StatsStore {
	return &StatsStore{stats: make(map[uuid.UUID]domain.ProjectStats)}
}

func (s *StatsStore) Get(ctx context.Context, projectID uuid.UUID) (*domain.ProjectStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.stats[projectID]
	if !ok {
		return nil, store.ErrStatsNotFound
	}
	return &st, nil
}

func (s *StatsStore) Upsert(ctx context.Context, stats *domain.ProjectStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats[stats.ProjectID] = *stats
	return nil
}

func (s *StatsStore) Delete(ctx context.Context, projectID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stats, projectID)
	return nil
}

func (s *StatsStore) WithTx(tx *sql.Tx) store.StatsStore { return s }

// NotificationStore is an in-memory store.NotificationStore.
type NotificationStore struct {
	mu      sync.RWMutex
	byKey   map[string]uuid.UUID
	entries map[uuid.UUID]domain.Notification
}

var _ store.NotificationStore = (*NotificationStore)(nil)

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		byKey:   make(map[string]uuid.UUID),
		entries: make(map[uuid.UUID]domain.Notification),
	}
}

func (s *NotificationStore) Upsert(ctx context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.DedupeKey != "" {
		if existing, ok := s.byKey[n.DedupeKey]; ok {
			kept := s.entries[existing]
			kept.Message = n.Message
			kept.Metadata = n.Metadata
			s.entries[existing] = kept
			return nil
		}
		s.byKey[n.DedupeKey] = n.ID
	}
	s.entries[n.ID] = *n
	return nil
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Notification
	for _, n := range s.entries {
		if n.UserID == userID {
			entry := n
			out = append(out, &entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.entries[id]
	if !ok {
		return store.ErrNotificationNotFound
	}
	n.Read = true
	s.entries[id] = n
	return nil
}

func (s *NotificationStore) WithTx(tx *sql.Tx) store.NotificationStore { return s }
