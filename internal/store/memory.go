package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/labelkit/labelkit/internal/models"
)

// MemoryStore keeps everything in maps behind one RWMutex. It matches the
// sqlite backend's contract, including its uniqueness constraints and list
// ordering, so handler tests can run against it without a database file.
type MemoryStore struct {
	mu          sync.RWMutex
	tasks       map[string]*models.Task
	assignments map[string]*models.Assignment
	responses   map[string]*models.Response
	profiles    map[string]*models.UserProfile
	stats       map[string]*models.UserStats
	labels      map[string]*models.LabelClass
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:       map[string]*models.Task{},
		assignments: map[string]*models.Assignment{},
		responses:   map[string]*models.Response{},
		profiles:    map[string]*models.UserProfile{},
		stats:       map[string]*models.UserStats{},
		labels:      map[string]*models.LabelClass{},
	}
}

// --- Tasks ---

func (m *MemoryStore) InsertTask(t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.tasks {
		if other.Title == t.Title {
			return fmt.Errorf("task title %q already exists", t.Title)
		}
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *MemoryStore) GetTask(id string) (*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) FindTaskByTitle(title string) (*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tasks {
		if t.Title == title {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) UpdateTask(t *models.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[t.ID]; !ok {
		return fmt.Errorf("task %s not found", t.ID)
	}
	cp := *t
	m.tasks[t.ID] = &cp
	return nil
}

func (m *MemoryStore) DeleteTask(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tasks, id)
	return nil
}

func (m *MemoryStore) ListTasks() ([]*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) ListTasksCreatedBy(userID string) ([]*models.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Task
	for _, t := range m.tasks {
		if t.CreatedBy == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *MemoryStore) ListTaskIDsAssignedTo(userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := map[string]bool{}
	var out []string
	for _, a := range m.sortedAssignments() {
		if a.UserID == userID && !seen[a.TaskID] {
			seen[a.TaskID] = true
			out = append(out, a.TaskID)
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteResponsesByTask(taskID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, r := range m.responses {
		if a := m.assignments[r.AssignmentID]; a != nil && a.TaskID == taskID {
			delete(m.responses, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) DeleteAssignmentsByTask(taskID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, a := range m.assignments {
		if a.TaskID == taskID {
			delete(m.assignments, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) DeleteQuestionsByTask(taskID string) (int, error) {
	// Generated question rows only exist in imported sqlite databases.
	return 0, nil
}

// --- Assignments ---

// sortedAssignments returns assignments oldest first. Callers hold the lock.
func (m *MemoryStore) sortedAssignments() []*models.Assignment {
	out := make([]*models.Assignment, 0, len(m.assignments))
	for _, a := range m.assignments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].AssignedAt.Before(out[j].AssignedAt)
	})
	return out
}

func (m *MemoryStore) InsertAssignment(a *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.assignments[a.ID] = &cp
	return nil
}

func (m *MemoryStore) GetAssignment(id string) (*models.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assignments[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) AssignmentsForTaskUser(taskID, userID string) ([]*models.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Assignment
	for _, a := range m.sortedAssignments() {
		if a.TaskID == taskID && a.UserID == userID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListAssignmentsForUser(userID string, activeOnly bool) ([]*models.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Assignment
	for _, a := range m.sortedAssignments() {
		if a.UserID != userID {
			continue
		}
		if activeOnly && !a.IsActive {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	reverseAssignments(out)
	return out, nil
}

func (m *MemoryStore) ListAllAssignments() ([]*models.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Assignment
	for _, a := range m.sortedAssignments() {
		cp := *a
		out = append(out, &cp)
	}
	reverseAssignments(out)
	return out, nil
}

func reverseAssignments(list []*models.Assignment) {
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
}

func (m *MemoryStore) ListAssignmentDetails(limit, offset int) ([]*models.AssignmentDetail, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.AssignmentDetail
	sorted := m.sortedAssignments()
	for i := len(sorted) - 1; i >= 0; i-- {
		a := sorted[i]
		d := &models.AssignmentDetail{Assignment: *a}
		if t := m.tasks[a.TaskID]; t != nil {
			d.TaskTitle = t.Title
		}
		if p := m.profiles[a.UserID]; p != nil {
			d.UserName = p.FullName
			d.UserEmail = p.Email
		}
		out = append(out, d)
	}
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) UpdateAssignment(a *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[a.ID]; !ok {
		return fmt.Errorf("assignment %s not found", a.ID)
	}
	cp := *a
	m.assignments[a.ID] = &cp
	return nil
}

func (m *MemoryStore) CountResponsesByAssignment(assignmentID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, r := range m.responses {
		if r.AssignmentID == assignmentID {
			n++
		}
	}
	return n, nil
}

// --- Responses ---

func (m *MemoryStore) InsertResponse(r *models.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.responses {
		if other.AssignmentID == r.AssignmentID && other.QuestionIndex == r.QuestionIndex {
			return fmt.Errorf("response for assignment %s question %d already exists", r.AssignmentID, r.QuestionIndex)
		}
	}
	cp := *r
	m.responses[r.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateResponse(r *models.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.responses[r.ID]; !ok {
		return fmt.Errorf("response %s not found", r.ID)
	}
	cp := *r
	m.responses[r.ID] = &cp
	return nil
}

func (m *MemoryStore) GetResponseForQuestion(assignmentID string, questionIndex int) (*models.Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.responses {
		if r.AssignmentID == assignmentID && r.QuestionIndex == questionIndex {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) ListResponsesForUser(userID, taskID string) ([]*models.Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Response
	for _, r := range m.responses {
		if r.UserID != userID {
			continue
		}
		if taskID != "" {
			a := m.assignments[r.AssignmentID]
			if a == nil || a.TaskID != taskID {
				continue
			}
		}
		cp := *r
		out = append(out, &cp)
	}
	sortResponses(out)
	return out, nil
}

func (m *MemoryStore) ListResponsesForTask(taskID string) ([]*models.Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.Response
	for _, r := range m.responses {
		if a := m.assignments[r.AssignmentID]; a != nil && a.TaskID == taskID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sortResponses(out)
	return out, nil
}

func sortResponses(list []*models.Response) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].QuestionIndex != list[j].QuestionIndex {
			return list[i].QuestionIndex < list[j].QuestionIndex
		}
		return list[i].SubmittedAt.Before(list[j].SubmittedAt)
	})
}

// --- Profiles ---

func (m *MemoryStore) InsertProfile(p *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

func (m *MemoryStore) GetProfile(id string) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) UpdateProfile(p *models.UserProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.profiles[p.ID]; !ok {
		return fmt.Errorf("profile %s not found", p.ID)
	}
	cp := *p
	m.profiles[p.ID] = &cp
	return nil
}

// sortedProfiles returns profiles newest first. Callers hold the lock.
func (m *MemoryStore) sortedProfiles() []*models.UserProfile {
	out := make([]*models.UserProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (m *MemoryStore) ListProfiles(limit, offset int) ([]*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.sortedProfiles()
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) SearchProfiles(query string, limit int) ([]*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q := strings.ToLower(query)
	var out []*models.UserProfile
	for _, p := range m.sortedProfiles() {
		if strings.Contains(strings.ToLower(p.Email), q) || strings.Contains(strings.ToLower(p.FullName), q) {
			out = append(out, p)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (m *MemoryStore) ListProfilesByRole(role models.UserRole) ([]*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.UserProfile
	for _, p := range m.sortedProfiles() {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListProfilesActiveSince(cutoff time.Time) ([]*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.UserProfile
	for _, p := range m.sortedProfiles() {
		st := m.stats[p.ID]
		if st == nil || st.LastActive == nil {
			continue
		}
		if !st.LastActive.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out, nil
}

// --- Stats ---

func (m *MemoryStore) GetStats(userID string) (*models.UserStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.stats[userID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (m *MemoryStore) UpsertStats(st *models.UserStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *st
	m.stats[st.UserID] = &cp
	return nil
}

// --- Label classes ---

func (m *MemoryStore) InsertLabelClass(lc *models.LabelClass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.labels {
		if other.Name == lc.Name {
			return fmt.Errorf("label class %q already exists", lc.Name)
		}
	}
	cp := *lc
	m.labels[lc.ID] = &cp
	return nil
}

func (m *MemoryStore) GetLabelClass(id string) (*models.LabelClass, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lc, ok := m.labels[id]
	if !ok {
		return nil, nil
	}
	cp := *lc
	return &cp, nil
}

func (m *MemoryStore) FindLabelClassByName(name string) (*models.LabelClass, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, lc := range m.labels {
		if lc.Name == name {
			cp := *lc
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) UpdateLabelClass(lc *models.LabelClass) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.labels[lc.ID]; !ok {
		return fmt.Errorf("label class %s not found", lc.ID)
	}
	cp := *lc
	m.labels[lc.ID] = &cp
	return nil
}

func (m *MemoryStore) ListLabelClasses(activeOnly bool) ([]*models.LabelClass, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*models.LabelClass
	for _, lc := range m.labels {
		if activeOnly && !lc.IsActive {
			continue
		}
		cp := *lc
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
