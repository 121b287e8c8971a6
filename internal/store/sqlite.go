package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/labelkit/labelkit/internal/models"
)

// SQLiteStore is the production persistence backend. All Get methods return
// (nil, nil) when the row does not exist; services translate that into their
// typed not-found errors.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, stmt := range pragmas {
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", stmt, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC()
	}
	log.Printf("sqlite store: unparseable timestamp %q", s)
	return time.Time{}
}

func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	if t.IsZero() {
		return nil
	}
	return &t
}

func toNullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func fromNullInt(ni sql.NullInt64) *int {
	if !ni.Valid {
		return nil
	}
	v := int(ni.Int64)
	return &v
}

func toNullString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func encodeJSON(v any) (sql.NullString, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func encodeTemplate(tpl *models.QuestionTemplate) (sql.NullString, error) {
	if tpl == nil {
		return sql.NullString{}, nil
	}
	return encodeJSON(tpl)
}

func encodeStringSlice(list []string) (sql.NullString, error) {
	if len(list) == 0 {
		return sql.NullString{}, nil
	}
	return encodeJSON(list)
}

func encodeMetadata(m map[string]any) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	return encodeJSON(m)
}

func decodeTemplate(ns sql.NullString) *models.QuestionTemplate {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	var tpl models.QuestionTemplate
	if err := json.Unmarshal([]byte(ns.String), &tpl); err != nil {
		log.Printf("sqlite store: decode question template: %v", err)
		return nil
	}
	return &tpl
}

func decodeStringSlice(ns sql.NullString) []string {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		log.Printf("sqlite store: decode string slice: %v", err)
		return nil
	}
	return out
}

func decodeAnswers(s string) map[string][]string {
	if strings.TrimSpace(s) == "" {
		return map[string][]string{}
	}
	var out map[string][]string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		log.Printf("sqlite store: decode answers: %v", err)
		return map[string][]string{}
	}
	return out
}

func decodeMetadata(ns sql.NullString) map[string]any {
	if !ns.Valid || strings.TrimSpace(ns.String) == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		log.Printf("sqlite store: decode metadata: %v", err)
		return nil
	}
	return out
}

// --- Tasks ---

const taskCols = `id, title, description, instructions, status, priority, question_count,
	required_agreement_count, question_template, example_media, rule_description, deadline,
	created_by, created_at, updated_at, metadata`

func scanTask(sc scanner) (*models.Task, error) {
	var (
		t                  models.Task
		template, media    sql.NullString
		deadline, metadata sql.NullString
		created, updated   string
	)
	if err := sc.Scan(&t.ID, &t.Title, &t.Description, &t.Instructions, &t.Status, &t.Priority,
		&t.QuestionCount, &t.RequiredAgreementCount, &template, &media, &t.RuleDescription,
		&deadline, &t.CreatedBy, &created, &updated, &metadata); err != nil {
		return nil, err
	}
	t.Template = decodeTemplate(template)
	t.ExampleMedia = decodeStringSlice(media)
	t.Deadline = parseNullTime(deadline)
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	t.Metadata = decodeMetadata(metadata)
	return &t, nil
}

func (s *SQLiteStore) InsertTask(t *models.Task) error {
	template, err := encodeTemplate(t.Template)
	if err != nil {
		return fmt.Errorf("encode question template: %w", err)
	}
	media, err := encodeStringSlice(t.ExampleMedia)
	if err != nil {
		return fmt.Errorf("encode example media: %w", err)
	}
	metadata, err := encodeMetadata(t.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO tasks (`+taskCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, t.Instructions, string(t.Status), string(t.Priority),
		t.QuestionCount, t.RequiredAgreementCount, template, media, t.RuleDescription,
		toNullTime(t.Deadline), t.CreatedBy, formatTime(t.CreatedAt), formatTime(t.UpdatedAt), metadata)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetTask(id string) (*models.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) FindTaskByTitle(title string) (*models.Task, error) {
	row := s.db.QueryRow(`SELECT `+taskCols+` FROM tasks WHERE title = ?`, title)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query task by title: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) UpdateTask(t *models.Task) error {
	template, err := encodeTemplate(t.Template)
	if err != nil {
		return fmt.Errorf("encode question template: %w", err)
	}
	media, err := encodeStringSlice(t.ExampleMedia)
	if err != nil {
		return fmt.Errorf("encode example media: %w", err)
	}
	metadata, err := encodeMetadata(t.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.db.Exec(`UPDATE tasks SET title = ?, description = ?, instructions = ?, status = ?,
		priority = ?, question_count = ?, required_agreement_count = ?, question_template = ?,
		example_media = ?, rule_description = ?, deadline = ?, updated_at = ?, metadata = ?
		WHERE id = ?`,
		t.Title, t.Description, t.Instructions, string(t.Status), string(t.Priority),
		t.QuestionCount, t.RequiredAgreementCount, template, media, t.RuleDescription,
		toNullTime(t.Deadline), formatTime(t.UpdatedAt), metadata, t.ID)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteTask(id string) error {
	if _, err := s.db.Exec(`DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (s *SQLiteStore) queryTasks(query string, args ...any) ([]*models.Task, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()
	var out []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListTasks() ([]*models.Task, error) {
	return s.queryTasks(`SELECT ` + taskCols + ` FROM tasks ORDER BY created_at DESC`)
}

func (s *SQLiteStore) ListTasksCreatedBy(userID string) ([]*models.Task, error) {
	return s.queryTasks(`SELECT `+taskCols+` FROM tasks WHERE created_by = ? ORDER BY created_at DESC`, userID)
}

func (s *SQLiteStore) ListTaskIDsAssignedTo(userID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT task_id FROM task_assignments WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("query assigned task ids: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan task id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) DeleteResponsesByTask(taskID string) (int, error) {
	res, err := s.db.Exec(`DELETE FROM question_responses WHERE task_assignment_id IN
		(SELECT id FROM task_assignments WHERE task_id = ?)`, taskID)
	if err != nil {
		return 0, fmt.Errorf("delete task responses: %w", err)
	}
	return rowsAffected(res), nil
}

func (s *SQLiteStore) DeleteAssignmentsByTask(taskID string) (int, error) {
	res, err := s.db.Exec(`DELETE FROM task_assignments WHERE task_id = ?`, taskID)
	if err != nil {
		return 0, fmt.Errorf("delete task assignments: %w", err)
	}
	return rowsAffected(res), nil
}

func (s *SQLiteStore) DeleteQuestionsByTask(taskID string) (int, error) {
	res, err := s.db.Exec(`DELETE FROM questions WHERE task_id = ?`, taskID)
	if err != nil {
		return 0, fmt.Errorf("delete task questions: %w", err)
	}
	return rowsAffected(res), nil
}

func rowsAffected(res sql.Result) int {
	n, err := res.RowsAffected()
	if err != nil {
		log.Printf("sqlite store: rows affected: %v", err)
		return 0
	}
	return int(n)
}

// --- Assignments ---

const assignmentCols = `id, task_id, user_id, question_range_start, question_range_end,
	completed_labels, is_active, assigned_at, completed_at`

func scanAssignment(sc scanner) (*models.Assignment, error) {
	var (
		a         models.Assignment
		assigned  string
		completed sql.NullString
	)
	if err := sc.Scan(&a.ID, &a.TaskID, &a.UserID, &a.RangeStart, &a.RangeEnd,
		&a.CompletedCount, &a.IsActive, &assigned, &completed); err != nil {
		return nil, err
	}
	a.AssignedAt = parseTime(assigned)
	a.CompletedAt = parseNullTime(completed)
	return &a, nil
}

func (s *SQLiteStore) InsertAssignment(a *models.Assignment) error {
	_, err := s.db.Exec(`INSERT INTO task_assignments (`+assignmentCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TaskID, a.UserID, a.RangeStart, a.RangeEnd,
		a.CompletedCount, a.IsActive, formatTime(a.AssignedAt), toNullTime(a.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAssignment(id string) (*models.Assignment, error) {
	row := s.db.QueryRow(`SELECT `+assignmentCols+` FROM task_assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query assignment: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) queryAssignments(query string, args ...any) ([]*models.Assignment, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	defer rows.Close()
	var out []*models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AssignmentsForTaskUser orders by assignment age so callers that tolerate
// legacy duplicates consistently pick the oldest row.
func (s *SQLiteStore) AssignmentsForTaskUser(taskID, userID string) ([]*models.Assignment, error) {
	return s.queryAssignments(`SELECT `+assignmentCols+` FROM task_assignments
		WHERE task_id = ? AND user_id = ? ORDER BY assigned_at, id`, taskID, userID)
}

func (s *SQLiteStore) ListAssignmentsForUser(userID string, activeOnly bool) ([]*models.Assignment, error) {
	query := `SELECT ` + assignmentCols + ` FROM task_assignments WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY assigned_at DESC`
	return s.queryAssignments(query, userID)
}

func (s *SQLiteStore) ListAllAssignments() ([]*models.Assignment, error) {
	return s.queryAssignments(`SELECT ` + assignmentCols + ` FROM task_assignments ORDER BY assigned_at DESC`)
}

func (s *SQLiteStore) ListAssignmentDetails(limit, offset int) ([]*models.AssignmentDetail, error) {
	query := `SELECT a.id, a.task_id, a.user_id, a.question_range_start, a.question_range_end,
		a.completed_labels, a.is_active, a.assigned_at, a.completed_at,
		COALESCE(t.title, ''), COALESCE(p.full_name, ''), COALESCE(p.email, '')
		FROM task_assignments a
		LEFT JOIN tasks t ON t.id = a.task_id
		LEFT JOIN user_profiles p ON p.id = a.user_id
		ORDER BY a.assigned_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assignment details: %w", err)
	}
	defer rows.Close()
	var out []*models.AssignmentDetail
	for rows.Next() {
		var (
			d         models.AssignmentDetail
			assigned  string
			completed sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.TaskID, &d.UserID, &d.RangeStart, &d.RangeEnd,
			&d.CompletedCount, &d.IsActive, &assigned, &completed,
			&d.TaskTitle, &d.UserName, &d.UserEmail); err != nil {
			return nil, fmt.Errorf("scan assignment detail: %w", err)
		}
		d.AssignedAt = parseTime(assigned)
		d.CompletedAt = parseNullTime(completed)
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) UpdateAssignment(a *models.Assignment) error {
	_, err := s.db.Exec(`UPDATE task_assignments SET question_range_start = ?, question_range_end = ?,
		completed_labels = ?, is_active = ?, completed_at = ? WHERE id = ?`,
		a.RangeStart, a.RangeEnd, a.CompletedCount, a.IsActive, toNullTime(a.CompletedAt), a.ID)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CountResponsesByAssignment(assignmentID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM question_responses WHERE task_assignment_id = ?`,
		assignmentID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count responses: %w", err)
	}
	return n, nil
}

// --- Responses ---

const responseCols = `id, task_assignment_id, user_id, question_index, answers, confidence,
	elapsed_seconds, started_at, submitted_at, is_honeypot, is_flagged, flag_reason, metadata`

func scanResponse(sc scanner) (*models.Response, error) {
	var (
		r                  models.Response
		answers, submitted string
		confidence         sql.NullInt64
		elapsed            sql.NullInt64
		started            sql.NullString
		flagReason         sql.NullString
		metadata           sql.NullString
	)
	if err := sc.Scan(&r.ID, &r.AssignmentID, &r.UserID, &r.QuestionIndex, &answers, &confidence,
		&elapsed, &started, &submitted, &r.IsHoneypot, &r.IsFlagged, &flagReason, &metadata); err != nil {
		return nil, err
	}
	r.Answers = decodeAnswers(answers)
	r.Confidence = fromNullInt(confidence)
	r.ElapsedSeconds = fromNullInt(elapsed)
	r.StartedAt = parseNullTime(started)
	r.SubmittedAt = parseTime(submitted)
	r.FlagReason = flagReason.String
	r.Metadata = decodeMetadata(metadata)
	return &r, nil
}

func (s *SQLiteStore) InsertResponse(r *models.Response) error {
	answers, err := encodeJSON(r.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	metadata, err := encodeMetadata(r.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO question_responses (`+responseCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AssignmentID, r.UserID, r.QuestionIndex, answers, toNullInt(r.Confidence),
		toNullInt(r.ElapsedSeconds), toNullTime(r.StartedAt), formatTime(r.SubmittedAt),
		r.IsHoneypot, r.IsFlagged, toNullString(r.FlagReason), metadata)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateResponse(r *models.Response) error {
	answers, err := encodeJSON(r.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	metadata, err := encodeMetadata(r.Metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	_, err = s.db.Exec(`UPDATE question_responses SET answers = ?, confidence = ?, elapsed_seconds = ?,
		started_at = ?, submitted_at = ?, is_honeypot = ?, is_flagged = ?, flag_reason = ?, metadata = ?
		WHERE id = ?`,
		answers, toNullInt(r.Confidence), toNullInt(r.ElapsedSeconds), toNullTime(r.StartedAt),
		formatTime(r.SubmittedAt), r.IsHoneypot, r.IsFlagged, toNullString(r.FlagReason), metadata, r.ID)
	if err != nil {
		return fmt.Errorf("update response: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetResponseForQuestion(assignmentID string, questionIndex int) (*models.Response, error) {
	row := s.db.QueryRow(`SELECT `+responseCols+` FROM question_responses
		WHERE task_assignment_id = ? AND question_index = ?`, assignmentID, questionIndex)
	r, err := scanResponse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query response: %w", err)
	}
	return r, nil
}

func (s *SQLiteStore) queryResponses(query string, args ...any) ([]*models.Response, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()
	var out []*models.Response
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan response: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListResponsesForUser(userID, taskID string) ([]*models.Response, error) {
	if taskID == "" {
		return s.queryResponses(`SELECT `+responseCols+` FROM question_responses
			WHERE user_id = ? ORDER BY submitted_at DESC`, userID)
	}
	return s.queryResponses(`SELECT r.id, r.task_assignment_id, r.user_id, r.question_index, r.answers,
		r.confidence, r.elapsed_seconds, r.started_at, r.submitted_at, r.is_honeypot, r.is_flagged,
		r.flag_reason, r.metadata
		FROM question_responses r
		JOIN task_assignments a ON a.id = r.task_assignment_id
		WHERE r.user_id = ? AND a.task_id = ? ORDER BY r.question_index`, userID, taskID)
}

func (s *SQLiteStore) ListResponsesForTask(taskID string) ([]*models.Response, error) {
	return s.queryResponses(`SELECT r.id, r.task_assignment_id, r.user_id, r.question_index, r.answers,
		r.confidence, r.elapsed_seconds, r.started_at, r.submitted_at, r.is_honeypot, r.is_flagged,
		r.flag_reason, r.metadata
		FROM question_responses r
		JOIN task_assignments a ON a.id = r.task_assignment_id
		WHERE a.task_id = ? ORDER BY r.question_index, r.submitted_at`, taskID)
}

// --- Profiles ---

const profileCols = `id, email, full_name, role, preferred_categories, is_active, created_at, updated_at`

func scanProfile(sc scanner) (*models.UserProfile, error) {
	var (
		p                models.UserProfile
		preferred        sql.NullString
		created, updated string
	)
	if err := sc.Scan(&p.ID, &p.Email, &p.FullName, &p.Role, &preferred, &p.IsActive,
		&created, &updated); err != nil {
		return nil, err
	}
	p.PreferredCategories = decodeStringSlice(preferred)
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	return &p, nil
}

func (s *SQLiteStore) InsertProfile(p *models.UserProfile) error {
	preferred, err := encodeStringSlice(p.PreferredCategories)
	if err != nil {
		return fmt.Errorf("encode preferred categories: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO user_profiles (`+profileCols+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Email, p.FullName, string(p.Role), preferred, p.IsActive,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetProfile(id string) (*models.UserProfile, error) {
	row := s.db.QueryRow(`SELECT `+profileCols+` FROM user_profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return p, nil
}

func (s *SQLiteStore) UpdateProfile(p *models.UserProfile) error {
	preferred, err := encodeStringSlice(p.PreferredCategories)
	if err != nil {
		return fmt.Errorf("encode preferred categories: %w", err)
	}
	_, err = s.db.Exec(`UPDATE user_profiles SET email = ?, full_name = ?, role = ?,
		preferred_categories = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		p.Email, p.FullName, string(p.Role), preferred, p.IsActive, formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

func (s *SQLiteStore) queryProfiles(query string, args ...any) ([]*models.UserProfile, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()
	var out []*models.UserProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListProfiles(limit, offset int) ([]*models.UserProfile, error) {
	return s.queryProfiles(`SELECT `+profileCols+` FROM user_profiles
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, limit, offset)
}

func (s *SQLiteStore) SearchProfiles(query string, limit int) ([]*models.UserProfile, error) {
	pattern := "%" + query + "%"
	return s.queryProfiles(`SELECT `+profileCols+` FROM user_profiles
		WHERE email LIKE ? OR full_name LIKE ? ORDER BY created_at DESC LIMIT ?`,
		pattern, pattern, limit)
}

func (s *SQLiteStore) ListProfilesByRole(role models.UserRole) ([]*models.UserProfile, error) {
	return s.queryProfiles(`SELECT `+profileCols+` FROM user_profiles
		WHERE role = ? ORDER BY created_at DESC`, string(role))
}

func (s *SQLiteStore) ListProfilesActiveSince(cutoff time.Time) ([]*models.UserProfile, error) {
	return s.queryProfiles(`SELECT p.id, p.email, p.full_name, p.role, p.preferred_categories,
		p.is_active, p.created_at, p.updated_at
		FROM user_profiles p
		JOIN user_stats s ON s.user_id = p.id
		WHERE s.last_active IS NOT NULL AND datetime(s.last_active) >= datetime(?)
		ORDER BY s.last_active DESC`, formatTime(cutoff))
}

// --- Stats ---

func (s *SQLiteStore) GetStats(userID string) (*models.UserStats, error) {
	row := s.db.QueryRow(`SELECT user_id, total_questions_labeled, total_annotations, accuracy_score,
		labels_today, labels_this_week, labels_this_month, avg_seconds_per_question, last_active,
		streak_days, updated_at FROM user_stats WHERE user_id = ?`, userID)
	var (
		st         models.UserStats
		avgSeconds sql.NullFloat64
		lastActive sql.NullString
		updated    string
	)
	err := row.Scan(&st.UserID, &st.TotalQuestionsLabeled, &st.TotalAnnotations, &st.AccuracyScore,
		&st.LabelsToday, &st.LabelsThisWeek, &st.LabelsThisMonth, &avgSeconds, &lastActive,
		&st.StreakDays, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query stats: %w", err)
	}
	if avgSeconds.Valid {
		v := avgSeconds.Float64
		st.AvgSecondsPerQuestion = &v
	}
	st.LastActive = parseNullTime(lastActive)
	st.UpdatedAt = parseTime(updated)
	return &st, nil
}

func (s *SQLiteStore) UpsertStats(st *models.UserStats) error {
	var avgSeconds sql.NullFloat64
	if st.AvgSecondsPerQuestion != nil {
		avgSeconds = sql.NullFloat64{Float64: *st.AvgSecondsPerQuestion, Valid: true}
	}
	_, err := s.db.Exec(`INSERT INTO user_stats (user_id, total_questions_labeled, total_annotations,
		accuracy_score, labels_today, labels_this_week, labels_this_month, avg_seconds_per_question,
		last_active, streak_days, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			total_questions_labeled = excluded.total_questions_labeled,
			total_annotations = excluded.total_annotations,
			accuracy_score = excluded.accuracy_score,
			labels_today = excluded.labels_today,
			labels_this_week = excluded.labels_this_week,
			labels_this_month = excluded.labels_this_month,
			avg_seconds_per_question = excluded.avg_seconds_per_question,
			last_active = excluded.last_active,
			streak_days = excluded.streak_days,
			updated_at = excluded.updated_at`,
		st.UserID, st.TotalQuestionsLabeled, st.TotalAnnotations, st.AccuracyScore,
		st.LabelsToday, st.LabelsThisWeek, st.LabelsThisMonth, avgSeconds,
		toNullTime(st.LastActive), st.StreakDays, formatTime(st.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert stats: %w", err)
	}
	return nil
}

// --- Label classes ---

const labelCols = `id, name, description, color, is_active, created_at`

func scanLabelClass(sc scanner) (*models.LabelClass, error) {
	var (
		lc      models.LabelClass
		created string
	)
	if err := sc.Scan(&lc.ID, &lc.Name, &lc.Description, &lc.Color, &lc.IsActive, &created); err != nil {
		return nil, err
	}
	lc.CreatedAt = parseTime(created)
	return &lc, nil
}

func (s *SQLiteStore) InsertLabelClass(lc *models.LabelClass) error {
	_, err := s.db.Exec(`INSERT INTO label_classes (`+labelCols+`) VALUES (?, ?, ?, ?, ?, ?)`,
		lc.ID, lc.Name, lc.Description, lc.Color, lc.IsActive, formatTime(lc.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert label class: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetLabelClass(id string) (*models.LabelClass, error) {
	row := s.db.QueryRow(`SELECT `+labelCols+` FROM label_classes WHERE id = ?`, id)
	lc, err := scanLabelClass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query label class: %w", err)
	}
	return lc, nil
}

func (s *SQLiteStore) FindLabelClassByName(name string) (*models.LabelClass, error) {
	row := s.db.QueryRow(`SELECT `+labelCols+` FROM label_classes WHERE name = ?`, name)
	lc, err := scanLabelClass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query label class by name: %w", err)
	}
	return lc, nil
}

func (s *SQLiteStore) UpdateLabelClass(lc *models.LabelClass) error {
	_, err := s.db.Exec(`UPDATE label_classes SET name = ?, description = ?, color = ?, is_active = ?
		WHERE id = ?`, lc.Name, lc.Description, lc.Color, lc.IsActive, lc.ID)
	if err != nil {
		return fmt.Errorf("update label class: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListLabelClasses(activeOnly bool) ([]*models.LabelClass, error) {
	query := `SELECT ` + labelCols + ` FROM label_classes`
	if activeOnly {
		query += ` WHERE is_active = 1`
	}
	query += ` ORDER BY name`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("query label classes: %w", err)
	}
	defer rows.Close()
	var out []*models.LabelClass
	for rows.Next() {
		lc, err := scanLabelClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan label class: %w", err)
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}
