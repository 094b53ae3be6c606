package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorestar/internal/model"
)

type RoutineStore struct {
	db *sql.DB
}

func NewRoutineStore(db *sql.DB) *RoutineStore {
	return &RoutineStore{db: db}
}

// --- Routine methods ---

func scanRoutine(scanner interface{ Scan(...any) error }) (*model.Routine, error) {
	var r model.Routine
	err := scanner.Scan(
		&r.ID, &r.ChildID, &r.Name, &r.Category, &r.Icon, &r.Color,
		&r.RewardAmount, &r.Active, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const routineCols = `id, child_id, name, category, icon, color, reward_amount, active, created_at, updated_at`

func (s *RoutineStore) Create(r model.Routine) (*model.Routine, error) {
	result, err := s.db.Exec(
		`INSERT INTO routines (child_id, name, category, icon, color, reward_amount, active) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ChildID, r.Name, r.Category, r.Icon, r.Color, r.RewardAmount, r.Active,
	)
	if err != nil {
		return nil, fmt.Errorf("insert routine: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *RoutineStore) GetByID(id int64) (*model.Routine, error) {
	r, err := scanRoutine(s.db.QueryRow(`SELECT `+routineCols+` FROM routines WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get routine: %w", err)
	}
	return r, nil
}

func (s *RoutineStore) ListByChild(childID int64) ([]model.Routine, error) {
	rows, err := s.db.Query(
		`SELECT `+routineCols+` FROM routines WHERE child_id = ? ORDER BY category, name`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list routines: %w", err)
	}
	defer rows.Close()

	var routines []model.Routine
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan routine: %w", err)
		}
		routines = append(routines, *r)
	}
	return routines, rows.Err()
}

func (s *RoutineStore) Update(id int64, r model.Routine) (*model.Routine, error) {
	_, err := s.db.Exec(
		`UPDATE routines SET name = ?, category = ?, icon = ?, color = ?, reward_amount = ?, active = ? WHERE id = ?`,
		r.Name, r.Category, r.Icon, r.Color, r.RewardAmount, r.Active, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update routine: %w", err)
	}
	return s.GetByID(id)
}

func (s *RoutineStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM routines WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete routine: %w", err)
	}
	return nil
}

// --- Step methods ---

func scanStep(scanner interface{ Scan(...any) error }) (*model.RoutineStep, error) {
	var st model.RoutineStep
	var duration sql.NullInt64
	err := scanner.Scan(&st.ID, &st.RoutineID, &st.Title, &st.Description, &st.Icon, &st.OrderIndex, &duration)
	if err != nil {
		return nil, err
	}
	if duration.Valid {
		d := int(duration.Int64)
		st.DurationSeconds = &d
	}
	return &st, nil
}

const stepCols = `id, routine_id, title, description, icon, order_index, duration_seconds`

// ListSteps returns a routine's steps in order.
func (s *RoutineStore) ListSteps(routineID int64) ([]model.RoutineStep, error) {
	rows, err := s.db.Query(
		`SELECT `+stepCols+` FROM routine_steps WHERE routine_id = ? ORDER BY order_index, id`,
		routineID,
	)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []model.RoutineStep
	for rows.Next() {
		st, err := scanStep(rows)
		if err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, *st)
	}
	return steps, rows.Err()
}

// ReplaceSteps stores steps as the routine's full step list. Order indices
// are written from slice position, so the stored list is always dense.
// Steps that carry the ID of one of the routine's rows are updated in place
// and keep that ID; steps without one are inserted; rows left out are deleted.
func (s *RoutineStore) ReplaceSteps(routineID int64, steps []model.RoutineStep) ([]model.RoutineStep, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := stepIDs(tx, routineID)
	if err != nil {
		return nil, err
	}

	update, err := tx.Prepare(
		`UPDATE routine_steps SET title = ?, description = ?, icon = ?, order_index = ?, duration_seconds = ? WHERE id = ?`,
	)
	if err != nil {
		return nil, fmt.Errorf("prepare update: %w", err)
	}
	defer update.Close()

	insert, err := tx.Prepare(
		`INSERT INTO routine_steps (routine_id, title, description, icon, order_index, duration_seconds) VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return nil, fmt.Errorf("prepare insert: %w", err)
	}
	defer insert.Close()

	kept := make(map[int64]bool, len(steps))
	for i, st := range steps {
		var duration sql.NullInt64
		if st.DurationSeconds != nil {
			duration = sql.NullInt64{Int64: int64(*st.DurationSeconds), Valid: true}
		}
		if existing[st.ID] && !kept[st.ID] {
			kept[st.ID] = true
			if _, err := update.Exec(st.Title, st.Description, st.Icon, i, duration, st.ID); err != nil {
				return nil, fmt.Errorf("update step %d: %w", st.ID, err)
			}
			continue
		}
		if _, err := insert.Exec(routineID, st.Title, st.Description, st.Icon, i, duration); err != nil {
			return nil, fmt.Errorf("insert step %d: %w", i, err)
		}
	}

	for id := range existing {
		if kept[id] {
			continue
		}
		if _, err := tx.Exec(`DELETE FROM routine_steps WHERE id = ?`, id); err != nil {
			return nil, fmt.Errorf("delete step %d: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit steps: %w", err)
	}
	return s.ListSteps(routineID)
}

func stepIDs(tx *sql.Tx, routineID int64) (map[int64]bool, error) {
	rows, err := tx.Query(`SELECT id FROM routine_steps WHERE routine_id = ?`, routineID)
	if err != nil {
		return nil, fmt.Errorf("list step ids: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan step id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// --- Completion methods ---

func scanRoutineCompletion(scanner interface{ Scan(...any) error }) (*model.RoutineCompletion, error) {
	var c model.RoutineCompletion
	err := scanner.Scan(
		&c.ID, &c.RoutineID, &c.ChildID, &c.CompletedAt,
		&c.StepsCompleted, &c.StepsTotal, &c.PointsEarned, &c.Date,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const routineCompletionCols = `id, routine_id, child_id, completed_at, steps_completed, steps_total, points_earned, date`

// CreateCompletion stores a routine run. A routine completes at most once per
// date: if a row already exists it is returned and created is false.
func (s *RoutineStore) CreateCompletion(c model.RoutineCompletion) (rc *model.RoutineCompletion, created bool, err error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO routine_completions (routine_id, child_id, completed_at, steps_completed, steps_total, points_earned, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.RoutineID, c.ChildID, c.CompletedAt.UTC(), c.StepsCompleted, c.StepsTotal, c.PointsEarned, c.Date,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert routine completion: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("rows affected: %w", err)
	}

	rc, err = scanRoutineCompletion(s.db.QueryRow(
		`SELECT `+routineCompletionCols+` FROM routine_completions WHERE routine_id = ? AND date = ?`,
		c.RoutineID, c.Date,
	))
	if err != nil {
		return nil, false, fmt.Errorf("get routine completion: %w", err)
	}
	return rc, n > 0, nil
}

// CompletedOn reports whether the routine has a completion for date.
func (s *RoutineStore) CompletedOn(routineID int64, date string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM routine_completions WHERE routine_id = ? AND date = ?`,
		routineID, date,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check routine completion: %w", err)
	}
	return count > 0, nil
}

// CompletedRoutineIDs returns the ids of a child's routines completed on date.
func (s *RoutineStore) CompletedRoutineIDs(childID int64, date string) (map[int64]bool, error) {
	rows, err := s.db.Query(
		`SELECT routine_id FROM routine_completions WHERE child_id = ? AND date = ?`,
		childID, date,
	)
	if err != nil {
		return nil, fmt.Errorf("list completed routines: %w", err)
	}
	defer rows.Close()

	ids := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan routine id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// ListCompletionsByChild returns a child's routine runs, newest first.
func (s *RoutineStore) ListCompletionsByChild(childID int64, limit int) ([]model.RoutineCompletion, error) {
	rows, err := s.db.Query(
		`SELECT `+routineCompletionCols+` FROM routine_completions WHERE child_id = ? ORDER BY date DESC, id DESC LIMIT ?`,
		childID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list routine completions: %w", err)
	}
	defer rows.Close()

	var completions []model.RoutineCompletion
	for rows.Next() {
		c, err := scanRoutineCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan routine completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}
