package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/chorestar/internal/model"
)

type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

// --- Chore methods ---

func scanChore(scanner interface{ Scan(...any) error }) (*model.Chore, error) {
	var c model.Chore
	err := scanner.Scan(
		&c.ID, &c.ChildID, &c.Name, &c.RewardAmount, &c.Active,
		&c.Icon, &c.Category, &c.SortOrder,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const choreCols = `id, child_id, name, reward_amount, active, icon, category, sort_order, created_at, updated_at`

func (s *ChoreStore) Create(c model.Chore) (*model.Chore, error) {
	var maxOrder int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(sort_order), -1) FROM chores WHERE child_id = ?`, c.ChildID).Scan(&maxOrder)
	if err != nil {
		return nil, fmt.Errorf("query max sort_order: %w", err)
	}

	result, err := s.db.Exec(
		`INSERT INTO chores (child_id, name, reward_amount, active, icon, category, sort_order) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ChildID, c.Name, c.RewardAmount, c.Active, c.Icon, c.Category, maxOrder+1,
	)
	if err != nil {
		return nil, fmt.Errorf("insert chore: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) GetByID(id int64) (*model.Chore, error) {
	row := s.db.QueryRow(`SELECT `+choreCols+` FROM chores WHERE id = ?`, id)
	c, err := scanChore(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chore: %w", err)
	}
	return c, nil
}

// ListByChild returns every chore of a child, inactive ones included.
func (s *ChoreStore) ListByChild(childID int64) ([]model.Chore, error) {
	rows, err := s.db.Query(
		`SELECT `+choreCols+` FROM chores WHERE child_id = ? ORDER BY sort_order ASC, name ASC`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list chores by child: %w", err)
	}
	defer rows.Close()

	var chores []model.Chore
	for rows.Next() {
		c, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chore: %w", err)
		}
		chores = append(chores, *c)
	}
	return chores, rows.Err()
}

func (s *ChoreStore) Update(id int64, c model.Chore) (*model.Chore, error) {
	_, err := s.db.Exec(
		`UPDATE chores SET name = ?, reward_amount = ?, active = ?, icon = ?, category = ? WHERE id = ?`,
		c.Name, c.RewardAmount, c.Active, c.Icon, c.Category, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update chore: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChoreStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM chores WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chore: %w", err)
	}
	return nil
}

// CountOpen counts active chores, across all children, with no completion
// on the given day.
func (s *ChoreStore) CountOpen(weekStart string, day int) (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM chores c
		 WHERE c.active = 1 AND NOT EXISTS (
		     SELECT 1 FROM chore_completions cc
		     WHERE cc.chore_id = c.id AND cc.day_of_week = ? AND cc.week_start = ?
		 )`,
		day, weekStart,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open chores: %w", err)
	}
	return n, nil
}

// --- Completion methods ---

func scanCompletion(scanner interface{ Scan(...any) error }) (*model.ChoreCompletion, error) {
	var c model.ChoreCompletion
	err := scanner.Scan(&c.ID, &c.ChoreID, &c.DayOfWeek, &c.WeekStart, &c.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

const completionCols = `id, chore_id, day_of_week, week_start, completed_at`

// InsertCompletion marks a slot completed. If the slot is already completed
// the existing row is returned unchanged.
func (s *ChoreStore) InsertCompletion(choreID int64, day int, weekStart string, completedAt time.Time) (*model.ChoreCompletion, error) {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO chore_completions (chore_id, day_of_week, week_start, completed_at) VALUES (?, ?, ?, ?)`,
		choreID, day, weekStart, completedAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert completion: %w", err)
	}

	row := s.db.QueryRow(
		`SELECT `+completionCols+` FROM chore_completions WHERE chore_id = ? AND day_of_week = ? AND week_start = ?`,
		choreID, day, weekStart,
	)
	c, err := scanCompletion(row)
	if err != nil {
		return nil, fmt.Errorf("get completion: %w", err)
	}
	return c, nil
}

// DeleteCompletion clears a slot. Clearing an empty slot is not an error.
func (s *ChoreStore) DeleteCompletion(choreID int64, day int, weekStart string) error {
	_, err := s.db.Exec(
		`DELETE FROM chore_completions WHERE chore_id = ? AND day_of_week = ? AND week_start = ?`,
		choreID, day, weekStart,
	)
	if err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return nil
}

// ListCompletionsByWeek returns the completions of a child's chores in one week.
func (s *ChoreStore) ListCompletionsByWeek(childID int64, weekStart string) ([]model.ChoreCompletion, error) {
	rows, err := s.db.Query(
		`SELECT cc.id, cc.chore_id, cc.day_of_week, cc.week_start, cc.completed_at
		 FROM chore_completions cc JOIN chores c ON c.id = cc.chore_id
		 WHERE c.child_id = ? AND cc.week_start = ?
		 ORDER BY cc.day_of_week, cc.chore_id`,
		childID, weekStart,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions by week: %w", err)
	}
	defer rows.Close()
	return scanCompletions(rows)
}

// ListCompletionsByChild returns every completion of a child's chores, oldest week first.
func (s *ChoreStore) ListCompletionsByChild(childID int64) ([]model.ChoreCompletion, error) {
	rows, err := s.db.Query(
		`SELECT cc.id, cc.chore_id, cc.day_of_week, cc.week_start, cc.completed_at
		 FROM chore_completions cc JOIN chores c ON c.id = cc.chore_id
		 WHERE c.child_id = ?
		 ORDER BY cc.week_start, cc.day_of_week, cc.chore_id`,
		childID,
	)
	if err != nil {
		return nil, fmt.Errorf("list completions by child: %w", err)
	}
	defer rows.Close()
	return scanCompletions(rows)
}

func scanCompletions(rows *sql.Rows) ([]model.ChoreCompletion, error) {
	var completions []model.ChoreCompletion
	for rows.Next() {
		c, err := scanCompletion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		completions = append(completions, *c)
	}
	return completions, rows.Err()
}
