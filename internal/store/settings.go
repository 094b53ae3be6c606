package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/chorestar/internal/model"
)

// familyID is the id of the single family_settings row.
const familyID = 1

type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(db *sql.DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Get returns the family settings, creating the row with defaults on first access.
func (s *SettingsStore) Get() (*model.FamilySettings, error) {
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO family_settings (id) VALUES (?)`, familyID); err != nil {
		return nil, fmt.Errorf("seed family settings: %w", err)
	}

	var fs model.FamilySettings
	err := s.db.QueryRow(
		`SELECT daily_reward, weekly_bonus, currency, locale, date_format, updated_at
		 FROM family_settings WHERE id = ?`, familyID,
	).Scan(&fs.DailyReward, &fs.WeeklyBonus, &fs.Currency, &fs.Locale, &fs.DateFormat, &fs.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("get family settings: %w", err)
	}
	return &fs, nil
}

func (s *SettingsStore) Save(fs model.FamilySettings) (*model.FamilySettings, error) {
	_, err := s.db.Exec(
		`INSERT INTO family_settings (id, daily_reward, weekly_bonus, currency, locale, date_format, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		     daily_reward = excluded.daily_reward,
		     weekly_bonus = excluded.weekly_bonus,
		     currency = excluded.currency,
		     locale = excluded.locale,
		     date_format = excluded.date_format,
		     updated_at = excluded.updated_at`,
		familyID, fs.DailyReward, fs.WeeklyBonus, fs.Currency, fs.Locale, fs.DateFormat, time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("save family settings: %w", err)
	}
	return s.Get()
}
