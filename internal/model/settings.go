package model

import (
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	"github.com/dukerupert/chorestar/internal/apperr"
)

// FamilySettings is the per-family singleton read by the reward calculator.
// Amounts are in minor currency units.
type FamilySettings struct {
	DailyReward int       `json:"daily_reward"`
	WeeklyBonus int       `json:"weekly_bonus"`
	Currency    string    `json:"currency"`
	Locale      string    `json:"locale"`
	DateFormat  string    `json:"date_format"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func DefaultFamilySettings() FamilySettings {
	return FamilySettings{
		Currency:   "USD",
		Locale:     "en-US",
		DateFormat: "2006-01-02",
	}
}

// NewFamilySettings validates a settings form. Currency must be an ISO 4217
// code and locale a BCP 47 tag.
func NewFamilySettings(dailyReward, weeklyBonus int, currencyCode, locale, dateFormat string) (FamilySettings, error) {
	if dailyReward < 0 {
		return FamilySettings{}, apperr.Validation("daily_reward must be >= 0")
	}
	if weeklyBonus < 0 {
		return FamilySettings{}, apperr.Validation("weekly_bonus must be >= 0")
	}
	unit, err := currency.ParseISO(strings.TrimSpace(currencyCode))
	if err != nil {
		return FamilySettings{}, apperr.Validation("unknown currency %q", currencyCode)
	}
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return FamilySettings{}, apperr.Validation("unknown locale %q", locale)
	}
	dateFormat = strings.TrimSpace(dateFormat)
	if dateFormat == "" {
		dateFormat = DefaultFamilySettings().DateFormat
	}
	return FamilySettings{
		DailyReward: dailyReward,
		WeeklyBonus: weeklyBonus,
		Currency:    unit.String(),
		Locale:      tag.String(),
		DateFormat:  dateFormat,
	}, nil
}
