package ledger

import "github.com/dukerupert/chorestar/internal/model"

// GridRow is one chore's line of the weekly completion grid.
type GridRow struct {
	Chore    model.Chore       `json:"chore"`
	Days     [DaysPerWeek]bool `json:"days"`
	Count    int               `json:"count"`
	Earnings int               `json:"earnings"`
}

// BuildGrid lays out the week's completions as one row per chore, in the order given.
func BuildGrid(chores []model.Chore, l Ledger, weekStart string) []GridRow {
	rows := make([]GridRow, len(chores))
	index := make(map[int64]int, len(chores))
	for i, c := range chores {
		rows[i].Chore = c
		index[c.ID] = i
	}
	for _, comp := range l.CompletionsForWeek(weekStart) {
		i, ok := index[comp.ChoreID]
		if !ok || !ValidDay(comp.DayOfWeek) {
			continue
		}
		rows[i].Days[comp.DayOfWeek] = true
	}
	for i := range rows {
		for _, done := range rows[i].Days {
			if done {
				rows[i].Count++
			}
		}
		rows[i].Earnings = rows[i].Count * rows[i].Chore.RewardAmount
	}
	return rows
}
