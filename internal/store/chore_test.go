package store

import (
	"testing"
	"time"

	"github.com/dukerupert/chorestar/internal/database"
	"github.com/dukerupert/chorestar/internal/model"
)

const testWeek = "2026-02-01"

func setupChoreTestDB(t *testing.T) (*ChoreStore, *model.Child) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	child, err := NewChildStore(db).Create(model.Child{Name: "Ada"})
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	return NewChoreStore(db), child
}

func TestChoreCRUD(t *testing.T) {
	cs, child := setupChoreTestDB(t)

	c, err := cs.Create(model.Chore{ChildID: child.ID, Name: "Feed cat", RewardAmount: 50, Active: true, Icon: "🐈", Category: "pets"})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	if c.Name != "Feed cat" {
		t.Errorf("name = %q, want %q", c.Name, "Feed cat")
	}
	if c.RewardAmount != 50 {
		t.Errorf("reward_amount = %d, want 50", c.RewardAmount)
	}
	if !c.Active {
		t.Error("expected active chore")
	}

	updated, err := cs.Update(c.ID, model.Chore{Name: "Feed the cat", RewardAmount: 75, Active: false, Icon: "🐈", Category: "pets"})
	if err != nil {
		t.Fatalf("update chore: %v", err)
	}
	if updated.RewardAmount != 75 {
		t.Errorf("updated reward_amount = %d, want 75", updated.RewardAmount)
	}
	if updated.Active {
		t.Error("expected inactive chore after update")
	}

	if err := cs.Delete(c.ID); err != nil {
		t.Fatalf("delete chore: %v", err)
	}
	got, err := cs.GetByID(c.ID)
	if err != nil {
		t.Fatalf("get deleted chore: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestChoreListByChild(t *testing.T) {
	cs, child := setupChoreTestDB(t)

	cs.Create(model.Chore{ChildID: child.ID, Name: "Dishes", Active: true})
	cs.Create(model.Chore{ChildID: child.ID, Name: "Bed", Active: false})

	chores, err := cs.ListByChild(child.ID)
	if err != nil {
		t.Fatalf("list chores: %v", err)
	}
	if len(chores) != 2 {
		t.Fatalf("len = %d, want 2", len(chores))
	}
	if chores[0].Name != "Dishes" || chores[0].SortOrder != 0 {
		t.Errorf("first chore = %q (order %d), want Dishes (order 0)", chores[0].Name, chores[0].SortOrder)
	}
}

func TestCompletionSlotIsUnique(t *testing.T) {
	cs, child := setupChoreTestDB(t)
	c, _ := cs.Create(model.Chore{ChildID: child.ID, Name: "Dishes", Active: true})
	at := time.Date(2026, 2, 3, 19, 0, 0, 0, time.UTC)

	first, err := cs.InsertCompletion(c.ID, 2, testWeek, at)
	if err != nil {
		t.Fatalf("insert completion: %v", err)
	}
	second, err := cs.InsertCompletion(c.ID, 2, testWeek, at.Add(time.Hour))
	if err != nil {
		t.Fatalf("insert duplicate completion: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("duplicate insert id = %d, want existing %d", second.ID, first.ID)
	}

	completions, err := cs.ListCompletionsByWeek(child.ID, testWeek)
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	if len(completions) != 1 {
		t.Errorf("len = %d, want 1", len(completions))
	}
}

func TestDeleteCompletion(t *testing.T) {
	cs, child := setupChoreTestDB(t)
	c, _ := cs.Create(model.Chore{ChildID: child.ID, Name: "Dishes", Active: true})

	cs.InsertCompletion(c.ID, 1, testWeek, time.Now())
	if err := cs.DeleteCompletion(c.ID, 1, testWeek); err != nil {
		t.Fatalf("delete completion: %v", err)
	}
	// clearing an empty slot is fine
	if err := cs.DeleteCompletion(c.ID, 1, testWeek); err != nil {
		t.Fatalf("delete empty slot: %v", err)
	}

	completions, _ := cs.ListCompletionsByWeek(child.ID, testWeek)
	if len(completions) != 0 {
		t.Errorf("len = %d, want 0", len(completions))
	}
}

func TestListCompletionsByChild(t *testing.T) {
	cs, child := setupChoreTestDB(t)
	c, _ := cs.Create(model.Chore{ChildID: child.ID, Name: "Dishes", Active: true})

	cs.InsertCompletion(c.ID, 0, testWeek, time.Now())
	cs.InsertCompletion(c.ID, 3, "2026-01-25", time.Now())

	completions, err := cs.ListCompletionsByChild(child.ID)
	if err != nil {
		t.Fatalf("list completions: %v", err)
	}
	if len(completions) != 2 {
		t.Fatalf("len = %d, want 2", len(completions))
	}
	if completions[0].WeekStart != "2026-01-25" {
		t.Errorf("first week = %q, want %q", completions[0].WeekStart, "2026-01-25")
	}
}

func TestCompletionsCascadeWithChore(t *testing.T) {
	cs, child := setupChoreTestDB(t)
	c, _ := cs.Create(model.Chore{ChildID: child.ID, Name: "Dishes", Active: true})
	cs.InsertCompletion(c.ID, 0, testWeek, time.Now())

	if err := cs.Delete(c.ID); err != nil {
		t.Fatalf("delete chore: %v", err)
	}
	completions, _ := cs.ListCompletionsByChild(child.ID)
	if len(completions) != 0 {
		t.Errorf("len = %d, want 0", len(completions))
	}
}

func TestCountOpen(t *testing.T) {
	cs, child := setupChoreTestDB(t)
	a, _ := cs.Create(model.Chore{ChildID: child.ID, Name: "Dishes", Active: true})
	cs.Create(model.Chore{ChildID: child.ID, Name: "Bed", Active: true})
	cs.Create(model.Chore{ChildID: child.ID, Name: "Retired", Active: false})

	cs.InsertCompletion(a.ID, 4, testWeek, time.Now())

	n, err := cs.CountOpen(testWeek, 4)
	if err != nil {
		t.Fatalf("count open: %v", err)
	}
	if n != 1 {
		t.Errorf("open = %d, want 1", n)
	}
}
