// Package testutil holds the helpers shared by the storage and HTTP tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/coffeeduty/core/duty"
	"github.com/trezcool/coffeeduty/core/roster"
	"github.com/trezcool/coffeeduty/storage/database"
)

// PrepareDB opens a migrated in-memory SQLite database closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.OpenMemory()
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreatePerson(
	t *testing.T,
	repo roster.Repository,
	first, last, email string,
	isPresent bool,
	createdAt ...time.Time,
) roster.Person {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	p := roster.Person{
		ID:        uuid.New().String(),
		FirstName: first,
		LastName:  last,
		Email:     email,
		IsPresent: isPresent,
		Active:    true,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	p, err := repo.CreatePerson(context.Background(), p)
	if err != nil {
		t.Fatalf("CreatePerson() failed: %v", err)
	}
	return p
}

func CreateCoffeeType(t *testing.T, repo roster.Repository, name, icon string) roster.CoffeeType {
	t.Helper()
	now := time.Now().UTC()
	ct, err := repo.CreateCoffeeType(context.Background(), roster.CoffeeType{
		ID:        uuid.New().String(),
		Name:      name,
		Icon:      icon,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCoffeeType() failed: %v", err)
	}
	return ct
}

func CreateSelection(t *testing.T, repo duty.Repository, personID string, source duty.Source, at time.Time) duty.Selection {
	t.Helper()
	slot := duty.SlotManual
	if source == duty.SourceAuto {
		slot = duty.SlotAt(at)
	}
	sel, err := repo.CreateSelection(context.Background(), duty.Selection{
		ID:         uuid.New().String(),
		PersonID:   personID,
		SelectedAt: at.UTC(),
		Source:     source,
		Slot:       slot,
	})
	if err != nil {
		t.Fatalf("CreateSelection() failed: %v", err)
	}
	return sel
}
