package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/coffeeduty/core"
	"github.com/trezcool/coffeeduty/core/roster"
)

type rosterRepository struct {
	db *DB
}

var _ roster.Repository = (*rosterRepository)(nil)

func NewRosterRepository(db *DB) roster.Repository {
	return &rosterRepository{db: db}
}

func (repo *rosterRepository) CreatePerson(_ context.Context, p roster.Person) (roster.Person, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if err := repo.checkEmail(p); err != nil {
		return roster.Person{}, err
	}
	repo.db.people[p.ID] = &p
	return p, nil
}

func (repo *rosterRepository) checkEmail(p roster.Person) error {
	if p.Email == "" {
		return nil
	}
	for _, other := range repo.db.people {
		if other.ID != p.ID && strings.EqualFold(other.Email, p.Email) {
			return roster.ErrEmailExists
		}
	}
	return nil
}

func (repo *rosterRepository) GetPerson(_ context.Context, id string) (roster.Person, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if p, ok := repo.db.people[id]; ok {
		return *p, nil
	}
	return roster.Person{}, roster.ErrNotFound
}

func (repo *rosterRepository) GetPersonByEmail(_ context.Context, email string) (roster.Person, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, p := range repo.db.people {
		if p.Email != "" && strings.EqualFold(p.Email, email) {
			return *p, nil
		}
	}
	return roster.Person{}, roster.ErrNotFound
}

func (repo *rosterRepository) QueryPeople(_ context.Context, filter *roster.QueryFilter, ordering []core.DBOrdering) ([]roster.Person, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if filter == nil {
		filter = &roster.QueryFilter{}
	}
	people := make([]roster.Person, 0, len(repo.db.people))
	for _, p := range repo.db.people {
		if filter.Matches(*p) {
			people = append(people, *p)
		}
	}
	if len(ordering) == 0 {
		ordering = roster.DefaultOrdering
	}
	sort.SliceStable(people, func(i, j int) bool {
		for _, o := range ordering {
			a, b := personField(people[i], o.Field), personField(people[j], o.Field)
			if a == b {
				continue
			}
			if o.Ascending {
				return a < b
			}
			return a > b
		}
		return people[i].ID < people[j].ID
	})
	return people, nil
}

func personField(p roster.Person, field string) string {
	switch field {
	case "first_name":
		return strings.ToLower(p.FirstName)
	case "last_name":
		return strings.ToLower(p.LastName)
	case "email":
		return p.Email
	case "created_at":
		return p.CreatedAt.Format("20060102150405.000000000")
	case "is_present":
		if p.IsPresent {
			return "1"
		}
		return "0"
	}
	return ""
}

func (repo *rosterRepository) UpdatePerson(_ context.Context, p roster.Person) (roster.Person, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.people[p.ID]; !ok {
		return roster.Person{}, roster.ErrNotFound
	}
	if err := repo.checkEmail(p); err != nil {
		return roster.Person{}, err
	}
	repo.db.people[p.ID] = &p
	return p, nil
}

func (repo *rosterRepository) DeletePerson(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.people[id]; !ok {
		return roster.ErrNotFound
	}
	for _, sel := range repo.db.selections {
		if sel.PersonID == id {
			return roster.ErrHasHistory
		}
	}
	delete(repo.db.people, id)
	return nil
}

func (repo *rosterRepository) CreateCoffeeType(_ context.Context, ct roster.CoffeeType) (roster.CoffeeType, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.coffeeTypes[ct.ID] = &ct
	return ct, nil
}

func (repo *rosterRepository) GetCoffeeType(_ context.Context, id string) (roster.CoffeeType, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if ct, ok := repo.db.coffeeTypes[id]; ok {
		return *ct, nil
	}
	return roster.CoffeeType{}, roster.ErrNotFound
}

func (repo *rosterRepository) QueryCoffeeTypes(_ context.Context, includeInactive bool) ([]roster.CoffeeType, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	cts := make([]roster.CoffeeType, 0, len(repo.db.coffeeTypes))
	for _, ct := range repo.db.coffeeTypes {
		if ct.Active || includeInactive {
			cts = append(cts, *ct)
		}
	}
	sort.Slice(cts, func(i, j int) bool {
		if cts[i].Name != cts[j].Name {
			return cts[i].Name < cts[j].Name
		}
		return cts[i].ID < cts[j].ID
	})
	return cts, nil
}

func (repo *rosterRepository) UpdateCoffeeType(_ context.Context, ct roster.CoffeeType) (roster.CoffeeType, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.coffeeTypes[ct.ID]; !ok {
		return roster.CoffeeType{}, roster.ErrNotFound
	}
	repo.db.coffeeTypes[ct.ID] = &ct
	return ct, nil
}
