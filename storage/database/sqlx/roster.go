package sqlxrepos

import (
	"context"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/coffeeduty/core"
	"github.com/trezcool/coffeeduty/core/roster"
)

const (
	personColumns     = "id, first_name, last_name, email, default_coffee_type_id, is_present, active, created_at, updated_at"
	coffeeTypeColumns = "id, name, icon, active, created_at, updated_at"
)

type personRow struct {
	ID                  string      `db:"id"`
	FirstName           string      `db:"first_name"`
	LastName            string      `db:"last_name"`
	Email               null.String `db:"email"`
	DefaultCoffeeTypeID null.String `db:"default_coffee_type_id"`
	IsPresent           bool        `db:"is_present"`
	Active              bool        `db:"active"`
	CreatedAt           time.Time   `db:"created_at"`
	UpdatedAt           time.Time   `db:"updated_at"`
}

func toPersonRow(p roster.Person) personRow {
	return personRow{
		ID:                  p.ID,
		FirstName:           p.FirstName,
		LastName:            p.LastName,
		Email:               null.NewString(p.Email, p.Email != ""),
		DefaultCoffeeTypeID: null.NewString(p.DefaultCoffeeTypeID, p.DefaultCoffeeTypeID != ""),
		IsPresent:           p.IsPresent,
		Active:              p.Active,
		CreatedAt:           p.CreatedAt.UTC(),
		UpdatedAt:           p.UpdatedAt.UTC(),
	}
}

func (r personRow) person() roster.Person {
	return roster.Person{
		ID:                  r.ID,
		FirstName:           r.FirstName,
		LastName:            r.LastName,
		Email:               r.Email.String,
		DefaultCoffeeTypeID: r.DefaultCoffeeTypeID.String,
		IsPresent:           r.IsPresent,
		Active:              r.Active,
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
	}
}

type rosterRepository struct {
	db core.DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db core.DB) roster.Repository {
	return &rosterRepository{db: db}
}

func (repo *rosterRepository) mapWriteErr(err error, msg string) error {
	switch {
	case isUniqueViolation(err):
		return roster.ErrEmailExists
	case isForeignKeyViolation(err):
		return roster.ErrCoffeeTypeNotFound
	}
	return wrapErr(err, msg)
}

func (repo *rosterRepository) CreatePerson(ctx context.Context, p roster.Person) (roster.Person, error) {
	q := repo.db.Rebind(`INSERT INTO people (` + personColumns + `) VALUES (` + placeholders(9) + `)`)
	r := toPersonRow(p)
	_, err := repo.db.ExecContext(ctx, q,
		r.ID, r.FirstName, r.LastName, r.Email, r.DefaultCoffeeTypeID, r.IsPresent, r.Active, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return roster.Person{}, repo.mapWriteErr(err, "inserting person")
	}
	return r.person(), nil
}

func (repo *rosterRepository) getPerson(ctx context.Context, where string, arg interface{}) (roster.Person, error) {
	var r personRow
	q := repo.db.Rebind(`SELECT ` + personColumns + ` FROM people WHERE ` + where)
	if err := repo.db.GetContext(ctx, &r, q, arg); err != nil {
		return roster.Person{}, trapNoRowsErr(err, roster.ErrNotFound, "getting person")
	}
	return r.person(), nil
}

func (repo *rosterRepository) GetPerson(ctx context.Context, id string) (roster.Person, error) {
	return repo.getPerson(ctx, "id = ?", id)
}

func (repo *rosterRepository) GetPersonByEmail(ctx context.Context, email string) (roster.Person, error) {
	return repo.getPerson(ctx, "LOWER(email) = ?", strings.ToLower(email))
}

func (repo *rosterRepository) QueryPeople(ctx context.Context, filter *roster.QueryFilter, ordering []core.DBOrdering) ([]roster.Person, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter == nil {
		filter = &roster.QueryFilter{}
	}
	if !filter.IncludeInactive {
		conds = append(conds, "active = ?")
		args = append(args, true)
	}
	if filter.IsPresent != nil {
		conds = append(conds, "is_present = ?")
		args = append(args, *filter.IsPresent)
	}
	// people with FirstName, LastName or Email matching the search keyword
	if filter.Search != "" {
		val := "%" + strings.ToLower(filter.Search) + "%"
		conds = append(conds, "(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(COALESCE(email, '')) LIKE ?)")
		args = append(args, val, val, val)
	}

	q := `SELECT ` + personColumns + ` FROM people`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) == 0 {
		ordering = roster.DefaultOrdering
	}
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if roster.OrderingFields[ord.Field] {
			orderList = append(orderList, ord.String())
		}
	}
	orderList = append(orderList, "id ASC")
	q += " ORDER BY " + strings.Join(orderList, ", ")

	var rows []personRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, wrapErr(err, "querying people")
	}
	people := make([]roster.Person, 0, len(rows))
	for _, r := range rows {
		people = append(people, r.person())
	}
	return people, nil
}

func (repo *rosterRepository) UpdatePerson(ctx context.Context, p roster.Person) (roster.Person, error) {
	q := repo.db.Rebind(`
		UPDATE people
		SET first_name = ?, last_name = ?, email = ?, default_coffee_type_id = ?, is_present = ?, active = ?, updated_at = ?
		WHERE id = ?`)
	r := toPersonRow(p)
	res, err := repo.db.ExecContext(ctx, q,
		r.FirstName, r.LastName, r.Email, r.DefaultCoffeeTypeID, r.IsPresent, r.Active, r.UpdatedAt, r.ID)
	if err != nil {
		return roster.Person{}, repo.mapWriteErr(err, "updating person")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return roster.Person{}, roster.ErrNotFound
	}
	return r.person(), nil
}

func (repo *rosterRepository) DeletePerson(ctx context.Context, id string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return wrapErr(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	if err = tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(*) FROM selections WHERE person_id = ?`), id); err != nil {
		return wrapErr(err, "counting selections")
	}
	if count > 0 {
		return roster.ErrHasHistory
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM people WHERE id = ?`), id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return roster.ErrHasHistory
		}
		return wrapErr(err, "deleting person")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return roster.ErrNotFound
	}
	return wrapErr(tx.Commit(), "committing person deletion")
}

func (repo *rosterRepository) CreateCoffeeType(ctx context.Context, ct roster.CoffeeType) (roster.CoffeeType, error) {
	ct.CreatedAt, ct.UpdatedAt = ct.CreatedAt.UTC(), ct.UpdatedAt.UTC()
	q := `INSERT INTO coffee_types (` + coffeeTypeColumns + `)
		VALUES (:id, :name, :icon, :active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, ct); err != nil {
		return roster.CoffeeType{}, wrapErr(err, "inserting coffee type")
	}
	return ct, nil
}

func (repo *rosterRepository) GetCoffeeType(ctx context.Context, id string) (roster.CoffeeType, error) {
	var ct roster.CoffeeType
	q := repo.db.Rebind(`SELECT ` + coffeeTypeColumns + ` FROM coffee_types WHERE id = ?`)
	if err := repo.db.GetContext(ctx, &ct, q, id); err != nil {
		return roster.CoffeeType{}, trapNoRowsErr(err, roster.ErrNotFound, "getting coffee type")
	}
	return utcCoffeeType(ct), nil
}

func (repo *rosterRepository) QueryCoffeeTypes(ctx context.Context, includeInactive bool) ([]roster.CoffeeType, error) {
	q := `SELECT ` + coffeeTypeColumns + ` FROM coffee_types`
	var args []interface{}
	if !includeInactive {
		q += " WHERE active = ?"
		args = append(args, true)
	}
	q += " ORDER BY name ASC, id ASC"

	var cts []roster.CoffeeType
	if err := repo.db.SelectContext(ctx, &cts, repo.db.Rebind(q), args...); err != nil {
		return nil, wrapErr(err, "querying coffee types")
	}
	for i := range cts {
		cts[i] = utcCoffeeType(cts[i])
	}
	return cts, nil
}

func (repo *rosterRepository) UpdateCoffeeType(ctx context.Context, ct roster.CoffeeType) (roster.CoffeeType, error) {
	ct.UpdatedAt = ct.UpdatedAt.UTC()
	q := `UPDATE coffee_types SET name = :name, icon = :icon, active = :active, updated_at = :updated_at WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, ct)
	if err != nil {
		return roster.CoffeeType{}, wrapErr(err, "updating coffee type")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return roster.CoffeeType{}, roster.ErrNotFound
	}
	return ct, nil
}

func utcCoffeeType(ct roster.CoffeeType) roster.CoffeeType {
	ct.CreatedAt, ct.UpdatedAt = ct.CreatedAt.UTC(), ct.UpdatedAt.UTC()
	return ct
}
