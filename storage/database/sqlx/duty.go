package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/coffeeduty/core"
	"github.com/trezcool/coffeeduty/core/duty"
)

const selectionColumns = "id, person_id, coffee_type_id, selected_at, source, slot, email_subject, email_body, auto_key"

type selectionRow struct {
	ID           string      `db:"id"`
	PersonID     string      `db:"person_id"`
	CoffeeTypeID null.String `db:"coffee_type_id"`
	SelectedAt   time.Time   `db:"selected_at"`
	Source       string      `db:"source"`
	Slot         null.String `db:"slot"`
	EmailSubject null.String `db:"email_subject"`
	EmailBody    null.String `db:"email_body"`
	AutoKey      null.String `db:"auto_key"`
}

func toSelectionRow(sel duty.Selection) selectionRow {
	return selectionRow{
		ID:           sel.ID,
		PersonID:     sel.PersonID,
		CoffeeTypeID: null.NewString(sel.CoffeeTypeID, sel.CoffeeTypeID != ""),
		SelectedAt:   sel.SelectedAt.UTC(),
		Source:       string(sel.Source),
		Slot:         null.NewString(string(sel.Slot), sel.Slot != ""),
		EmailSubject: null.NewString(sel.EmailSubject, sel.EmailSubject != ""),
		EmailBody:    null.NewString(sel.EmailBody, sel.EmailBody != ""),
		AutoKey:      null.NewString(sel.AutoKey, sel.AutoKey != ""),
	}
}

func (r selectionRow) selection() duty.Selection {
	return duty.Selection{
		ID:           r.ID,
		PersonID:     r.PersonID,
		CoffeeTypeID: r.CoffeeTypeID.String,
		SelectedAt:   r.SelectedAt.UTC(),
		Source:       duty.Source(r.Source),
		Slot:         duty.Slot(r.Slot.String),
		EmailSubject: r.EmailSubject.String,
		EmailBody:    r.EmailBody.String,
		AutoKey:      r.AutoKey.String,
	}
}

type dutyRepository struct {
	db core.DBExecutor
}

var _ duty.Repository = (*dutyRepository)(nil) // interface compliance check

func NewDutyRepository(db core.DBExecutor) duty.Repository {
	return &dutyRepository{db: db}
}

// CreateSelection writes the selection and its email snapshot in a single statement.
func (repo *dutyRepository) CreateSelection(ctx context.Context, sel duty.Selection) (duty.Selection, error) {
	q := repo.db.Rebind(`INSERT INTO selections (` + selectionColumns + `) VALUES (` + placeholders(9) + `)`)
	r := toSelectionRow(sel)
	_, err := repo.db.ExecContext(ctx, q,
		r.ID, r.PersonID, r.CoffeeTypeID, r.SelectedAt, r.Source, r.Slot, r.EmailSubject, r.EmailBody, r.AutoKey)
	if err != nil {
		if isUniqueViolation(err) && r.AutoKey.Valid {
			return duty.Selection{}, duty.ErrAlreadyDrawn
		}
		return duty.Selection{}, wrapErr(err, "inserting selection")
	}
	return r.selection(), nil
}

func (repo *dutyRepository) GetSelection(ctx context.Context, id string) (duty.Selection, error) {
	var r selectionRow
	q := repo.db.Rebind(`SELECT ` + selectionColumns + ` FROM selections WHERE id = ?`)
	if err := repo.db.GetContext(ctx, &r, q, id); err != nil {
		return duty.Selection{}, trapNoRowsErr(err, duty.ErrNotFound, "getting selection")
	}
	return r.selection(), nil
}

func (repo *dutyRepository) QuerySelections(ctx context.Context, filter duty.SelectionFilter) ([]duty.Selection, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(filter.Source))
	}
	if filter.PersonID != "" {
		conds = append(conds, "person_id = ?")
		args = append(args, filter.PersonID)
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "selected_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	q := `SELECT ` + selectionColumns + ` FROM selections`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY selected_at DESC, id DESC"
	if filter.Limit > 0 {
		q += " LIMIT " + strconv.Itoa(filter.Limit)
	}

	var rows []selectionRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, wrapErr(err, "querying selections")
	}
	sels := make([]duty.Selection, 0, len(rows))
	for _, r := range rows {
		sels = append(sels, r.selection())
	}
	return sels, nil
}

func (repo *dutyRepository) HasAutoSelection(ctx context.Context, autoKey string) (bool, error) {
	var count int
	q := repo.db.Rebind(`SELECT COUNT(*) FROM selections WHERE auto_key = ?`)
	if err := repo.db.GetContext(ctx, &count, q, autoKey); err != nil {
		return false, wrapErr(err, "checking auto selection")
	}
	return count > 0, nil
}

func (repo *dutyRepository) UpdateSelectionEmail(ctx context.Context, id, subject, body string) error {
	q := repo.db.Rebind(`UPDATE selections SET email_subject = ?, email_body = ? WHERE id = ?`)
	res, err := repo.db.ExecContext(ctx, q,
		null.NewString(subject, subject != ""), null.NewString(body, body != ""), id)
	if err != nil {
		return wrapErr(err, "updating selection email")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return duty.ErrNotFound
	}
	return nil
}

func (repo *dutyRepository) DeleteAutoSelections(ctx context.Context) (int, error) {
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(`DELETE FROM selections WHERE source = ?`), string(duty.SourceAuto))
	if err != nil {
		return 0, wrapErr(err, "deleting auto selections")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapErr(err, "counting deleted selections")
	}
	return int(n), nil
}
