package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/coffeeduty/core/duty"
)

type dutyRepository struct {
	db *DB
}

var _ duty.Repository = (*dutyRepository)(nil)

func NewDutyRepository(db *DB) duty.Repository {
	return &dutyRepository{db: db}
}

func (repo *dutyRepository) CreateSelection(_ context.Context, sel duty.Selection) (duty.Selection, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if sel.AutoKey != "" {
		for _, other := range repo.db.selections {
			if other.AutoKey == sel.AutoKey {
				return duty.Selection{}, duty.ErrAlreadyDrawn
			}
		}
	}
	repo.db.selections = append(repo.db.selections, sel)
	return sel, nil
}

func (repo *dutyRepository) GetSelection(_ context.Context, id string) (duty.Selection, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sel := range repo.db.selections {
		if sel.ID == id {
			return sel, nil
		}
	}
	return duty.Selection{}, duty.ErrNotFound
}

func (repo *dutyRepository) QuerySelections(_ context.Context, filter duty.SelectionFilter) ([]duty.Selection, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	sels := make([]duty.Selection, 0, len(repo.db.selections))
	for _, sel := range repo.db.selections {
		if filter.Source != "" && sel.Source != filter.Source {
			continue
		}
		if filter.PersonID != "" && sel.PersonID != filter.PersonID {
			continue
		}
		if !filter.Since.IsZero() && sel.SelectedAt.Before(filter.Since) {
			continue
		}
		sels = append(sels, sel)
	}
	// same order as the SQL repositories: selected_at DESC, id DESC
	sort.Slice(sels, func(i, j int) bool {
		if !sels[i].SelectedAt.Equal(sels[j].SelectedAt) {
			return sels[i].SelectedAt.After(sels[j].SelectedAt)
		}
		return sels[i].ID > sels[j].ID
	})
	if filter.Limit > 0 && len(sels) > filter.Limit {
		sels = sels[:filter.Limit]
	}
	return sels, nil
}

func (repo *dutyRepository) HasAutoSelection(_ context.Context, autoKey string) (bool, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, sel := range repo.db.selections {
		if sel.AutoKey == autoKey {
			return true, nil
		}
	}
	return false, nil
}

func (repo *dutyRepository) UpdateSelectionEmail(_ context.Context, id, subject, body string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for i := range repo.db.selections {
		if repo.db.selections[i].ID == id {
			repo.db.selections[i].EmailSubject = subject
			repo.db.selections[i].EmailBody = body
			return nil
		}
	}
	return duty.ErrNotFound
}

func (repo *dutyRepository) DeleteAutoSelections(_ context.Context) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	kept := repo.db.selections[:0]
	var n int
	for _, sel := range repo.db.selections {
		if sel.Source == duty.SourceAuto {
			n++
			continue
		}
		kept = append(kept, sel)
	}
	repo.db.selections = kept
	return n, nil
}
