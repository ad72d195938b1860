package sqlxrepos

import (
	"context"
	"time"


	"github.com/trezcool/coffeeduty/core"
	"github.com/trezcool/coffeeduty/core/settings"
)

type settingsStore struct {
	db      core.DBExecutor
	nowFunc func() time.Time
}

var _ settings.Store = (*settingsStore)(nil) // interface compliance check

func NewSettingsStore(db core.DBExecutor) settings.Store {
	return &settingsStore{db: db, nowFunc: time.Now}
}

func (s *settingsStore) Get(ctx context.Context, key string) (string, error) {
	var val string
	q := s.db.Rebind(`SELECT value FROM settings WHERE key = ?`)
	if err := s.db.GetContext(ctx, &val, q, key); err != nil {
		return "", trapNoRowsErr(err, settings.ErrNotFound, "getting setting "+key)
	}
	return val, nil
}

func (s *settingsStore) Set(ctx context.Context, key, value string) error {
	q := s.db.Rebind(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	_, err := s.db.ExecContext(ctx, q, key, value, s.nowFunc().UTC())
	return wrapErr(err, "saving setting "+key)
}

func (s *settingsStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM settings WHERE key = ?`), key)
	return wrapErr(err, "deleting setting "+key)
}
