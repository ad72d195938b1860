package inmemdb

import (
	"context"

	"github.com/trezcool/coffeeduty/core/settings"
)

type settingsStore struct {
	db *DB
}

var _ settings.Store = (*settingsStore)(nil)

func NewSettingsStore(db *DB) settings.Store {
	return &settingsStore{db: db}
}

func (s *settingsStore) Get(_ context.Context, key string) (string, error) {
	s.db.mutex.RLock()
	defer s.db.mutex.RUnlock()

	if val, ok := s.db.settings[key]; ok {
		return val, nil
	}
	return "", settings.ErrNotFound
}

func (s *settingsStore) Set(_ context.Context, key, value string) error {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	s.db.settings[key] = value
	return nil
}

func (s *settingsStore) Delete(_ context.Context, key string) error {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	delete(s.db.settings, key)
	return nil
}
