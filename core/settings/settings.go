// Package settings is the key/value store for runtime flags and opaque credential blobs.
package settings

import (
	"context"
	"strconv"

	"github.com/pkg/errors"
)

// keys
const (
	KeyAutomationEnabled = "automation_enabled"
	KeyGmailToken        = "gmail_token"
)

var ErrNotFound = errors.New("setting not found")

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (svc *Service) Store() Store { return svc.store }

// AutomationEnabled defaults to true when the flag was never set.
func (svc *Service) AutomationEnabled(ctx context.Context) (bool, error) {
	val, err := svc.store.Get(ctx, KeyAutomationEnabled)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	} else if err != nil {
		return false, errors.Wrap(err, "reading automation flag")
	}
	enabled, err := strconv.ParseBool(val)
	if err != nil {
		return false, errors.Wrapf(err, "parsing automation flag %q", val)
	}
	return enabled, nil
}

func (svc *Service) SetAutomation(ctx context.Context, enabled bool) error {
	return errors.Wrap(
		svc.store.Set(ctx, KeyAutomationEnabled, strconv.FormatBool(enabled)),
		"saving automation flag",
	)
}
