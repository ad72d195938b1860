package emailsvc

import (
	"context"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"

	"github.com/trezcool/coffeeduty/core"
)

const defaultMaxTries = 4

type retryService struct {
	next     core.EmailService
	maxTries uint
	newBoff  func() backoff.BackOff
}

var _ core.EmailService = (*retryService)(nil)

// WithRetry retries transient failures of next with exponential backoff, within the
// deadline of the context passed to Send.
func WithRetry(next core.EmailService) core.EmailService {
	return &retryService{
		next:     next,
		maxTries: defaultMaxTries,
		newBoff: func() backoff.BackOff {
			expback := backoff.NewExponentialBackOff()
			expback.InitialInterval = 500 * time.Millisecond
			expback.MaxInterval = 5 * time.Second
			return expback
		},
	}
}

func (svc *retryService) Backend() string { return svc.next.Backend() }

func (svc *retryService) Send(ctx context.Context, msg *core.EmailMessage) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := svc.next.Send(ctx, msg)
		if err != nil && !isTransient(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	}, backoff.WithBackOff(svc.newBoff()), backoff.WithMaxTries(svc.maxTries))
	return err
}

// isTransient reports whether retrying err may succeed.
func isTransient(err error) bool {
	if errors.Is(err, ErrNotConfigured) || errors.Is(err, ErrNoRecipients) ||
		errors.Is(err, ErrNoContent) || errors.Is(err, core.ErrTemplateNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= http.StatusInternalServerError
	}
	return true
}
