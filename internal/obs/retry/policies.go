package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type permanent struct{ err error }

func (p permanent) Error() string { return p.err.Error() }
func (p permanent) Unwrap() error { return p.err }

// Permanent marks err as not worth another attempt.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err: err}
}

func IsPermanent(err error) bool {
	var p permanent
	return errors.As(err, &p)
}

func transient(err error) bool {
	return err != nil && !IsPermanent(err) && !errors.Is(err, context.Canceled)
}

// PublishPolicy is used by the outbox when handing reports to Kafka.
func PublishPolicy(log *zap.Logger) Policy {
	return Policy{
		Name:      "outbox_publish",
		Attempts:  6,
		Backoff:   ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		Retryable: transient,
		OnAttempt: logAttempt(log, "outbox retry"),
		OnExhaust: logExhaust(log, "outbox retries exhausted"),
	}
}

// SourcePolicy is used by result sources for upstream HTTP calls.
func SourcePolicy(name string, attempts int, log *zap.Logger) Policy {
	return Policy{
		Name:      name,
		Attempts:  attempts,
		Backoff:   ExpoJitter{Base: 500 * time.Millisecond, Max: 5 * time.Second, Jitter: 0.2},
		Retryable: transient,
		OnAttempt: logAttempt(log, "source retry"),
	}
}

func logAttempt(log *zap.Logger, msg string) func(int, error) {
	return func(i int, err error) {
		if log != nil {
			log.Warn(msg, zap.Int("attempt", i+1), zap.Error(err))
		}
	}
}

func logExhaust(log *zap.Logger, msg string) func(error) {
	return func(err error) {
		if log != nil && !errors.Is(err, context.Canceled) {
			log.Error(msg, zap.Error(err))
		}
	}
}
