// Package store isolates the shared key-value storage that several execution
// contexts (processes, tabs, workers) read and write without locking.
package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Key names are shared with the portal pages and must not change.
const (
	KeyAttendanceData       = "studentAttendanceData"
	KeyUserData             = "userData"
	KeyAttendanceStatistics = "attendanceStatistics"
	KeyCalculatedStatistics = "calculatedStatistics"
	KeyPreviousStatistics   = "previousStatistics"
)

// ChangeEvent is delivered to subscribers when another context writes or
// deletes a watched key.
type ChangeEvent struct {
	Key     string `json:"key"`
	Origin  string `json:"origin"`
	Deleted bool   `json:"deleted,omitempty"`
}

// ChangeFunc must return quickly: backends call it from their delivery goroutine.
type ChangeFunc func(ChangeEvent)

// Subscription is returned by OnChange. Close stops delivery.
type Subscription interface {
	Close() error
}

// Store is one execution context's view of the shared storage. Writes made
// through a Store are never reported back to that same Store's subscribers.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	OnChange(ctx context.Context, keys []string, fn ChangeFunc) (Subscription, error)
	Origin() string
}

// MalformedError is returned by GetJSON when a stored value is not valid JSON
// for the requested type.
type MalformedError struct {
	Key string
	Err error
}

func (e *MalformedError) Error() string {
	return "store: malformed value for " + e.Key + ": " + e.Err.Error()
}

// IsMalformed reports whether err (or its cause) is a *MalformedError.
func IsMalformed(err error) bool {
	_, ok := errors.Cause(err).(*MalformedError)
	return ok
}

// GetJSON decodes the value at key into v. ok is false when the key is missing.
func GetJSON(ctx context.Context, s Store, key string, v interface{}) (bool, error) {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return false, errors.Wrapf(err, "get %s", key)
	}
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return true, &MalformedError{Key: key, Err: err}
	}
	return true, nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	if err := s.Set(ctx, key, string(b)); err != nil {
		return errors.Wrapf(err, "set %s", key)
	}
	return nil
}

func watches(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
