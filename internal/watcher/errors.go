package watcher

import (
	"errors"
	"fmt"
)

// FetchError reports a failed page fetch: transport failure, malformed URL
// or a status other than 200. StatusCode is zero when no response arrived.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: HTTP %d: %v", e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// StoreError reports a failed read or write against the state store.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("state store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NotifyError reports a failed push delivery.
type NotifyError struct {
	Sink string
	Err  error
}

func (e *NotifyError) Error() string {
	if e.Sink == "" {
		return fmt.Sprintf("notify: %v", e.Err)
	}
	return fmt.Sprintf("notify via %s: %v", e.Sink, e.Err)
}

func (e *NotifyError) Unwrap() error { return e.Err }

func asFetchError(url string, err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{URL: url, Err: err}
}

func asStoreError(op, key string, err error) error {
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Key: key, Err: err}
}

func asNotifyError(err error) error {
	var ne *NotifyError
	if errors.As(err, &ne) {
		return err
	}
	return &NotifyError{Err: err}
}
