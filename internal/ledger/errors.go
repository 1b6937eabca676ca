package ledger

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
)

// ValidationError rejects a request before any state changes.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid food entry: " + e.Reason
}

// ConnectivityError means the store could not be reached.
type ConnectivityError struct {
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("store unreachable: %v", e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// PersistError means the store was reached but refused or failed the write.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist food entry: %v", e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Classify wraps err as a ConnectivityError or PersistError. Timeouts,
// refused or reset connections and transport failures are connectivity
// failures; everything else is a persist failure.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *ConnectivityError
	var pe *PersistError
	if errors.As(err, &ce) || errors.As(err, &pe) {
		return err
	}
	if IsConnectivity(err) {
		return &ConnectivityError{Err: err}
	}
	return &PersistError{Err: err}
}

// IsConnectivity reports whether err is a reachability failure.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConnectivityError
	if errors.As(err, &ce) {
		return true
	}
	var pe *PersistError
	if errors.As(err, &pe) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
