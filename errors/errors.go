package errors

import "fmt"

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrAuth                = fmt.Errorf("missing or invalid credential")
	ErrConnectionTimeout   = fmt.Errorf("connection timed out")
	ErrPersist             = fmt.Errorf("notification snapshot not persisted")
	ErrMalformedEvent      = fmt.Errorf("malformed inbound event")
	ErrUnknownEvent        = fmt.Errorf("unknown inbound event")
	ErrNotConnected        = fmt.Errorf("transport is not connected")
	ErrTransportClosed     = fmt.Errorf("transport closed")
	ErrNoPendingInvitation = fmt.Errorf("no invitation pending consent")
	ErrInvalidNotification = fmt.Errorf("invalid notification")
	ErrKeyNotFound         = fmt.Errorf("key not found")
	ErrDispatcherStopped   = fmt.Errorf("dispatcher stopped")
)
