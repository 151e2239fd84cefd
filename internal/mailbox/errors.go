package mailbox

import (
	"errors"
	"fmt"
)

// ErrConnection covers auth and network failures against the mail host.
// Transient: surfaced to the caller with a retry affordance, never retried
// here.
var ErrConnection = errors.New("mailbox connection failed")

// ErrSendRejected means the submission host refused the message permanently
// (invalid recipient, policy rejection).
var ErrSendRejected = errors.New("send rejected")

// ParseError reports one malformed message. The fetch loop skips the message
// and continues; the batch is never aborted for a single bad message.
type ParseError struct {
	UID uint32
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse message uid %d: %v", e.UID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
