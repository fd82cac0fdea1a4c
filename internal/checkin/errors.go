package checkin

import (
	"errors"
	"fmt"
)

var (
	ErrSessionMissing   = errors.New("session not found")
	ErrSessionNotOpen   = errors.New("session is not open yet")
	ErrSessionClosed    = errors.New("session is closed")
	ErrPasscodeRequired = errors.New("passcode is required")
	ErrPasscodeMismatch = errors.New("passcode does not match")
	ErrNotEnrolled      = errors.New("student is not enrolled in this course")
	ErrWrongSession     = errors.New("code is for a different session")
	ErrMalformedCode    = errors.New("scanned code is not a valid check-in code")
	ErrStore            = errors.New("attendance store failure")
)

// WrongSessionError reports a code scanned against a different session than
// the client was pointed at. Unwraps to ErrWrongSession.
type WrongSessionError struct {
	Scanned int64 // session the code encodes
	Target  int64 // session the client expected
}

func (e *WrongSessionError) Error() string {
	return fmt.Sprintf("code is for session %d, not session %d", e.Scanned, e.Target)
}

func (e *WrongSessionError) Unwrap() error {
	return ErrWrongSession
}
