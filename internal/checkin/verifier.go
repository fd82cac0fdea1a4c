package checkin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"studyhall/internal/storage"
)

// Store is the slice of the storage provider the verifier needs.
type Store interface {
	GetSession(ctx context.Context, id int64) (*storage.Session, error)
	IsEnrolled(ctx context.Context, courseID int64, studentID int64) (bool, error)
	RecordAttendance(ctx context.Context, record storage.AttendanceRecord) (*storage.AttendanceRecord, bool, error)
}

type Submission struct {
	SessionID int64
	StudentID int64
	Passcode  string
	Method    storage.CheckinMethod
}

type Result struct {
	Record    *storage.AttendanceRecord
	Duplicate bool // the student was already checked in
}

// Verifier validates check-in submissions against a session's window and
// passcode before recording them.
type Verifier struct {
	store      Store
	logger     *slog.Logger
	totpPeriod uint

	now func() time.Time
}

func NewVerifier(store Store, totpPeriod uint) *Verifier {
	return &Verifier{
		store:      store,
		logger:     slog.With("component", "checkin"),
		totpPeriod: totpPeriod,
		now:        time.Now,
	}
}

// Submit runs the full verification sequence. Checks run in a fixed order:
// session lookup, payload validation, closed, not-yet-open, passcode,
// enrollment. Only a submission passing all of them reaches the store, and
// a repeat submission returns the original record with Duplicate set.
//
// The window is [OpensAt, ClosesAt): a submission at exactly ClosesAt is
// rejected. A session with no ClosesAt stays open until closed manually.
func (v *Verifier) Submit(ctx context.Context, sub Submission) (*Result, error) {
	session, err := v.store.GetSession(ctx, sub.SessionID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}
	if session == nil {
		return nil, ErrSessionMissing
	}

	if session.PasscodeMode != storage.PasscodeNone && sub.Passcode == "" {
		return nil, ErrPasscodeRequired
	}

	now := v.now()
	if session.ClosedAt != nil || (session.ClosesAt != nil && !now.Before(*session.ClosesAt)) {
		return nil, ErrSessionClosed
	}
	if now.Before(session.OpensAt) && !session.AllowEarly {
		return nil, ErrSessionNotOpen
	}

	if err := v.verifyPasscode(session, sub.Passcode, now); err != nil {
		return nil, err
	}

	if session.RequireEnrollment {
		enrolled, err := v.store.IsEnrolled(ctx, session.CourseID, sub.StudentID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStore, err)
		}
		if !enrolled {
			return nil, ErrNotEnrolled
		}
	}

	method := sub.Method
	if method == "" {
		method = storage.MethodQR
	}

	record := storage.AttendanceRecord{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		StudentID:   sub.StudentID,
		CheckedInAt: now,
		Method:      method,
	}

	stored, created, err := v.store.RecordAttendance(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStore, err)
	}

	if !created {
		v.logger.Debug("Duplicate check-in", "session", session.ID, "student", sub.StudentID)
	}

	return &Result{Record: stored, Duplicate: !created}, nil
}

// SubmitScan parses raw scanner input and submits it.
func (v *Verifier) SubmitScan(ctx context.Context, raw string, studentID int64) (*Result, error) {
	code := ParseQRCode(raw)
	if code == nil {
		return nil, ErrMalformedCode
	}
	return v.Submit(ctx, Submission{
		SessionID: code.SessionID,
		StudentID: studentID,
		Passcode:  code.Passcode,
		Method:    storage.MethodQR,
	})
}

func (v *Verifier) verifyPasscode(session *storage.Session, passcode string, now time.Time) error {
	switch session.PasscodeMode {
	case storage.PasscodeNone:
		return nil
	case storage.PasscodeStatic:
		if session.PasscodeHash == nil || !verifyStaticPasscode(*session.PasscodeHash, passcode) {
			return ErrPasscodeMismatch
		}
	case storage.PasscodeRotating:
		if session.TOTPSecret == nil || !verifyRotatingPasscode(*session.TOTPSecret, passcode, now, v.totpPeriod) {
			return ErrPasscodeMismatch
		}
	default:
		return fmt.Errorf("unknown passcode mode %q", session.PasscodeMode)
	}
	return nil
}
