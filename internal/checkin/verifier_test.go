package checkin

import (
	"context"
	"errors"
	"testing"
	"time"

	"studyhall/internal/storage"
)

var testNow = time.Date(2026, 3, 10, 10, 15, 0, 0, time.UTC)

type fakeStore struct {
	session    *storage.Session
	sessionErr error

	enrolled    bool
	enrolledErr error

	existing  *storage.AttendanceRecord
	recordErr error

	recordCalls int
}

func (f *fakeStore) GetSession(ctx context.Context, id int64) (*storage.Session, error) {
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	if f.session == nil || f.session.ID != id {
		return nil, nil
	}
	return f.session, nil
}

func (f *fakeStore) IsEnrolled(ctx context.Context, courseID int64, studentID int64) (bool, error) {
	return f.enrolled, f.enrolledErr
}

func (f *fakeStore) RecordAttendance(ctx context.Context, record storage.AttendanceRecord) (*storage.AttendanceRecord, bool, error) {
	f.recordCalls++
	if f.recordErr != nil {
		return nil, false, f.recordErr
	}
	if f.existing != nil {
		return f.existing, false, nil
	}
	stored := record
	return &stored, true, nil
}

func timePtr(t time.Time) *time.Time { return &t }

// openSession is open at testNow with no passcode and no enrollment check.
func openSession() *storage.Session {
	return &storage.Session{
		ID:           7,
		CourseID:     3,
		OpensAt:      testNow.Add(-10 * time.Minute),
		ClosesAt:     timePtr(testNow.Add(35 * time.Minute)),
		PasscodeMode: storage.PasscodeNone,
	}
}

func newTestVerifier(store Store) *Verifier {
	v := NewVerifier(store, 30)
	v.now = func() time.Time { return testNow }
	return v
}

func TestSubmit_OpenSession(t *testing.T) {
	store := &fakeStore{session: openSession()}
	v := newTestVerifier(store)

	res, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 42})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Duplicate {
		t.Errorf("first check-in flagged duplicate")
	}
	rec := res.Record
	if rec == nil {
		t.Fatalf("no record returned")
	}
	if rec.SessionID != 7 || rec.StudentID != 42 {
		t.Errorf("record = session %d student %d, want 7/42", rec.SessionID, rec.StudentID)
	}
	if !rec.CheckedInAt.Equal(testNow) {
		t.Errorf("CheckedInAt = %v, want clock time %v", rec.CheckedInAt, testNow)
	}
	if rec.Method != storage.MethodQR {
		t.Errorf("Method = %q, want default %q", rec.Method, storage.MethodQR)
	}
	if rec.ID == "" {
		t.Errorf("record has no id")
	}
}

func TestSubmit_SessionMissing(t *testing.T) {
	store := &fakeStore{}
	v := newTestVerifier(store)

	_, err := v.Submit(context.Background(), Submission{SessionID: 99, StudentID: 1})
	if !errors.Is(err, ErrSessionMissing) {
		t.Fatalf("err = %v, want ErrSessionMissing", err)
	}
	if store.recordCalls != 0 {
		t.Errorf("store was written on failed verification")
	}
}

func TestSubmit_PasscodeRequired(t *testing.T) {
	hash, err := HashPasscode("ABCD")
	if err != nil {
		t.Fatalf("HashPasscode: %v", err)
	}
	session := openSession()
	session.PasscodeMode = storage.PasscodeStatic
	session.PasscodeHash = &hash
	store := &fakeStore{session: session}
	v := newTestVerifier(store)

	_, err = v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1})
	if !errors.Is(err, ErrPasscodeRequired) {
		t.Fatalf("err = %v, want ErrPasscodeRequired", err)
	}
	if store.recordCalls != 0 {
		t.Errorf("store was written on failed verification")
	}
}

// A missing passcode is reported even when the session is also closed:
// payload validation runs before window checks.
func TestSubmit_PasscodeRequiredBeatsClosed(t *testing.T) {
	hash, _ := HashPasscode("ABCD")
	session := openSession()
	session.PasscodeMode = storage.PasscodeStatic
	session.PasscodeHash = &hash
	session.ClosesAt = timePtr(testNow.Add(-1 * time.Minute))
	v := newTestVerifier(&fakeStore{session: session})

	_, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1})
	if !errors.Is(err, ErrPasscodeRequired) {
		t.Fatalf("err = %v, want ErrPasscodeRequired", err)
	}
}

// A wrong passcode on a closed session reports closed: window checks run
// before the passcode is compared.
func TestSubmit_ClosedBeatsWrongPasscode(t *testing.T) {
	hash, _ := HashPasscode("ABCD")
	session := openSession()
	session.PasscodeMode = storage.PasscodeStatic
	session.PasscodeHash = &hash
	session.ClosesAt = timePtr(testNow.Add(-1 * time.Minute))
	v := newTestVerifier(&fakeStore{session: session})

	_, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1, Passcode: "WRONG"})
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("err = %v, want ErrSessionClosed", err)
	}
}

func TestSubmit_NotOpenYet(t *testing.T) {
	session := openSession()
	session.OpensAt = testNow.Add(5 * time.Minute)
	store := &fakeStore{session: session}
	v := newTestVerifier(store)

	_, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1})
	if !errors.Is(err, ErrSessionNotOpen) {
		t.Fatalf("err = %v, want ErrSessionNotOpen", err)
	}
	if store.recordCalls != 0 {
		t.Errorf("store was written on failed verification")
	}
}

func TestSubmit_AllowEarly(t *testing.T) {
	session := openSession()
	session.OpensAt = testNow.Add(5 * time.Minute)
	session.AllowEarly = true
	v := newTestVerifier(&fakeStore{session: session})

	if _, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1}); err != nil {
		t.Fatalf("early check-in with AllowEarly should pass, got %v", err)
	}
}

// The window is half-open: a submission at exactly ClosesAt is late.
func TestSubmit_AtExactClose(t *testing.T) {
	session := openSession()
	session.ClosesAt = timePtr(testNow)
	v := newTestVerifier(&fakeStore{session: session})

	_, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1})
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("err = %v, want ErrSessionClosed at the boundary", err)
	}
}

func TestSubmit_AtExactOpen(t *testing.T) {
	session := openSession()
	session.OpensAt = testNow
	v := newTestVerifier(&fakeStore{session: session})

	if _, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1}); err != nil {
		t.Fatalf("submission at exactly OpensAt should pass, got %v", err)
	}
}

// A session without a close time stays open indefinitely, even hours
// after it opened, until it is closed manually.
func TestSubmit_OpenEnded(t *testing.T) {
	session := openSession()
	session.ClosesAt = nil
	session.OpensAt = testNow.Add(-6 * time.Hour)
	store := &fakeStore{session: session}
	v := newTestVerifier(store)

	res, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1})
	if err != nil {
		t.Fatalf("open-ended session rejected check-in: %v", err)
	}
	if res.Record == nil {
		t.Fatalf("no record returned")
	}

	closed := testNow.Add(-1 * time.Minute)
	session.ClosedAt = &closed
	_, err = v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 2})
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("err = %v, want ErrSessionClosed after manual close", err)
	}
}

func TestSubmit_ManualClose(t *testing.T) {
	session := openSession()
	closed := testNow.Add(-2 * time.Minute)
	session.ClosedAt = &closed
	store := &fakeStore{session: session}
	v := newTestVerifier(store)

	_, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1})
	if !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("err = %v, want ErrSessionClosed after manual close", err)
	}
}

func TestSubmit_StaticPasscode(t *testing.T) {
	hash, err := HashPasscode("ABCD")
	if err != nil {
		t.Fatalf("HashPasscode: %v", err)
	}
	session := openSession()
	session.PasscodeMode = storage.PasscodeStatic
	session.PasscodeHash = &hash
	store := &fakeStore{session: session}
	v := newTestVerifier(store)

	if _, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1, Passcode: "ABCD"}); err != nil {
		t.Fatalf("correct passcode rejected: %v", err)
	}

	_, err = v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 2, Passcode: "WXYZ"})
	if !errors.Is(err, ErrPasscodeMismatch) {
		t.Fatalf("err = %v, want ErrPasscodeMismatch", err)
	}
	if store.recordCalls != 1 {
		t.Errorf("recordCalls = %d, want 1 (only the valid submission)", store.recordCalls)
	}
}

func TestSubmit_RotatingPasscode(t *testing.T) {
	secret, err := NewTOTPSecret("CS101")
	if err != nil {
		t.Fatalf("NewTOTPSecret: %v", err)
	}
	code, err := CurrentPasscode(secret, testNow, 30)
	if err != nil {
		t.Fatalf("CurrentPasscode: %v", err)
	}

	session := openSession()
	session.PasscodeMode = storage.PasscodeRotating
	session.TOTPSecret = &secret
	v := newTestVerifier(&fakeStore{session: session})

	if _, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1, Passcode: code}); err != nil {
		t.Fatalf("current rotating passcode rejected: %v", err)
	}

	_, err = v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 2, Passcode: "000000"})
	if !errors.Is(err, ErrPasscodeMismatch) {
		t.Fatalf("err = %v, want ErrPasscodeMismatch", err)
	}
}

// A code from the previous rotation period is still accepted via skew.
func TestSubmit_RotatingPasscodePreviousPeriod(t *testing.T) {
	secret, _ := NewTOTPSecret("CS101")
	code, err := CurrentPasscode(secret, testNow.Add(-30*time.Second), 30)
	if err != nil {
		t.Fatalf("CurrentPasscode: %v", err)
	}

	session := openSession()
	session.PasscodeMode = storage.PasscodeRotating
	session.TOTPSecret = &secret
	v := newTestVerifier(&fakeStore{session: session})

	if _, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1, Passcode: code}); err != nil {
		t.Fatalf("previous-period passcode rejected: %v", err)
	}
}

func TestSubmit_EnrollmentRequired(t *testing.T) {
	session := openSession()
	session.RequireEnrollment = true

	store := &fakeStore{session: session, enrolled: false}
	v := newTestVerifier(store)
	_, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1})
	if !errors.Is(err, ErrNotEnrolled) {
		t.Fatalf("err = %v, want ErrNotEnrolled", err)
	}
	if store.recordCalls != 0 {
		t.Errorf("store was written for an unenrolled student")
	}

	store.enrolled = true
	if _, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1}); err != nil {
		t.Fatalf("enrolled student rejected: %v", err)
	}
}

func TestSubmit_Duplicate(t *testing.T) {
	existing := &storage.AttendanceRecord{
		ID:          "a1b2",
		SessionID:   7,
		StudentID:   42,
		CheckedInAt: testNow.Add(-3 * time.Minute),
		Method:      storage.MethodQR,
	}
	store := &fakeStore{session: openSession(), existing: existing}
	v := newTestVerifier(store)

	res, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 42})
	if err != nil {
		t.Fatalf("duplicate submission must not error: %v", err)
	}
	if !res.Duplicate {
		t.Errorf("Duplicate = false, want true")
	}
	if res.Record.ID != "a1b2" {
		t.Errorf("duplicate must return the original record, got %q", res.Record.ID)
	}
	if !res.Record.CheckedInAt.Equal(existing.CheckedInAt) {
		t.Errorf("original check-in time must be preserved")
	}
}

func TestSubmit_StoreError(t *testing.T) {
	store := &fakeStore{session: openSession(), recordErr: errors.New("disk full")}
	v := newTestVerifier(store)

	_, err := v.Submit(context.Background(), Submission{SessionID: 7, StudentID: 1})
	if !errors.Is(err, ErrStore) {
		t.Fatalf("err = %v, want ErrStore", err)
	}
}

func TestSubmitScan(t *testing.T) {
	store := &fakeStore{session: openSession()}
	v := newTestVerifier(store)

	res, err := v.SubmitScan(context.Background(), `{"sessionId":7}`, 42)
	if err != nil {
		t.Fatalf("SubmitScan: %v", err)
	}
	if res.Record.SessionID != 7 {
		t.Errorf("scan targeted session %d, want 7", res.Record.SessionID)
	}

	_, err = v.SubmitScan(context.Background(), "not a code", 42)
	if !errors.Is(err, ErrMalformedCode) {
		t.Fatalf("err = %v, want ErrMalformedCode", err)
	}
	if store.recordCalls != 1 {
		t.Errorf("malformed scan reached the store")
	}
}
