package roster

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"studyhall/internal/storage"
)

const rosterEN = "STUDENT NUMBER\tNAME\tPRIMARY E-MAIL\tENROLMENT STATUS\n" +
	"012345\tAda Lovelace\tada@example.edu\tEnrolled\n" +
	"023456\tAlan Turing\talan@example.edu\tEnrolled\n" +
	"034567\tGrace Hopper\tgrace@example.edu\tCancelled\n"

const rosterFI = "OPISKELIJANUMERO\tNIMI\tENSISIJAINEN SÄHKÖPOSTI\tILMOITTAUTUMISEN TILA\n" +
	"045678\tLinus Torvalds\tlinus@example.edu\tVahvistettu\n"

func TestParse_UTF8(t *testing.T) {
	rows, err := Parse(strings.NewReader(rosterEN))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if rows[0].Email != "ada@example.edu" {
		t.Errorf("expected ada@example.edu, got %s", rows[0].Email)
	}
	if rows[0].StudentNo != "012345" {
		t.Errorf("expected student number 012345, got %s", rows[0].StudentNo)
	}
	if rows[0].Name != "Ada Lovelace" {
		t.Errorf("expected name Ada Lovelace, got %s", rows[0].Name)
	}
	if !rows[0].Active {
		t.Error("expected ada to be active")
	}
	if rows[2].Active {
		t.Error("expected grace to be inactive")
	}
}

func TestParse_UTF16WithBOM(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	encoded, _, err := transform.String(enc, rosterEN)
	if err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}

	rows, err := Parse(strings.NewReader(encoded))
	if err != nil {
		t.Fatalf("Parse failed on UTF-16 input: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[1].Email != "alan@example.edu" {
		t.Errorf("expected alan@example.edu, got %s", rows[1].Email)
	}
}

func TestParse_FinnishHeaders(t *testing.T) {
	rows, err := Parse(strings.NewReader(rosterFI))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Email != "linus@example.edu" {
		t.Errorf("expected linus@example.edu, got %s", rows[0].Email)
	}
	if !rows[0].Active {
		t.Error("expected Vahvistettu row to be active")
	}
}

func TestParse_MissingFields(t *testing.T) {
	_, err := Parse(strings.NewReader("FOO\tBAR\nbaz\tqux\n"))
	if err == nil {
		t.Fatal("expected error for headers with no known fields")
	}
}

func TestParse_SkipsEmptyEmail(t *testing.T) {
	input := "PRIMARY E-MAIL\tENROLMENT STATUS\n" +
		"\tEnrolled\n" +
		"ada@example.edu\tEnrolled\n"

	rows, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.csv")

	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	encoded, _, err := transform.String(enc, rosterEN)
	if err != nil {
		t.Fatalf("failed to encode fixture: %v", err)
	}
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	rows, err := ParseFile(path)
	if err != nil {
		t.Fatalf("ParseFile failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.csv", "b.CSV", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	files, err := ListFiles(dir)
	if err != nil {
		t.Fatalf("ListFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 csv files, got %d: %v", len(files), files)
	}
}

type fakeStore struct {
	users       map[string]*storage.User
	enrollments []storage.Enrollment
	nextID      int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*storage.User), nextID: 1}
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*storage.User, error) {
	return f.users[email], nil
}

func (f *fakeStore) CreateUser(_ context.Context, user storage.User) (int64, error) {
	user.ID = f.nextID
	f.nextID++
	f.users[user.Email] = &user
	return user.ID, nil
}

func (f *fakeStore) CreateEnrollment(_ context.Context, enrollment storage.Enrollment) error {
	for _, e := range f.enrollments {
		if e.CourseID == enrollment.CourseID && e.StudentID == enrollment.StudentID {
			return nil
		}
	}
	f.enrollments = append(f.enrollments, enrollment)
	return nil
}

func TestImport(t *testing.T) {
	store := newFakeStore()
	store.users["alan@example.edu"] = &storage.User{ID: 42, Email: "alan@example.edu"}

	rows, err := Parse(strings.NewReader(rosterEN))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	im := NewImporter(store)
	im.now = func() time.Time { return time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC) }

	result, err := im.Import(context.Background(), 7, rows)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if result.Enrolled != 2 {
		t.Errorf("expected 2 enrolled, got %d", result.Enrolled)
	}
	if result.Created != 1 {
		t.Errorf("expected 1 created, got %d", result.Created)
	}
	if result.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", result.Skipped)
	}

	if len(store.enrollments) != 2 {
		t.Fatalf("expected 2 enrollments in store, got %d", len(store.enrollments))
	}
	if store.enrollments[0].StudentNo != "012345" {
		t.Errorf("expected student number carried to enrollment, got %s", store.enrollments[0].StudentNo)
	}
	if store.enrollments[1].StudentID != 42 {
		t.Errorf("expected existing user id 42, got %d", store.enrollments[1].StudentID)
	}
}

func TestImport_Rerun(t *testing.T) {
	store := newFakeStore()
	rows, err := Parse(strings.NewReader(rosterEN))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	im := NewImporter(store)
	if _, err := im.Import(context.Background(), 7, rows); err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	result, err := im.Import(context.Background(), 7, rows)
	if err != nil {
		t.Fatalf("second import failed: %v", err)
	}

	if result.Created != 0 {
		t.Errorf("expected no users created on rerun, got %d", result.Created)
	}
	if len(store.enrollments) != 2 {
		t.Errorf("expected 2 enrollments after rerun, got %d", len(store.enrollments))
	}
}
