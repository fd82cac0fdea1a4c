package roster

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"studyhall/internal/storage"
)

// Store is the slice of the storage provider the importer needs.
type Store interface {
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
	CreateUser(ctx context.Context, user storage.User) (int64, error)
	CreateEnrollment(ctx context.Context, enrollment storage.Enrollment) error
}

// ImportResult tallies one roster import.
type ImportResult struct {
	Enrolled int // rows enrolled on the course
	Created  int // user accounts created along the way
	Skipped  int // rows not enrolled in the export
}

type Importer struct {
	store  Store
	logger *slog.Logger

	now func() time.Time
}

func NewImporter(store Store) *Importer {
	return &Importer{
		store:  store,
		logger: slog.With("component", "roster"),
		now:    time.Now,
	}
}

// ImportFile parses a roster export and enrolls its students on the course.
func (im *Importer) ImportFile(ctx context.Context, courseID int64, path string) (*ImportResult, error) {
	rows, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return im.Import(ctx, courseID, rows)
}

// Import enrolls roster rows on a course. Students without an account get
// one created with a student role. Rows whose enrolment status is not
// active are skipped, and re-running an import is safe.
func (im *Importer) Import(ctx context.Context, courseID int64, rows []Row) (*ImportResult, error) {
	result := &ImportResult{}

	for _, row := range rows {
		if !row.Active {
			result.Skipped++
			continue
		}

		user, err := im.store.GetUserByEmail(ctx, row.Email)
		if err != nil {
			return result, fmt.Errorf("failed to look up %s: %w", row.Email, err)
		}

		if user == nil {
			id, err := im.store.CreateUser(ctx, storage.User{
				Email:     row.Email,
				Name:      row.Name,
				Role:      storage.RoleStudent,
				CreatedAt: im.now(),
			})
			if err != nil {
				return result, fmt.Errorf("failed to create user %s: %w", row.Email, err)
			}
			user = &storage.User{ID: id}
			result.Created++
		}

		err = im.store.CreateEnrollment(ctx, storage.Enrollment{
			CourseID:  courseID,
			StudentID: user.ID,
			StudentNo: row.StudentNo,
			CreatedAt: im.now(),
		})
		if err != nil {
			return result, fmt.Errorf("failed to enroll %s: %w", row.Email, err)
		}
		result.Enrolled++
	}

	im.logger.Info("Roster imported", "course", courseID,
		"enrolled", result.Enrolled, "created", result.Created, "skipped", result.Skipped)

	return result, nil
}
