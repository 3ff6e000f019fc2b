package lesson

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrLessonNotFound is returned when a lesson doesn't exist.
	ErrLessonNotFound = errors.New("lesson not found")
	// ErrLessonFull is returned when a lesson has no free places.
	ErrLessonFull = errors.New("lesson is full")
	// ErrAlreadyEnrolled is returned on repeat enrollment.
	ErrAlreadyEnrolled = errors.New("already enrolled")
)

// Repository defines lesson data access.
type Repository interface {
	Create(ctx context.Context, lesson *Lesson) error
	GetByID(ctx context.Context, id uuid.UUID) (*Lesson, error)
	List(ctx context.Context, instrument string, offset, limit int) ([]*Lesson, int64, error)
	Update(ctx context.Context, lesson *Lesson) error
	Delete(ctx context.Context, id uuid.UUID) error

	Enroll(ctx context.Context, lessonID, userID uuid.UUID) (*Enrollment, error)
	ListEnrollments(ctx context.Context, userID uuid.UUID) ([]*Enrollment, error)
	CountEnrollments(ctx context.Context, lessonID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new lesson repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, lesson *Lesson) error {
	if err := r.db.WithContext(ctx).Create(lesson).Error; err != nil {
		return fmt.Errorf("create lesson: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Lesson, error) {
	var lesson Lesson
	err := r.db.WithContext(ctx).First(&lesson, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLessonNotFound
		}
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	return &lesson, nil
}

func (r *repository) List(ctx context.Context, instrument string, offset, limit int) ([]*Lesson, int64, error) {
	query := r.db.WithContext(ctx).Model(&Lesson{})
	if instrument != "" {
		query = query.Where("instrument = ?", instrument)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count lessons: %w", err)
	}

	var lessons []*Lesson
	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&lessons).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list lessons: %w", err)
	}
	return lessons, total, nil
}

func (r *repository) Update(ctx context.Context, lesson *Lesson) error {
	if err := r.db.WithContext(ctx).Save(lesson).Error; err != nil {
		return fmt.Errorf("update lesson: %w", err)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Lesson{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete lesson: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrLessonNotFound
	}
	return nil
}

// Enroll reserves a place in a lesson. The lesson row is locked for the
// capacity check so concurrent enrollments can't oversubscribe.
func (r *repository) Enroll(ctx context.Context, lessonID, userID uuid.UUID) (*Enrollment, error) {
	enrollment := &Enrollment{LessonID: lessonID, UserID: userID}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var lesson Lesson
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&lesson, "id = ?", lessonID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLessonNotFound
			}
			return fmt.Errorf("lock lesson: %w", err)
		}

		var existing int64
		if err := tx.Model(&Enrollment{}).
			Where("lesson_id = ? AND user_id = ?", lessonID, userID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("check enrollment: %w", err)
		}
		if existing > 0 {
			return ErrAlreadyEnrolled
		}

		var count int64
		if err := tx.Model(&Enrollment{}).
			Where("lesson_id = ?", lessonID).
			Count(&count).Error; err != nil {
			return fmt.Errorf("count enrollments: %w", err)
		}
		if count >= int64(lesson.Capacity) {
			return ErrLessonFull
		}

		return tx.Create(enrollment).Error
	})
	if err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (r *repository) ListEnrollments(ctx context.Context, userID uuid.UUID) ([]*Enrollment, error) {
	var enrollments []*Enrollment
	err := r.db.WithContext(ctx).
		Preload("Lesson").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&enrollments).Error
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

func (r *repository) CountEnrollments(ctx context.Context, lessonID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Enrollment{}).
		Where("lesson_id = ?", lessonID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}
