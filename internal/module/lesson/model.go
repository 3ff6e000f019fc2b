package lesson

import (
	"time"

	"github.com/google/uuid"
)

// Lesson is a music lesson offering.
// Price is stored in paisa.
type Lesson struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Title       string    `json:"title" gorm:"not null"`
	Instrument  string    `json:"instrument" gorm:"not null;index"`
	Instructor  string    `json:"instructor" gorm:"not null"`
	Description string    `json:"description,omitempty"`
	PricePaisa  int64     `json:"price_paisa" gorm:"not null;check:price_paisa >= 0"`
	Schedule    string    `json:"schedule,omitempty"` // e.g. "Sundays 10:00-11:00"
	Capacity    int       `json:"capacity" gorm:"not null;default:10"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Lesson) TableName() string {
	return "lessons"
}

// Enrollment records a user's place in a lesson, unique per user and lesson.
type Enrollment struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	LessonID  uuid.UUID `json:"lesson_id" gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_lesson_user"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_enrollments_lesson_user"`
	Lesson    *Lesson   `json:"lesson,omitempty" gorm:"foreignKey:LessonID"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (Enrollment) TableName() string {
	return "lesson_enrollments"
}
