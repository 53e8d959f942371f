package course

import (
	"time"

	"gorm.io/gorm"
)

// Enrollment is a user's access record for a course. There is at most one row
// per (user, course): suspending and re-enrolling reuse the same row.
type Enrollment struct {
	gorm.Model
	UserID   uint `json:"user_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID uint `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	Active   bool `json:"active" gorm:"default:true"`
	// Completed is set once every lesson of the course is done.
	Completed bool `json:"completed" gorm:"default:false"`
	// ForLife access survives plan changes. Fixed at creation time for
	// non-company enrollments, never recomputed on resume.
	ForLife     bool       `json:"for_life" gorm:"default:false"`
	EnrolledAt  time.Time  `json:"enrolled_at"`
	SuspendedAt *time.Time `json:"suspended_at"`
	// CompanyCourseID is 0 unless the enrollment was granted through a
	// company course license.
	CompanyCourseID uint   `json:"company_course_id" gorm:"index;default:0"`
	CertificatePath string `json:"certificate_path" gorm:"default:''"`
	CertificateHash string `json:"-" gorm:"default:''"`
	CertificateUUID string `json:"certificate_uuid" gorm:"default:''"`

	CompletedLessons []CompletedLesson `json:"completed_lessons" gorm:"foreignKey:EnrollmentID"`

	// Course is attached on responses with its derived counts recomputed.
	Course *Course `json:"course,omitempty" gorm:"-"`
}

// CompletedLesson marks a single lesson as done within an enrollment
type CompletedLesson struct {
	gorm.Model
	EnrollmentID uint      `json:"enrollment_id" gorm:"not null;uniqueIndex:idx_completed_enrollment_lesson"`
	LessonID     uint      `json:"lesson_id" gorm:"not null;uniqueIndex:idx_completed_enrollment_lesson"`
	CompletedAt  time.Time `json:"completed_at"`
}
