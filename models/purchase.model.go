package models

import "gorm.io/gorm"

// Purchase records a one-off payment of a course by a user. It is created when
// the provider confirms a checkout and removed again when the enrollment it
// backs is suspended. Uniqueness per (user, course) is enforced by an
// existence check rather than an index so a re-purchase after cleanup works.
type Purchase struct {
	gorm.Model
	UserID   uint `json:"user_id" gorm:"index;not null"`
	CourseID uint `json:"course_id" gorm:"index;not null"`
}
