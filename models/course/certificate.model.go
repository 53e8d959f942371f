package course

import "gorm.io/gorm"

// Certificate is an issued completion certificate. UUID is the public
// verification handle; Hash is a digest of (owner full name, course title)
// that a verifier must reproduce for a positive match.
type Certificate struct {
	gorm.Model
	Path          string `json:"path" gorm:"uniqueIndex;not null"`
	CourseTitle   string `json:"course_title"`
	OwnerFullName string `json:"owner_full_name"`
	UUID          string `json:"uuid" gorm:"uniqueIndex;not null"`
	Hash          string `json:"-" gorm:"not null"`
}
