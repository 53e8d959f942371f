package models

import "gorm.io/gorm"

// Company represents an organization holding course licenses for its members
type Company struct {
	gorm.Model
	Name      string `json:"name" gorm:"not null"`
	IsDeleted bool   `gorm:"default:false"`
}

// CompanyUser links a user to a company
type CompanyUser struct {
	gorm.Model
	CompanyID uint `json:"company_id" gorm:"index;not null"`
	UserID    uint `json:"user_id" gorm:"index;not null"`
	IsDeleted bool `gorm:"default:false"`
}

// CompanyCourse is a course license held by a company. Enrollments granted
// through it reference its id and are suspended in bulk when it is deactivated.
type CompanyCourse struct {
	gorm.Model
	CompanyID uint `json:"company_id" gorm:"index;not null"`
	CourseID  uint `json:"course_id" gorm:"index;not null"`
	Active    bool `json:"active" gorm:"default:true"`
	IsDeleted bool `gorm:"default:false"`
}
