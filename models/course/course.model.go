package course

import "gorm.io/gorm"

const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
	StatusArchived  = "ARCHIVED"

	SandboxNone = "NONE"
	SandboxK8s  = "K8S"
)

// statusRank orders course statuses so "published or later" checks do not
// depend on string comparison.
var statusRank = map[string]int{
	StatusDraft:     0,
	StatusPublished: 1,
	StatusArchived:  2,
}

// Course represents a learning course
type Course struct {
	gorm.Model
	Title       string `json:"title"`
	Description string `json:"description"`
	Author      string `json:"author"`
	Status      string `json:"status" gorm:"default:'DRAFT'"` // DRAFT, PUBLISHED, ARCHIVED
	// IsMentored marks a course sold individually (possibly in installments)
	// instead of being covered by the PRO plan.
	IsMentored   bool   `json:"is_mentored" gorm:"default:false"`
	SandboxType  string `json:"sandbox_type" gorm:"default:'NONE'"` // NONE, K8S
	Tags         string `json:"tags" gorm:"default:''"`             // comma separated
	ThumbnailURL string `json:"thumbnail_url"`
	IsDeleted    bool   `gorm:"default:false"`

	// Derived aggregates, recomputed at read time and never trusted from storage.
	EnrolledCount int64 `json:"enrolled_count" gorm:"-"`
	LessonsCount  int64 `json:"lessons_count" gorm:"-"`
}

// IsPublished reports whether the course reached the PUBLISHED status or later.
func (c *Course) IsPublished() bool {
	return statusRank[c.Status] >= statusRank[StatusPublished]
}

func (c *Course) NeedsSandbox() bool {
	return c.SandboxType != "" && c.SandboxType != SandboxNone
}

// Chapter groups lessons inside a course
type Chapter struct {
	gorm.Model
	CourseID  uint   `json:"course_id" gorm:"index;not null"`
	Title     string `json:"title"`
	Position  int    `json:"position" gorm:"default:0"`
	IsDeleted bool   `gorm:"default:false"`
}

// Lesson is a single unit of course content
type Lesson struct {
	gorm.Model
	ChapterID uint   `json:"chapter_id" gorm:"index;not null"`
	Title     string `json:"title"`
	Position  int    `json:"position" gorm:"default:0"`
	IsDeleted bool   `gorm:"default:false"`
}

// Resource is supplementary material attached to a course. A resource of type
// "course" carries the id of the course it links to; holding an active
// enrollment in the owning course grants access to the linked one.
type Resource struct {
	gorm.Model
	CourseID       uint   `json:"course_id" gorm:"index;not null"`
	Type           string `json:"type" gorm:"default:''"` // e.g. course, article, download
	Title          string `json:"title"`
	URL            string `json:"url"`
	LinkedCourseID uint   `json:"linked_course_id" gorm:"default:0"`
	IsDeleted      bool   `gorm:"default:false"`
}
