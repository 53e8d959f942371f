package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"learnhub/models"
	courseModels "learnhub/models/course"

	"gorm.io/gorm"
)

// Enrollment list filters
const (
	FilterInactive  = "INACTIVE"
	FilterCompleted = "COMPLETED"
)

// EnrollmentService orchestrates the access lifecycle of a user on a course:
// enroll, suspend, resume, lesson completion and the eligibility rules that
// gate them.
type EnrollmentService struct {
	db      *gorm.DB
	sandbox *SandboxDispatcher
	mailer  Mailer
}

func NewEnrollmentService(db *gorm.DB, sandbox *SandboxDispatcher, mailer Mailer) *EnrollmentService {
	return &EnrollmentService{db: db, sandbox: sandbox, mailer: mailer}
}

// Enroll grants the user access to the course. Enrolling an already active
// learner is a no-op returning the existing row; a previously suspended row is
// reactivated in place so (user, course) never gets a second row.
func (s *EnrollmentService) Enroll(userID, courseID, companyID uint, fromAdmin bool) (*courseModels.Enrollment, error) {
	var user models.User
	if err := s.db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}

	var course courseModels.Course
	if err := s.db.Where("id = ? AND is_deleted = ?", courseID, false).First(&course).Error; err != nil {
		return nil, fmt.Errorf("course %d: %w", courseID, ErrNotFound)
	}
	if !course.IsPublished() {
		return nil, fmt.Errorf("course %d is not published: %w", courseID, ErrForbidden)
	}

	var companyCourseID uint
	if companyID > 0 {
		link, err := s.verifyCompanyAccess(userID, courseID, companyID)
		if err != nil {
			return nil, err
		}
		companyCourseID = link.ID
	}

	var existing courseModels.Enrollment
	err := s.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&existing).Error
	if err == nil && existing.Active {
		s.attachCourse(&existing, &course)
		return &existing, nil
	}

	// The eligibility gate applies to self-service individual enrollments only.
	if !fromAdmin && companyID == 0 {
		ok, gateErr := s.hasFreeAccess(&user, &course)
		if gateErr != nil {
			return nil, gateErr
		}
		if !ok {
			var purchases int64
			s.db.Model(&models.Purchase{}).
				Where("user_id = ? AND course_id = ?", userID, courseID).
				Count(&purchases)
			if purchases == 0 {
				return nil, fmt.Errorf("user %d has no access to course %d: %w", userID, courseID, ErrForbidden)
			}
		}
	}

	var enrollment *courseModels.Enrollment
	if err == nil {
		// Suspended row exists: reactivate in place, keep EnrolledAt and
		// ForLife as they were.
		existing.Active = true
		existing.SuspendedAt = nil
		existing.CompanyCourseID = companyCourseID
		if saveErr := s.db.Save(&existing).Error; saveErr != nil {
			return nil, fmt.Errorf("reactivating enrollment %d: %v", existing.ID, saveErr)
		}
		enrollment = &existing
	} else if errors.Is(err, gorm.ErrRecordNotFound) {
		enrollment = &courseModels.Enrollment{
			UserID:          userID,
			CourseID:        courseID,
			Active:          true,
			EnrolledAt:      time.Now(),
			CompanyCourseID: companyCourseID,
		}
		if companyCourseID == 0 {
			enrollment.ForLife = !user.IsPro() || course.IsMentored
		}
		if createErr := s.db.Create(enrollment).Error; createErr != nil {
			// A concurrent enroll may have won the unique (user, course)
			// constraint; surface the winner instead of failing.
			var winner courseModels.Enrollment
			if s.db.Where("user_id = ? AND course_id = ? AND active = ?", userID, courseID, true).
				First(&winner).Error == nil {
				s.attachCourse(&winner, &course)
				return &winner, nil
			}
			return nil, fmt.Errorf("creating enrollment: %v", createErr)
		}
	} else {
		return nil, fmt.Errorf("loading enrollment: %v", err)
	}

	s.attachCourse(enrollment, &course)

	if course.NeedsSandbox() {
		s.sandbox.SubmitInitialize(userID, course.SandboxType)
	}

	if mailErr := s.mailer.SendEnrollmentConfirmation(user.Email, user.FullName(), course.Title); mailErr != nil {
		log.Printf("[ENROLLMENT] Failed to send confirmation to %s: %v", user.Email, mailErr)
	}

	return enrollment, nil
}

// verifyCompanyAccess checks the company, the company-user link and an active
// company-course license. Any missing piece fails closed.
func (s *EnrollmentService) verifyCompanyAccess(userID, courseID, companyID uint) (*models.CompanyCourse, error) {
	var company models.Company
	if err := s.db.Where("id = ? AND is_deleted = ?", companyID, false).First(&company).Error; err != nil {
		return nil, fmt.Errorf("company %d: %w", companyID, ErrForbidden)
	}

	var membership models.CompanyUser
	if err := s.db.Where("company_id = ? AND user_id = ? AND is_deleted = ?", companyID, userID, false).
		First(&membership).Error; err != nil {
		return nil, fmt.Errorf("user %d is not a member of company %d: %w", userID, companyID, ErrForbidden)
	}

	var link models.CompanyCourse
	if err := s.db.Where("company_id = ? AND course_id = ? AND is_deleted = ?", companyID, courseID, false).
		First(&link).Error; err != nil {
		return nil, fmt.Errorf("company %d holds no license for course %d: %w", companyID, courseID, ErrForbidden)
	}
	if !link.Active {
		return nil, fmt.Errorf("company license %d is inactive: %w", link.ID, ErrForbidden)
	}

	return &link, nil
}

// hasFreeAccess reports whether the user may enroll without a purchase:
// admins always, PRO users on non-mentored courses, and users who already
// hold an active enrollment in a course that lists this one as a linked
// course resource.
func (s *EnrollmentService) hasFreeAccess(user *models.User, course *courseModels.Course) (bool, error) {
	if user.IsAdmin() {
		return true, nil
	}
	if user.IsPro() && !course.IsMentored {
		return true, nil
	}

	var linked int64
	err := s.db.Model(&courseModels.Resource{}).
		Joins("JOIN enrollments ON enrollments.course_id = resources.course_id").
		Where("enrollments.user_id = ? AND enrollments.active = ?", user.ID, true).
		Where("resources.type = ? AND resources.linked_course_id = ? AND resources.is_deleted = ?",
			"course", course.ID, false).
		Count(&linked).Error
	if err != nil {
		return false, fmt.Errorf("checking linked course access: %v", err)
	}
	return linked > 0, nil
}

// Suspend deactivates the user's enrollment. Suspending a course the user was
// never actively enrolled in is an authorization error, not a lookup miss.
func (s *EnrollmentService) Suspend(userID, courseID uint) (*courseModels.Enrollment, error) {
	var enrollment courseModels.Enrollment
	if err := s.db.Where("user_id = ? AND course_id = ? AND active = ?", userID, courseID, true).
		First(&enrollment).Error; err != nil {
		return nil, fmt.Errorf("no active enrollment for user %d on course %d: %w", userID, courseID, ErrForbidden)
	}

	var course courseModels.Course
	if err := s.db.Where("id = ?", courseID).First(&course).Error; err != nil {
		return nil, fmt.Errorf("course %d: %w", courseID, ErrNotFound)
	}

	if err := s.suspendEnrollment(&enrollment, &course); err != nil {
		return nil, err
	}
	s.attachCourse(&enrollment, &course)

	var user models.User
	if err := s.db.First(&user, userID).Error; err == nil {
		if mailErr := s.mailer.SendEnrollmentSuspended(user.Email, user.FullName(), course.Title); mailErr != nil {
			log.Printf("[ENROLLMENT] Failed to send suspension notice to %s: %v", user.Email, mailErr)
		}
	}

	return &enrollment, nil
}

// suspendEnrollment applies the single-row suspension transition: deactivate,
// stamp SuspendedAt, drop the backing purchase and tear down the sandbox.
func (s *EnrollmentService) suspendEnrollment(enrollment *courseModels.Enrollment, course *courseModels.Course) error {
	now := time.Now()
	enrollment.Active = false
	enrollment.SuspendedAt = &now
	if err := s.db.Save(enrollment).Error; err != nil {
		return fmt.Errorf("suspending enrollment %d: %v", enrollment.ID, err)
	}

	if err := s.db.Where("user_id = ? AND course_id = ?", enrollment.UserID, enrollment.CourseID).
		Delete(&models.Purchase{}).Error; err != nil {
		log.Printf("[ENROLLMENT] Failed to delete purchase for user %d course %d: %v",
			enrollment.UserID, enrollment.CourseID, err)
	}

	if course.NeedsSandbox() {
		s.sandbox.SubmitDestroy(enrollment.UserID, course.SandboxType)
	}
	return nil
}

// SuspendAll suspends every active enrollment of the user matching the
// forLife flag. Used when a plan lapses: plan-linked access has forLife=false.
func (s *EnrollmentService) SuspendAll(userID uint, forLife bool) error {
	var enrollments []courseModels.Enrollment
	if err := s.db.Where("user_id = ? AND active = ? AND for_life = ?", userID, true, forLife).
		Find(&enrollments).Error; err != nil {
		return fmt.Errorf("loading enrollments for user %d: %v", userID, err)
	}

	for i := range enrollments {
		var course courseModels.Course
		if err := s.db.Where("id = ?", enrollments[i].CourseID).First(&course).Error; err != nil {
			log.Printf("[ENROLLMENT] Course %d missing while suspending enrollment %d",
				enrollments[i].CourseID, enrollments[i].ID)
			continue
		}
		if err := s.suspendEnrollment(&enrollments[i], &course); err != nil {
			return err
		}
	}
	return nil
}

// SuspendByCompanyLink suspends every active enrollment granted through the
// given company-course license. The course aggregate is recomputed once for
// the whole batch.
func (s *EnrollmentService) SuspendByCompanyLink(linkID uint) error {
	var enrollments []courseModels.Enrollment
	if err := s.db.Where("company_course_id = ? AND active = ?", linkID, true).
		Find(&enrollments).Error; err != nil {
		return fmt.Errorf("loading enrollments for company link %d: %v", linkID, err)
	}
	if len(enrollments) == 0 {
		return nil
	}

	var course courseModels.Course
	if err := s.db.Where("id = ?", enrollments[0].CourseID).First(&course).Error; err != nil {
		return fmt.Errorf("course %d: %w", enrollments[0].CourseID, ErrNotFound)
	}

	for i := range enrollments {
		if err := s.suspendEnrollment(&enrollments[i], &course); err != nil {
			return err
		}
	}

	s.attachCounts(&course)
	log.Printf("[ENROLLMENT] Suspended %d enrollments for company link %d, course %d now has %d active learners",
		len(enrollments), linkID, course.ID, course.EnrolledCount)
	return nil
}

// CompleteLesson toggles a lesson's completion inside the user's active
// enrollment. The lesson must belong (via its chapter) to the requested
// course; a mismatch is rejected as Forbidden.
func (s *EnrollmentService) CompleteLesson(courseID, lessonID, userID uint, complete bool) (*courseModels.Enrollment, error) {
	var enrollment courseModels.Enrollment
	if err := s.db.Where("user_id = ? AND course_id = ? AND active = ?", userID, courseID, true).
		First(&enrollment).Error; err != nil {
		return nil, fmt.Errorf("no active enrollment for user %d on course %d: %w", userID, courseID, ErrNotFound)
	}

	var lesson courseModels.Lesson
	if err := s.db.Where("id = ? AND is_deleted = ?", lessonID, false).First(&lesson).Error; err != nil {
		return nil, fmt.Errorf("lesson %d: %w", lessonID, ErrNotFound)
	}

	var chapter courseModels.Chapter
	if err := s.db.Where("id = ? AND is_deleted = ?", lesson.ChapterID, false).First(&chapter).Error; err != nil {
		return nil, fmt.Errorf("chapter %d: %w", lesson.ChapterID, ErrForbidden)
	}
	if chapter.CourseID != courseID {
		return nil, fmt.Errorf("lesson %d does not belong to course %d: %w", lessonID, courseID, ErrForbidden)
	}

	var existing courseModels.CompletedLesson
	err := s.db.Where("enrollment_id = ? AND lesson_id = ?", enrollment.ID, lessonID).First(&existing).Error

	if complete {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record := courseModels.CompletedLesson{
				EnrollmentID: enrollment.ID,
				LessonID:     lessonID,
				CompletedAt:  time.Now(),
			}
			if createErr := s.db.Create(&record).Error; createErr != nil {
				return nil, fmt.Errorf("recording completed lesson: %v", createErr)
			}
		}
		// Already recorded: no-op, counts are still refreshed below.
	} else if err == nil {
		if delErr := s.db.Unscoped().Delete(&existing).Error; delErr != nil {
			return nil, fmt.Errorf("removing completed lesson: %v", delErr)
		}
	}

	if err := s.refreshCompletion(&enrollment); err != nil {
		return nil, err
	}

	if err := s.db.Preload("CompletedLessons").
		Where("id = ?", enrollment.ID).First(&enrollment).Error; err != nil {
		return nil, fmt.Errorf("reloading enrollment %d: %v", enrollment.ID, err)
	}

	var course courseModels.Course
	if err := s.db.Where("id = ?", courseID).First(&course).Error; err == nil {
		s.attachCourse(&enrollment, &course)
	}
	return &enrollment, nil
}

// refreshCompletion marks the enrollment completed once every lesson of the
// course is done, and clears the flag again when one is unticked.
func (s *EnrollmentService) refreshCompletion(enrollment *courseModels.Enrollment) error {
	var totalLessons int64
	s.db.Model(&courseModels.Lesson{}).
		Joins("JOIN chapters ON chapters.id = lessons.chapter_id").
		Where("chapters.course_id = ? AND lessons.is_deleted = ? AND chapters.is_deleted = ?",
			enrollment.CourseID, false, false).
		Count(&totalLessons)

	var doneLessons int64
	s.db.Model(&courseModels.CompletedLesson{}).
		Where("enrollment_id = ?", enrollment.ID).
		Count(&doneLessons)

	completed := totalLessons > 0 && doneLessons >= totalLessons
	if completed == enrollment.Completed {
		return nil
	}
	if err := s.db.Model(enrollment).Update("completed", completed).Error; err != nil {
		return fmt.Errorf("updating completion of enrollment %d: %v", enrollment.ID, err)
	}
	enrollment.Completed = completed
	return nil
}

// Find returns the enrollment of userID on courseID. Non-admin executors may
// only look at their own.
func (s *EnrollmentService) Find(courseID, userID uint, executor *models.User) (*courseModels.Enrollment, error) {
	if !executor.IsAdmin() && executor.ID != userID {
		return nil, fmt.Errorf("user %d may not read enrollments of user %d: %w", executor.ID, userID, ErrForbidden)
	}

	var enrollment courseModels.Enrollment
	if err := s.db.Preload("CompletedLessons").
		Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&enrollment).Error; err != nil {
		return nil, fmt.Errorf("enrollment of user %d on course %d: %w", userID, courseID, ErrNotFound)
	}

	var course courseModels.Course
	if err := s.db.Where("id = ?", courseID).First(&course).Error; err == nil {
		s.attachCourse(&enrollment, &course)
	}
	return &enrollment, nil
}

// List pages through the courses the user is enrolled in. Filters: INACTIVE
// (suspended), COMPLETED, default active-and-unfinished. Counts on each
// returned course are recomputed at read time.
func (s *EnrollmentService) List(page, pageSize int, userID uint, executor *models.User, filter, tag string) ([]courseModels.Course, int64, error) {
	if !executor.IsAdmin() && executor.ID != userID {
		return nil, 0, fmt.Errorf("user %d may not list enrollments of user %d: %w", executor.ID, userID, ErrForbidden)
	}

	query := s.db.Model(&courseModels.Course{}).
		Joins("JOIN enrollments ON enrollments.course_id = courses.id").
		Where("enrollments.user_id = ?", userID).
		Where("courses.is_deleted = ?", false)

	switch filter {
	case FilterInactive:
		query = query.Where("enrollments.active = ?", false)
	case FilterCompleted:
		query = query.Where("enrollments.completed = ?", true)
	default:
		query = query.Where("enrollments.active = ? AND enrollments.completed = ?", true, false)
	}

	if tag != "" {
		query = query.Where("courses.tags LIKE ?", "%"+tag+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("counting enrollments: %v", err)
	}

	var courses []courseModels.Course
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("enrollments.created_at desc").
		Find(&courses).Error; err != nil {
		return nil, 0, fmt.Errorf("listing enrollments: %v", err)
	}

	for i := range courses {
		s.attachCounts(&courses[i])
	}
	return courses, total, nil
}

func (s *EnrollmentService) attachCourse(enrollment *courseModels.Enrollment, course *courseModels.Course) {
	s.attachCounts(course)
	enrollment.Course = course
}

// attachCounts recomputes the derived aggregates on the course.
func (s *EnrollmentService) attachCounts(course *courseModels.Course) {
	s.db.Model(&courseModels.Enrollment{}).
		Where("course_id = ? AND active = ?", course.ID, true).
		Count(&course.EnrolledCount)

	s.db.Model(&courseModels.Lesson{}).
		Joins("JOIN chapters ON chapters.id = lessons.chapter_id").
		Where("chapters.course_id = ? AND lessons.is_deleted = ? AND chapters.is_deleted = ?",
			course.ID, false, false).
		Count(&course.LessonsCount)
}
