package services

import (
	"testing"
	"time"

	"learnhub/models"
	courseModels "learnhub/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnrollCreatesFreshEnrollment(t *testing.T) {
	svc, db, _, mailer := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)
	seedLessons(t, db, course.ID, 3)

	enrollment, err := svc.Enroll(user.ID, course.ID, 0, false)
	require.NoError(t, err)

	assert.True(t, enrollment.Active)
	assert.False(t, enrollment.Completed)
	// PRO user on a non-mentored course: access is plan-linked, not for life.
	assert.False(t, enrollment.ForLife)
	assert.False(t, enrollment.EnrolledAt.IsZero())
	assert.Nil(t, enrollment.SuspendedAt)
	require.NotNil(t, enrollment.Course)
	assert.Equal(t, int64(1), enrollment.Course.EnrolledCount)
	assert.Equal(t, int64(3), enrollment.Course.LessonsCount)
	assert.Equal(t, 1, mailer.count("enrollment_confirmation"))
}

func TestEnrollIsIdempotentForActiveLearner(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)

	first, err := svc.Enroll(user.ID, course.ID, 0, false)
	require.NoError(t, err)
	second, err := svc.Enroll(user.ID, course.ID, 0, false)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)

	var rows int64
	db.Model(&courseModels.Enrollment{}).
		Where("user_id = ? AND course_id = ?", user.ID, course.ID).
		Count(&rows)
	assert.Equal(t, int64(1), rows)
}

func TestReEnrollReactivatesSuspendedRow(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanBase, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)
	seedPurchase(t, db, user.ID, course.ID)

	first, err := svc.Enroll(user.ID, course.ID, 0, false)
	require.NoError(t, err)
	// BASE plan user: access does not depend on the plan, so it is for life.
	require.True(t, first.ForLife)

	_, err = svc.Suspend(user.ID, course.ID)
	require.NoError(t, err)

	var suspended courseModels.Enrollment
	require.NoError(t, db.First(&suspended, first.ID).Error)
	require.False(t, suspended.Active)
	require.NotNil(t, suspended.SuspendedAt)

	// The user upgraded in the meantime; a recompute would now yield
	// ForLife=false, which must not happen on reactivation.
	require.NoError(t, db.Model(user).Update("plan", models.PlanPro).Error)

	resumed, err := svc.Enroll(user.ID, course.ID, 0, false)
	require.NoError(t, err)

	assert.Equal(t, first.ID, resumed.ID, "suspend/re-enroll must reuse the row")
	assert.True(t, resumed.Active)
	assert.Nil(t, resumed.SuspendedAt)
	assert.True(t, resumed.ForLife, "ForLife is fixed at creation time")
	assert.WithinDuration(t, first.EnrolledAt, resumed.EnrolledAt, time.Second)
}

func TestEnrollFailsForUnknownUserOrCourse(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)

	_, err := svc.Enroll(9999, course.ID, 0, false)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Enroll(user.ID, 9999, 0, false)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnrollRejectsUnpublishedCourse(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusDraft, false, courseModels.SandboxNone)

	_, err := svc.Enroll(user.ID, course.ID, 0, false)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestEnrollArchivedCourseIsAllowed(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusArchived, false, courseModels.SandboxNone)

	_, err := svc.Enroll(user.ID, course.ID, 0, false)
	assert.NoError(t, err)
}

func TestEnrollMentoredCourseRequiresPurchase(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, true, courseModels.SandboxNone)

	// PRO covers non-mentored courses only.
	_, err := svc.Enroll(user.ID, course.ID, 0, false)
	assert.ErrorIs(t, err, ErrForbidden)

	seedPurchase(t, db, user.ID, course.ID)
	enrollment, err := svc.Enroll(user.ID, course.ID, 0, false)
	require.NoError(t, err)
	assert.True(t, enrollment.ForLife, "mentored courses are bought for life")
}

func TestEnrollAdminBypassesAccessGate(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanBase, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, true, courseModels.SandboxNone)

	_, err := svc.Enroll(user.ID, course.ID, 0, true)
	assert.NoError(t, err)
}

func TestEnrollThroughLinkedCourseResource(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanBase, models.RoleUser)
	owned := seedCourse(t, db, courseModels.StatusPublished, true, courseModels.SandboxNone)
	linked := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)

	seedPurchase(t, db, user.ID, owned.ID)
	_, err := svc.Enroll(user.ID, owned.ID, 0, false)
	require.NoError(t, err)

	// Without the linkage the BASE user has no way in.
	_, err = svc.Enroll(user.ID, linked.ID, 0, false)
	require.ErrorIs(t, err, ErrForbidden)

	resource := courseModels.Resource{
		CourseID:       owned.ID,
		Type:           "course",
		Title:          "Companion course",
		LinkedCourseID: linked.ID,
	}
	require.NoError(t, db.Create(&resource).Error)

	_, err = svc.Enroll(user.ID, linked.ID, 0, false)
	assert.NoError(t, err)
}

func TestEnrollCompanyPath(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanBase, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)

	company := models.Company{Name: "ACME"}
	require.NoError(t, db.Create(&company).Error)

	// Membership missing: fail closed.
	_, err := svc.Enroll(user.ID, course.ID, company.ID, false)
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, db.Create(&models.CompanyUser{CompanyID: company.ID, UserID: user.ID}).Error)

	// License missing: fail closed.
	_, err = svc.Enroll(user.ID, course.ID, company.ID, false)
	require.ErrorIs(t, err, ErrForbidden)

	link := models.CompanyCourse{CompanyID: company.ID, CourseID: course.ID, Active: false}
	require.NoError(t, db.Create(&link).Error)

	// Inactive license: fail closed.
	_, err = svc.Enroll(user.ID, course.ID, company.ID, false)
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, db.Model(&link).Update("active", true).Error)

	enrollment, err := svc.Enroll(user.ID, course.ID, company.ID, false)
	require.NoError(t, err)
	assert.Equal(t, link.ID, enrollment.CompanyCourseID)
	assert.False(t, enrollment.ForLife, "company enrollments are not for life")
}

func TestSuspendWithoutEnrollmentIsForbidden(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)

	_, err := svc.Suspend(user.ID, course.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSuspendCleansUpPurchaseAndSandbox(t *testing.T) {
	svc, db, provisioner, mailer := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanBase, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, true, courseModels.SandboxK8s)
	seedPurchase(t, db, user.ID, course.ID)

	_, err := svc.Enroll(user.ID, course.ID, 0, false)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return provisioner.initializedCount() == 1 },
		time.Second, 10*time.Millisecond)

	enrollment, err := svc.Suspend(user.ID, course.ID)
	require.NoError(t, err)

	assert.False(t, enrollment.Active)
	assert.NotNil(t, enrollment.SuspendedAt)

	var purchases int64
	db.Model(&models.Purchase{}).
		Where("user_id = ? AND course_id = ?", user.ID, course.ID).
		Count(&purchases)
	assert.Equal(t, int64(0), purchases, "suspension removes the backing purchase")

	require.Eventually(t, func() bool { return provisioner.destroyedCount() == 1 },
		time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, mailer.count("enrollment_suspended"))
}

func TestSuspendAllHonorsForLifeFilter(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	planLinked := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)
	mentored := seedCourse(t, db, courseModels.StatusPublished, true, courseModels.SandboxNone)
	seedPurchase(t, db, user.ID, mentored.ID)

	_, err := svc.Enroll(user.ID, planLinked.ID, 0, false) // forLife=false
	require.NoError(t, err)
	_, err = svc.Enroll(user.ID, mentored.ID, 0, false) // forLife=true
	require.NoError(t, err)

	require.NoError(t, svc.SuspendAll(user.ID, false))

	var planEnrollment, mentoredEnrollment courseModels.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, planLinked.ID).First(&planEnrollment).Error)
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user.ID, mentored.ID).First(&mentoredEnrollment).Error)

	assert.False(t, planEnrollment.Active)
	assert.True(t, mentoredEnrollment.Active, "for-life access survives the plan lapse")
}

func TestSuspendByCompanyLink(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)

	company := models.Company{Name: "ACME"}
	require.NoError(t, db.Create(&company).Error)
	link := models.CompanyCourse{CompanyID: company.ID, CourseID: course.ID, Active: true}
	require.NoError(t, db.Create(&link).Error)

	for i := 0; i < 3; i++ {
		user := seedUser(t, db, models.PlanBase, models.RoleUser)
		require.NoError(t, db.Create(&models.CompanyUser{CompanyID: company.ID, UserID: user.ID}).Error)
		_, err := svc.Enroll(user.ID, course.ID, company.ID, false)
		require.NoError(t, err)
	}

	// An unrelated individual learner must be left alone.
	outsider := seedUser(t, db, models.PlanPro, models.RoleUser)
	_, err := svc.Enroll(outsider.ID, course.ID, 0, false)
	require.NoError(t, err)

	require.NoError(t, svc.SuspendByCompanyLink(link.ID))

	var active int64
	db.Model(&courseModels.Enrollment{}).
		Where("course_id = ? AND active = ?", course.ID, true).
		Count(&active)
	assert.Equal(t, int64(1), active)
}

func TestCompleteLessonRecordsProgress(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)
	lessons := seedLessons(t, db, course.ID, 2)

	_, err := svc.Enroll(user.ID, course.ID, 0, false)
	require.NoError(t, err)

	enrollment, err := svc.CompleteLesson(course.ID, lessons[0].ID, user.ID, true)
	require.NoError(t, err)
	assert.Len(t, enrollment.CompletedLessons, 1)
	assert.False(t, enrollment.Completed)

	// Completing the same lesson again is a no-op.
	enrollment, err = svc.CompleteLesson(course.ID, lessons[0].ID, user.ID, true)
	require.NoError(t, err)
	assert.Len(t, enrollment.CompletedLessons, 1)

	enrollment, err = svc.CompleteLesson(course.ID, lessons[1].ID, user.ID, true)
	require.NoError(t, err)
	assert.Len(t, enrollment.CompletedLessons, 2)
	assert.True(t, enrollment.Completed, "all lessons done marks the enrollment completed")

	enrollment, err = svc.CompleteLesson(course.ID, lessons[1].ID, user.ID, false)
	require.NoError(t, err)
	assert.Len(t, enrollment.CompletedLessons, 1)
	assert.False(t, enrollment.Completed)
}

func TestCompleteLessonFromAnotherCourseIsForbidden(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)
	other := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)
	otherLessons := seedLessons(t, db, other.ID, 1)

	_, err := svc.Enroll(user.ID, course.ID, 0, false)
	require.NoError(t, err)

	_, err = svc.CompleteLesson(course.ID, otherLessons[0].ID, user.ID, true)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCompleteLessonNeedsActiveEnrollmentAndLesson(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)
	lessons := seedLessons(t, db, course.ID, 1)

	_, err := svc.CompleteLesson(course.ID, lessons[0].ID, user.ID, true)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.Enroll(user.ID, course.ID, 0, false)
	require.NoError(t, err)

	_, err = svc.CompleteLesson(course.ID, 9999, user.ID, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindEnrollmentAuthorization(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	owner := seedUser(t, db, models.PlanPro, models.RoleUser)
	stranger := seedUser(t, db, models.PlanPro, models.RoleUser)
	admin := seedUser(t, db, models.PlanBase, models.RoleAdmin)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)

	_, err := svc.Enroll(owner.ID, course.ID, 0, false)
	require.NoError(t, err)

	_, err = svc.Find(course.ID, owner.ID, stranger)
	assert.ErrorIs(t, err, ErrForbidden)

	found, err := svc.Find(course.ID, owner.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, found.UserID)

	_, err = svc.Find(course.ID, owner.ID, admin)
	assert.NoError(t, err)

	_, err = svc.Find(9999, owner.ID, owner)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListEnrollmentsFilters(t *testing.T) {
	svc, db, _, _ := newTestEnrollmentService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)

	running := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)
	suspended := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)
	finished := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)
	finishedLessons := seedLessons(t, db, finished.ID, 1)

	_, err := svc.Enroll(user.ID, running.ID, 0, false)
	require.NoError(t, err)
	_, err = svc.Enroll(user.ID, suspended.ID, 0, false)
	require.NoError(t, err)
	_, err = svc.Enroll(user.ID, finished.ID, 0, false)
	require.NoError(t, err)

	_, err = svc.Suspend(user.ID, suspended.ID)
	require.NoError(t, err)
	_, err = svc.CompleteLesson(finished.ID, finishedLessons[0].ID, user.ID, true)
	require.NoError(t, err)

	courses, total, err := svc.List(1, 10, user.ID, user, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, courses, 1)
	assert.Equal(t, running.ID, courses[0].ID)
	assert.Equal(t, int64(1), courses[0].EnrolledCount)

	courses, total, err = svc.List(1, 10, user.ID, user, FilterInactive, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, courses, 1)
	assert.Equal(t, suspended.ID, courses[0].ID)

	courses, total, err = svc.List(1, 10, user.ID, user, FilterCompleted, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, courses, 1)
	assert.Equal(t, finished.ID, courses[0].ID)

	stranger := seedUser(t, db, models.PlanBase, models.RoleUser)
	_, _, err = svc.List(1, 10, user.ID, stranger, "", "")
	assert.ErrorIs(t, err, ErrForbidden)
}
