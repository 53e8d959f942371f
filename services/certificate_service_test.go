package services

import (
	"testing"

	"learnhub/models"
	courseModels "learnhub/models/course"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestCertificateService(t *testing.T) (*CertificateService, *gorm.DB, *fakeStorage, *fakeRenderer, *fakeMailer) {
	t.Helper()
	db := setupTestDB(t)
	storage := newFakeStorage()
	renderer := &fakeRenderer{}
	mailer := &fakeMailer{}
	return NewCertificateService(db, storage, renderer, mailer), db, storage, renderer, mailer
}

func seedCompletedEnrollment(t *testing.T, db *gorm.DB, userID, courseID uint) *courseModels.Enrollment {
	t.Helper()
	enrollment := &courseModels.Enrollment{
		UserID:    userID,
		CourseID:  courseID,
		Active:    true,
		Completed: true,
	}
	require.NoError(t, db.Create(enrollment).Error)
	return enrollment
}

func TestIssueRequiresCompletedEnrollment(t *testing.T) {
	svc, db, _, _, _ := newTestCertificateService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)

	_, err := svc.Issue(user, course.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	enrollment := courseModels.Enrollment{UserID: user.ID, CourseID: course.ID, Active: true}
	require.NoError(t, db.Create(&enrollment).Error)

	_, err = svc.Issue(user, course.ID)
	assert.ErrorIs(t, err, ErrCertificateNotIssuable)
}

func TestIssueCreatesCertificateAndUpdatesEnrollment(t *testing.T) {
	svc, db, storage, _, mailer := newTestCertificateService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)
	enrollment := seedCompletedEnrollment(t, db, user.ID, course.ID)

	cert, err := svc.Issue(user, course.ID)
	require.NoError(t, err)

	assert.Equal(t, CertificateFileName(user.FullName(), course.Title), cert.Path)
	assert.Equal(t, CertificateHash(user.FullName(), course.Title), cert.Hash)
	assert.NotEmpty(t, cert.UUID)

	exists, err := storage.Exists(cert.Path)
	require.NoError(t, err)
	assert.True(t, exists)

	var updated courseModels.Enrollment
	require.NoError(t, db.First(&updated, enrollment.ID).Error)
	assert.Equal(t, cert.Path, updated.CertificatePath)
	assert.Equal(t, cert.Hash, updated.CertificateHash)
	assert.Equal(t, cert.UUID, updated.CertificateUUID)

	assert.Equal(t, 1, mailer.count("certificate_issued"))
}

func TestIssueIsIdempotent(t *testing.T) {
	svc, db, _, renderer, _ := newTestCertificateService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)
	seedCompletedEnrollment(t, db, user.ID, course.ID)

	first, err := svc.Issue(user, course.ID)
	require.NoError(t, err)
	second, err := svc.Issue(user, course.ID)
	require.NoError(t, err)

	assert.Equal(t, first.UUID, second.UUID)
	assert.Equal(t, first.Path, second.Path)
	assert.Equal(t, 1, renderer.calls, "the artifact is rendered once")

	var rows int64
	db.Model(&courseModels.Certificate{}).Count(&rows)
	assert.Equal(t, int64(1), rows)
}

func TestVerifyCertificate(t *testing.T) {
	svc, db, _, _, _ := newTestCertificateService(t)
	user := seedUser(t, db, models.PlanPro, models.RoleUser)
	course := seedCourse(t, db, courseModels.StatusPublished, false, courseModels.SandboxNone)
	seedCompletedEnrollment(t, db, user.ID, course.ID)

	cert, err := svc.Issue(user, course.ID)
	require.NoError(t, err)

	valid, description := svc.Verify(cert.UUID, user.FullName(), course.Title)
	assert.True(t, valid)
	assert.Contains(t, description, user.FullName())
	assert.Contains(t, description, course.Title)

	// Any mismatch yields the same generic answer.
	cases := []struct {
		name        string
		uuid        string
		fullName    string
		courseTitle string
	}{
		{"unknown uuid", "00000000-0000-0000-0000-000000000000", user.FullName(), course.Title},
		{"wrong name", cert.UUID, "Someone Else", course.Title},
		{"wrong title", cert.UUID, user.FullName(), "Another Course"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			valid, description := svc.Verify(tc.uuid, tc.fullName, tc.courseTitle)
			assert.False(t, valid)
			assert.Equal(t, "certificate is not valid", description)
		})
	}
}

func TestCertificateFileNameSlug(t *testing.T) {
	assert.Equal(t, "jane-doe-go-from-zero.html", CertificateFileName("Jane Doe", "Go, from Zero!"))
	assert.Equal(t, "a-b.html", CertificateFileName("  A  ", "--B--"))
}
