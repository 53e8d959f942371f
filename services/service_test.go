package services

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"learnhub/database"
	"learnhub/models"
	courseModels "learnhub/models/course"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// A single connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.RunMigrations(db))
	return db
}

var userSeq uint64

func seedUser(t *testing.T, db *gorm.DB, plan, role string) *models.User {
	t.Helper()
	n := atomic.AddUint64(&userSeq, 1)
	user := &models.User{
		FirstName: "Jane",
		LastName:  fmt.Sprintf("Doe%d", n),
		Email:     fmt.Sprintf("jane.doe%d@example.com", n),
		Password:  "hashed",
		Plan:      plan,
		Role:      role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedCourse(t *testing.T, db *gorm.DB, status string, mentored bool, sandboxType string) *courseModels.Course {
	t.Helper()
	n := atomic.AddUint64(&userSeq, 1)
	course := &courseModels.Course{
		Title:       fmt.Sprintf("Course %d", n),
		Status:      status,
		IsMentored:  mentored,
		SandboxType: sandboxType,
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

// seedLessons creates one chapter with n lessons on the course.
func seedLessons(t *testing.T, db *gorm.DB, courseID uint, n int) []courseModels.Lesson {
	t.Helper()
	chapter := courseModels.Chapter{CourseID: courseID, Title: "Chapter 1"}
	require.NoError(t, db.Create(&chapter).Error)

	lessons := make([]courseModels.Lesson, 0, n)
	for i := 0; i < n; i++ {
		lesson := courseModels.Lesson{ChapterID: chapter.ID, Title: fmt.Sprintf("Lesson %d", i+1), Position: i}
		require.NoError(t, db.Create(&lesson).Error)
		lessons = append(lessons, lesson)
	}
	return lessons
}

func seedPurchase(t *testing.T, db *gorm.DB, userID, courseID uint) {
	t.Helper()
	require.NoError(t, db.Create(&models.Purchase{UserID: userID, CourseID: courseID}).Error)
}

// --- fakes ---

type fakeProvisioner struct {
	mu          sync.Mutex
	initialized []uint
	destroyed   []uint
}

func (f *fakeProvisioner) Initialize(userID uint, sandboxType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = append(f.initialized, userID)
	return nil
}

func (f *fakeProvisioner) Destroy(userID uint, sandboxType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, userID)
	return nil
}

func (f *fakeProvisioner) initializedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.initialized)
}

func (f *fakeProvisioner) destroyedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.destroyed)
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMailer) record(kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, kind)
	return nil
}

func (f *fakeMailer) SendEnrollmentConfirmation(email, name, courseTitle string) error {
	return f.record("enrollment_confirmation")
}

func (f *fakeMailer) SendEnrollmentSuspended(email, name, courseTitle string) error {
	return f.record("enrollment_suspended")
}

func (f *fakeMailer) SendPaymentReceived(email, name string, paidCount int) error {
	return f.record("payment_received")
}

func (f *fakeMailer) SendPaymentFailed(email, name string) error {
	return f.record("payment_failed")
}

func (f *fakeMailer) SendCertificateIssued(email, name, courseTitle, certificateUUID string) error {
	return f.record("certificate_issued")
}

func (f *fakeMailer) SendInstallmentReminder(email, name string, paidCount int) error {
	return f.record("installment_reminder")
}

func (f *fakeMailer) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sent {
		if s == kind {
			n++
		}
	}
	return n
}

type fakeBilling struct {
	mu        sync.Mutex
	cancelled []string
}

func (f *fakeBilling) CancelSubscription(subscriptionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, subscriptionID)
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (f *fakeStorage) Exists(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[name]
	return ok, nil
}

func (f *fakeStorage) Put(name string, data []byte, contentType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[name] = data
	return name, nil
}

type fakeRenderer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeRenderer) Render(fullName, courseTitle string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return []byte("<html>" + fullName + " - " + courseTitle + "</html>"), nil
}

func newTestEnrollmentService(t *testing.T) (*EnrollmentService, *gorm.DB, *fakeProvisioner, *fakeMailer) {
	t.Helper()
	db := setupTestDB(t)
	provisioner := &fakeProvisioner{}
	dispatcher := NewSandboxDispatcher(provisioner)
	t.Cleanup(dispatcher.Stop)
	mailer := &fakeMailer{}
	return NewEnrollmentService(db, dispatcher, mailer), db, provisioner, mailer
}
