package courseRoutes

import (
	controllers "learnhub/controllers/course"
	"learnhub/middleware"
	validators "learnhub/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up all enrollment and certificate routes
func SetupCourseRoutes(app *fiber.App) {
	courseGroup := app.Group("/course")

	// Enrollment lifecycle
	courseGroup.Post("/:id/enroll", middleware.JWTMiddleware, validators.EnrollCourse(), controllers.EnrollInCourse)
	courseGroup.Post("/:id/unenroll", middleware.JWTMiddleware, validators.UnenrollCourse(), controllers.UnenrollFromCourse)
	courseGroup.Get("/:id/enrollment", middleware.JWTMiddleware, validators.GetEnrollment(), controllers.GetEnrollment)

	// Lesson progress
	courseGroup.Post("/:course_id/lesson/:lesson_id/complete", middleware.JWTMiddleware, validators.CompleteLesson(), controllers.CompleteLesson)

	// Certificates
	courseGroup.Post("/:id/certificate", middleware.JWTMiddleware, validators.IssueCertificate(), controllers.IssueCertificate)

	// User-facing listings
	userGroup := app.Group("/user")
	userGroup.Get("/enrollments", middleware.JWTMiddleware, validators.GetUserEnrollments(), controllers.GetEnrollments)

	// Public certificate verification
	app.Get("/certificate/verify", validators.VerifyCertificate(), controllers.VerifyCertificate)
}
