package controllers

import (
	"learnhub/database"
	"learnhub/middleware"
	"learnhub/models"

	"github.com/gofiber/fiber/v2"
)

// EnrollOptions is the validated enrollment request body
type EnrollOptions struct {
	CompanyID uint `json:"company_id"`
	UserID    uint `json:"user_id"` // admin only: enroll somebody else
}

func currentUser(c *fiber.Ctx) (*models.User, error) {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return nil, fiber.ErrUnauthorized
	}
	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return nil, fiber.ErrUnauthorized
	}
	return &user, nil
}

func EnrollInCourse(c *fiber.Ctx) error {
	executor, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)
	options, _ := c.Locals("enrollOptions").(*EnrollOptions)
	if options == nil {
		options = &EnrollOptions{}
	}

	targetUserID := executor.ID
	fromAdmin := false
	if executor.IsAdmin() {
		fromAdmin = true
		if options.UserID > 0 {
			targetUserID = options.UserID
		}
	}

	enrollment, err := enrollmentService.Enroll(targetUserID, uint(courseID), options.CompanyID, fromAdmin)
	if err != nil {
		return respondServiceError(c, err, "Failed to enroll in course!")
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrolled in course successfully!", enrollment)
}

func UnenrollFromCourse(c *fiber.Ctx) error {
	executor, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)

	enrollment, err := enrollmentService.Suspend(executor.ID, uint(courseID))
	if err != nil {
		return respondServiceError(c, err, "Failed to unenroll from course!")
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Unenrolled from course successfully!", enrollment)
}

func CompleteLesson(c *fiber.Ctx) error {
	executor, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)
	lessonID := c.Locals("lessonID").(int)
	complete := c.Locals("lessonComplete").(bool)

	enrollment, err := enrollmentService.CompleteLesson(uint(courseID), uint(lessonID), executor.ID, complete)
	if err != nil {
		return respondServiceError(c, err, "Failed to update lesson progress!")
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson progress updated successfully!", enrollment)
}

func GetEnrollment(c *fiber.Ctx) error {
	executor, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)
	targetUserID := executor.ID
	if queried, ok := c.Locals("targetUserID").(uint); ok && queried > 0 {
		targetUserID = queried
	}

	enrollment, err := enrollmentService.Find(uint(courseID), targetUserID, executor)
	if err != nil {
		return respondServiceError(c, err, "Failed to fetch enrollment!")
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollment fetched successfully!", enrollment)
}

// ListEnrollmentsQuery is the validated listing request
type ListEnrollmentsQuery struct {
	Page   int
	Limit  int
	UserID uint
	Filter string
	Tag    string
}

func GetEnrollments(c *fiber.Ctx) error {
	executor, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	query := c.Locals("enrollmentListQuery").(*ListEnrollmentsQuery)
	targetUserID := executor.ID
	if query.UserID > 0 {
		targetUserID = query.UserID
	}

	courses, total, err := enrollmentService.List(query.Page, query.Limit, targetUserID, executor, query.Filter, query.Tag)
	if err != nil {
		return respondServiceError(c, err, "Failed to fetch enrollments!")
	}

	response := map[string]interface{}{
		"courses": courses,
		"pagination": map[string]interface{}{
			"total": total,
			"page":  query.Page,
			"limit": query.Limit,
		},
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", response)
}
