package courseValidator

import (
	"strconv"
	"strings"

	controllers "learnhub/controllers/course"
	"learnhub/middleware"
	"learnhub/services"

	"github.com/gofiber/fiber/v2"
)

func parseIDParam(c *fiber.Ctx, name string) (int, bool) {
	raw := strings.TrimSpace(c.Params(name))
	if raw == "" {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func EnrollCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}
		c.Locals("courseID", courseID)

		options := new(controllers.EnrollOptions)
		if len(c.Body()) > 0 {
			if err := c.BodyParser(options); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
		}
		c.Locals("enrollOptions", options)
		return c.Next()
	}
}

func UnenrollCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}
		c.Locals("courseID", courseID)
		return c.Next()
	}
}

func CompleteLesson() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := parseIDParam(c, "course_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}
		lessonID, ok := parseIDParam(c, "lesson_id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Lesson ID!", nil)
		}

		reqData := new(struct {
			Complete *bool `json:"complete"`
		})
		if len(c.Body()) > 0 {
			if err := c.BodyParser(reqData); err != nil {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
			}
		}
		complete := true
		if reqData.Complete != nil {
			complete = *reqData.Complete
		}

		c.Locals("courseID", courseID)
		c.Locals("lessonID", lessonID)
		c.Locals("lessonComplete", complete)
		return c.Next()
	}
}

func GetEnrollment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}
		c.Locals("courseID", courseID)

		if raw := c.Query("user_id"); raw != "" {
			userID, err := strconv.Atoi(raw)
			if err != nil || userID <= 0 {
				return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid User ID!", nil)
			}
			c.Locals("targetUserID", uint(userID))
		}
		return c.Next()
	}
}

func GetUserEnrollments() fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := &controllers.ListEnrollmentsQuery{
			Page:   c.QueryInt("page", 1),
			Limit:  c.QueryInt("limit", 20),
			Filter: strings.ToUpper(strings.TrimSpace(c.Query("filter"))),
			Tag:    strings.TrimSpace(c.Query("tag")),
		}

		errors := make(map[string]string)

		if query.Page < 1 {
			errors["page"] = "Page must be greater than 0!"
		}
		if query.Limit < 1 || query.Limit > 100 {
			errors["limit"] = "Limit must be between 1 and 100!"
		}
		if query.Filter != "" && query.Filter != services.FilterInactive && query.Filter != services.FilterCompleted {
			errors["filter"] = "Filter must be INACTIVE or COMPLETED!"
		}

		if raw := c.Query("user_id"); raw != "" {
			userID, err := strconv.Atoi(raw)
			if err != nil || userID <= 0 {
				errors["user_id"] = "Invalid User ID!"
			} else {
				query.UserID = uint(userID)
			}
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("enrollmentListQuery", query)
		return c.Next()
	}
}
