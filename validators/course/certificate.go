package courseValidator

import (
	controllers "learnhub/controllers/course"
	"learnhub/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

func IssueCertificate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseID, ok := parseIDParam(c, "id")
		if !ok {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}
		c.Locals("courseID", courseID)
		return c.Next()
	}
}

func VerifyCertificate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		request := &controllers.VerifyCertificateRequest{
			UUID:        c.Query("uuid"),
			FullName:    c.Query("full_name"),
			CourseTitle: c.Query("course_title"),
		}

		if err := validate.Struct(request); err != nil {
			errors := make(map[string]string)
			for _, fieldErr := range err.(validator.ValidationErrors) {
				errors[fieldErr.Field()] = "Invalid or missing value!"
			}
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("verifyCertificate", request)
		return c.Next()
	}
}
