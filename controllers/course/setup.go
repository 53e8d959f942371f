package controllers

import (
	"errors"

	"learnhub/middleware"
	"learnhub/services"

	"github.com/gofiber/fiber/v2"
)

var (
	enrollmentService  *services.EnrollmentService
	certificateService *services.CertificateService
)

// SetupServices injects the domain services used by the course controllers
func SetupServices(enrollments *services.EnrollmentService, certificates *services.CertificateService) {
	enrollmentService = enrollments
	certificateService = certificates
}

// respondServiceError maps domain errors onto the HTTP envelope
func respondServiceError(c *fiber.Ctx, err error, message string) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, message, nil)
	case errors.Is(err, services.ErrForbidden):
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, message, nil)
	case errors.Is(err, services.ErrCertificateNotIssuable):
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, message, nil)
	default:
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, message, nil)
	}
}
