package controllers

import (
	"learnhub/middleware"

	"github.com/gofiber/fiber/v2"
)

// IssueCertificate issues the completion certificate for the caller's
// finished course. Re-issuing returns the already stored certificate.
func IssueCertificate(c *fiber.Ctx) error {
	executor, err := currentUser(c)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(int)

	certificate, err := certificateService.Issue(executor, uint(courseID))
	if err != nil {
		return respondServiceError(c, err, "Failed to issue certificate!")
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate issued successfully!", certificate)
}

// VerifyCertificateRequest carries the two factors a verifier must present
type VerifyCertificateRequest struct {
	UUID        string `json:"uuid" validate:"required,uuid4"`
	FullName    string `json:"full_name" validate:"required"`
	CourseTitle string `json:"course_title" validate:"required"`
}

// VerifyCertificate is public: it confirms or denies a presented certificate
// without revealing which part of the request did not match.
func VerifyCertificate(c *fiber.Ctx) error {
	request := c.Locals("verifyCertificate").(*VerifyCertificateRequest)

	valid, description := certificateService.Verify(request.UUID, request.FullName, request.CourseTitle)

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Certificate verification completed!", fiber.Map{
		"valid":       valid,
		"description": description,
	})
}
