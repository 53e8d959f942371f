package services

import "errors"

// Domain error taxonomy. Controllers map these onto HTTP statuses; services
// never touch fiber directly.
var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidSignature     = errors.New("invalid webhook signature")
	ErrInvalidPayload       = errors.New("invalid webhook payload")
	ErrReconciliationFailed = errors.New("webhook reconciliation failed")
	ErrCertificateNotIssuable = errors.New("certificate cannot be issued")
)
