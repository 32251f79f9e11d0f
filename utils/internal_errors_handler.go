package utils

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	EVENT_HANDLER_PANIC = iota + 1
)

func SendInternalError(internalErrorCode int) string {
	return fmt.Sprintf("An internal server error occurred. Please try again later (Cod: %d)", internalErrorCode)
}

type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindAuthorization
	KindValidation
	KindNotFound
	KindConflict
	KindInfrastructure
)

// AppError carries the message surfaced to the caller in the envelope.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *AppError) Unwrap() error {
	return e.Err
}

var (
	ErrAdminRequired       = &AppError{Kind: KindAuthorization, Message: "Unauthorized: admin role required"}
	ErrInvalidCompanyID    = &AppError{Kind: KindAuthorization, Message: "Invalid company ID format"}
	ErrCompanyMismatch     = &AppError{Kind: KindAuthorization, Message: "Unauthorized: company mismatch"}
	ErrMissingSession      = &AppError{Kind: KindAuthorization, Message: "Unauthorized: missing session"}
	ErrUnknownCompany      = &AppError{Kind: KindAuthorization, Message: "Company not found"}
	ErrInvalidPipelineID   = &AppError{Kind: KindValidation, Message: "Invalid pipeline ID format"}
	ErrInvalidStageID      = &AppError{Kind: KindValidation, Message: "Invalid stage ID format"}
	ErrInvalidCreatedDate  = &AppError{Kind: KindValidation, Message: "Invalid createdDate format"}
	ErrNegativeDeals       = &AppError{Kind: KindValidation, Message: "noOfDeals must be a non-negative integer"}
	ErrNoFieldsToUpdate    = &AppError{Kind: KindValidation, Message: "No fields to update"}
	ErrStageNameRequired   = &AppError{Kind: KindValidation, Message: "Stage name is required"}
	ErrUnknownEvent        = &AppError{Kind: KindValidation, Message: "Unknown event"}
	ErrInvalidExportFormat = &AppError{Kind: KindValidation, Message: "Invalid export format"}
	ErrPipelineNotFound    = &AppError{Kind: KindNotFound, Message: "Pipeline not found"}
	ErrStageNotUpdated     = &AppError{Kind: KindNotFound, Message: "Stage not found or not updated"}
	ErrNoPipelinesToExport = &AppError{Kind: KindNotFound, Message: "No pipelines found for export"}
	ErrStageExists         = &AppError{Kind: KindConflict, Message: "Stage already exists"}
	ErrPipelineNotCreated  = &AppError{Kind: KindInternal, Message: "Failed to create pipeline"}
)

func InvalidRequest(err error) error {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf("Invalid request payload: %v", err), Err: err}
}

func DuplicateStageName(name string) error {
	return &AppError{Kind: KindValidation, Message: fmt.Sprintf("Duplicate stage name: %s", name)}
}

// Infrastructure keeps the driver message as-is so the caller sees the raw cause.
func Infrastructure(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return err
	}
	return &AppError{Kind: KindInfrastructure, Err: err}
}

func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInfrastructure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
