package app

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/cliniquerisimed-lab/jongwane/internal/audit"
	"github.com/cliniquerisimed-lab/jongwane/internal/catalog"
	"github.com/cliniquerisimed-lab/jongwane/internal/export"
	"github.com/cliniquerisimed-lab/jongwane/internal/history"
)

type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		fields := make([]map[string]string, 0, len(validationErrs))
		for _, fe := range validationErrs {
			fields = append(fields, map[string]string{"field": fe.Field(), "rule": fe.Tag()})
		}
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid input", fields
	}

	switch {
	case errors.Is(err, audit.ErrUnknownDocument), errors.Is(err, history.ErrNoHistory):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, audit.ErrNoAnalysis):
		return http.StatusNotFound, "NO_ANALYSIS", "No analysis for this topic", nil
	case errors.Is(err, catalog.ErrUnknownTopic):
		return http.StatusNotFound, "UNKNOWN_TOPIC", "Unknown topic", nil
	case errors.Is(err, catalog.ErrTitleRequired), errors.Is(err, catalog.ErrTextRequired),
		errors.Is(err, audit.ErrQuestionEmpty):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, audit.ErrAnalysisInFlight):
		return http.StatusConflict, "ANALYSIS_IN_FLIGHT", "An analysis is already running for this topic", nil
	case errors.Is(err, audit.ErrDocumentNotOpen), errors.Is(err, audit.ErrNoOpenDocument):
		return http.StatusConflict, "DOCUMENT_NOT_OPEN", "Open the document first", nil
	case errors.Is(err, audit.ErrSessionBusy):
		return http.StatusConflict, "SESSION_BUSY", "A question is already being answered", nil
	case errors.Is(err, audit.ErrSessionClosed):
		return http.StatusConflict, "SESSION_CLOSED", "The panel is closed", nil
	case errors.Is(err, audit.ErrExtractionFailed):
		return http.StatusUnprocessableEntity, "EXTRACTION_FAILED", "Format de fichier non supporté ou corrompu.", nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be 'pdf' or 'docx'", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export dependency not installed", nil
	case errors.Is(err, catalog.ErrIDSpaceExceeded):
		return http.StatusServiceUnavailable, "ID_SPACE_EXCEEDED", "Could not allocate a document id", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
