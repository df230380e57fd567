package errors

import "errors"

var (
	ErrCaseNotFound          = errors.New("case not found")
	ErrPackageNotFound       = errors.New("package not found")
	ErrDocumentNotFound      = errors.New("document not found")
	ErrCommunicationNotFound = errors.New("communication log not found")

	ErrTenantMismatch = errors.New("supplied tenant does not match authenticated tenant")
	ErrForbidden      = errors.New("entity belongs to a different tenant")

	ErrPackageNotGenerated = errors.New("package must be generated before sending")
	ErrFileTooLarge        = errors.New("file exceeds the maximum allowed size")
	ErrUnsupportedFileType = errors.New("file type is not allowed")
	ErrInvalidInput        = errors.New("invalid demand pipeline input")
	ErrInvalidTransition   = errors.New("invalid status transition")
)
