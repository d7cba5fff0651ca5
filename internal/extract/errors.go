package extract

import "fmt"

// ExtractionError means the document bytes could not be read at all.
type ExtractionError struct {
	Document string
	Cause    error
}

func (e *ExtractionError) Error() string {
	if e.Document == "" {
		return fmt.Sprintf("extract resume text: %v", e.Cause)
	}
	return fmt.Sprintf("extract resume text from %q: %v", e.Document, e.Cause)
}

func (e *ExtractionError) Unwrap() error {
	return e.Cause
}
