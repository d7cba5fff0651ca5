package extract

import (
	"context"
	"strings"

	_ "embed"
)

// Extractor turns a document into text a prompt can carry.
type Extractor interface {
	Extract(ctx context.Context, doc *Document) (string, error)
}

//go:embed templates/pdf.txt
var pdfTemplate string

//go:embed templates/word.txt
var wordTemplate string

// Placeholder does not parse document content. It checks that the bytes are
// readable and renders a fixed resume template labeled as a placeholder.
// The same document always produces the same text.
type Placeholder struct{}

func (Placeholder) Extract(ctx context.Context, doc *Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if _, err := doc.Bytes(); err != nil {
		return "", err
	}
	return Render(doc), nil
}

// Render builds the placeholder text for doc. PDFs and Word files use
// different templates.
func Render(doc *Document) string {
	template := wordTemplate
	if doc.MediaType == MediaPDF {
		template = pdfTemplate
	}

	r := strings.NewReplacer(
		"{{FILE_NAME}}", doc.Name,
		"{{BASE_NAME}}", doc.BaseName(),
	)
	return strings.TrimSpace(r.Replace(template))
}
