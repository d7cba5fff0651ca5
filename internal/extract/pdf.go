package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

// PDF reads the text layer of PDF documents. Everything it cannot read, Word
// files and scanned PDFs included, falls back to the placeholder text.
type PDF struct {
	logger *zap.Logger
}

func NewPDF(logger *zap.Logger) *PDF {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDF{logger: logger}
}

func (p *PDF) Extract(ctx context.Context, doc *Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := doc.Bytes()
	if err != nil {
		return "", err
	}

	if doc.MediaType != MediaPDF {
		p.logger.Debug("no text parser for media type, using placeholder",
			zap.String("document", doc.Name),
			zap.String("media_type", doc.MediaType),
		)
		return Render(doc), nil
	}

	text, pages, err := readPDF(data)
	if err != nil {
		p.logger.Warn("pdf text extraction failed, using placeholder",
			zap.String("document", doc.Name),
			zap.Error(err),
		)
		return Render(doc), nil
	}

	if text == "" {
		p.logger.Info("pdf has no text layer, using placeholder",
			zap.String("document", doc.Name),
			zap.Int("pages", pages),
		)
		return Render(doc), nil
	}

	p.logger.Debug("pdf text extracted",
		zap.String("document", doc.Name),
		zap.Int("pages", pages),
		zap.Int("text_length", len(text)),
	)
	return text, nil
}

func readPDF(data []byte) (text string, pages int, err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	var builder strings.Builder
	pages = r.NumPage()
	for i := 1; i <= pages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		builder.WriteString(content)
		builder.WriteString("\n\n")
	}

	return cleanText(builder.String()), pages, nil
}

func cleanText(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
