package extractor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kirillkom/document-swarm/internal/core/domain"
	"github.com/kirillkom/document-swarm/internal/core/ports"
)

type format string

const (
	formatText format = "text"
	formatPDF  format = "pdf"
	formatXLSX format = "xlsx"
	formatHTML format = "html"
)

// Extractor reads a stored document and converts it to plain UTF-8 text.
type Extractor struct {
	storage  ports.ObjectStorage
	maxBytes int64
}

func New(storage ports.ObjectStorage, maxBytes int64) *Extractor {
	if maxBytes <= 0 {
		maxBytes = 50 << 20
	}
	return &Extractor{storage: storage, maxBytes: maxBytes}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	reader, err := e.storage.Open(ctx, doc.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source document: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, e.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read source document: %w", err)
	}

	var text string
	switch detectFormat(doc.MimeType, doc.Filename) {
	case formatPDF:
		text, err = extractPDF(raw)
	case formatXLSX:
		text, err = extractXLSX(raw)
	case formatHTML:
		text, err = extractHTML(raw)
	default:
		text, err = extractPlainText(raw, doc.Filename)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func detectFormat(mimeType, filename string) format {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	switch mimeType {
	case "application/pdf":
		return formatPDF
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return formatXLSX
	case "text/html", "application/xhtml+xml":
		return formatHTML
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return formatPDF
	case ".xlsx", ".xlsm":
		return formatXLSX
	case ".html", ".htm":
		return formatHTML
	default:
		return formatText
	}
}
