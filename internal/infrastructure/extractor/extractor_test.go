package extractor

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

type storageFake struct {
	files map[string][]byte
}

func (f *storageFake) Save(context.Context, string, io.Reader) error { return nil }

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.files[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(string(raw))), nil
}

func extract(t *testing.T, doc domain.Document, raw []byte) (string, error) {
	t.Helper()
	storage := &storageFake{files: map[string][]byte{doc.StoragePath: raw}}
	return New(storage, 0).Extract(context.Background(), &doc)
}

func TestExtractPlainTextStripsBOM(t *testing.T) {
	text, err := extract(t, domain.Document{StoragePath: "a", Filename: "a.md", MimeType: "text/markdown"},
		append([]byte{0xEF, 0xBB, 0xBF}, []byte("  # Terms\nNet 30  ")...))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "# Terms\nNet 30" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	_, err := extract(t, domain.Document{StoragePath: "b", Filename: "blob.bin"}, []byte{0xff, 0xfe, 0x00, 0x81})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestExtractHTMLSkipsScripts(t *testing.T) {
	page := `<html><head><title>ignored</title></head><body>
<h1>Master Agreement</h1><p>Payment due <b>monthly</b>.</p><script>var secret = 1;</script></body></html>`

	text, err := extract(t, domain.Document{StoragePath: "c", Filename: "terms.html"}, []byte(page))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(text, "Master Agreement\n") || !strings.Contains(text, "Payment due monthly") {
		t.Fatalf("unexpected text %q", text)
	}
	if strings.Contains(text, "secret") || strings.Contains(text, "ignored") {
		t.Fatalf("expected script and head dropped, got %q", text)
	}
}

func TestExtractXLSXRendersRows(t *testing.T) {
	book := excelize.NewFile()
	_ = book.SetCellValue("Sheet1", "A1", "Item")
	_ = book.SetCellValue("Sheet1", "B1", "Amount")
	_ = book.SetCellValue("Sheet1", "A2", "License")
	_ = book.SetCellValue("Sheet1", "B2", 1200)
	buf, err := book.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}

	text, err := extract(t, domain.Document{
		StoragePath: "d",
		Filename:    "schedule",
		MimeType:    "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}, buf.Bytes())
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !strings.Contains(text, "## Sheet1") || !strings.Contains(text, "License\t1200") {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestExtractMalformedPDF(t *testing.T) {
	_, err := extract(t, domain.Document{StoragePath: "e", Filename: "broken.pdf"}, []byte("%PDF-1.4 not really"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDetectFormat(t *testing.T) {
	cases := []struct {
		mime, name string
		want       format
	}{
		{"application/pdf", "x", formatPDF},
		{"text/html; charset=utf-8", "x", formatHTML},
		{"", "report.XLSX", formatXLSX},
		{"application/octet-stream", "contract.pdf", formatPDF},
		{"text/plain", "notes.txt", formatText},
	}
	for _, tc := range cases {
		if got := detectFormat(tc.mime, tc.name); got != tc.want {
			t.Fatalf("detectFormat(%q, %q) = %s, want %s", tc.mime, tc.name, got, tc.want)
		}
	}
}

func TestExtractMissingFile(t *testing.T) {
	storage := &storageFake{files: map[string][]byte{}}
	_, err := New(storage, 0).Extract(context.Background(), &domain.Document{StoragePath: "nope"})
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
