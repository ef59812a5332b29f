package extractor

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/kirillkom/document-swarm/internal/core/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func extractPlainText(raw []byte, filename string) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("unsupported binary format: %s", filename))
	}
	return string(raw), nil
}
