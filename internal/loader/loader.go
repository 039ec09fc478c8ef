// Package loader turns source files and uploads into plain text.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"github.com/ProgrammerABDUL/Physical-AI-and-Humanoid-Robotics-Book/internal/domain"
)

// LoadFile reads path and decodes it by extension and content.
func LoadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return Decode(filepath.Base(path), data)
}

// Decode converts raw bytes into text. PDF is reduced to its plain text,
// HTML to markdown, and any text/* content is returned as is.
func Decode(name string, data []byte) (string, error) {
	mt := mimetype.Detect(data)
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == ".pdf" || mt.Is("application/pdf"):
		return pdfText(data)
	case ext == ".html" || ext == ".htm" || mt.Is("text/html"):
		out, err := htmltomarkdown.ConvertString(string(data))
		if err != nil {
			return "", fmt.Errorf("convert %s to markdown: %w", name, err)
		}
		return out, nil
	case isText(mt):
		return string(data), nil
	default:
		return "", fmt.Errorf("%w: %s is %s", domain.ErrUnsupportedSource, name, mt.String())
	}
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

func pdfText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	return buf.String(), nil
}
