package attachment

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// FileKind classifies an attachable file
type FileKind int

const (
	KindUnsupported FileKind = iota
	KindImage
	KindPDF
	KindText
)

// ErrUnsupported indicates a file type that can be neither an image nor a document
var ErrUnsupported = errors.New("unsupported file")

// Error reports a file that could not be read or parsed
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed to load %q: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Image is a vision attachment ready to be sent with the next user turn
type Image struct {
	Path   string
	Name   string
	Base64 string
}

// Document is retrieval context extracted from a file
type Document struct {
	Label string
	Text  string
}

// Kind classifies path by its extension
func Kind(path string) FileKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return KindImage
	case ".pdf":
		return KindPDF
	case ".txt", ".md":
		return KindText
	}
	return KindUnsupported
}

// LoadImage reads an image file and base64-encodes it
func LoadImage(path string) (Image, error) {
	name := filepath.Base(path)
	if Kind(path) != KindImage {
		return Image{}, &Error{Name: name, Err: ErrUnsupported}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, &Error{Name: name, Err: err}
	}
	return Image{
		Path:   path,
		Name:   name,
		Base64: base64.StdEncoding.EncodeToString(data),
	}, nil
}

// LoadDocument extracts text from a PDF or plain text file
func LoadDocument(path string) (Document, error) {
	name := filepath.Base(path)
	var (
		text string
		err  error
	)
	switch Kind(path) {
	case KindPDF:
		text, err = pdfText(path)
	case KindText:
		var data []byte
		data, err = os.ReadFile(path)
		text = string(data)
	default:
		err = ErrUnsupported
	}
	if err != nil {
		return Document{}, &Error{Name: name, Err: err}
	}
	return Document{
		Label: name,
		Text:  strings.TrimSpace(text),
	}, nil
}

// pdfText concatenates the plain text of every page, one line break per page
func pdfText(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		buf.WriteString(content)
		buf.WriteString("\n")
	}
	return buf.String(), nil
}
