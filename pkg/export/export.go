package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/d4l-data4life/ollama-chat/pkg/models"
)

// TimestampLayout is used for every timestamp in exported files
const TimestampLayout = "2006-01-02 15:04:05"

// Format of an export file
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "txt"
)

var (
	// ErrEmptyHistory indicates there is nothing to export
	ErrEmptyHistory = errors.New("chat history is empty")

	// ErrUnsupportedFormat indicates an unknown export format
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// Record is one exported message
type Record struct {
	Role        string  `json:"role"`
	Content     string  `json:"content"`
	Timestamp   string  `json:"timestamp"`
	ImagePath   *string `json:"image_path"`
	RagFilename *string `json:"rag_filename"`
}

// Header carries the conversation details printed in text exports
type Header struct {
	Name       string
	Model      string
	ExportedAt time.Time
}

// ParseFormat accepts "json" and "txt" (or "text")
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "txt", "text":
		return FormatText, nil
	}
	return "", pkgerrors.Wrapf(ErrUnsupportedFormat, "%q", s)
}

// FormatFromPath chooses the format by file extension
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Write exports messages in the given format
func Write(w io.Writer, format Format, header Header, messages []models.Message) error {
	switch format {
	case FormatJSON:
		return JSON(w, messages)
	case FormatText:
		return Text(w, header, messages)
	}
	return pkgerrors.Wrapf(ErrUnsupportedFormat, "%q", format)
}

// JSON writes messages as an indented JSON array
func JSON(w io.Writer, messages []models.Message) error {
	if len(messages) == 0 {
		return ErrEmptyHistory
	}
	records := make([]Record, 0, len(messages))
	for _, m := range messages {
		records = append(records, Record{
			Role:        string(m.Role),
			Content:     m.Content,
			Timestamp:   formatTimestamp(m.Timestamp),
			ImagePath:   m.ImagePath,
			RagFilename: m.RagFilename,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return pkgerrors.Wrap(enc.Encode(records), "failed to write JSON export")
}

// Text writes a human readable transcript
func Text(w io.Writer, header Header, messages []models.Message) error {
	if len(messages) == 0 {
		return ErrEmptyHistory
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Chat History: %s - Exported: %s\n", header.Name, formatTimestamp(header.ExportedAt))
	fmt.Fprintf(&b, "Model (last used in tab): %s\n\n", header.Model)
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s] %s:\n%s\n", formatTimestamp(m.Timestamp), capitalize(string(m.Role)), m.Content)
		if ref := m.ImageRef(); ref != "" {
			fmt.Fprintf(&b, "(Image: %s)\n", filepath.Base(ref))
		}
		if label := m.DocLabel(); label != "" {
			fmt.Fprintf(&b, "(RAG Doc: %s)\n", label)
		}
		b.WriteString("\n---\n\n")
	}

	_, err := io.WriteString(w, b.String())
	return pkgerrors.Wrap(err, "failed to write text export")
}

func formatTimestamp(t time.Time) string {
	return t.Local().Format(TimestampLayout)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
