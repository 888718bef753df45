package export_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d4l-data4life/ollama-chat/internal/testutils"
	"github.com/d4l-data4life/ollama-chat/pkg/export"
	"github.com/d4l-data4life/ollama-chat/pkg/models"
)

var ts = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

func local(t time.Time) string {
	return t.Local().Format(export.TimestampLayout)
}

func sampleMessages() []models.Message {
	return []models.Message{
		{Role: models.MessageRoleUser, Content: "Describe this image.", Timestamp: ts, ImagePath: testutils.Pointerfy("/home/me/pics/cat.png")},
		{Role: models.MessageRoleAssistant, Content: "A cat <on> a mat & more.", Timestamp: ts.Add(time.Second)},
		{Role: models.MessageRoleUser, Content: "question", Timestamp: ts.Add(2 * time.Second), RagFilename: testutils.Pointerfy("notes.pdf")},
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.JSON(&buf, sampleMessages()))

	assert.Contains(t, buf.String(), "\n  {\n    \"role\": \"user\",")
	assert.Contains(t, buf.String(), "A cat <on> a mat & more.")

	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 3)
	assert.Equal(t, map[string]interface{}{
		"role":         "user",
		"content":      "Describe this image.",
		"timestamp":    local(ts),
		"image_path":   "/home/me/pics/cat.png",
		"rag_filename": nil,
	}, records[0])
	assert.Nil(t, records[1]["image_path"])
	assert.Equal(t, "notes.pdf", records[2]["rag_filename"])
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	exportedAt := ts.Add(time.Hour)
	require.NoError(t, export.Text(&buf, export.Header{Name: "Pets", Model: "llava", ExportedAt: exportedAt}, sampleMessages()))

	want := "Chat History: Pets - Exported: " + local(exportedAt) + "\n" +
		"Model (last used in tab): llava\n\n" +
		"[" + local(ts) + "] User:\nDescribe this image.\n(Image: cat.png)\n\n---\n\n" +
		"[" + local(ts.Add(time.Second)) + "] Assistant:\nA cat <on> a mat & more.\n\n---\n\n" +
		"[" + local(ts.Add(2*time.Second)) + "] User:\nquestion\n(RAG Doc: notes.pdf)\n\n---\n\n"
	assert.Equal(t, want, buf.String())
}

func TestEmptyHistory(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, export.JSON(&buf, nil), export.ErrEmptyHistory)
	assert.ErrorIs(t, export.Text(&buf, export.Header{}, nil), export.ErrEmptyHistory)
	assert.Zero(t, buf.Len())
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    export.Format
		wantErr bool
	}{
		{"chat.json", export.FormatJSON, false},
		{"/tmp/Chat 1.TXT", export.FormatText, false},
		{"chat.md", "", true},
		{"chat", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := export.FormatFromPath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, export.ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := export.Write(&bytes.Buffer{}, "xml", export.Header{}, sampleMessages())
	assert.ErrorIs(t, err, export.ErrUnsupportedFormat)
}
