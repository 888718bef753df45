package session

import (
	"fmt"
	"path/filepath"

	"github.com/d4l-data4life/ollama-chat/pkg/attachment"
)

// AttachmentInfo describes the pending attachment
type AttachmentInfo struct {
	Kind string `json:"kind"` // "none", "image" or "document"
	Name string `json:"name,omitempty"`
}

// AttachImage loads an image to go out with the next turn.
// It replaces any pending document.
func (s *Session) AttachImage(path string) error {
	img, err := attachment.LoadImage(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.notice(fmt.Sprintf("Failed to load image '%s'.", filepath.Base(path)))
		return err
	}
	s.image = &img
	s.document = nil
	s.notice(fmt.Sprintf("Image '%s' loaded. Will be sent with next message.", img.Name))
	s.status("Image ready: " + img.Name)
	return nil
}

// AttachDocument loads a PDF or text file as context for subsequent turns.
// It replaces any pending image.
func (s *Session) AttachDocument(path string) error {
	doc, err := attachment.LoadDocument(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.notice(fmt.Sprintf("Failed to load document '%s'.", filepath.Base(path)))
		return err
	}
	s.document = &doc
	s.image = nil
	kind := "Text file"
	if attachment.Kind(path) == attachment.KindPDF {
		kind = "PDF"
	}
	s.notice(fmt.Sprintf("%s '%s' loaded for RAG.", kind, doc.Label))
	s.status("Document ready: " + doc.Label)
	return nil
}

// AttachFile routes by extension to AttachImage or AttachDocument
func (s *Session) AttachFile(path string) error {
	switch attachment.Kind(path) {
	case attachment.KindImage:
		return s.AttachImage(path)
	case attachment.KindPDF, attachment.KindText:
		return s.AttachDocument(path)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	name := filepath.Base(path)
	s.notice("Unsupported file: " + name)
	return &attachment.Error{Name: name, Err: attachment.ErrUnsupported}
}

// ClearAttachment drops the pending image and document
func (s *Session) ClearAttachment() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.image == nil && s.document == nil {
		return
	}
	s.image = nil
	s.document = nil
	s.status("Attachment cleared")
}

// Attachment returns the pending attachment
func (s *Session) Attachment() AttachmentInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.image != nil:
		return AttachmentInfo{Kind: "image", Name: s.image.Name}
	case s.document != nil:
		return AttachmentInfo{Kind: "document", Name: s.document.Label}
	}
	return AttachmentInfo{Kind: "none"}
}
