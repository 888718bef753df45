package server

import (
	"net/http"
	"regexp"

	"github.com/d4l-data4life/go-svc/pkg/log"
	"github.com/d4l-data4life/go-svc/pkg/logging"
)

const redacted = "***"

var (
	messagesURL   = regexp.MustCompile(`/conversations/[^/]+/(messages|transcript)(\?.*)?$`)
	attachmentURL = regexp.MustCompile(`/conversations/[^/]+/attachment$`)
	transcribeURL = regexp.MustCompile(`/conversations/[^/]+/transcribe(\?.*)?$`)

	contentField = regexp.MustCompile(`"content"\s*:\s*"(?:[^"\\]|\\.)*"`)
	pathField    = regexp.MustCompile(`"(path|imagePath)"\s*:\s*"(?:[^"\\]|\\.)*"`)
	textField    = regexp.MustCompile(`"text"\s*:\s*"(?:[^"\\]|\\.)*"`)
	anything     = regexp.MustCompile(`(?s).+`)
)

// RequestLogger sets up the middleware to log API requests.
// Bodies carrying user content are redacted before they are logged.
func RequestLogger() func(http.Handler) http.Handler {
	return logging.Logger().HTTPMiddleware(
		log.WithCallerIPParser(getCallerIPFromRequest),
		LogObfuscators(),
	)
}

// getCallerIPFromRequest is used by the logger to extract the caller's IP address
func getCallerIPFromRequest(r *http.Request) string {
	return r.RemoteAddr
}

// LogObfuscators returns log obfuscators for use with the http logging middleware
func LogObfuscators() func(*log.HTTPLogger) {
	return log.WithObfuscators(
		// user turns going in, stored turns coming back
		obfuscator(log.HTTPInRequest, http.MethodPost, messagesURL, contentField, `"content":"`+redacted+`"`),
		obfuscator(log.HTTPInResponse, http.MethodPost, messagesURL, contentField, `"content":"`+redacted+`"`),
		obfuscator(log.HTTPInResponse, http.MethodGet, messagesURL, contentField, `"content":"`+redacted+`"`),
		obfuscator(log.HTTPInResponse, http.MethodGet, messagesURL, pathField, `"$1":"`+redacted+`"`),
		// attachments name files on the user's disk
		obfuscator(log.HTTPInRequest, http.MethodPost, attachmentURL, pathField, `"$1":"`+redacted+`"`),
		// raw audio in, recognized speech out
		obfuscator(log.HTTPInRequest, http.MethodPost, transcribeURL, anything, redacted),
		obfuscator(log.HTTPInResponse, http.MethodPost, transcribeURL, textField, `"text":"`+redacted+`"`),
	)
}

func obfuscator(event log.EventType, method string, url, replace *regexp.Regexp, with string) log.Obfuscator {
	return log.Obfuscator{
		EventType: event,
		ReqMethod: method,
		ReqURL:    url,
		Field:     log.Body,
		Replace:   replace,
		With:      with,
	}
}
