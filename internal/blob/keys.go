package blob

import (
	"fmt"
	"strings"
)

// Content types for stored artifacts.
const (
	ContentTypePNG = "image/png"
	ContentTypePDF = "application/pdf"
)

// ScreenshotKey builds the object key for a session screenshot.
func ScreenshotKey(sessionID, filename string) string {
	return fmt.Sprintf("sessions/%s/screenshots/%s", sessionID, filename)
}

// CertificateKey builds the object key for a session's result certificate PDF.
func CertificateKey(sessionID, filename string) string {
	return fmt.Sprintf("sessions/%s/pdfs/%s", sessionID, filename)
}

// SessionPrefix is the key prefix covering every artifact of one session,
// used to cascade deletes.
func SessionPrefix(sessionID string) string {
	return fmt.Sprintf("sessions/%s/", sessionID)
}

// ParseScreenshotKey extracts the session ID and filename from a
// screenshot object key.
func ParseScreenshotKey(key string) (sessionID, filename string, ok bool) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 || parts[0] != "sessions" || parts[2] != "screenshots" {
		return "", "", false
	}
	return parts[1], parts[3], true
}
