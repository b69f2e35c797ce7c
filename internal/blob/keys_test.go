package blob

import "testing"

func TestScreenshotKey(t *testing.T) {
	got := ScreenshotKey("sess-abc123", "01_initializing.png")
	want := "sessions/sess-abc123/screenshots/01_initializing.png"
	if got != want {
		t.Errorf("ScreenshotKey = %q, want %q", got, want)
	}
}

func TestCertificateKey(t *testing.T) {
	got := CertificateKey("sess-abc123", "certificate.pdf")
	want := "sessions/sess-abc123/pdfs/certificate.pdf"
	if got != want {
		t.Errorf("CertificateKey = %q, want %q", got, want)
	}
}

func TestSessionPrefixCoversArtifacts(t *testing.T) {
	prefix := SessionPrefix("sess-abc123")
	for _, key := range []string{
		ScreenshotKey("sess-abc123", "01_initializing.png"),
		CertificateKey("sess-abc123", "certificate.pdf"),
	} {
		if len(key) <= len(prefix) || key[:len(prefix)] != prefix {
			t.Errorf("key %q not covered by prefix %q", key, prefix)
		}
	}
}

func TestParseScreenshotKey(t *testing.T) {
	for _, tc := range []struct {
		key           string
		wantSession   string
		wantFilename  string
		wantOK        bool
	}{
		{"sessions/sess-abc123/screenshots/01_init.png", "sess-abc123", "01_init.png", true},
		{"sessions/sess-abc123/pdfs/certificate.pdf", "", "", false},
		{"other/sess-abc123/screenshots/x.png", "", "", false},
		{"sessions/sess-abc123/screenshots", "", "", false},
	} {
		sessionID, filename, ok := ParseScreenshotKey(tc.key)
		if ok != tc.wantOK || sessionID != tc.wantSession || filename != tc.wantFilename {
			t.Errorf("ParseScreenshotKey(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tc.key, sessionID, filename, ok, tc.wantSession, tc.wantFilename, tc.wantOK)
		}
	}
}
