package domain

import "testing"

func TestUser_DisplayName(t *testing.T) {
	if got := (User{FirstName: "Alice"}).DisplayName(); got != "Alice" {
		t.Errorf("first name only: got %q", got)
	}
	if got := (User{FirstName: "Alice", LastName: "Smith"}).DisplayName(); got != "Alice Smith" {
		t.Errorf("full name: got %q", got)
	}
}

func TestAttachment_MediaType(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"video/webm", "video/webm"},
		{"Video/WebM", "video/webm"},
		{"video/webm; codecs=vp9", "video/webm"},
		{"  video/mp4 ", "video/mp4"},
		{"", ""},
	}
	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			if got := (Attachment{MimeType: tc.raw}).MediaType(); got != tc.want {
				t.Errorf("MediaType(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}
