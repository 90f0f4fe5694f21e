package review

import (
	"strings"
	"testing"
)

func TestValidateTitle(t *testing.T) {
	cases := []struct {
		name  string
		value string
		valid bool
	}{
		{"ok", "A perfectly fine title", true},
		{"empty", "", false},
		{"whitespace only", "   ", false},
		{"at limit", strings.Repeat("a", 255), true},
		{"over limit", strings.Repeat("a", 256), false},
		// Limits count characters, not bytes.
		{"multibyte at limit", strings.Repeat("é", 255), true},
		{"multibyte over limit", strings.Repeat("é", 256), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			message := ValidateTitle(tc.value)
			if tc.valid && message != "" {
				t.Fatalf("expected valid, got %q", message)
			}
			if !tc.valid && message == "" {
				t.Fatalf("expected a validation message")
			}
		})
	}
}

func TestValidateSlug(t *testing.T) {
	cases := []struct {
		name  string
		value string
		valid bool
	}{
		{"ok", "my-photo-2", true},
		{"empty is allowed", "", true},
		{"uppercase", "My-Photo", false},
		{"spaces", "my photo", false},
		{"underscore", "my_photo", false},
		{"over limit", strings.Repeat("a", 256), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			message := ValidateSlug(tc.value)
			if tc.valid && message != "" {
				t.Fatalf("expected valid, got %q", message)
			}
			if !tc.valid && message == "" {
				t.Fatalf("expected a validation message")
			}
		})
	}
}

func TestValidateTags(t *testing.T) {
	if message := ValidateTags(nil); message == "" {
		t.Fatalf("expected empty tag list to fail")
	}
	if message := ValidateTags([]Tag{{Name: "sunset"}}); message != "" {
		t.Fatalf("expected one tag to pass, got %q", message)
	}
}

func TestValidateDescription(t *testing.T) {
	if message := ValidateDescription(""); message != "" {
		t.Fatalf("expected empty description to pass, got %q", message)
	}
	if message := ValidateDescription(strings.Repeat("d", 1001)); message == "" {
		t.Fatalf("expected over-limit description to fail")
	}
	if message := ValidateDescription(strings.Repeat("ü", 1000)); message != "" {
		t.Fatalf("expected 1000 multibyte characters to pass, got %q", message)
	}
}

func TestFieldErrorsAreSparse(t *testing.T) {
	session, _, _, _ := newTestSession(t, pendingFile("pf_1", "photo.jpg"))

	if errs := session.ErrorsFor("pf_1"); errs != nil {
		t.Fatalf("fresh file should have no error entry, got %v", errs)
	}

	if err := session.SetTitle("pf_1", ""); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}
	errs := session.ErrorsFor("pf_1")
	if errs == nil || errs["title"] == "" {
		t.Fatalf("expected a title error, got %v", errs)
	}

	// Fixing the field clears its entry, and with no remaining errors the
	// whole map disappears.
	if err := session.SetTitle("pf_1", "Fixed"); err != nil {
		t.Fatalf("SetTitle: %v", err)
	}
	if errs := session.ErrorsFor("pf_1"); errs != nil {
		t.Fatalf("expected error map to vanish, got %v", errs)
	}
}
