package version

import (
	"strings"
	"testing"
)

func TestBanner_Default(t *testing.T) {
	b := Banner()
	if !strings.HasPrefix(b, "bitsmith ") {
		t.Fatalf("Banner = %q", b)
	}
	// The version may carry color escapes; the digits must still be there.
	if !strings.Contains(b, "0.1.0-dev") {
		t.Errorf("Banner %q misses the default version", b)
	}
}

func TestBanner_EmptyVersionFallsBack(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = ""
	if b := Banner(); !strings.Contains(b, "dev") {
		t.Errorf("Banner %q misses the dev fallback", b)
	}
}

func TestVersion_LdflagsOverride(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "1.2.3"
	if !strings.Contains(Banner(), "1.2.3") {
		t.Fatalf("Banner = %q", Banner())
	}
}
