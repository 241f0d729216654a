package common

import (
	"strings"
	"testing"
)

func TestProgramVersion(t *testing.T) {
	v := ProgramVersion{Version: "1.2.3", CommitHash: "abc123", BuildTime: "2026-01-01"}

	if got := v.Short(); got != "v1.2.3-abc123-2026-01-01" {
		t.Errorf("Short() = %q", got)
	}
	if got := v.UserAgent(); got != "storefront-detector/1.2.3" {
		t.Errorf("UserAgent() = %q", got)
	}
	if got := v.String(); !strings.HasPrefix(got, "storefront-detector v1.2.3\n") || !strings.Contains(got, "Commit: abc123") {
		t.Errorf("String() = %q", got)
	}
}
