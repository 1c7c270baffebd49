package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"Step", KeyStep, "css:svg", Step("css:svg")},
		{"Invocation", KeyInvocation, "abc", Invocation("abc")},
		{"Target", KeyTarget, "build", Target("build")},
		{"Result", KeyResult, "completed", Result("completed")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Glob", KeyGlob, "**/*.js", Glob("**/*.js")},
	}
	for _, c := range cases {
		if c.attr.Key != c.attrKey {
			t.Errorf("%s: key = %q, want %q", c.name, c.attr.Key, c.attrKey)
		}
		if c.attr.Value.String() != c.attrVal {
			t.Errorf("%s: value = %q, want %q", c.name, c.attr.Value.String(), c.attrVal)
		}
	}
}

func TestErrorAndDuration(t *testing.T) {
	if Error(nil).Value.String() != "" {
		t.Error("nil error should produce empty value")
	}
	if Error(errors.New("boom")).Value.String() != "boom" {
		t.Error("error message not preserved")
	}
	if got := Duration(1500 * time.Microsecond).Value.Float64(); got != 1.5 {
		t.Errorf("duration ms = %v, want 1.5", got)
	}
	if Count(3).Value.Int64() != 3 {
		t.Error("count not preserved")
	}
}
