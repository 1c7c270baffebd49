package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyStep       = "step"
	KeyInvocation = "invocation"
	KeyTarget     = "target"
	KeyResult     = "result"
	KeyPath       = "path"
	KeyGlob       = "glob"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func Step(name string) slog.Attr         { return slog.String(KeyStep, name) }
func Invocation(id string) slog.Attr     { return slog.String(KeyInvocation, id) }
func Target(name string) slog.Attr       { return slog.String(KeyTarget, name) }
func Result(r string) slog.Attr          { return slog.String(KeyResult, r) }
func Path(p string) slog.Attr            { return slog.String(KeyPath, p) }
func Glob(g string) slog.Attr            { return slog.String(KeyGlob, g) }
func Count(n int) slog.Attr              { return slog.Int(KeyCount, n) }
func Duration(d time.Duration) slog.Attr { return slog.Float64(KeyDurationMS, float64(d.Microseconds())/1000) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
