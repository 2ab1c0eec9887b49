// Package env loads .env files and resolves command line settings that
// can come from either a flag or the environment.
package env

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/campusapp/go-campusdata/logger"
)

// Line is one KEY=value assignment.
type Line struct {
	Key string `json:"key"`
	Val string `json:"val"`
}

// ParseFile parses a .env file. A missing file yields no lines.
func ParseFile(filename string) ([]Line, error) {
	buf, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Line{}, nil
		}
		return nil, errors.Wrapf(err, "read %s", filename)
	}
	return Parse(buf), nil
}

// Parse parses KEY=value lines. Blank lines and lines starting with # are
// skipped, an optional "export " prefix is dropped and matching single or
// double quotes around a value are removed. ${NAME} and ${NAME:-default}
// refer to keys defined in the same buffer; ${env:NAME} refers to the
// process environment.
func Parse(buf []byte) []Line {
	lines := []Line{}
	vars := make(map[string]string)
	for _, raw := range strings.Split(string(buf), "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		l := parseLine(strings.TrimPrefix(raw, "export "))
		if l.Key == "" {
			continue
		}
		l.Val = interpolate(l.Val, vars)
		vars[l.Key] = l.Val
		lines = append(lines, l)
	}
	return lines
}

func parseLine(s string) Line {
	key, val, ok := strings.Cut(s, "=")
	if !ok {
		return Line{Key: strings.TrimSpace(s)}
	}
	return Line{Key: strings.TrimSpace(key), Val: dequote(strings.TrimSpace(val))}
}

func dequote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}

// interpolate expands ${...} references. Unresolvable references without
// a default are kept verbatim.
func interpolate(s string, vars map[string]string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.IndexByte(s[start:], '}')
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		end += start
		b.WriteString(s[:start])
		ref := s[start : end+1]
		name, def, _ := strings.Cut(s[start+2:end], ":-")
		var val string
		if envName, ok := strings.CutPrefix(name, "env:"); ok {
			val = os.Getenv(envName)
		} else {
			val = vars[name]
		}
		switch {
		case name == "":
			b.WriteString(ref)
		case val != "":
			b.WriteString(val)
		case def != "":
			b.WriteString(def)
		default:
			b.WriteString(ref)
		}
		s = s[end+1:]
	}
}

// Map returns the process environment overlaid on lines. Variables that
// are already set in the process win over the file.
func Map(lines []Line) map[string]string {
	out := make(map[string]string, len(lines))
	for _, l := range lines {
		out[l.Key] = l.Val
	}
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

// Encode formats key and val as a line Parse reads back.
func Encode(key, val string) string {
	val = strings.ReplaceAll(val, "\n", "\\n")
	switch {
	case strings.Contains(val, `"`):
		val = `'` + val + `'`
	case strings.ContainsAny(val, " #'\\"):
		val = `"` + val + `"`
	}
	return fmt.Sprintf("%s=%s", key, val)
}

// EncodeMap formats vars sorted by key.
func EncodeMap(vars map[string]string) []string {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, Encode(k, vars[k]))
	}
	return out
}

// Mask keeps the first half of s and replaces the rest with asterisks.
func Mask(s string) string {
	l := len(s)
	if l <= 1 {
		return strings.Repeat("*", l)
	}
	h := l / 2
	return s[:h] + strings.Repeat("*", l-h)
}

// MaskURL hides the password of a connection URL, such as a Redis URL.
// Unparseable input is masked as a whole.
func MaskURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return Mask(raw)
	}
	return u.Redacted()
}

// FlagOrEnv will try and get a flag from the cobra.Command and if not found, look it up in the environment
// and fallback to defaultValue if non found
func FlagOrEnv(cmd *cobra.Command, flagName string, envName string, defaultValue string) string {
	flagValue, _ := cmd.Flags().GetString(flagName)
	if flagValue != "" {
		return flagValue
	}
	if val, ok := os.LookupEnv(envName); ok {
		return val
	}
	return defaultValue
}

// LogLevel resolves --log-level, then CAMPUS_LOG_LEVEL, defaulting to info.
func LogLevel(cmd *cobra.Command) logger.LogLevel {
	return logger.ParseLevel(FlagOrEnv(cmd, "log-level", logger.LevelEnv, "info"), logger.LevelInfo)
}

// NewLogger returns a logger honoring the --log-level and --log-format
// flags. A json format writes structured lines; anything else writes to
// the console.
func NewLogger(cmd *cobra.Command) logger.Logger {
	level := LogLevel(cmd)
	if FlagOrEnv(cmd, "log-format", "CAMPUS_LOG_FORMAT", "console") == "json" {
		return logger.NewJSONLogger(level)
	}
	return logger.NewConsoleLogger(level)
}
