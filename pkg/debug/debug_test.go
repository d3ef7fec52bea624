package debug

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseCategories(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  map[string]bool
	}{
		{"empty", "", map[string]bool{}},
		{"single", "providers", map[string]bool{"providers": true}},
		{"multiple", "providers,streaming", map[string]bool{"providers": true, "streaming": true}},
		{"all", "all", map[string]bool{"all": true}},
		{"with spaces", " providers , streaming ", map[string]bool{"providers": true, "streaming": true}},
		{"uppercase normalized", "PROVIDERS,Streaming", map[string]bool{"providers": true, "streaming": true}},
		{"empty segments", "providers,,streaming", map[string]bool{"providers": true, "streaming": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseCategories(tt.input)
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%q] = %v, want %v", k, got[k], v)
				}
			}
			if len(got) != len(tt.want) {
				t.Errorf("len(got) = %d, want %d", len(got), len(tt.want))
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	// Save and restore.
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("providers,streaming")

	if !Enabled("providers") {
		t.Error("providers should be enabled")
	}
	if !Enabled("streaming") {
		t.Error("streaming should be enabled")
	}
	if Enabled("secrets") {
		t.Error("secrets should not be enabled")
	}
	if Enabled("all") {
		t.Error("all should not be enabled (not in categories)")
	}
}

func TestEnabled_All(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("all")

	if !Enabled("providers") {
		t.Error("providers should be enabled via 'all'")
	}
	if !Enabled("streaming") {
		t.Error("streaming should be enabled via 'all'")
	}
	if !Enabled("anything") {
		t.Error("anything should be enabled via 'all'")
	}
}

func TestEnabled_Empty(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("")

	if Enabled("providers") {
		t.Error("nothing should be enabled when no categories set")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"TRACE", LevelTrace},
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"unknown", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseLevel(tt.input)
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate short = %q, want %q", got, "short")
	}
	if got := Truncate("this is a long string", 10); got != "this is a ..." {
		t.Errorf("Truncate long = %q, want %q", got, "this is a ...")
	}
}

func TestLog_DisabledCategory(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("")

	// Should not panic or produce output.
	Log("providers", "test message", "key", "value")
	Trace("providers", "trace message", "key", "value")
}

func TestInit_JSONFormat(t *testing.T) {
	origCats := categories
	origLogger := slog.Default()
	origOutput := output
	defer func() {
		categories = origCats
		slog.SetDefault(origLogger)
		output = origOutput
	}()
	t.Setenv("MAILASSIST_DEBUG", "")
	t.Setenv("MAILASSIST_LOG_LEVEL", "")

	var buf bytes.Buffer
	Init(Options{Categories: "streaming", Level: "debug", Format: "json", Output: &buf})

	Log("streaming", "chunk received", "index", 0)
	Log("providers", "suppressed")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "chunk received" {
		t.Errorf("msg = %v, want %q", entry["msg"], "chunk received")
	}
	if entry["debug"] != "streaming" {
		t.Errorf("debug = %v, want %q", entry["debug"], "streaming")
	}
}

func TestInit_EnvOverridesOptions(t *testing.T) {
	origCats := categories
	origLogger := slog.Default()
	origOutput := output
	defer func() {
		categories = origCats
		slog.SetDefault(origLogger)
		output = origOutput
	}()
	t.Setenv("MAILASSIST_DEBUG", "secrets")
	t.Setenv("MAILASSIST_LOG_LEVEL", "")

	var buf bytes.Buffer
	Init(Options{Categories: "providers", Output: &buf})

	if !Enabled("secrets") {
		t.Error("secrets should be enabled from env")
	}
	if Enabled("providers") {
		t.Error("providers should not be enabled when env overrides config")
	}
}

func TestRedactCredential(t *testing.T) {
	if got := RedactCredential("sk-abcdef1234"); got != "*********1234" {
		t.Errorf("RedactCredential = %q", got)
	}
	if got := RedactCredential("abc"); got != "***" {
		t.Errorf("RedactCredential short = %q, want %q", got, "***")
	}
}

func TestTraceIsEnabled(t *testing.T) {
	origCats := categories
	origLogger := slog.Default()
	origOutput := output
	defer func() {
		categories = origCats
		slog.SetDefault(origLogger)
		output = origOutput
	}()
	t.Setenv("MAILASSIST_DEBUG", "")
	t.Setenv("MAILASSIST_LOG_LEVEL", "")

	var buf bytes.Buffer
	Init(Options{Categories: "providers", Level: "trace", Output: &buf})
	if !TraceIsEnabled("providers") {
		t.Error("TraceIsEnabled(providers) = false at TRACE level")
	}
	if TraceIsEnabled("streaming") {
		t.Error("TraceIsEnabled(streaming) = true for a disabled category")
	}

	Init(Options{Categories: "providers", Level: "debug", Output: &buf})
	if TraceIsEnabled("providers") {
		t.Error("TraceIsEnabled(providers) = true at DEBUG level")
	}
}

func TestCategories_Sorted(t *testing.T) {
	orig := categories
	defer func() { categories = orig }()

	categories = parseCategories("streaming, Providers,secrets")
	got := strings.Join(Categories(), ",")
	if got != "providers,secrets,streaming" {
		t.Errorf("Categories() = %q, want %q", got, "providers,secrets,streaming")
	}
}

func TestRaw_WritesToInitOutput(t *testing.T) {
	origCats := categories
	origLogger := slog.Default()
	origOutput := output
	defer func() {
		categories = origCats
		slog.SetDefault(origLogger)
		output = origOutput
	}()
	t.Setenv("MAILASSIST_DEBUG", "")
	t.Setenv("MAILASSIST_LOG_LEVEL", "")

	var buf bytes.Buffer
	Init(Options{Categories: "providers", Level: "trace", Output: &buf})
	Raw("providers", `{"model":"m"}`)
	Raw("streaming", "suppressed")

	if got := buf.String(); got != "{\"model\":\"m\"}\n" {
		t.Errorf("Raw output = %q", got)
	}

	buf.Reset()
	Init(Options{Categories: "providers", Level: "debug", Output: &buf})
	Raw("providers", "suppressed")
	if buf.Len() != 0 {
		t.Errorf("Raw wrote below TRACE: %q", buf.String())
	}
}
