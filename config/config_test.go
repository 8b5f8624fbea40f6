package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonwraymond/filememo/freshness"
	"github.com/jonwraymond/filememo/memo"
	"github.com/jonwraymond/filememo/observe"
)

func TestParse_Full(t *testing.T) {
	t.Setenv("CACHE_ROOT", "/var/cache")

	cfg, err := Parse([]byte(`
dir: ${CACHE_ROOT}/reports
max_age: 90m
exceptions_max_age: never
version: 3
codec: msgpack
coalesce: true
observe:
  service_name: reports
  logging:
    enabled: true
    level: debug
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if cfg.Dir != "/var/cache/reports" {
		t.Errorf("Dir = %q", cfg.Dir)
	}
	if d, ok := cfg.MaxAge.MaxAge(); !ok || d != 90*time.Minute {
		t.Errorf("MaxAge = %v", cfg.MaxAge)
	}
	if !cfg.ExceptionsMaxAge.IsNever() {
		t.Errorf("ExceptionsMaxAge = %v, want never", cfg.ExceptionsMaxAge)
	}
	if cfg.Version != 3 || !cfg.Coalesce {
		t.Errorf("Version/Coalesce = %d/%v", cfg.Version, cfg.Coalesce)
	}
	if cfg.Codec != "msgpack" {
		t.Errorf("Codec = %q", cfg.Codec)
	}
	if cfg.Observe == nil || cfg.Observe.ServiceName != "reports" || cfg.Observe.Logging.Level != "debug" {
		t.Errorf("Observe = %+v", cfg.Observe)
	}
}

func TestParse_Defaults(t *testing.T) {
	for _, doc := range []string{"", "version: 0\n"} {
		cfg, err := Parse([]byte(doc))
		if err != nil {
			t.Fatalf("Parse(%q) error = %v", doc, err)
		}
		if cfg.Dir != memo.DefaultDir() {
			t.Errorf("Dir = %q, want %q", cfg.Dir, memo.DefaultDir())
		}
		if !cfg.MaxAge.IsUnbounded() || !cfg.ExceptionsMaxAge.IsUnbounded() {
			t.Errorf("policies = %v/%v, want unbounded", cfg.MaxAge, cfg.ExceptionsMaxAge)
		}
		if cfg.Observe != nil {
			t.Error("Observe should be nil by default")
		}
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want error
	}{
		{name: "bad duration", doc: "max_age: soon\n", want: freshness.ErrInvalidPolicy},
		{name: "negative duration", doc: "exceptions_max_age: -1s\n", want: freshness.ErrInvalidPolicy},
		{name: "negative version", doc: "version: -1\n", want: ErrInvalidVersion},
		{name: "unknown codec", doc: "codec: gob\n", want: ErrInvalidCodec},
		{name: "missing env", doc: "dir: ${FILEMEMO_SURELY_UNSET}/x\n", want: ErrMissingEnv},
		{name: "invalid observe", doc: "observe:\n  service_name: ''\n", want: observe.ErrMissingServiceName},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if !errors.Is(err, tc.want) {
				t.Fatalf("Parse() error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("max_agee: 1h\n"))
	if err == nil || !strings.Contains(err.Error(), "max_agee") {
		t.Fatalf("Parse() error = %v, want unknown field", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filememo.yaml")
	if err := os.WriteFile(path, []byte("dir: "+dir+"\nmax_age: 1s\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Dir != dir {
		t.Errorf("Dir = %q", cfg.Dir)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v", err)
	}
}

func TestOptions_DriveMemo(t *testing.T) {
	cfg, err := Parse([]byte("dir: " + t.TempDir() + "\nexceptions_max_age: never\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	calls := 0
	f, err := memo.Wrap(func(_ context.Context, n int) (int, error) {
		calls++
		if n < 0 {
			return 0, errors.New("negative")
		}
		return n, nil
	}, cfg.Options()...)
	if err != nil {
		t.Fatalf("Wrap() error = %v", err)
	}

	ctx := context.Background()
	_, _ = f.Call(ctx, 1)
	_, _ = f.Call(ctx, 1)
	_, _ = f.Call(ctx, -1)
	_, _ = f.Call(ctx, -1)
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (results cached, errors not)", calls)
	}
	if !strings.HasPrefix(f.Dir(), cfg.Dir) {
		t.Errorf("Dir() = %q, want under %q", f.Dir(), cfg.Dir)
	}
}

func TestObserver(t *testing.T) {
	obs, err := Default().Observer(context.Background())
	if err != nil || obs != nil {
		t.Fatalf("Observer() = %v, %v; want nil, nil", obs, err)
	}

	cfg := Default()
	cfg.Observe = &observe.Config{ServiceName: "reports"}
	obs, err = cfg.Observer(context.Background())
	if err != nil {
		t.Fatalf("Observer() error = %v", err)
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()
	if obs.Logger() == nil {
		t.Error("Logger() is nil")
	}
}

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("PRESENT", "ok")

	tests := []struct {
		in      string
		want    string
		missing string
	}{
		{in: "plain", want: "plain"},
		{in: "a=${PRESENT}", want: "a=ok"},
		{in: "$$${PRESENT}", want: "$ok"},
		{in: "a=${PRESENT} b=${MISSING_B} c=${MISSING_A} d=${MISSING_B}", missing: "MISSING_A, MISSING_B"},
	}

	for _, tc := range tests {
		got, err := ExpandEnvStrict(tc.in)
		if tc.missing != "" {
			if !errors.Is(err, ErrMissingEnv) || !strings.HasSuffix(err.Error(), tc.missing) {
				t.Errorf("ExpandEnvStrict(%q) error = %v, want missing %s", tc.in, err, tc.missing)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ExpandEnvStrict(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}
