package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/osfs"
)

func TestDirChecker_Writable(t *testing.T) {
	dir := t.TempDir()
	c := NewDirChecker(osfs.New(dir))

	r := c.Check(context.Background())
	if r.Status != StatusHealthy {
		t.Fatalf("Status = %v (%s: %v)", r.Status, r.Message, r.Error)
	}
	if r.Details["root"] != dir {
		t.Errorf("Details[root] = %v, want %s", r.Details["root"], dir)
	}
	if r.Duration <= 0 {
		t.Error("Duration not recorded")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("probe left behind: %v", entries)
	}
}

func TestDirChecker_Missing(t *testing.T) {
	c := NewDirChecker(osfs.New(filepath.Join(t.TempDir(), "not-yet")))
	if r := c.Check(context.Background()); r.Status != StatusDegraded {
		t.Errorf("Status = %v, want degraded", r.Status)
	}
}

func TestDirChecker_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewDirChecker(osfs.New(file)).Check(context.Background())
	if r.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", r.Status)
	}
}

func TestDirChecker_NilAndCancelled(t *testing.T) {
	if r := NewDirChecker(nil).Check(context.Background()); !errors.Is(r.Error, ErrNilFilesystem) {
		t.Errorf("nil fs: Error = %v", r.Error)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if r := NewDirChecker(osfs.New(t.TempDir())).Check(ctx); r.Status != StatusUnhealthy {
		t.Errorf("cancelled: Status = %v", r.Status)
	}
}

func TestDirChecker_Named(t *testing.T) {
	base := NewDirChecker(osfs.New(t.TempDir()))
	named := base.Named("reports_cache")
	if named.Name() != "reports_cache" || base.Name() != "cache_dir" {
		t.Errorf("names = %q, %q", named.Name(), base.Name())
	}
}
