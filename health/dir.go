package health

import (
	"context"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/google/uuid"
)

// DirChecker checks that a cache parent directory accepts writes.
//
// Each check writes a uniquely named probe file, reads it back, and
// removes it. A directory that does not exist yet is degraded, since the
// first memoized call creates it.
type DirChecker struct {
	name string
	fs   billy.Filesystem
}

// NewDirChecker creates a checker for the root of fsys.
func NewDirChecker(fsys billy.Filesystem) *DirChecker {
	return &DirChecker{name: "cache_dir", fs: fsys}
}

// Named returns a copy of the checker reporting under name.
func (d *DirChecker) Named(name string) *DirChecker {
	c := *d
	c.name = name
	return &c
}

// Name returns the name of this checker.
func (d *DirChecker) Name() string {
	return d.name
}

// Check performs the directory probe.
func (d *DirChecker) Check(ctx context.Context) Result {
	return timed(func() Result {
		if d.fs == nil {
			return Unhealthy("no filesystem", ErrNilFilesystem)
		}
		if err := ctx.Err(); err != nil {
			return Unhealthy("context cancelled", err)
		}

		details := map[string]any{"root": d.fs.Root()}
		if _, err := d.fs.Stat("."); err != nil {
			if os.IsNotExist(err) {
				return Degraded("cache directory does not exist yet").WithDetails(details)
			}
			return Unhealthy("cannot stat cache directory", err).WithDetails(details)
		}

		probe := ".health-" + uuid.NewString()
		want := []byte(probe)
		if err := util.WriteFile(d.fs, probe, want, 0o644); err != nil {
			return Unhealthy("cache directory is not writable", fmt.Errorf("%w: %w", ErrCheckFailed, err)).WithDetails(details)
		}
		defer func() { _ = d.fs.Remove(probe) }()

		got, err := util.ReadFile(d.fs, probe)
		if err != nil {
			return Unhealthy("cache directory is not readable", fmt.Errorf("%w: %w", ErrCheckFailed, err)).WithDetails(details)
		}
		if string(got) != string(want) {
			return Unhealthy("probe content mismatch", ErrProbeMismatch).WithDetails(details)
		}
		return Healthy("cache directory is writable").WithDetails(details)
	})
}

var _ Checker = (*DirChecker)(nil)
