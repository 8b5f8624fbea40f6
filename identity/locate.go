package identity

import (
	"path"
	"runtime"
	"strings"
)

// moduleRoot is the directory holding this module's sources, taken from
// this file's own path.
var moduleRoot = func() string {
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	return path.Dir(path.Dir(file))
}()

const maxDepth = 64

// Locate returns the source file of the nearest caller that is not part
// of this module's library code. Test files count as callers.
func Locate() (string, error) {
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(2, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.File != "" && !internalFrame(frame) {
			return frame.File, nil
		}
		if !more {
			break
		}
	}
	return "", ErrNoCallSite
}

func internalFrame(f runtime.Frame) bool {
	if strings.HasPrefix(f.Function, "runtime.") || strings.HasPrefix(f.Function, "testing.") {
		return true
	}
	return isLibraryFile(f.File)
}

func isLibraryFile(file string) bool {
	if moduleRoot == "" || strings.HasSuffix(file, "_test.go") {
		return false
	}
	return strings.HasPrefix(file, moduleRoot+"/")
}
