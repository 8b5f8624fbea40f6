package observe

import "strconv"

// FuncMeta describes a memoized function for telemetry purposes.
type FuncMeta struct {
	Name     string // Qualified function name (pkg.outer.func1)
	Identity string // Full identity string persisted in the cache marker
	Dir      string // Cache directory, once allocated (optional)
	Version  int    // Record store version
}

// SpanName returns the deterministic span name for this function.
// Format: memo.call.<name>
func (m FuncMeta) SpanName() string {
	return "memo.call." + m.Name
}

func (m FuncMeta) fields() map[string]any {
	attrs := map[string]any{
		"func.name":    m.Name,
		"func.version": strconv.Itoa(m.Version),
	}
	if m.Dir != "" {
		attrs["func.dir"] = m.Dir
	}
	return attrs
}
