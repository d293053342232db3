package store

// lifecycle tracks one slice's in-flight operation state: idle -> pending ->
// (fulfilled | rejected). Every operation draws a monotonically increasing
// stamp at begin and presents it when writing its outcome; outcomes older
// than the last applied stamp are discarded, so a slow early response can
// never clobber a later one.
type lifecycle struct {
	loading bool
	err     string
	issued  uint64
	applied uint64
}

func (l *lifecycle) begin() uint64 {
	l.issued++
	l.loading = true
	l.err = ""
	return l.issued
}

// fulfill reports whether the outcome with this stamp may be applied.
func (l *lifecycle) fulfill(stamp uint64) bool {
	if stamp < l.applied {
		return false
	}
	l.applied = stamp
	l.loading = false
	l.err = ""
	return true
}

// reject records a failure message. Stale data owned by the slice is left
// untouched by design; only loading/error flip.
func (l *lifecycle) reject(stamp uint64, msg string) bool {
	if stamp < l.applied {
		return false
	}
	l.applied = stamp
	l.loading = false
	l.err = msg
	return true
}

// SliceState is the uniform `{loading, error}` view every slice exposes next
// to its data accessor.
type SliceState struct {
	Loading bool
	Error   string
}
