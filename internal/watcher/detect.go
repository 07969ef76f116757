package watcher

import "strings"

// Detection is the change detector's verdict for one run.
type Detection struct {
	Classification Classification
	// Changed is true when the digest differs from the stored one or nothing
	// was stored yet. It drives the persist step independently of the
	// keyword, which only affects the message.
	Changed bool
}

// Detect classifies a run. A keyword hit wins over a digest change, which
// wins over no change. An absent stored digest always counts as changed.
// The keyword test is a case-sensitive substring match on normalized content;
// an empty keyword never matches.
func Detect(current, stored string, found bool, content, keyword string) Detection {
	changed := !found || current != stored
	switch {
	case keyword != "" && strings.Contains(content, keyword):
		return Detection{Classification: KeywordFound, Changed: changed}
	case changed:
		return Detection{Classification: ContentChanged, Changed: true}
	default:
		return Detection{Classification: Unchanged}
	}
}
