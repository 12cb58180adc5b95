package inspect

import "strings"

// Marker names recognized on callables.
const (
	MarkerView     = "view"
	MarkerCall     = "call"
	MarkerInit     = "init"
	MarkerPrivate  = "private"
	MarkerPayable  = "payable"
	MarkerCallback = "callback"
)

var knownMarkers = map[string]bool{
	MarkerView: true, MarkerCall: true, MarkerInit: true,
	MarkerPrivate: true, MarkerPayable: true, MarkerCallback: true,
}

// NormalizeMarker maps a decorator name such as "near.view" or "view" to
// its marker name. ok is false for anything else.
func NormalizeMarker(name string) (string, bool) {
	if i := strings.LastIndex(name, "."); i >= 0 {
		prefix := name[:i]
		if prefix != "near" && prefix != "near_sdk_py" && prefix != "near_sdk" {
			return "", false
		}
		name = name[i+1:]
	}
	return name, knownMarkers[name]
}

// HasMarker reports whether any of the callable's markers is recognized.
func (c *Callable) HasMarker() bool {
	for _, m := range c.Markers {
		if _, ok := NormalizeMarker(m.Name); ok {
			return true
		}
	}
	return false
}
