package warehouse

import "strings"

var dashes = strings.NewReplacer("–", "-", "—", "-", "−", "-")

// Normalize is the single comparison form for warehouse and line names:
// trimmed, lower-cased, inner whitespace collapsed, typographic dashes folded to '-'.
func Normalize(name string) string {
	name = dashes.Replace(name)
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// Same reports whether two names refer to the same warehouse or line.
func Same(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
