package parse

import "strings"

// rawtext processes the raw text found between template tags, applying the
// whitespace control requested by the surrounding tags:
// - trimBefore: the preceding tag ended with "-", strip leading whitespace.
// - trimAfter: the following tag begins with "-", strip trailing whitespace.
func rawtext(s string, trimBefore, trimAfter bool) string {
	if trimBefore {
		s = strings.TrimLeft(s, " \t\r\n")
	}
	if trimAfter {
		s = strings.TrimRight(s, " \t\r\n")
	}
	return s
}
