package query

import "strings"

// StringSlice parses a comma-separated filter parameter (e.g. the
// collaboration type filter "performer-performer,key-crew") into a trimmed
// slice of values. Empty segments are dropped; an empty input yields nil,
// which filter consumers read as "no filtering".
func StringSlice(val string) []string {
	if val == "" {
		return nil
	}
	var res []string
	for _, v := range strings.Split(val, ",") {
		clean := strings.TrimSpace(v)
		if clean != "" {
			res = append(res, clean)
		}
	}
	return res
}
