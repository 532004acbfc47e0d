package item

import (
	"math"
	"regexp"
	"strconv"
)

var leadingInt = regexp.MustCompile(`\d+`)

// ProgressValue returns the first run of digits in s as an integer.
// Text without digits counts as 0, e.g. "Chapter 5" is 5 and "started" is 0.
func ProgressValue(s string) int {
	m := leadingInt.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return math.MaxInt
	}
	return n
}
