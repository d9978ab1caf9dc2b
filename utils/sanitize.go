package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans user-submitted text to prevent XSS before it is stored.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
