package filter

import (
	"regexp"
)

// Filter decides whether an element is kept.
type Filter[T any] func(T) bool

// Combine combines filters into one which requires all of them.
func Combine[T any](fs ...Filter[T]) Filter[T] {
	return func(t T) bool {
		for _, f := range fs {
			if !f(t) {
				return false
			}
		}
		return true
	}
}

// AllowAll keeps every element.
func AllowAll[T any](_ T) bool {
	return true
}

// ByRegex keeps strings matching any of the given regexes. Without
// regexes, everything is kept.
func ByRegex(rxs []*regexp.Regexp) Filter[string] {
	if len(rxs) == 0 {
		return AllowAll[string]
	}
	return func(s string) bool {
		for _, r := range rxs {
			if r.MatchString(s) {
				return true
			}
		}
		return false
	}
}
