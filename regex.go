package til

import (
	"regexp"
	"sync"
)

var regexCompileCache sync.Map // string -> *regexp.Regexp

// regexCache compiles pattern once and reuses the result, since the same
// SettingDesc.Regex is matched against repeatedly across Setup retries.
// An invalid pattern compiles to a regexp that matches nothing, which
// surfaces as an ordinary validation failure rather than a panic.
func regexCache(pattern string) *regexp.Regexp {
	if v, ok := regexCompileCache.Load(pattern); ok {
		return v.(*regexp.Regexp)
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		re = regexp.MustCompile(`$.^`) // never matches
	}

	actual, _ := regexCompileCache.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp)
}
