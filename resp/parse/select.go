package parse

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/algo-seisresp/resp"
)

// Filter selects channel epochs. Empty lists match every code; elements may
// contain the wildcards * and ?. A zero Time matches every epoch.
type Filter struct {
	Stations  []string
	Channels  []string
	Networks  []string
	Locations []string
	Time      time.Time
}

// SplitList splits a comma or space separated code list. An empty string
// yields nil.
func SplitList(s string) []string {
	f := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
	if len(f) == 0 {
		return nil
	}
	return f
}

// Match reports whether e passes every filter.
func (f Filter) Match(e resp.Epoch) bool {
	if !matchAny(f.Stations, e.Station) ||
		!matchAny(f.Channels, e.Channel) ||
		!matchAny(f.Networks, e.Network) ||
		!matchLocation(f.Locations, e.Location) {
		return false
	}
	return f.Time.IsZero() || e.Contains(f.Time)
}

// Select returns the candidates matching f in file order. Several epochs may
// match; choosing between them is left to the caller. No match yields a
// *NotFoundError.
func Select(cands []*resp.Response, f Filter) ([]*resp.Response, error) {
	var out []*resp.Response
	for _, c := range cands {
		if f.Match(c.Epoch) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, &NotFoundError{Filter: f}
	}
	return out, nil
}

// FileGlob returns the RESP.NET.STA.LOC.CHA file name pattern that may hold
// the epochs f selects. A component is narrowed only when f names exactly
// one code for it; blank-location codes match every file. Codes may contain
// letters, digits, '-', '*' and '?' only.
func FileGlob(f Filter) (string, error) {
	parts := [][]string{f.Networks, f.Stations, f.Locations, f.Channels}
	glob := "RESP"
	for _, codes := range parts {
		for _, c := range codes {
			if !validCode(c) {
				return "", fmt.Errorf("%w: %q", ErrInvalidCode, c)
			}
		}
		if len(codes) != 1 || codes[0] == "--" || codes[0] == "??" {
			glob += ".*"
			continue
		}
		glob += "." + codes[0]
	}
	return glob, nil
}

func validCode(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '-', r == '*', r == '?':
		default:
			return false
		}
	}
	return true
}

func matchAny(patterns []string, code string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if match(p, code) {
			return true
		}
	}
	return false
}

// matchLocation treats "??" and "--" as the blank location in addition to
// their wildcard meaning.
func matchLocation(patterns []string, loc string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if loc == "" && (p == "" || p == "??" || p == "--") {
			return true
		}
		if match(p, loc) {
			return true
		}
	}
	return false
}

func match(pattern, code string) bool {
	pattern = strings.ToUpper(strings.TrimSpace(pattern))
	code = strings.ToUpper(code)
	ok, err := path.Match(pattern, code)
	if err != nil {
		return pattern == code
	}
	return ok
}

// ParseTime reads a selection time given either as YYYY,DDD[,HH:MM:SS] or
// in RFC 3339 form. An empty string yields the zero time.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UTC(), nil
	}
	parts := strings.Split(s, ",")
	if len(parts) < 2 || len(parts) > 3 {
		return time.Time{}, fmt.Errorf("%w: time %q: %v", ErrInvalidField, s, errDate)
	}
	year, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
	day, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err1 != nil || err2 != nil {
		return time.Time{}, fmt.Errorf("%w: time %q: %v", ErrInvalidField, s, errDate)
	}
	clock := ""
	if len(parts) == 3 {
		clock = parts[2]
	}
	return Time(year, day, clock)
}
