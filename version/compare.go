// Package version tracks releases of the external downloader tool.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Compare orders two dotted version strings component by component.
// Returns 1 if a > b, -1 if a < b, and 0 if equal.
// Missing trailing components count as zero, so "2024.08.06" equals "2024.08.06.0".
func Compare(a, b string) (int, error) {
	av, err := parse(a)
	if err != nil {
		return 0, err
	}

	bv, err := parse(b)
	if err != nil {
		return 0, err
	}

	for i := 0; i < max(len(av), len(bv)); i++ {
		var x, y int
		if i < len(av) {
			x = av[i]
		}
		if i < len(bv) {
			y = bv[i]
		}

		switch {
		case x > y:
			return 1, nil
		case x < y:
			return -1, nil
		}
	}

	return 0, nil
}

// parse accepts "v1.2.3", "2024.08.06" and channel-prefixed forms like "nightly@2024.08.06.232808".
func parse(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimPrefix(s, "v")

	if s == "" {
		return nil, fmt.Errorf("empty version")
	}

	parts := strings.Split(s, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("version %q: %w", s, err)
		}
		out[i] = n
	}

	return out, nil
}
