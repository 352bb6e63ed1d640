package credential

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/offtube/offtube/constant"
)

const httpOnlyPrefix = "#HttpOnly_"

// Marshal renders cookies in the tab separated cookie file layout:
// domain, http-only flag, path, secure flag, expiry, name, value.
func Marshal(cookies []Cookie) []byte {
	var buf bytes.Buffer

	for _, line := range constant.CookieFileHeader {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')

	for _, c := range cookies {
		fmt.Fprintf(&buf, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			c.Domain,
			flag(c.HTTPOnly),
			c.Path,
			flag(c.Secure),
			c.Expires,
			c.Name,
			c.Value,
		)
	}

	return buf.Bytes()
}

// Parse reads a cookie file. Comment and blank lines are skipped; lines
// prefixed with "#HttpOnly_" are cookies with the http-only flag forced on.
func Parse(r io.Reader) ([]Cookie, error) {
	var (
		cookies []Cookie
		scanner = bufio.NewScanner(r)
		n       int
	)

	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		n++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		forceHTTPOnly := false
		if strings.HasPrefix(line, httpOnlyPrefix) {
			line = strings.TrimPrefix(line, httpOnlyPrefix)
			forceHTTPOnly = true
		} else if strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) != 7 {
			return nil, fmt.Errorf("cookie file line %d: expected 7 fields, got %d", n, len(fields))
		}

		expires, err := parseExpiry(fields[4])
		if err != nil {
			return nil, fmt.Errorf("cookie file line %d: %w", n, err)
		}

		cookies = append(cookies, Cookie{
			Domain:   fields[0],
			HTTPOnly: forceHTTPOnly || isTrue(fields[1]),
			Path:     fields[2],
			Secure:   isTrue(fields[3]),
			Expires:  expires,
			Name:     fields[5],
			Value:    fields[6],
		})
	}

	return cookies, scanner.Err()
}

func flag(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func isTrue(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "TRUE")
}

func parseExpiry(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid expiry %q", s)
	}
	return int64(math.Floor(f)), nil
}
