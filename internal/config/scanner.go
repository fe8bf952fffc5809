package config

import "strings"

// splitLine splits a raw config line into its first whitespace-delimited
// token and the remainder with leading blanks trimmed. Comments ('#' to
// end of line) and line terminators are stripped first. An empty or
// comment-only line yields an empty token.
func splitLine(line string) (token, rest string) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	line = strings.TrimRight(line, "\r\n \t")
	line = strings.TrimLeft(line, " \t")
	if line == "" {
		return "", ""
	}
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimLeft(line[i:], " \t")
}

// parseBoolean maps yes/no (case-insensitive) and 1/0 to 1/0. Anything
// else is -1, "unrecognized".
func parseBoolean(value string) int {
	switch {
	case strings.EqualFold(value, "yes"):
		return 1
	case strings.EqualFold(value, "no"):
		return 0
	case value == "1":
		return 1
	case value == "0":
		return 0
	}
	return -1
}

// allDigits reports whether s is a non-empty run of decimal digits.
func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
