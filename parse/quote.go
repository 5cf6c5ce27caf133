package parse

import (
	"errors"
	"strconv"
	"unicode/utf8"
)

var unescapes = map[rune]rune{
	'\\': '\\',
	'\'': '\'',
	'"':  '"',
	'n':  '\n',
	'r':  '\r',
	't':  '\t',
	'b':  '\b',
	'f':  '\f',
}

// unquoteString takes a quoted template string literal (including the
// surrounding single or double quotes) and returns the unquoted string, along
// with any error encountered.
func unquoteString(s string) (string, error) {
	n := len(s)
	if n < 2 {
		return "", errors.New("too short a string")
	}

	var quote = s[0]
	if (quote != '\'' && quote != '"') || quote != s[n-1] {
		return "", errors.New("string not surrounded by quotes")
	}

	s = s[1 : n-1]
	if !contains(s, '\\') {
		return s, nil
	}

	var escaping = false
	var result = make([]rune, 0, len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size

		if escaping {
			if r == 'u' {
				if i+4 > len(s) {
					return "", errors.New("error scanning unicode escape, expect \\uNNNN")
				}
				num, err := strconv.ParseInt(s[i:i+4], 16, 0)
				if err != nil {
					return "", err
				}
				r = rune(num)
				i += 4
			} else {
				replacement, ok := unescapes[r]
				if !ok {
					return "", errors.New("unrecognized escape code: \\" + string(r))
				}
				r = replacement
			}
			escaping = false
		} else if r == '\\' {
			escaping = true
			continue
		}
		result = append(result, r)
	}
	if escaping {
		return "", errors.New("unterminated escape sequence")
	}
	return string(result), nil
}

func contains(str string, ch byte) bool {
	for i := 0; i < len(str); i++ {
		if str[i] == ch {
			return true
		}
	}
	return false
}
