// Package position generates the opaque sort keys that order sibling
// tasks. Keys are strings over a base-36 alphabet compared plainly with
// <; a key strictly between any two distinct keys always exists because
// the scheme extends key length instead of running out of digits.
//
// Generated keys never end in the lowest digit '0'. That invariant is
// what guarantees a key can always be placed before an existing key and
// between two lexicographically adjacent ones.
package position

import (
	"fmt"
	"strings"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

const base = len(alphabet)

// Between returns a key k with a < k < b. An empty a means "below every
// key", an empty b means "above every key"; Between("", "") yields the
// key used for the first entry of an empty sibling group.
func Between(a, b string) (string, error) {
	if err := validate(a); err != nil {
		return "", fmt.Errorf("lower bound: %w", err)
	}
	if err := validate(b); err != nil {
		return "", fmt.Errorf("upper bound: %w", err)
	}
	if b != "" && strings.HasSuffix(b, string(alphabet[0])) {
		return "", fmt.Errorf("upper bound %q ends in the lowest digit", b)
	}
	if a != "" && b != "" && a >= b {
		return "", fmt.Errorf("bounds out of order: %q >= %q", a, b)
	}

	var out []byte
	for i := 0; ; i++ {
		da := digitAt(a, i)
		db := base
		if b != "" && i < len(b) {
			db = strings.IndexByte(alphabet, b[i])
		}
		switch {
		case da == db:
			out = append(out, alphabet[da])
		case db-da > 1:
			out = append(out, alphabet[(da+db)/2])
			return string(out), nil
		default:
			// Adjacent digits: no room at this column. Take the lower
			// digit and continue above the remainder of a with no upper
			// bound; the result stays below b because it already
			// diverged downward at this column.
			out = append(out, alphabet[da])
			if i+1 < len(a) {
				a = a[i+1:]
			} else {
				a = ""
			}
			b = ""
			i = -1
		}
	}
}

// Before returns a key sorting before b.
func Before(b string) (string, error) { return Between("", b) }

// After returns a key sorting after a.
func After(a string) (string, error) { return Between(a, "") }

// First returns the key for the sole entry of an empty sibling group.
func First() string {
	k, _ := Between("", "")
	return k
}

func digitAt(s string, i int) int {
	if i >= len(s) {
		return 0
	}
	return strings.IndexByte(alphabet, s[i])
}

func validate(s string) error {
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(alphabet, s[i]) < 0 {
			return fmt.Errorf("key %q contains invalid digit %q", s, s[i])
		}
	}
	return nil
}
