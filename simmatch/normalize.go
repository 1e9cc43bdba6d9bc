package simmatch

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultRead accepts strings and Records. Anything else is unreadable.
func DefaultRead(opaque any) (string, error) {
	switch v := opaque.(type) {
	case string:
		return v, nil
	case Record:
		return v.Text, nil
	case *Record:
		if v != nil {
			return v.Text, nil
		}
	}
	return "", fmt.Errorf("%w: can't turn %#v into string", ErrUnreadableItem, opaque)
}

// DefaultNormalize lowercases, replaces everything outside [a-z0-9] with a
// space and squishes whitespace.
func DefaultNormalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			b.WriteByte(c)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// NFKCNormalize folds compatibility characters such as full-width letters
// and digits to ASCII before applying DefaultNormalize.
func NFKCNormalize(s string) string {
	return DefaultNormalize(norm.NFKC.String(s))
}

// DefaultNgrams returns every bigram of consecutive characters followed by
// every maximal run of digits, de-duplicated in first-seen order.
func DefaultNgrams(s string) []string {
	runes := []rune(s)
	seen := make(map[string]struct{}, len(runes))
	out := make([]string, 0, len(runes))
	add := func(ngram string) {
		if _, ok := seen[ngram]; ok {
			return
		}
		seen[ngram] = struct{}{}
		out = append(out, ngram)
	}
	for i := 0; i+1 < len(runes); i++ {
		add(string(runes[i : i+2]))
	}
	for _, run := range digitRuns(runes) {
		add(run)
	}
	return out
}

// digitRuns returns every maximal run of ASCII digits in order.
func digitRuns(runes []rune) []string {
	var runs []string
	start := -1
	for i, r := range runes {
		digit := r >= '0' && r <= '9'
		switch {
		case digit && start < 0:
			start = i
		case !digit && start >= 0:
			runs = append(runs, string(runes[start:i]))
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, string(runes[start:]))
	}
	return runs
}
