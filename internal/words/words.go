// Package words gates guess submissions on a local dictionary so an
// obviously invalid word never costs a network round trip.
//
// The embedded list is a small default; WORDS_FILE can point at a larger
// newline-separated list. Lists are normalized to lowercase and filtered
// to exactly five alphabetic letters. Loading happens once.
package words

import (
	"bufio"
	_ "embed"
	"os"
	"strings"
	"sync"

	"github.com/multiplayer-wordle/go-client/internal/types"
)

//go:embed allowed.txt
var embeddedAllowed string

var (
	loadOnce sync.Once
	allowed  map[string]struct{}
)

func load() {
	allowed = make(map[string]struct{})

	if path := os.Getenv("WORDS_FILE"); path != "" {
		if f, err := os.Open(path); err == nil {
			defer f.Close()
			sc := bufio.NewScanner(f)
			for sc.Scan() {
				add(sc.Text())
			}
			if len(allowed) > 0 {
				return
			}
		}
		// Unreadable or empty override falls back to the embedded list.
	}

	for _, w := range strings.Fields(embeddedAllowed) {
		add(w)
	}
}

func add(w string) {
	w = strings.ToLower(strings.TrimSpace(w))
	if len(w) != types.WordLength || !isAlpha(w) {
		return
	}
	allowed[w] = struct{}{}
}

func isAlpha(s string) bool {
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return true
}

// IsValid reports whether candidate is a submittable word: five letters,
// alphabetic, present in the allowed list. Case-insensitive.
func IsValid(candidate string) bool {
	loadOnce.Do(load)
	w := strings.ToLower(strings.TrimSpace(candidate))
	if len(w) != types.WordLength || !isAlpha(w) {
		return false
	}
	_, ok := allowed[w]
	return ok
}
