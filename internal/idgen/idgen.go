// Package idgen generates short random record identifiers.
package idgen

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync"
)

// Alphabet holds the 60 characters identifiers are drawn from.
// 'A' and '0' are absent.
const Alphabet = "BCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz123456789"

// Length is the number of characters in an identifier.
// 60^6 gives roughly 4.6e10 combinations.
const Length = 6

// Generator produces identifiers that are not yet taken.
//
// exists reports whether a candidate is already a key in the store. It is
// called from the store's writer goroutine, so the check and the following
// insert happen without another mutation in between.
type Generator interface {
	Generate(exists func(id string) bool) string
}

// Random draws uniform random identifiers from Alphabet using crypto/rand.
//
// Thread-safety: Random is stateless and safe for concurrent use.
type Random struct{}

// Generate draws candidates until one is free. There is no retry limit;
// the collision probability is negligible for any realistic store size.
//
// Panics if the system random source fails.
func (Random) Generate(exists func(id string) bool) string {
	for {
		id := randomID()
		if exists == nil || !exists(id) {
			return id
		}
	}
}

var alphabetSize = big.NewInt(int64(len(Alphabet)))

func randomID() string {
	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			panic("idgen: random source failed: " + err.Error())
		}
		b.WriteByte(Alphabet[n.Int64()])
	}
	return b.String()
}

// Valid reports whether id has the identifier shape: Length characters,
// all from Alphabet.
func Valid(id string) bool {
	if len(id) != Length {
		return false
	}
	for i := 0; i < len(id); i++ {
		if strings.IndexByte(Alphabet, id[i]) < 0 {
			return false
		}
	}
	return true
}

// Fixed returns predetermined identifiers for tests.
//
// Candidates that already exist are skipped, the same way Random retries.
// This lets tests exercise the collision path deterministically.
//
// Thread-safety: Fixed is safe for concurrent use via internal mutex.
type Fixed struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixed creates a generator that returns ids in order.
//
//	gen := NewFixed("BBBBBB", "CCCCCC")
//	gen.Generate(nil) // "BBBBBB"
//	gen.Generate(nil) // "CCCCCC"
//	gen.Generate(nil) // panic: all ids exhausted
func NewFixed(ids ...string) *Fixed {
	return &Fixed{ids: ids}
}

// Generate returns the next predetermined id that does not exist.
//
// Panics if all ids have been consumed. This is a fail-fast approach to
// catch tests that create more records than they declared.
func (g *Fixed) Generate(exists func(id string) bool) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	for g.idx < len(g.ids) {
		id := g.ids[g.idx]
		g.idx++
		if exists == nil || !exists(id) {
			return id
		}
	}
	panic("idgen.Fixed: all ids exhausted")
}
