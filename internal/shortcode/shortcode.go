// Package shortcode generates candidate short codes. A candidate is not
// guaranteed unique; the storage layer arbitrates collisions and the
// allocation loop retries with a fresh candidate.
package shortcode

import (
	"math/rand/v2"
	"strings"
	"time"
)

// 62-character alphabet: digits, lowercase, uppercase.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const base = uint64(len(alphabet))

// DefaultLength is the short code length used when none is configured.
const DefaultLength = 6

type Generator struct {
	now     func() time.Time
	randInt func() uint64
}

func NewGenerator() *Generator {
	return &Generator{
		now: time.Now,
		randInt: func() uint64 {
			// four-digit random component appended to the time seed
			return 1000 + rand.Uint64N(9000)
		},
	}
}

// Generate returns a code of exactly length characters. The seed is the
// current unix time with a random four-digit suffix, encoded in base62,
// left-padded with the alphabet's zero symbol and truncated from the
// left on overflow.
func (g *Generator) Generate(length int) string {
	if length <= 0 {
		length = DefaultLength
	}

	seed := uint64(g.now().Unix())*10000 + g.randInt()

	code := encode(seed)
	if len(code) < length {
		code = strings.Repeat(string(alphabet[0]), length-len(code)) + code
	}
	return code[:length]
}

func encode(num uint64) string {
	if num == 0 {
		return string(alphabet[0])
	}

	buf := make([]byte, 0, 12)
	for num > 0 {
		buf = append(buf, alphabet[num%base])
		num /= base
	}

	// Built low digit first; reverse in place.
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}
