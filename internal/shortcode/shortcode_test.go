package shortcode

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_FixedLength(t *testing.T) {
	g := NewGenerator()

	for _, length := range []int{4, 6, 8, 10} {
		code := g.Generate(length)
		assert.Len(t, code, length, "length %d", length)
	}
}

func TestGenerate_AlphabetOnly(t *testing.T) {
	g := NewGenerator()

	for i := 0; i < 100; i++ {
		code := g.Generate(6)
		for _, c := range code {
			require.Truef(t, strings.ContainsRune(alphabet, c),
				"code %q contains %q outside the alphabet", code, c)
		}
	}
}

func TestGenerate_NonPositiveLengthFallsBackToDefault(t *testing.T) {
	g := NewGenerator()

	assert.Len(t, g.Generate(0), DefaultLength)
	assert.Len(t, g.Generate(-3), DefaultLength)
}

func TestGenerate_PadsSmallSeeds(t *testing.T) {
	g := &Generator{
		now:     func() time.Time { return time.Unix(0, 0) },
		randInt: func() uint64 { return 1000 },
	}

	// seed = 0*10000 + 1000 = 1000, "g8" in base62, padded to "0000g8"
	code := g.Generate(6)
	require.Len(t, code, 6)
	assert.Equal(t, "0000g8", code)
}

func TestGenerate_TruncatesOverflowFromLeft(t *testing.T) {
	g := &Generator{
		now:     func() time.Time { return time.Unix(1704067200, 0) }, // 2024-01-01
		randInt: func() uint64 { return 9999 },
	}

	long := encode(uint64(1704067200)*10000 + 9999)
	require.Greater(t, len(long), 6)
	assert.Equal(t, long[:6], g.Generate(6))
}

func TestEncode(t *testing.T) {
	tests := []struct {
		num  uint64
		want string
	}{
		{0, "0"},
		{61, "Z"},
		{62, "10"},
		{1000, "g8"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, encode(tt.num), "encode(%d)", tt.num)
	}
}

func TestGenerate_VariesAcrossCalls(t *testing.T) {
	g := NewGenerator()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		seen[g.Generate(8)] = true
	}
	// The random suffix makes same-second candidates differ. Not a
	// uniqueness guarantee, just a sanity check on the entropy wiring.
	assert.Greater(t, len(seen), 1)
}
