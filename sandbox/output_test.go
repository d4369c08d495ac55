package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCappedBuffer(t *testing.T) {
	t.Run("UnderLimit", func(t *testing.T) {
		b := newCappedBuffer(10)
		n, err := b.Write([]byte("hello"))
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "hello", b.String())
		assert.False(t, b.Truncated())
	})

	t.Run("SplitsAcrossLimit", func(t *testing.T) {
		b := newCappedBuffer(8)
		_, _ = b.Write([]byte("hello"))
		n, err := b.Write([]byte(" world"))
		require.NoError(t, err)
		assert.Equal(t, 6, n, "writes report full length")
		assert.Equal(t, "hello wo", b.String())
		assert.True(t, b.Truncated())
	})

	t.Run("DropsAfterFull", func(t *testing.T) {
		b := newCappedBuffer(3)
		_, _ = b.Write([]byte("abc"))
		assert.False(t, b.Truncated())

		n, err := b.Write([]byte("d"))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, "abc", b.String())
		assert.True(t, b.Truncated())
	})

	t.Run("ZeroLimitIsUnbounded", func(t *testing.T) {
		b := newCappedBuffer(0)
		_, _ = b.Write(make([]byte, 4096))
		assert.Len(t, b.String(), 4096)
		assert.False(t, b.Truncated())
	})
}
