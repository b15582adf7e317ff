package phar

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksumCRC32(t *testing.T) {
	require.EqualValues(t, 0xD8932AAC, checksumCRC32([]byte("hi")))

	a := make([]byte, 10000)
	for i := range a {
		a[i] = 'A'
	}
	require.EqualValues(t, 0x3C43C8ED, checksumCRC32(a))
}

func TestChecksumCRC32_Empty(t *testing.T) {
	require.EqualValues(t, 0, checksumCRC32(nil))
}

func TestChecksumCRC32_TableIsIdempotent(t *testing.T) {
	// Concurrent first-use must not race and must always yield the same
	// table (sync.Once backed).
	var wg sync.WaitGroup
	results := make([]uint32, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = checksumCRC32([]byte("hi"))
		}(i)
	}
	wg.Wait()
	for _, r := range results {
		require.EqualValues(t, 0xD8932AAC, r)
	}
}
