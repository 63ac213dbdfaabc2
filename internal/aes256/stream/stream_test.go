package stream_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"aes256filter/internal/aes256/mode"
	"aes256filter/internal/aes256/stream"
	"aes256filter/internal/shared/crypto/blockcodec"
)

func testCodec(t *testing.T) *blockcodec.Codec {
	t.Helper()

	hmacKey := bytes.Repeat([]byte{0xAB}, 32)
	aesKey := bytes.Repeat([]byte{0xCD}, 32)

	codec, err := blockcodec.New(hmacKey, aesKey)
	require.NoError(t, err)

	return codec
}

// chunk splits data into pieces of the given sizes; any remainder is
// appended as a final piece. Passing no sizes yields a single chunk.
func chunk(data []byte, sizes ...int) [][]byte {
	if len(sizes) == 0 {
		return [][]byte{data}
	}

	var chunks [][]byte

	off := 0
	for _, size := range sizes {
		if off >= len(data) {
			break
		}

		end := off + size
		if end > len(data) {
			end = len(data)
		}

		chunks = append(chunks, data[off:end])
		off = end
	}

	if off < len(data) {
		chunks = append(chunks, data[off:])
	}

	return chunks
}

// runAll drives s through chunks using an outCap-sized output buffer,
// re-passing whatever action Process last returned exactly as spec.md
// §4.5 requires, and returns the concatenated output.
func runAll(s *stream.Stream, chunks [][]byte, outCap int) ([]byte, error) {
	type step struct {
		buf []byte
		act stream.Action
	}

	steps := make([]step, 0, len(chunks))

	for i, c := range chunks {
		act := stream.Normal
		if i == len(chunks)-1 {
			act = stream.DataEnd
		}

		steps = append(steps, step{buf: c, act: act})
	}

	if len(steps) == 0 {
		steps = append(steps, step{buf: nil, act: stream.DataEnd})
	}

	outBuf := make([]byte, outCap)
	out := make([]byte, 0)

	idx := 0
	cur := steps[0].buf
	action := steps[0].act

	for {
		n, next, err := s.Process(cur, action, outBuf)
		if err != nil {
			return out, err
		}

		out = append(out, outBuf[:n]...)

		switch next {
		case stream.Repeat:
			action = stream.Repeat
			continue
		case stream.DataEnd:
			return out, nil
		case stream.Normal:
			idx++
			if idx >= len(steps) {
				return out, fmt.Errorf("stream never returned DATA_END")
			}

			cur = steps[idx].buf
			action = steps[idx].act
		}
	}
}

func encryptAll(t *testing.T, plaintext []byte, chunks [][]byte, outCap int) []byte {
	t.Helper()

	s := stream.New(mode.Upload, testCodec(t))
	defer s.Close()

	if chunks == nil {
		chunks = chunk(plaintext)
	}

	ciphertext, err := runAll(s, chunks, outCap)
	require.NoError(t, err)

	return ciphertext
}

func decryptAll(t *testing.T, ciphertext []byte, chunks [][]byte, outCap int) []byte {
	t.Helper()

	s := stream.New(mode.Download, testCodec(t))
	defer s.Close()

	if chunks == nil {
		chunks = chunk(ciphertext)
	}

	plaintext, err := runAll(s, chunks, outCap)
	require.NoError(t, err)

	return plaintext
}

func TestStream_RoundTrip_SmallSingleCall(t *testing.T) {
	t.Parallel()

	plaintext := []byte("hello, world")

	ciphertext := encryptAll(t, plaintext, nil, 1<<20)
	require.Len(t, ciphertext, 64) // 16 iv + 16 ciphertext + 32 mac

	got := decryptAll(t, ciphertext, nil, 1<<20)
	require.Equal(t, plaintext, got)
}

func TestStream_RoundTrip_MultiBlock(t *testing.T) {
	t.Parallel()

	plaintext := bytes.Repeat([]byte("the quick brown fox jumps over"), 2000) // > one FILTER_BLOCK_SIZE

	ciphertext := encryptAll(t, plaintext, nil, 1<<20)
	got := decryptAll(t, ciphertext, nil, 1<<20)
	require.Equal(t, plaintext, got)
}

func TestStream_IdenticalOutputRegardlessOfChunking(t *testing.T) {
	t.Parallel()

	plaintext := bytes.Repeat([]byte{0x42}, 40000)

	whole := encryptAll(t, plaintext, chunk(plaintext), 1<<20)
	chunked := encryptAll(t, plaintext, chunk(plaintext, 1, 7, 1000, 16383, 16384, 16385, 9999), 1<<20)
	byteAtATime := encryptAll(t, plaintext, chunk(plaintext, sizesOfOne(len(plaintext))...), 1<<20)

	require.Equal(t, whole, chunked)
	require.Equal(t, whole, byteAtATime)
}

func sizesOfOne(n int) []int {
	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = 1
	}

	return sizes
}

func TestStream_ArbitraryOutputCapacity(t *testing.T) {
	t.Parallel()

	plaintext := bytes.Repeat([]byte("streaming aes256 filter data "), 1500)

	reference := encryptAll(t, plaintext, nil, 1<<20)

	for _, capacity := range []int{1, 2, 7, 16, 63, 64, 65, 4096, 16447, 16448, 16449} {
		got := encryptAll(t, plaintext, nil, capacity)
		require.Equal(t, reference, got, "capacity %d produced different ciphertext", capacity)
	}
}

func TestStream_DecryptArbitraryOutputCapacity(t *testing.T) {
	t.Parallel()

	plaintext := bytes.Repeat([]byte("another payload for capacity sweeps"), 1200)
	ciphertext := encryptAll(t, plaintext, nil, 1<<20)

	for _, capacity := range []int{1, 3, 17, 4096, 16383, 16384, 16385} {
		got := decryptAll(t, ciphertext, nil, capacity)
		require.Equal(t, plaintext, got, "capacity %d produced different plaintext", capacity)
	}
}

func TestStream_EmptyPlaintext(t *testing.T) {
	t.Parallel()

	// Invariant 4's length formula gives ceil(0/16384) blocks = zero: an
	// empty plaintext stream never stages a byte, so the codec trigger
	// (which requires in_bytes > 0) never fires and no block is emitted.
	ciphertext := encryptAll(t, nil, [][]byte{}, 1<<20)
	require.Empty(t, ciphertext)

	got := decryptAll(t, ciphertext, nil, 1<<20)
	require.Empty(t, got)
}

func TestStream_ExactBlockBoundaryPlaintext(t *testing.T) {
	t.Parallel()

	plaintext := bytes.Repeat([]byte{0x7A}, blockcodecFilterBlockSize(t))

	ciphertext := encryptAll(t, plaintext, nil, 1<<20)
	got := decryptAll(t, ciphertext, nil, 1<<20)
	require.Equal(t, plaintext, got)
}

func blockcodecFilterBlockSize(t *testing.T) int {
	t.Helper()
	return blockcodec.FilterBlockSize
}
