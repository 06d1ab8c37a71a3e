package compress

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/baar/core/internal/baartype"
)

func textCorpus(n int) []byte {
	words := []string{"archive ", "catalog ", "entry ", "payload ", "deflate ", "offset ", "\n"}
	rng := rand.New(rand.NewSource(7)) //nolint:gosec // deterministic test data
	var buf bytes.Buffer
	for buf.Len() < n {
		buf.WriteString(words[rng.Intn(len(words))])
	}
	return buf.Bytes()[:n]
}

func randomBytes(n int, seed int64) []byte {
	b := make([]byte, n)
	rand.New(rand.NewSource(seed)).Read(b) //nolint:gosec // deterministic test data
	return b
}

func TestCompress_RoundTripAllLevels(t *testing.T) {
	e := New()
	inputs := map[string][]byte{
		"text":   textCorpus(20_000),
		"zeros":  make([]byte, 5000),
		"random": randomBytes(3000, 1),
		"tiny":   []byte("AAAAAAAAAA"),
	}
	for name, src := range inputs {
		for level := LevelStore; level <= LevelUltra; level++ {
			t.Run(name+"/"+level.String(), func(t *testing.T) {
				out, used, err := e.Compress(context.Background(), src, level)
				require.NoError(t, err)
				if level == LevelStore {
					assert.False(t, used)
					assert.Equal(t, src, out)
					return
				}
				require.True(t, used)
				got, err := Decompress(out, uint64(len(src)))
				require.NoError(t, err)
				assert.Equal(t, src, got)
			})
		}
	}
}

func TestCompress_EmptyInput(t *testing.T) {
	out, used, err := New().Compress(context.Background(), nil, LevelUltra)
	require.NoError(t, err)
	assert.False(t, used)
	assert.Empty(t, out)
}

func TestCompress_InvalidLevel(t *testing.T) {
	_, _, err := New().Compress(context.Background(), []byte("x"), baartype.LevelAuto)
	require.Error(t, err)
}

func TestCompress_UltraNotWorseThanBest(t *testing.T) {
	// The Ultra search space is a superset of Best's.
	e := New()
	src := textCorpus(50_000)
	best, _, err := e.Compress(context.Background(), src, LevelBest)
	require.NoError(t, err)
	ultra, _, err := e.Compress(context.Background(), src, LevelUltra)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(ultra), len(best))
}

func TestCompress_SearchDeterministicAcrossConcurrency(t *testing.T) {
	src := textCorpus(30_000)
	serial, _, err := New(WithConcurrency(1)).Compress(context.Background(), src, LevelBest)
	require.NoError(t, err)
	parallel, _, err := New(WithConcurrency(8)).Compress(context.Background(), src, LevelBest)
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
}

func TestCompress_SearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := New().Compress(ctx, textCorpus(1000), LevelUltra)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTrials(t *testing.T) {
	best := trials(LevelBest)
	ultra := trials(LevelUltra)
	// Best: 2 effort-aware strategies x 2 containers x 2 efforts + 2 single-shot x 2 containers.
	assert.Len(t, best, 12)
	// Ultra: 2 x 3 x 9 + 2 x 3.
	assert.Len(t, ultra, 60)

	for _, tr := range best {
		assert.NotEqual(t, ContainerGzip, tr.container)
	}
}

func TestEncode_AllSupportedTrialsDecode(t *testing.T) {
	src := textCorpus(4000)
	for _, tr := range trials(LevelUltra) {
		out, err := encode(tr, src)
		if tr.strategy == StrategyRLE && tr.container == ContainerZlib {
			require.ErrorIs(t, err, errUnsupported)
			continue
		}
		require.NoError(t, err, "%s/%s/%d", tr.strategy, tr.container, tr.effort)
		assert.Equal(t, tr.container, containerOf(tr.container, out))
		got, err := Decompress(out, uint64(len(src)))
		require.NoError(t, err, "%s/%s/%d", tr.strategy, tr.container, tr.effort)
		assert.Equal(t, src, got)
	}
}

// containerOf tolerates a raw stream whose first bytes look like zlib.
func containerOf(want Container, out []byte) Container {
	got := Detect(out)
	if want == ContainerRaw && got == ContainerZlib {
		return ContainerRaw
	}
	return got
}

func TestDecompress_Errors(t *testing.T) {
	src := textCorpus(2000)
	out, _, err := New().Compress(context.Background(), src, LevelBalanced)
	require.NoError(t, err)

	t.Run("wrong size short", func(t *testing.T) {
		_, err := Decompress(out, uint64(len(src))+1)
		require.ErrorIs(t, err, baartype.ErrDecompression)
	})

	t.Run("wrong size long", func(t *testing.T) {
		_, err := Decompress(out, uint64(len(src))-1)
		require.ErrorIs(t, err, baartype.ErrDecompression)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Decompress(randomBytes(500, 3), 2000)
		require.ErrorIs(t, err, baartype.ErrDecompression)
	})

	t.Run("corrupt trailer", func(t *testing.T) {
		bad := bytes.Clone(out)
		bad[len(bad)-1] ^= 0xFF
		_, err := Decompress(bad, uint64(len(src)))
		require.ErrorIs(t, err, baartype.ErrDecompression)
	})
}

func TestChooseLevel(t *testing.T) {
	text := textCorpus(8000)
	tests := []struct {
		name   string
		path   string
		size   int64
		sample []byte
		want   baartype.Level
	}{
		{"empty", "a.txt", 0, nil, LevelStore},
		{"incompressible ext", "photo.JPG", 8000, text, LevelStore},
		{"small", "a.txt", 1023, text[:1023], LevelStore},
		{"random", "blob.bin", 8000, randomBytes(8000, 9), LevelStore},
		{"text", "notes.txt", 8000, text, LevelBalanced},
		{"zeros", "disk.img", 1 << 20, make([]byte, 64<<10), LevelBalanced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseLevel(tt.path, tt.size, tt.sample))
		})
	}
}

func TestChooseLevel_MixedContentIsFast(t *testing.T) {
	// Three quarters random lands between the two ratio thresholds.
	sample := append(randomBytes(9000, 11), bytes.Repeat([]byte("abcd"), 750)...)
	assert.Equal(t, LevelFast, ChooseLevel("mixed.dat", int64(len(sample)), sample))
}

func TestIncompressible(t *testing.T) {
	assert.True(t, Incompressible("dir/archive.tar.gz"))
	assert.True(t, Incompressible("font.woff2"))
	assert.False(t, Incompressible("main.go"))
	assert.False(t, Incompressible("Makefile"))
}
