package compress

import (
	"path"
	"strings"
)

const (
	// minAutoSize is the size below which auto-level never compresses.
	minAutoSize = 1024

	// sampleSize bounds the prefix compressed by ChooseLevel.
	sampleSize = 64 << 10

	storeRatio = 0.95
	fastRatio  = 0.6
)

// Incompressible reports whether name has an extension whose content is
// already compressed (images, archives, audio/video, fonts).
func Incompressible(name string) bool {
	_, ok := incompressibleExts[strings.ToLower(path.Ext(name))]
	return ok
}

// ChooseLevel picks Store, Fast or Balanced for a file of the given size
// using a sample of its leading bytes. It never returns Best or Ultra.
func ChooseLevel(name string, size int64, sample []byte) Level {
	if size <= 0 || Incompressible(name) || size < minAutoSize {
		return LevelStore
	}
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	if len(sample) == 0 {
		return LevelStore
	}
	out, err := encode(trial{strategy: StrategyDefault, container: ContainerZlib, effort: effortFast}, sample)
	if err != nil {
		return LevelStore
	}
	ratio := float64(len(out)) / float64(len(sample))
	switch {
	case ratio > storeRatio:
		return LevelStore
	case ratio > fastRatio:
		return LevelFast
	default:
		return LevelBalanced
	}
}

var incompressibleExts = map[string]struct{}{
	".7z":    {},
	".aac":   {},
	".apk":   {},
	".avi":   {},
	".avif":  {},
	".baar":  {},
	".br":    {},
	".bz2":   {},
	".cab":   {},
	".deb":   {},
	".dmg":   {},
	".docx":  {},
	".eot":   {},
	".epub":  {},
	".flac":  {},
	".flv":   {},
	".gif":   {},
	".gz":    {},
	".heic":  {},
	".ico":   {},
	".jar":   {},
	".jpeg":  {},
	".jpg":   {},
	".jxl":   {},
	".lz":    {},
	".lz4":   {},
	".lzma":  {},
	".m4a":   {},
	".m4v":   {},
	".mkv":   {},
	".mov":   {},
	".mp3":   {},
	".mp4":   {},
	".odt":   {},
	".ogg":   {},
	".opus":  {},
	".otf":   {},
	".pdf":   {},
	".png":   {},
	".pptx":  {},
	".rar":   {},
	".rpm":   {},
	".tgz":   {},
	".ttf":   {},
	".txz":   {},
	".wav":   {},
	".webm":  {},
	".webp":  {},
	".wma":   {},
	".wmv":   {},
	".woff":  {},
	".woff2": {},
	".xlsx":  {},
	".xz":    {},
	".zip":   {},
	".zst":   {},
}
