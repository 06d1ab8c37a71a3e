package baar

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/meigma/baar/core/internal/source"
)

// SourceFile pairs a local path with the archive name it will be stored under.
type SourceFile struct {
	// Path is the absolute filesystem path.
	Path string

	// Name is the archive name. Directories end in "/".
	Name string

	// Dir reports whether the source is a directory.
	Dir bool
}

// EnumerateFiles walks the tree rooted at root and returns every directory
// and regular file in lexical walk order. Names are prefixed with the base
// name of root, so "/src/photos" yields "photos/", "photos/a.jpg" and so on.
//
// Symbolic links and special files are skipped. EnumerateFiles reads no
// file contents.
func EnumerateFiles(root string) ([]SourceFile, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	r, err := os.OpenRoot(abs)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	prefix := ""
	if base := filepath.Base(abs); base != string(filepath.Separator) && base != "." {
		prefix = filepath.ToSlash(base) + "/"
	}

	var out []SourceFile
	err = fs.WalkDir(r.FS(), ".", func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == "." {
			if prefix != "" {
				out = append(out, SourceFile{Path: abs, Name: prefix, Dir: true})
			}
			return nil
		}

		fsPath := filepath.FromSlash(path)
		_, ok, err := source.Resolve(r, fsPath, d)
		if err != nil {
			return err
		}
		if !ok {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		name := prefix + path
		if d.IsDir() {
			name += "/"
		}
		out = append(out, SourceFile{
			Path: filepath.Join(abs, fsPath),
			Name: name,
			Dir:  d.IsDir(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
