package archive

import (
	"archive/tar"
	"bufio"
	"compress/gzip"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var ErrUnsafePath = errors.New("archive entry escapes destination")

const maxNestedDepth = 4

// Extract extracts the tar archive at path into destDir and returns the number of regular files
// written. Gzip compressed archives are detected from their content. Only directories and regular
// files are extracted.
func Extract(path, destDir string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to open %s", path)
	}
	defer file.Close()

	reader, err := decompress(file)
	if err != nil {
		return 0, errors.Wrapf(err, "unable to read %s", path)
	}

	files, err := extractTar(tar.NewReader(reader), destDir)
	if err != nil {
		return files, errors.Wrapf(err, "unable to extract %s", path)
	}

	return files, nil
}

func decompress(r io.Reader) (io.Reader, error) {
	buf := bufio.NewReader(r)

	magic, err := buf.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		return gzip.NewReader(buf)
	}

	return buf, nil
}

func extractTar(tr *tar.Reader, destDir string) (int, error) {
	files := 0

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return files, nil
		}

		if err != nil {
			return files, err
		}

		target, err := safeJoin(destDir, hdr.Name)
		if err != nil {
			return files, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			err = os.MkdirAll(target, 0o755)
			if err != nil {
				return files, err
			}
		case tar.TypeReg:
			err = writeFile(target, tr, hdr.FileInfo().Mode().Perm())
			if err != nil {
				return files, err
			}

			files++
		}
	}
}

func writeFile(target string, r io.Reader, perm fs.FileMode) error {
	err := os.MkdirAll(filepath.Dir(target), 0o755)
	if err != nil {
		return err
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0o600)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, r)
	if err != nil {
		out.Close()

		return err
	}

	return out.Close()
}

// safeJoin joins name to dir, refusing names that resolve outside dir.
func safeJoin(dir, name string) (string, error) {
	target := filepath.Join(dir, name)

	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return "", errors.Wrap(ErrUnsafePath, name)
	}

	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", errors.Wrap(ErrUnsafePath, name)
	}

	return target, nil
}

// IsArchive reports whether name looks like a tar archive, compressed or not.
func IsArchive(name string) bool {
	lower := strings.ToLower(name)

	return strings.HasSuffix(lower, ".tar") || strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz")
}

// ExtractNested extracts every archive found under dir next to itself, then the archives those
// contained, and returns the paths of the extracted archives. A missing dir is not an error.
func ExtractNested(dir string) ([]string, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	done := make(map[string]struct{})
	extracted := []string{}

	for depth := 0; depth < maxNestedDepth; depth++ {
		found, err := findArchives(dir, done)
		if err != nil {
			return extracted, err
		}

		if len(found) == 0 {
			break
		}

		for _, path := range found {
			done[path] = struct{}{}

			_, err := Extract(path, filepath.Dir(path))
			if err != nil {
				return extracted, err
			}

			extracted = append(extracted, path)
		}
	}

	return extracted, nil
}

func findArchives(dir string, skip map[string]struct{}) ([]string, error) {
	found := []string{}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !IsArchive(d.Name()) {
			return nil
		}

		if _, ok := skip[path]; ok {
			return nil
		}

		found = append(found, path)

		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to walk %s", dir)
	}

	sort.Strings(found)

	return found, nil
}
