package dataset

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// File names of the four Fashion-MNIST archives.
const (
	TrainImagesFile = "train-images-idx3-ubyte.gz"
	TrainLabelsFile = "train-labels-idx1-ubyte.gz"
	TestImagesFile  = "t10k-images-idx3-ubyte.gz"
	TestLabelsFile  = "t10k-labels-idx1-ubyte.gz"
)

// Files lists the dataset archives in download order.
var Files = []string{TrainImagesFile, TrainLabelsFile, TestImagesFile, TestLabelsFile}

// Discover walks root and returns the path of every dataset file found,
// keyed by its archive name. An uncompressed copy (no .gz suffix) is accepted
// when the archive itself is missing. Nested layouts such as
// root/FashionMNIST/raw are found as well.
func Discover(root string) (map[string]string, error) {
	found := make(map[string]string, len(Files))
	var candidates []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == root {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			candidates = append(candidates, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "discover dataset files")
	}
	sort.Strings(candidates)
	for _, path := range candidates {
		name := filepath.Base(path)
		for _, want := range Files {
			switch name {
			case want:
				found[want] = path
			case strings.TrimSuffix(want, ".gz"):
				if _, ok := found[want]; !ok {
					found[want] = path
				}
			}
		}
	}
	return found, nil
}

// Missing returns the archive names absent from found.
func Missing(found map[string]string) []string {
	var out []string
	for _, name := range Files {
		if _, ok := found[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}
