// Package imageio loads scan inputs from a filesystem.
package imageio

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	zxunwarp "github.com/ericlevine/zxunwarp"
)

// Extensions lists the file extensions Expand accepts when walking
// directories.
var Extensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// Loader reads images from fs.
type Loader struct {
	fs afero.Fs
}

// NewLoader returns a Loader on fs, or on the OS filesystem when fs is nil.
func NewLoader(fs afero.Fs) *Loader {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Loader{fs: fs}
}

// Decode reads path and decodes it as any registered image format.
func (l *Loader) Decode(path string) (image.Image, string, error) {
	f, err := l.fs.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()
	img, kind, err := image.Decode(f)
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", path, err)
	}
	return img, kind, nil
}

// Load reads path and converts it for scanning.
func (l *Loader) Load(path string) (*zxunwarp.Image, error) {
	img, _, err := l.Decode(path)
	if err != nil {
		return nil, err
	}
	return zxunwarp.FromImage(img)
}

// Expand turns the given paths into a list of image files. Directories are
// walked recursively and filtered by extension; plain files are kept as
// given.
func (l *Loader) Expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := l.fs.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		err = afero.Walk(l.fs, p, func(path string, fi os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !fi.IsDir() && hasImageExtension(path) {
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func hasImageExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Save encodes img into path, choosing the format from the extension.
// Unknown extensions are written as PNG.
func (l *Loader) Save(path string, img image.Image) error {
	format, err := imaging.FormatFromFilename(path)
	if err != nil {
		format = imaging.PNG
	}
	f, err := l.fs.Create(path)
	if err != nil {
		return err
	}
	if err := imaging.Encode(f, img, format); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
