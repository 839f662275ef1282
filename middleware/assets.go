package middleware

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Assets maps static files to content hashes for cache busting
type Assets struct {
	prefix   string
	versions map[string]string
}

// NewAssets hashes each file under root once at startup. Files that cannot be read get version "1".
func NewAssets(root, prefix string, files []string, log *zap.Logger) *Assets {
	if log == nil {
		log = zap.NewNop()
	}
	a := &Assets{prefix: prefix, versions: make(map[string]string, len(files))}
	for _, file := range files {
		version, err := computeFileHash(filepath.Join(root, file))
		if err != nil {
			log.Warn("failed to hash asset", zap.String("file", file), zap.Error(err))
			version = "1"
		}
		a.versions[file] = version
	}
	log.Info("asset versions initialized", zap.Int("files", len(a.versions)))
	return a
}

// URL returns the public path of file with its version query
func (a *Assets) URL(file string) string {
	version := "1"
	if a != nil {
		if v, ok := a.versions[file]; ok {
			version = v
		}
	}
	prefix := "/static"
	if a != nil && a.prefix != "" {
		prefix = a.prefix
	}
	return prefix + "/" + file + "?v=" + version
}

// computeFileHash returns the first 8 characters of the MD5 hash of a file
func computeFileHash(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil))[:8], nil
}
