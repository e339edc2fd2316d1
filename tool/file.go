package tool

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/spf13/afero"
)

// HashFile computes the sha256 of the file at path and returns the hex
// digest plus the number of bytes hashed.
func HashFile(fs afero.Fs, path string) (string, int64, error) {
	file, err := fs.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to open file for hashing: %v", err)
	}
	defer file.Close()

	hasher := sha256.New()
	n, err := io.Copy(hasher, file)
	if err != nil {
		return "", 0, fmt.Errorf("failed to calculate SHA256: %v", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), n, nil
}
