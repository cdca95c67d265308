package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const pepperLength = 32

// LoadOrCreatePepper reads the pepper stored at path, generating and writing a
// new one (mode 0600) the first time. Losing this file invalidates every
// stored credential.
func LoadOrCreatePepper(path string) ([]byte, error) {
	path = filepath.Clean(path)

	data, err := os.ReadFile(path)
	if err == nil {
		pepper := strings.TrimSpace(string(data))
		if pepper == "" {
			return nil, fmt.Errorf("pepper file %s is empty", path)
		}
		return []byte(pepper), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}

	buf := make([]byte, pepperLength)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	pepper := base64.RawURLEncoding.EncodeToString(buf)

	// O_EXCL so two processes racing on first start cannot both write.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return LoadOrCreatePepper(path)
		}
		return nil, err
	}
	defer f.Close()

	if _, err := f.WriteString(pepper); err != nil {
		return nil, err
	}
	return []byte(pepper), nil
}
