// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key
// name and the file contents (trimmed) are the value.
//
// Supported key files: processor-api-token.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/pdiddy/pdf-organizer/internal/logging"
)

// DefaultDir is the secrets directory relative to the working directory.
const DefaultDir = ".secrets/"

// ProcessorAPIToken is the bearer token sent to the remote processor.
const ProcessorAPIToken = "processor-api-token"

// Secrets maps key names to values.
type Secrets map[string]string

// Load reads all files in dir and returns their trimmed contents by
// filename. A missing directory is not an error; Load returns an empty set.
// Unreadable files are logged at warn level and skipped.
func Load(dir string, log *bolt.Logger) (Secrets, error) {
	log = logging.OrDiscard(log)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Secrets{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	out := make(Secrets)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn().Str("secret", name).Err(err).Msg("could not read secret")
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			out[name] = value
		}
	}
	return out, nil
}

// Or returns fallback when it is non-empty, else the value stored under key.
// Explicit configuration wins over the secrets directory.
func (s Secrets) Or(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	return s[key]
}

// Keys returns the loaded key names in sorted order.
func (s Secrets) Keys() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
