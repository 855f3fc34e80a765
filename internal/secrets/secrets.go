// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves the language-model API key. Keys come from the
// process environment or from a directory of plain-text files where each
// filename is the key name and the trimmed file contents are the value.
//
// Supported key files: openai-api-key, anthropic-api-key.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/paper-scout/pkg/types"
)

// DefaultDir is the secrets directory read at startup, relative to the
// working directory.
const DefaultDir = ".secrets/"

// source names where a provider's key may be found.
type source struct {
	env  string
	file string
}

var providerSources = map[types.LLMProvider]source{
	types.ProviderOpenAI:    {env: "OPENAI_API_KEY", file: "openai-api-key"},
	types.ProviderAnthropic: {env: "ANTHROPIC_API_KEY", file: "anthropic-api-key"},
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory is not an error; Load returns an empty map. Unreadable
// files are logged and skipped.
func Load(dir string, log *slog.Logger) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", "name", name, "err", err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// APIKey returns the key for provider. An explicitly configured key wins,
// then the provider's environment variable, then its secrets file. A
// missing key is an ErrConfiguration so the caller can fail before any
// pipeline run.
func APIKey(provider types.LLMProvider, configured string, files map[string]string, getenv func(string) string) (string, error) {
	if key := strings.TrimSpace(configured); key != "" {
		return key, nil
	}
	src, ok := providerSources[provider]
	if !ok {
		return "", fmt.Errorf("%w: unknown language-model provider %q", types.ErrConfiguration, provider)
	}
	if getenv != nil {
		if key := strings.TrimSpace(getenv(src.env)); key != "" {
			return key, nil
		}
	}
	if key := files[src.file]; key != "" {
		return key, nil
	}
	return "", fmt.Errorf("%w: no API key for %s: set %s or create %s%s",
		types.ErrConfiguration, provider, src.env, DefaultDir, src.file)
}
