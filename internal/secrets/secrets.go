// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads source credentials. Keys come from a directory of
// plain-text files (the filename is the key, the trimmed contents the
// value), from a dotenv file, and from the process environment.
//
// Supported keys: semantic-scholar-api-key, openalex-email.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes credential variables in the environment and in
// dotenv files, e.g. PAPER_FETCHER_OPENALEX_EMAIL.
const EnvPrefix = "PAPER_FETCHER_"

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
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
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadDotEnv reads credentials from a dotenv file. Only variables carrying
// EnvPrefix are used; their names map to key names, so
// PAPER_FETCHER_SEMANTIC_SCHOLAR_API_KEY becomes semantic-scholar-api-key.
// A missing file yields an empty map.
func LoadDotEnv(path string) (map[string]string, error) {
	vars, err := godotenv.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading env file %s: %w", path, err)
	}
	return fromVars(vars), nil
}

// FromEnviron extracts credentials from environ entries ("NAME=value").
func FromEnviron(environ []string) map[string]string {
	vars := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return fromVars(vars)
}

// Resolve merges credentials from envFile, the secrets directory, and the
// process environment. Later sources win.
func Resolve(dir, envFile string) (map[string]string, error) {
	fromFile, err := LoadDotEnv(envFile)
	if err != nil {
		return nil, err
	}
	fromDir, err := Load(dir)
	if err != nil {
		return nil, err
	}
	out := fromFile
	for k, v := range fromDir {
		out[k] = v
	}
	for k, v := range FromEnviron(os.Environ()) {
		out[k] = v
	}
	return out, nil
}

func fromVars(vars map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range vars {
		name, ok := strings.CutPrefix(k, EnvPrefix)
		v = strings.TrimSpace(v)
		if !ok || name == "" || v == "" {
			continue
		}
		out[strings.ReplaceAll(strings.ToLower(name), "_", "-")] = v
	}
	return out
}
