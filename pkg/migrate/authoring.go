package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

// RootDir holds one subdirectory per dialect. Every migration exists in each of them under
// the same version.
const RootDir = "pkg/migrate/migrations"

var (
	dialectDirs    = []string{"postgres", "sqlite"}
	fileNameRe     = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)
	nameSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)
)

const versionLayout = "20060102150405"

const sqlTemplate = `-- +goose Up
-- +goose StatementBegin
-- %[1]s (%[2]s)
-- +goose StatementEnd

-- +goose Down
-- +goose StatementBegin
-- rollback %[1]s (%[2]s)
-- +goose StatementEnd
`

// CreatePair writes an empty goose migration for every dialect under root and returns the
// created paths. Nothing is written when any target already exists.
func CreatePair(root, name string, now time.Time) ([]string, error) {
	if root == "" {
		return nil, fmt.Errorf("root dir is required")
	}
	slug := strings.Trim(nameSanitizeRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return nil, fmt.Errorf("name %q has no usable characters", name)
	}

	filename := fmt.Sprintf("%s_%s.sql", now.UTC().Format(versionLayout), slug)
	paths := make([]string, 0, len(dialectDirs))
	for _, dialect := range dialectDirs {
		path := filepath.Join(root, dialect, filename)
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("migration already exists: %s", path)
		}
		paths = append(paths, path)
	}

	for i, path := range paths {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %q: %w", filepath.Dir(path), err)
		}
		body := fmt.Sprintf(sqlTemplate, slug, dialectDirs[i])
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return nil, fmt.Errorf("write migration %q: %w", path, err)
		}
	}
	return paths, nil
}

// ValidateTree checks every dialect directory under root and that they ship the same versions.
func ValidateTree(root string) error {
	var reference []string
	for _, dialect := range dialectDirs {
		versions, err := scanDir(filepath.Join(root, dialect))
		if err != nil {
			return err
		}
		if reference == nil {
			reference = versions
			continue
		}
		if !slices.Equal(reference, versions) {
			return fmt.Errorf("%s migrations %v do not match %s migrations %v", dialect, versions, dialectDirs[0], reference)
		}
	}
	return nil
}

// ValidateDir checks file names, version uniqueness and goose annotations in a single directory.
func ValidateDir(dir string) error {
	_, err := scanDir(dir)
	return err
}

func scanDir(dir string) ([]string, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	seen := make(map[string]string)
	versions := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		m := fileNameRe.FindStringSubmatch(name)
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (want YYYYMMDDHHMMSS_name.sql)", name)
		}
		if prev, ok := seen[m[1]]; ok {
			return nil, fmt.Errorf("version %s used by both %q and %q", m[1], prev, name)
		}
		seen[m[1]] = name

		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", name, err)
		}
		for _, marker := range []string{"-- +goose Up", "-- +goose Down"} {
			if !strings.Contains(string(raw), marker) {
				return nil, fmt.Errorf("migration %q is missing %q", name, marker)
			}
		}
		versions = append(versions, m[1])
	}
	slices.Sort(versions)
	return versions, nil
}
