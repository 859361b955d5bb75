package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

var pathComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._=-]{0,127}$`)

var tableNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]{0,62}$`)

const datasetFileSuffix = ".parquet"

// BuildDatasetFilePath returns the object key of one parquet part of table:
// <prefix>/<table>/part-<sequence>.parquet.
func BuildDatasetFilePath(prefix, tableName string, sequence int) (string, error) {
	if err := validateTableName(tableName); err != nil {
		return "", err
	}
	if sequence < 0 {
		return "", fmt.Errorf("sequence must be >= 0")
	}
	return path.Join(CleanPrefix(prefix), tableName, fmt.Sprintf("part-%05d%s", sequence, datasetFileSuffix)), nil
}

// ParseDatasetFilePath extracts the table name from a dataset object key.
// Keys outside prefix, keys that are not parquet files, and keys whose table
// component is not a plain SQL identifier are rejected.
func ParseDatasetFilePath(prefix, key string) (string, bool) {
	key = strings.TrimPrefix(path.Clean("/"+key), "/")
	prefix = CleanPrefix(prefix)
	if prefix != "" {
		if !strings.HasPrefix(key, prefix+"/") {
			return "", false
		}
		key = strings.TrimPrefix(key, prefix+"/")
	}
	if !strings.HasSuffix(key, datasetFileSuffix) {
		return "", false
	}
	parts := strings.Split(key, "/")
	if len(parts) < 2 {
		return "", false
	}
	for _, part := range parts[1:] {
		if !pathComponentPattern.MatchString(part) {
			return "", false
		}
	}
	if validateTableName(parts[0]) != nil {
		return "", false
	}
	return parts[0], true
}

func validateTableName(value string) error {
	if !tableNamePattern.MatchString(value) {
		return fmt.Errorf("invalid table name: %q", value)
	}
	return nil
}

// CleanPrefix trims slashes and dot segments from an object prefix. The root
// prefix is returned as "".
func CleanPrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	cleaned := path.Clean(prefix)
	if cleaned == "." {
		return ""
	}
	return cleaned
}

// CleanKey normalizes an object key and rejects keys that are empty or climb
// out of the store root.
func CleanKey(key string) (string, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(key), "/")
	if trimmed == "" {
		return "", fmt.Errorf("object key is required")
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	return cleaned, nil
}
