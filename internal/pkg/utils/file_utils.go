package utils

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
)

// LoadJSONFile reads a JSON document from filePath into a value of type T.
func LoadJSONFile[T any](filePath string) (T, error) {
	var out T
	data, err := os.ReadFile(filePath)
	if err != nil {
		return out, fmt.Errorf("failed to read %s: %w", filePath, err)
	}

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal %s: %w", filePath, err)
	}
	return out, nil
}

// GetEnv returns the value of the environment variable key, or fallback when unset or empty.
func GetEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
