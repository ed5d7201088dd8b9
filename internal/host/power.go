package host

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// batteryLevel returns the capacity of the first battery under dir,
// or -1 when there is none.
func batteryLevel(dir string) int {
	supplies, err := filepath.Glob(filepath.Join(dir, "*", "capacity"))
	if err != nil {
		return -1
	}
	for _, capacity := range supplies {
		supply := filepath.Dir(capacity)
		if kind, err := readTrimmed(filepath.Join(supply, "type")); err == nil && kind != "Battery" {
			continue
		}
		value, err := readTrimmed(capacity)
		if err != nil {
			continue
		}
		if n, err := strconv.Atoi(value); err == nil && n >= 0 && n <= 100 {
			return n
		}
	}
	return -1
}

func readTrimmed(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func discardOutput(r io.Reader) error {
	_, err := io.Copy(io.Discard, r)
	return err
}
