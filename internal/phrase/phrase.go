// Package phrase loads and validates target phrases.
package phrase

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Default is used when neither a phrase nor a phrase file is configured.
const Default = "The quick brown fox jumped over the lazy wolves."

// Load reads a phrase file, joining its non-empty lines with single spaces.
func Load(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only phrase file.
			_ = cerr
		}
	}()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", fmt.Errorf("phrase file is empty")
	}
	return strings.Join(lines, " "), nil
}

// Validate checks that text is non-empty printable single-byte ASCII.
func Validate(text string) error {
	if text == "" {
		return fmt.Errorf("phrase is empty")
	}
	for i := 0; i < len(text); i++ {
		ch := text[i]
		if ch < 0x20 || ch > 0x7e {
			return fmt.Errorf("phrase has unsupported byte 0x%02x at offset %d (printable ASCII only)", ch, i)
		}
	}
	return nil
}

// Resolve picks the phrase to practice: explicit text, then a phrase file,
// then Default.
func Resolve(text, file string) (string, error) {
	switch {
	case text != "":
	case file != "":
		loaded, err := Load(file)
		if err != nil {
			return "", fmt.Errorf("failed to load phrase file: %w", err)
		}
		text = loaded
	default:
		text = Default
	}
	if err := Validate(text); err != nil {
		return "", err
	}
	return text, nil
}
