// Package export writes classification results as CSV.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/TobiSchelling/CommentGender/internal/classify"
	"github.com/TobiSchelling/CommentGender/internal/youtube"
)

var header = []string{"username", "gender"}

var unsafeChars = strings.NewReplacer(
	`\`, "_", "/", "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)

// SanitizeFilename replaces characters that are not allowed in file names with
// '_' and trims surrounding whitespace.
func SanitizeFilename(name string) string {
	return strings.TrimSpace(unsafeChars.Replace(name))
}

// Filename is the download name for a video's result: "<channel> - <title> - <id>.csv".
func Filename(v youtube.Video) string {
	return SanitizeFilename(fmt.Sprintf("%s - %s - %s.csv", v.ChannelTitle, v.Title, v.ID))
}

// WriteCSV writes the header and one row per entry.
func WriteCSV(w io.Writer, result *classify.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, e := range result.Entries {
		if err := cw.Write([]string{e.Username, string(e.Gender)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// CSV returns the result serialized as CSV.
func CSV(result *classify.Result) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, result); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the CSV to dir/name, creating dir if needed, and returns the path.
func WriteFile(dir, name string, result *classify.Result) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, result); err != nil {
		f.Close()
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}
