package export

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/heimdex/heimdex-editor/internal/media"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// ErrInvalidOutput wraps every rejected output location.
var ErrInvalidOutput = errors.New("invalid export output")

const (
	// MaxStemRunes bounds generated file name stems.
	MaxStemRunes = 120
	// maxCollisions caps the " (n)" suffix search in OutputPath.
	maxCollisions = 999
)

// Device names Windows refuses as file names, with or without extension.
var reservedStems = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeName turns s into a file name stem that is valid on Windows,
// macOS and Linux. Disallowed characters become a single '_', leading dots
// and trailing dots or spaces are dropped, and device names such as "con" or
// "nul.txt" get a '_' after the device part. The result is cut to maxLen
// runes when maxLen > 0 and may be empty.
func SanitizeName(s string, maxLen int) string {
	var b strings.Builder
	underscore := false
	for _, r := range s {
		switch {
		case unicode.IsControl(r):
		case isAllowedNameRune(r):
			b.WriteRune(r)
			underscore = r == '_'
		case !underscore:
			b.WriteRune('_')
			underscore = true
		}
	}

	name := strings.TrimLeft(strings.TrimSpace(b.String()), ". ")
	if maxLen > 0 {
		if runes := []rune(name); len(runes) > maxLen {
			name = string(runes[:maxLen])
		}
	}
	name = strings.TrimRight(name, ". ")

	device, rest, dotted := strings.Cut(name, ".")
	if reservedStems[strings.ToUpper(device)] {
		name = device + "_"
		if dotted {
			name += "." + rest
		}
	}
	return name
}

func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case ' ', '-', '_', '.', ',', '(', ')':
		return true
	default:
		return false
	}
}

// ClipStem names an export. A requested name wins when anything survives
// sanitizing; otherwise the stem is built from the media title, the
// operation and the selection bounds, e.g.
// "beach day_gif_00-00-05-00_00-00-10-00".
func ClipStem(requested string, m *media.Media, op timeline.Operation, sel timeline.Selection, fps float64) string {
	if name := SanitizeName(requested, MaxStemRunes); name != "" {
		return name
	}
	suffix := fmt.Sprintf("_%s_%s_%s", op, fileTimecode(sel.Start, fps), fileTimecode(sel.End, fps))
	title := SanitizeName(strings.TrimSuffix(m.Filename, filepath.Ext(m.Filename)), MaxStemRunes-len(suffix))
	if title == "" {
		title = "clip"
	}
	return title + suffix
}

func fileTimecode(t, fps float64) string {
	return strings.ReplaceAll(timeline.FormatTimecode(t, fps), ":", "-")
}

// Extension returns the output extension for op. Trims are stream copies, so
// they keep the source container.
func Extension(op timeline.Operation, sourcePath string) string {
	if op == timeline.OperationGIF {
		return ".gif"
	}
	if ext := strings.ToLower(filepath.Ext(sourcePath)); ext != "" {
		return ext
	}
	return ".mp4"
}

// OutputPath picks a file in dir for stem+ext that does not exist yet,
// adding " (2)", " (3)", ... as needed. Exports never overwrite a file,
// including the source media.
func OutputPath(dir, stem, ext string) (string, error) {
	if err := ValidateOutputDir(dir); err != nil {
		return "", err
	}
	if stem == "" {
		return "", fmt.Errorf("%w: empty file name", ErrInvalidOutput)
	}
	for i := 1; i <= maxCollisions; i++ {
		name := stem + ext
		if i > 1 {
			name = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(dir, name)
		_, err := os.Lstat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidOutput, err)
		}
	}
	return "", fmt.Errorf("%w: too many files named %q", ErrInvalidOutput, stem+ext)
}

// ValidateOutputDir accepts an existing directory given as a clean absolute
// path.
func ValidateOutputDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return fmt.Errorf("%w: output_dir is required", ErrInvalidOutput)
	}
	if !filepath.IsAbs(dir) {
		return fmt.Errorf("%w: output_dir must be absolute", ErrInvalidOutput)
	}
	if filepath.Clean(dir) != dir {
		return fmt.Errorf("%w: output_dir must be a clean path", ErrInvalidOutput)
	}

	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: output_dir does not exist", ErrInvalidOutput)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: output_dir is not a directory", ErrInvalidOutput)
	}
	return nil
}
