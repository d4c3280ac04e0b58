package pkg

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// FileUtils provides file-related utilities
type FileUtils struct{}

// Files is the shared FileUtils instance
var Files = FileUtils{}

var invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFilename removes or replaces invalid characters in filename.
// Truncation counts runes, not bytes, so multibyte names stay valid UTF-8.
func (FileUtils) SanitizeFilename(filename string) string {
	filename = invalidNameChars.ReplaceAllString(filename, "_")
	filename = strings.Trim(filename, " .")

	const maxRunes = 255
	if utf8.RuneCountInString(filename) > maxRunes {
		ext := filepath.Ext(filename)
		keep := maxRunes - utf8.RuneCountInString(ext)
		if keep < 1 {
			// The extension alone fills the limit; drop it.
			ext = ""
			keep = maxRunes
		}
		name := []rune(strings.TrimSuffix(filename, ext))
		if len(name) > keep {
			name = name[:keep]
		}
		filename = string(name) + ext
	}

	return filename
}

// FormatFileSize formats file size in human-readable format
func (FileUtils) FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}

	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}

	units := []string{"KB", "MB", "GB", "TB", "PB"}
	return fmt.Sprintf("%.1f %s", float64(size)/float64(div), units[exp])
}

// TimeUtils provides time-related utilities
type TimeUtils struct{}

// Times is the shared TimeUtils instance
var Times = TimeUtils{}

// StartOfDay returns the start of the given day in UTC
func (TimeUtils) StartOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ConversionUtils provides data conversion utilities
type ConversionUtils struct{}

// Convert is the shared ConversionUtils instance
var Convert = ConversionUtils{}

// StringToInt converts string to int with a default
func (ConversionUtils) StringToInt(s string, defaultValue int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return defaultValue
}

// StringToBool converts string to bool with a default
func (ConversionUtils) StringToBool(s string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(s); err == nil {
		return v
	}
	return defaultValue
}
