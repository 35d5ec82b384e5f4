package utils

import (
	"regexp"
	"strings"
)

var (
	// Characters invalid in filenames on most filesystems
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*\x00]`)
	// Whitespace runs, including newlines and tabs
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

const maxFilenameLength = 200

// SanitizeFilename turns a book title into a name safe for any filesystem.
func SanitizeFilename(filename string) string {
	filename = invalidFilenameChars.ReplaceAllString(filename, "")
	filename = whitespaceRuns.ReplaceAllString(filename, " ")
	filename = strings.Trim(filename, " .")

	// leave room for the extension
	if len(filename) > maxFilenameLength {
		filename = strings.TrimSpace(filename[:maxFilenameLength])
	}

	if filename == "" {
		filename = "Untitled"
	}
	return filename
}

// EPUBFilename returns the export name for a book, keeping a single .epub
// extension regardless of how the remote file was named.
func EPUBFilename(title string) string {
	base := title
	if strings.HasSuffix(strings.ToLower(base), ".epub") {
		base = base[:len(base)-len(".epub")]
	}
	return SanitizeFilename(base) + ".epub"
}
