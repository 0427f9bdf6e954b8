// Package buildinfo describes the running binary.
package buildinfo

import (
	"fmt"
	"io"
)

const notAvailable = "N/A"

// Info carries values injected with -ldflags at build time.
type Info struct {
	Version string
	Date    string
	Commit  string
}

// New fills empty fields with "N/A".
func New(version, date, commit string) Info {
	return Info{
		Version: orNA(version),
		Date:    orNA(date),
		Commit:  orNA(commit),
	}
}

// Print writes the build info in the human-readable banner form.
func (i Info) Print(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", i.Version)
	fmt.Fprintf(w, "Build date: %s\n", i.Date)
	fmt.Fprintf(w, "Build commit: %s\n", i.Commit)
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}
