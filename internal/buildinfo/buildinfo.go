// Package buildinfo holds version data injected at link time:
//
//	go build -ldflags "-X github.com/dmitrijs2005/planillas/internal/buildinfo.Version=v1.0.0 \
//	  -X github.com/dmitrijs2005/planillas/internal/buildinfo.Date=$(date -u +%F) \
//	  -X github.com/dmitrijs2005/planillas/internal/buildinfo.Commit=$(git rev-parse --short HEAD)" ./cmd/planillas
package buildinfo

import (
	"fmt"
	"io"
)

var (
	Version string
	Date    string
	Commit  string
)

func valueOrNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// PrintBuildData writes the build banner to w.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", valueOrNA(Version))
	fmt.Fprintf(w, "Build date: %s\n", valueOrNA(Date))
	fmt.Fprintf(w, "Build commit: %s\n", valueOrNA(Commit))
}
