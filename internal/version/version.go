// Package version carries build-stamped identity for the httpcore-fetch
// CLI's startup banner and --version output.
package version

import (
	"fmt"
	"log"
	"strings"

	"github.com/relaycore/httpcore/theme"
)

var (
	Name        = "httpcore"
	Description = "Pooled, retry-aware HTTP/1.1 client engine"
	Version     = "v0.0.1"
	Commit      = "none"
	Date        = "nowish"
	User        = "local"
)

const (
	GithubHomeText  = "github.com/relaycore/httpcore"
	GithubHomeUri   = "https://github.com/relaycore/httpcore"
	GithubLatestUri = "https://github.com/relaycore/httpcore/releases/latest"
)

// PrintVersionInfo writes a one-line banner (or, with extendedInfo, a
// banner plus build metadata) to vlog.
func PrintVersionInfo(extendedInfo bool, vlog *log.Logger) {
	githubUri := theme.Hyperlink(GithubHomeUri, GithubHomeText)
	latestUri := theme.Hyperlink(GithubLatestUri, Version)

	var b strings.Builder
	b.WriteString(theme.ColourSplash(fmt.Sprintf("%s — %s", Name, Description)))
	b.WriteString("\n")
	b.WriteString(theme.StyleUrl(githubUri))
	b.WriteString("  ")
	b.WriteString(theme.ColourVersion(latestUri))

	if extendedInfo {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf(" Commit: %s\n", Commit))
		b.WriteString(fmt.Sprintf("  Built: %s\n", Date))
		b.WriteString(fmt.Sprintf("  Using: %s\n", User))
	}

	vlog.Println(b.String())
}
