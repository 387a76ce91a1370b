package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/gptstore/gptstore/cmd/gptstore/cli"
)

// Overridden via -ldflags on release builds; `go install` builds fall back to
// the module version recorded in build info.
var (
	version = ""
	commit  = ""
	date    = ""
)

func main() {
	if err := cli.Execute(buildVersion()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildVersion() cli.BuildInfo {
	b := cli.BuildInfo{Version: version, Commit: commit, Date: date}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return b.OrDev()
	}
	if b.Version == "" {
		b.Version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Date == "" {
				b.Date = s.Value
			}
		}
	}
	return b.OrDev()
}
