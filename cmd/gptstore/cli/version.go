package cli

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// BuildInfo identifies the running binary: set by ldflags on release builds,
// recovered from debug.ReadBuildInfo otherwise.
type BuildInfo struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	Date    string `json:"built,omitempty"`
}

// OrDev fills unknown fields so version output never prints empty strings.
func (b BuildInfo) OrDev() BuildInfo {
	if b.Version == "" || b.Version == "(devel)" {
		b.Version = "dev"
	}
	return b
}

func newVersionCmd(build BuildInfo) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			if jsonOutput {
				out := struct {
					BuildInfo
					Go   string `json:"go_version"`
					OS   string `json:"os"`
					Arch string `json:"arch"`
				}{build, runtime.Version(), runtime.GOOS, runtime.GOARCH}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "gptstore %s", build.Version)
			if build.Commit != "" {
				c := build.Commit
				if len(c) > 12 {
					c = c[:12]
				}
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", c)
			}
			fmt.Fprintf(cmd.OutOrStdout(), " %s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH)
			if build.Date != "" {
				fmt.Fprintf(cmd.OutOrStdout(), ", built %s", build.Date)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	return cmd
}
