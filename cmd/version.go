package cmd

import (
	"runtime"

	"github.com/givani30/waybar-vd/cli"
	"github.com/givani30/waybar-vd/version"
	"github.com/spf13/cobra"
)

// NewVersionCmd creates the version command from linker-injected metadata.
func NewVersionCmd() *cobra.Command {
	info := version.GetInfo()
	return cli.NewVersionCommand("waybar-vd", cli.VersionInfo{
		Version:   info.Version,
		Commit:    info.Commit,
		BuildDate: info.BuildDate,
		BuildArch: runtime.GOOS + "/" + runtime.GOARCH,
	})
}
