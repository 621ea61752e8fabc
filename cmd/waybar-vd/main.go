package main

import (
	"os"
	"runtime"

	"github.com/givani30/waybar-vd/cli"
	"github.com/givani30/waybar-vd/cmd"
	"github.com/givani30/waybar-vd/version"
)

func main() {
	rootCmd := cli.NewStandardCommand(
		"waybar-vd",
		"Hyprland virtual desktops module for Waybar",
	)

	info := version.GetInfo()
	rootCmd.Version = info.Version
	cli.SetVersionTemplate(rootCmd, cli.VersionInfo{
		Version:   info.Version,
		Commit:    info.Commit,
		BuildDate: info.BuildDate,
		BuildArch: runtime.GOOS + "/" + runtime.GOARCH,
	})

	rootCmd.AddCommand(cmd.NewRunCmd())
	rootCmd.AddCommand(cmd.NewDaemonCmd())
	rootCmd.AddCommand(cmd.NewSwitchCmd())
	rootCmd.AddCommand(cmd.NewStatusCmd())
	rootCmd.AddCommand(cmd.NewLogsCmd())
	rootCmd.AddCommand(cmd.NewConfigCmd())
	rootCmd.AddCommand(cmd.NewVersionCmd())

	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		verbose, _ := rootCmd.Flags().GetBool("verbose")
		cli.NewErrorHandler(verbose).Handle(err)
		os.Exit(1)
	}
}
