package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wippyai/postal/config"
	"github.com/wippyai/postal/data"
)

func newDataCmd(a *app) *cobra.Command {
	var dc config.DataConfig
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Install and inspect libpostal data",
		Long: `Manage a libpostal data directory downloaded from the libpostal releases.

With data.auto_download set (or $` + config.EnvAutoDownload + `=true) and no
data directory configured, every command installs the data on first use.`,
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&dc.Root, "root", "", "install root (default $"+config.EnvDataRoot+" or the user cache directory)")
	pf.StringVar(&dc.Version, "version", "", "libpostal data release (default "+data.DefaultVersion+")")
	pf.StringVar(&dc.BaseURL, "base-url", "", "release download prefix")

	// installer applies the flags over the loaded configuration.
	installer := func(cmd *cobra.Command) (*data.Installer, error) {
		cfg := *a.cfg
		flags := cmd.Flags()
		if flags.Changed("root") {
			cfg.Data.Root = dc.Root
		}
		if flags.Changed("version") {
			cfg.Data.Version = dc.Version
		}
		if flags.Changed("base-url") {
			cfg.Data.BaseURL = dc.BaseURL
		}
		return cfg.Installer(a.logger)
	}

	fetch := &cobra.Command{
		Use:   "fetch",
		Short: "Download the data release unless it is already installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inst, err := installer(cmd)
			if err != nil {
				return err
			}
			dir, err := inst.Ensure(cmd.Context())
			if err != nil {
				return err
			}
			p := &printer{w: a.stdout, json: a.wantJSON(cmd)}
			return p.emit(inst.Version(), "data_dir", dir, dir)
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the data directory and its installed release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inst, err := installer(cmd)
			if err != nil {
				return err
			}
			installed, err := inst.Installed()
			if err != nil {
				return err
			}
			if a.wantJSON(cmd) {
				p := &printer{w: a.stdout, json: true}
				return p.emit(inst.Dir(), "installed", installed, "")
			}
			if installed == "" {
				installed = "not installed"
			}
			_, err = fmt.Fprintf(a.stdout, "%s\t%s\n", inst.Dir(), installed)
			return err
		},
	}

	cmd.AddCommand(fetch, status)
	return cmd
}
