// Command aptprep resolves a declarative package list against one or
// more Debian-style APT repositories into a reproducible lockfile,
// downloads the locked artifacts with integrity verification, and can
// regenerate a local Packages index from what was downloaded.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aptprep/aptprep/internal/aptpkgerrors"
	"github.com/aptprep/aptprep/internal/cliapp"
	"github.com/aptprep/aptprep/internal/config"
	"github.com/aptprep/aptprep/internal/logging"
	"github.com/aptprep/aptprep/pkg/lockfile"
)

var verbosity int

func main() {
	root := &cobra.Command{
		Use:   "aptprep",
		Short: "Resolve, lock, and download a reproducible snapshot of a Debian-style package set",
	}
	root.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")

	root.AddCommand(lockCmd(), downloadCmd(), generateCmd())

	if err := root.Execute(); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

func newContext() (context.Context, error) {
	log, err := logging.New(verbosity)
	if err != nil {
		return nil, err
	}
	return logging.WithLogger(context.Background(), log), nil
}

func lockCmd() *cobra.Command {
	var configPath, lockfilePath string
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Resolve the configured package set and write a lockfile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newContext()
			if err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			lf, err := cliapp.Lock(ctx, cfg)
			if err != nil {
				return err
			}
			return lf.Write(lockfilePath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the YAML configuration file")
	cmd.Flags().StringVar(&lockfilePath, "lockfile", "", "path to write the resolved lockfile")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("lockfile")
	return cmd
}

func downloadCmd() *cobra.Command {
	var configPath, lockfilePath, outputPath string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download and verify every artifact named in the lockfile",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := newContext()
			if err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			lf, err := lockfile.Load(lockfilePath)
			if err != nil {
				return err
			}

			output := outputPath
			if output == "" {
				output = cfg.Output.Path
			}

			_, err = cliapp.Download(ctx, cfg, lf, cliapp.DownloadOptions{
				OutputDir:    output,
				StoreDir:     filepath.Join(output, ".aptprep-store"),
				ShowProgress: true,
			})
			return err
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the YAML configuration file")
	cmd.Flags().StringVar(&lockfilePath, "lockfile", "", "path to the resolved lockfile")
	cmd.Flags().StringVar(&outputPath, "output", "", "override output.path from the configuration file")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("lockfile")
	return cmd
}

func generateCmd() *cobra.Command {
	var configPath, lockfilePath, outputPath, suite, codename, component string
	cmd := &cobra.Command{
		Use:   "generate_packages_file_from_lockfile",
		Short: "Regenerate a Packages index from already-downloaded artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := newContext()
			if err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if _, err := lockfile.Load(lockfilePath); err != nil {
				return err
			}

			output := outputPath
			if output == "" {
				output = cfg.Output.Path
			}
			if component == "" {
				component = "main"
			}

			_, err = cliapp.GeneratePackagesFile(output, suite, codename, component)
			return err
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to the YAML configuration file")
	cmd.Flags().StringVar(&lockfilePath, "lockfile", "", "path to the resolved lockfile")
	cmd.Flags().StringVar(&outputPath, "output", "", "override output.path from the configuration file")
	cmd.Flags().StringVar(&suite, "suite", "", "optional Suite name to emit a Release file under")
	cmd.Flags().StringVar(&codename, "codename", "", "optional Codename for the emitted Release file")
	cmd.Flags().StringVar(&component, "component", "main", "component name recorded in the optional Release file")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("lockfile")
	return cmd
}

// exitCodeFor maps the error taxonomy to a distinguishable process exit
// code, so scripting around aptprep can tell a resolution conflict from
// a config mistake without scraping stderr.
func exitCodeFor(err error) int {
	fmt.Fprintln(os.Stderr, err)
	switch err.(type) {
	case *aptpkgerrors.ConfigError:
		return 2
	case *aptpkgerrors.ResolutionError:
		return 3
	case *aptpkgerrors.FetchError:
		return 4
	case *aptpkgerrors.IntegrityError:
		return 5
	case *aptpkgerrors.ParseError:
		return 6
	case *aptpkgerrors.IOError:
		return 7
	default:
		return 1
	}
}
