package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/abelbrown/newsbell/internal/catalog"
	"github.com/abelbrown/newsbell/internal/config"
	"github.com/abelbrown/newsbell/internal/model"
)

func sourcesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List sources and their settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			overrides := cfg.Overrides()
			for _, src := range catalog.Sources(catalog.Options{URLs: cfg.URLs()}) {
				g := src.Granularity
				if o, ok := overrides[src.Name]; ok && o.Granularity != nil {
					g = *o.Granularity
				}
				state := "enabled "
				if !cfg.SourceEnabled(src.Name) {
					state = dimStyle.Render("disabled")
				}
				fmt.Printf("  %-24s %s %s\n", src.Name, state, g)
			}
			return nil
		},
	}
	cmd.AddCommand(
		toggleCommand("enable", "Enable a source", true),
		toggleCommand("disable", "Disable a source", false),
		granularityCommand(),
	)
	return cmd
}

func toggleCommand(use, short string, enabled bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return editSource(args[0], func(cfg *config.Config, name string) {
				cfg.SetSourceEnabled(name, enabled)
			})
		},
	}
}

func granularityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "granularity NAME exact|day",
		Short: "Set how a source's dates are compared with its checkpoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := model.ParseGranularity(args[1])
			if err != nil {
				return err
			}
			return editSource(args[0], func(cfg *config.Config, name string) {
				cfg.SetSourceGranularity(name, g)
			})
		},
	}
}

// editSource applies edit to the named source and saves the config. A
// running daemon picks the change up on its own.
func editSource(name string, edit func(*config.Config, string)) error {
	if !slices.Contains(catalog.Names(), name) {
		return fmt.Errorf("unknown source %q (known: %v)", name, catalog.Names())
	}
	// Refuse to overwrite a file we could not parse.
	cfg, err := config.Load(configPath())
	if err != nil {
		return err
	}
	edit(cfg, name)
	if err := cfg.Save(configPath()); err != nil {
		return err
	}
	fmt.Printf("saved %s\n", configPath())
	return nil
}
