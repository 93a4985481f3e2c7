package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/simbridge/simbridge/pkg/librarian"
	"github.com/simbridge/simbridge/pkg/telemetry"
)

func newModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect model record libraries",
	}

	cmd.AddCommand(newModelsListCommand())
	cmd.AddCommand(newModelsSearchCommand())

	return cmd
}

func newModelsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all model records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := loadLibraries()
			if err != nil {
				return err
			}
			if jsonOutput {
				return printJSON(lib.Names())
			}
			for _, name := range lib.Names() {
				fmt.Println(name)
			}
			fmt.Printf("%d model(s)\n", lib.Len())
			return nil
		},
	}
}

func newModelsSearchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search model records by name",
		Example: `  simbridge models search vase
  simbridge models search jug --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := loadLibraries()
			if err != nil {
				return err
			}
			records := lib.Search(args[0])
			if jsonOutput {
				return printJSON(records)
			}
			if len(records) == 0 {
				fmt.Printf("no models match %q\n", args[0])
				return nil
			}
			for _, r := range records {
				flag := ""
				if r.DoNotUse {
					flag = " (do not use)"
				}
				fmt.Printf("%-32s %-16s scale %.2f%s\n", r.Name, r.WCategory, r.ScaleFactor, flag)
			}
			return nil
		},
	}
}

// loadLibraries builds a librarian from the core library plus the configured
// library directories.
func loadLibraries() (*librarian.Librarian, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log, err := telemetry.NewLogger(cfg.Telemetry.Logging)
	if err != nil {
		return nil, err
	}
	return librarian.NewLoader(log).LoadFromPaths(cfg.Librarian.Paths)
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
