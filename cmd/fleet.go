package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/skyfleet/skyfleet/app"
	"github.com/skyfleet/skyfleet/config"
)

var fleetCmd = &cobra.Command{
	Use:   "fleet",
	Short: "Fleet related commands",
}

var fleetLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List the vehicles of the configured fleet registry",
	RunE:  runFleetLs,
}

var (
	fleetJSON    bool
	fleetTimeout time.Duration
)

func init() {
	fleetLsCmd.Flags().BoolVar(&fleetJSON, "json", false, "print the vehicles as JSON")
	fleetLsCmd.Flags().DurationVar(&fleetTimeout, "timeout", 5*time.Second, "registry request timeout")
	fleetCmd.AddCommand(fleetLsCmd)
	rootCmd.AddCommand(fleetCmd)
}

func runFleetLs(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	collab, err := app.BuildCollaborators(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), fleetTimeout)
	defer cancel()
	vehicles, err := collab.Fleet.ListVehicles(ctx)
	if err != nil {
		return fmt.Errorf("list vehicles: %w", err)
	}

	out := cmd.OutOrStdout()
	if fleetJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(vehicles)
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCAPACITY\tMAX_MOVES\tCOOLING\tHEATING")
	for _, v := range vehicles {
		if v.Capability == nil {
			fmt.Fprintf(w, "%s\t%s\t-\t-\t-\t-\n", v.ID, v.Name)
			continue
		}
		c := v.Capability
		fmt.Fprintf(w, "%s\t%s\t%g\t%d\t%t\t%t\n", v.ID, v.Name, c.Capacity, c.MaxMoves, c.Cooling, c.Heating)
	}
	return w.Flush()
}
