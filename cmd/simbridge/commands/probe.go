package commands

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/simbridge/simbridge/pkg/controller"
	"github.com/simbridge/simbridge/pkg/outputdata"
	"github.com/simbridge/simbridge/pkg/protocol"
	"github.com/simbridge/simbridge/pkg/telemetry"
	"github.com/simbridge/simbridge/pkg/transport"
)

func newProbeCommand() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Connect to a build and report its version and scene",
		Long: `Probe dials the build, performs the version handshake, and requests the
scene regions. It is the quickest way to check that a build is reachable
and responding.`,
		Example: `  # Probe the build from the config file
  simbridge probe

  # Probe a specific build
  simbridge probe --address 192.168.1.20:1071`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Build.Address = address
			}

			ctx := cmd.Context()
			tel, err := telemetry.New(&cfg.Telemetry)
			if err != nil {
				return err
			}
			defer tel.Shutdown(ctx)

			log.Info().Str("address", cfg.Build.Address).Msg("Dialing build")
			ws, err := transport.DialWebSocket(ctx, cfg.Build.WebSocketConfig())
			if err != nil {
				return fmt.Errorf("failed to dial build: %w", err)
			}

			ctrl, err := controller.New(controller.Config{Transport: ws, Telemetry: tel})
			if err != nil {
				return err
			}
			defer ctrl.Close()

			if err := ctrl.Connect(ctx); err != nil {
				return err
			}
			result, err := ctrl.Communicate(ctx, []protocol.Command{protocol.SendSceneRegions{}})
			if err != nil {
				return err
			}

			version := ctrl.Version()
			regions, _ := result.Get(outputdata.IDSceneRegions).(*outputdata.SceneRegions)

			if jsonOutput {
				out := map[string]interface{}{
					"address":        cfg.Build.Address,
					"engine_version": version.EngineVersion,
					"build_version":  version.BuildVersion,
					"standalone":     version.Standalone,
					"frame":          result.Frame.Number,
				}
				if regions != nil {
					out["scene_regions"] = len(regions.Regions)
				}
				data, err := json.MarshalIndent(out, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Build:   %s (engine %s)\n", version.BuildVersion, version.EngineVersion)
			fmt.Printf("Address: %s\n", cfg.Build.Address)
			fmt.Printf("Frame:   %d\n", result.Frame.Number)
			if regions != nil {
				fmt.Printf("Regions: %d\n", len(regions.Regions))
				for _, r := range regions.Regions {
					fmt.Printf("  region %d: center (%.2f, %.2f, %.2f) bounds (%.2f, %.2f, %.2f)\n",
						r.ID, r.Center.X, r.Center.Y, r.Center.Z, r.Bounds.X, r.Bounds.Y, r.Bounds.Z)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "override the build address (host:port)")

	return cmd
}
