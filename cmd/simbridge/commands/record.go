package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/simbridge/simbridge/pkg/addons"
	"github.com/simbridge/simbridge/pkg/controller"
	"github.com/simbridge/simbridge/pkg/librarian"
	"github.com/simbridge/simbridge/pkg/objinit"
	"github.com/simbridge/simbridge/pkg/protocol"
	"github.com/simbridge/simbridge/pkg/stores"
	"github.com/simbridge/simbridge/pkg/telemetry"
	"github.com/simbridge/simbridge/pkg/transport"
)

func newRecordCommand() *cobra.Command {
	var (
		frames    int
		dbPath    string
		framerate int
		spawn     []string
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record a build session to the database",
		Long: `Record connects to the build, subscribes to per-frame transforms,
rigidbodies, and collisions, and writes everything the build reports to
the SQLite session database. The session ends after the requested number
of frames or on interrupt.`,
		Example: `  # Record 500 frames
  simbridge record --frames 500

  # Record to a specific database file
  simbridge record --db /tmp/capture.db

  # Drop two models into the scene before recording
  simbridge record --spawn iron_box --spawn vase_02`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dbPath != "" {
				cfg.Recorder.Path = dbPath
			}

			ctx := cmd.Context()
			tel, err := telemetry.New(&cfg.Telemetry)
			if err != nil {
				return err
			}
			defer tel.Shutdown(ctx)

			store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.Recorder.Path})
			if err != nil {
				return err
			}
			if err := store.Init(ctx); err != nil {
				return err
			}
			defer store.Close()
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			recorder := stores.NewFrameRecorder(store, tel.Logger)

			ws, err := transport.DialWebSocket(ctx, cfg.Build.WebSocketConfig())
			if err != nil {
				return fmt.Errorf("failed to dial build: %w", err)
			}
			ctrl, err := controller.New(controller.Config{
				Transport: ws,
				Telemetry: tel,
				Recorder:  recorder,
			})
			if err != nil {
				return err
			}
			defer ctrl.Close()

			// The object manager's subscriptions put transforms and
			// rigidbodies on every recorded frame; the collision manager
			// subscribes to all collision events.
			ctrl.Attach(addons.NewObjectManager(addons.ObjectManagerConfig{
				Transforms:  true,
				Rigidbodies: true,
			}))
			ctrl.Attach(addons.NewCollisionManager())

			if err := ctrl.Connect(ctx); err != nil {
				return err
			}

			if len(spawn) > 0 || cfg.Librarian.Watch {
				loader := librarian.NewLoader(tel.Logger)
				lib, err := loader.LoadFromPaths(cfg.Librarian.Paths)
				if err != nil {
					return err
				}
				if cfg.Librarian.Watch {
					if err := loader.Watch(ctx, cfg.Librarian.Paths, lib); err != nil {
						return err
					}
				}
				if err := spawnModels(ctx, ctrl, lib, spawn); err != nil {
					return err
				}
			}

			if framerate > 0 {
				_, err := ctrl.Communicate(ctx, []protocol.Command{protocol.SetTargetFramerate{Framerate: framerate}})
				if err != nil {
					return err
				}
			}

			log.Info().
				Str("session", ctrl.SessionID()).
				Str("db", cfg.Recorder.Path).
				Int("frames", frames).
				Msg("Recording session")

			recorded := 0
			sessionErr := runFrames(ctx, ctrl, frames, &recorded)
			// The run context may already be cancelled by the interrupt.
			if err := recorder.Finish(context.Background(), ctrl.SessionID(), sessionErr); err != nil {
				log.Warn().Err(err).Msg("Failed to finalize session record")
			}
			if sessionErr != nil {
				return sessionErr
			}

			fmt.Printf("Recorded %d frame(s) for session %s in %s\n", recorded, ctrl.SessionID(), cfg.Recorder.Path)
			return nil
		},
	}

	cmd.Flags().IntVar(&frames, "frames", 100, "number of frames to record")
	cmd.Flags().StringVar(&dbPath, "db", "", "override the session database path")
	cmd.Flags().IntVar(&framerate, "framerate", 0, "cap the build's target framerate")
	cmd.Flags().StringArrayVar(&spawn, "spawn", nil, "model names to add to the scene before recording")

	return cmd
}

// spawnModels drops the named library models into the scene, spaced out
// along the x axis so they settle without overlapping.
func spawnModels(ctx context.Context, ctrl *controller.Controller, lib *librarian.Librarian, names []string) error {
	var commands []protocol.Command
	for i, name := range names {
		init := objinit.TransformInit{
			Name:     name,
			Position: protocol.Vector3{X: float64(i), Y: 1},
		}
		_, cmds, err := init.Commands(lib)
		if err != nil {
			return fmt.Errorf("failed to spawn %s: %w", name, err)
		}
		commands = append(commands, cmds...)
	}
	if len(commands) == 0 {
		return nil
	}
	_, err := ctrl.Communicate(ctx, commands)
	return err
}

// runFrames advances the build until the frame budget is spent or the
// context is cancelled. Cancellation is a clean stop, not an error.
func runFrames(ctx context.Context, ctrl *controller.Controller, frames int, recorded *int) error {
	for i := 0; i < frames; i++ {
		select {
		case <-ctx.Done():
			log.Info().Int("recorded", *recorded).Msg("Recording interrupted")
			return nil
		default:
		}
		if _, err := ctrl.Communicate(ctx, nil); err != nil {
			return err
		}
		*recorded++
	}
	return nil
}
