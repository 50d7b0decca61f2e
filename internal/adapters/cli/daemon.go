package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpcAdapter "github.com/andrescamacho/fishtrack-go/internal/adapters/grpc"
	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/config"
	"github.com/andrescamacho/fishtrack-go/internal/infrastructure/pidfile"
)

// NewDaemonCommand creates the daemon command with subcommands
func NewDaemonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Inspect or stop the background daemon",
		Long: `Inspect or stop the fishtrack daemon.

The daemon itself is started with the fishtrack-daemon binary.

Examples:
  fishtrack daemon status
  fishtrack daemon stop`,
	}

	cmd.AddCommand(newDaemonStatusCommand())
	cmd.AddCommand(newDaemonStopCommand())

	return cmd
}

// newDaemonStatusCommand reads the PID file and queries the gRPC health service
func newDaemonStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon health status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			pid, running := pidfile.New(cfg.Daemon.PIDFile).Running()
			if !running {
				fmt.Println("✗ Daemon is not running")
				return nil
			}

			conn, err := grpc.NewClient(cfg.Daemon.HealthAddress, grpc.WithTransportCredentials(insecure.NewCredentials()))
			if err != nil {
				return fmt.Errorf("failed to connect to daemon: %w", err)
			}
			defer conn.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			client := healthpb.NewHealthClient(conn)
			fmt.Printf("✓ Daemon is running (PID %d)\n", pid)
			for _, service := range []string{"", grpcAdapter.ServiceTrips, grpcAdapter.ServiceFuel} {
				name := service
				if name == "" {
					name = "overall"
				}
				resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
				if err != nil {
					return fmt.Errorf("health check failed: %w", err)
				}
				fmt.Printf("  %-18s %s\n", name+":", resp.GetStatus())
			}

			return nil
		},
	}
}

// newDaemonStopCommand sends SIGTERM to the daemon owning the PID file
func newDaemonStopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			pf := pidfile.New(cfg.Daemon.PIDFile)
			if _, running := pf.Running(); !running {
				fmt.Println("Daemon is not running")
				return nil
			}
			if err := pf.KillExisting(); err != nil {
				return err
			}

			fmt.Println("✓ Daemon stopped")
			return nil
		},
	}
}
