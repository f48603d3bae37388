package cli

import (
	"context"
	"fmt"
	"net"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/synheart/wardwatch/internal/config"
)

// probeTimeout bounds the checks when no HTTP timeout is configured.
const probeTimeout = 5 * time.Second

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check settings and backend connectivity",
	Long:  `Prints the effective settings, probes the alerts and stream endpoints and checks the metrics port.`,
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	fmt.Println("🏥 wardwatch Environment Check")

	fmt.Printf("Go Version:        %s\n", runtime.Version())
	fmt.Printf("OS/Arch:           %s/%s\n\n", runtime.GOOS, runtime.GOARCH)

	fmt.Printf("Base URL:          %s\n", cfg.BaseURL)
	fmt.Printf("Mode:              %s\n", cfg.Mode)
	if cfg.Mode == config.ModeSocket {
		fmt.Printf("Socket URL:        %s\n", cfg.StreamSocketURL())
	}
	fmt.Printf("Role:              %s\n", cfg.Role)
	fmt.Printf("Realtime:          %v\n", cfg.Realtime)
	if cfg.PatientID != 0 {
		fmt.Printf("Patient:           %d (poll every %s)\n", cfg.PatientID, cfg.Poll.Interval)
	}
	fmt.Println()

	timeout := cfg.HTTP.Timeout
	if timeout <= 0 {
		timeout = probeTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client := newAPIClient(cfg, log)
	if active, err := client.ActiveAlerts(ctx); err != nil {
		fmt.Printf("❌ Active alerts unavailable: %v\n", err)
	} else {
		fmt.Printf("✅ Active alerts reachable (%d unacknowledged)\n", len(active))
	}

	dialer := newDialer(cfg, client)
	if conn, err := dialer.Dial(ctx); err != nil {
		fmt.Printf("❌ Stream (%s) unavailable: %v\n", dialer.Name(), err)
	} else {
		conn.Close()
		fmt.Printf("✅ Stream (%s) connected\n", dialer.Name())
	}

	if cfg.Metrics.Addr != "" {
		if isPortAvailable(cfg.Metrics.Addr) {
			fmt.Printf("✅ Metrics address %s is available\n", cfg.Metrics.Addr)
		} else {
			fmt.Printf("⚠️  Metrics address %s is in use\n", cfg.Metrics.Addr)
			fmt.Printf("   Set metrics.addr or pass --metrics-addr to monitor\n")
		}
	}

	fmt.Println("\n✅ Environment check complete")
	return nil
}

func isPortAvailable(addr string) bool {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	listener.Close()
	return true
}
