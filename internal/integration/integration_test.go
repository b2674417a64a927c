//go:build integration

package integration

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"

	"rider.badgertransit.org/internal/config"
)

var (
	integrationConfig string
	sampleStopID      string
)

func init() {
	flag.StringVar(&integrationConfig, "integration-config", "", "Path to a rider JSON configuration file")
	flag.StringVar(&sampleStopID, "stop-id", "", "Stop id used for live stop detail lookups")
}

var integrationCfg *config.Config

func TestMain(m *testing.M) {
	flag.Parse()

	if integrationConfig == "" {
		fmt.Fprintln(os.Stderr, "Error: -integration-config flag is required for integration tests")
		os.Exit(1)
	}

	cfg, err := config.Load(integrationConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config %s: %v\n", integrationConfig, err)
		os.Exit(1)
	}
	integrationCfg = cfg

	os.Exit(m.Run())
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
