package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	_ "github.com/joho/godotenv/autoload"

	"github.com/rendis/leadtap/internal/config"
	"github.com/rendis/leadtap/internal/tui"
)

var version = "dev"

// CLI is the command tree. Flags override the LEADTAP_* environment.
type CLI struct {
	Scan    ScanCmd    `cmd:"" help:"Run one collection without the TUI."`
	Export  ExportCmd  `cmd:"" help:"Export stored leads to CSV, JSON or Excel."`
	Serve   ServeCmd   `cmd:"" help:"Serve the collection HTTP API."`
	Version VersionCmd `cmd:"" help:"Show version."`
	TUI     TUICmd     `cmd:"" default:"1" hidden:"" help:"Launch the interactive TUI."`
}

type VersionCmd struct{}

func (VersionCmd) Run() error {
	fmt.Println("leadtap " + version)
	return nil
}

type TUICmd struct{}

func (TUICmd) Run(cfg *config.Config) error {
	return tui.Run(cfg, version)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("leadtap"),
		kong.Description("Collect business leads from the map directory and classify their websites."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
