package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/rendis/leadtap/internal/engine/storage"
	"github.com/rendis/leadtap/internal/export"
	"github.com/rendis/leadtap/internal/model"
)

type ExportCmd struct {
	DB     string `help:"Path to a leadtap .db file." required:"" type:"existingfile"`
	RunID  string `name:"run" help:"Only export this run id."`
	Format string `help:"Export format." enum:"csv,json,xlsx" default:"csv" short:"f"`
	Output string `help:"Output file path (default: next to the database)." short:"o"`
}

func (c *ExportCmd) Run() error {
	runID := uuid.Nil
	if c.RunID != "" {
		id, err := uuid.Parse(c.RunID)
		if err != nil {
			return fmt.Errorf("--run: %w", err)
		}
		runID = id
	}
	format, err := export.ParseFormat(c.Format)
	if err != nil {
		return err
	}

	outputPath := c.Output
	if outputPath == "" {
		outputPath = export.DefaultPath(c.DB, format)
	}

	store, err := storage.NewStore(c.DB, "")
	if err != nil {
		return fmt.Errorf("loading db: %w", err)
	}
	defer store.Close()

	stored, err := store.Leads(runID)
	if err != nil {
		return fmt.Errorf("loading db: %w", err)
	}
	if len(stored) == 0 {
		return fmt.Errorf("no leads found in database")
	}

	leads := make([]model.LeadRecord, len(stored))
	for i, l := range stored {
		leads[i] = l.LeadRecord
	}
	if err := export.ToFile(outputPath, format, leads); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Exported %d leads to %s\n", len(leads), outputPath)
	return nil
}
