// Package admin implements the "campusgate admin" CLI subcommand,
// a terminal UI for managing the fleet registry and operator accounts.
package admin

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"campusgate/internal/adminui"
	"campusgate/internal/db"
)

func Run(args []string) error {
	fs := flag.NewFlagSet("admin", flag.ContinueOnError)
	var dbPath string
	fs.StringVar(&dbPath, "db", "./data/campusgate.db", "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Opening would create an empty database; a typo'd path should
	// fail loudly instead.
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("database %s not found; run setup first", dbPath)
	}

	d, err := db.Open(context.Background(), dbPath)
	if err != nil {
		return err
	}
	defer d.Close()

	p := tea.NewProgram(adminui.New(d), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}
