package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"ledgercast/internal/syncer"
)

// entryPrinter renders controller log entries as they arrive. Colors are
// used only when stdout is a terminal.
type entryPrinter struct {
	out   io.Writer
	color bool
}

func newEntryPrinter(out io.Writer) *entryPrinter {
	color := false
	if f, ok := out.(*os.File); ok {
		color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &entryPrinter{out: out, color: color}
}

func (p *entryPrinter) print(entry syncer.Entry) {
	stamp := entry.Timestamp.Local().Format("15:04:05")
	message := entry.Message
	if p.color {
		switch entry.Level {
		case "error":
			message = text.FgRed.Sprint(message)
		case "warn":
			message = text.FgYellow.Sprint(message)
		}
	}
	fmt.Fprintf(p.out, "%s  %s\n", stamp, message)
}

func statusLabel(status string) string {
	switch status {
	case "pending":
		return "Pending"
	case "running":
		return "Running"
	case "completed":
		return "Completed"
	case "failed":
		return "Failed"
	case "cancelled":
		return "Cancelled"
	default:
		return status
	}
}
