// Command colornote edits a note in the terminal.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kuitang/colornote/internal/config"
	"github.com/kuitang/colornote/internal/db"
	"github.com/kuitang/colornote/internal/notes"
	"github.com/kuitang/colornote/internal/obs"
	"github.com/kuitang/colornote/internal/tui"
)

func main() {
	noteID := flag.String("note", "", "id of the note to edit (default: start a new note)")
	title := flag.String("title", "", "title for a new note")
	logPath := flag.String("log", "", "append debug logs to this file")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	flag.Parse()

	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			fmt.Println("failed to open log file:", err)
			os.Exit(1)
		}
		defer f.Close()
		obs.InitWriter(f, slog.LevelDebug)
	} else {
		// The terminal belongs to the editor; keep stray logs off it.
		obs.InitWriter(io.Discard, slog.LevelError)
	}

	cfg, err := config.LoadStoreConfig()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	key, err := cfg.DatabaseKey()
	if err != nil {
		fmt.Println("invalid MASTER_KEY:", err)
		os.Exit(1)
	}
	store, err := db.Open(cfg.DatabasePath, key)
	if err != nil {
		fmt.Println("failed to open notes database:", err)
		os.Exit(1)
	}
	defer store.Close()

	opts := []tea.ProgramOption{}
	if !*noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Notes:  notes.NewService(store, nil),
			NoteID: *noteID,
			Title:  *title,
		}),
		opts...,
	)

	if _, err := program.Run(); err != nil {
		fmt.Println("program error:", err)
		store.Close()
		os.Exit(1)
	}
}
