// Package cli implements the interactive administration console for the
// account engine: registration, confirmation, recovery and password
// changes over a PostgreSQL-backed store.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/tfmagician/mi-users/internal/accounts"
	"github.com/tfmagician/mi-users/internal/config"
	"github.com/tfmagician/mi-users/internal/logging"
)

type App struct {
	config *config.Config
	log    logging.Logger
	svc    *accounts.Service
	store  accounts.Store
	reader *bufio.Reader
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logging.NewDefault(cfg.Debug)

	db, err := accounts.Open(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := accounts.RunMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	store := accounts.NewPostgresRepository(db)
	svc, err := accounts.NewService(store, accounts.NewOutbox(db), cfg, log)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		config: cfg,
		log:    log,
		svc:    svc,
		store:  store,
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

func (a *App) Run(ctx context.Context) {
	printlnFn("mi-users console (type 'help' for commands)")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("miusers> ")
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "help":
			printlnFn("Available commands: register, confirm, forgot, reset, passwd, exit")
		case "register":
			a.register(ctx)
		case "confirm":
			a.confirm(ctx)
		case "forgot":
			a.forgot(ctx)
		case "reset":
			a.reset(ctx)
		case "passwd":
			a.passwd(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command (type 'help' for commands)")
		}
	}
}

func (a *App) printResult(res accounts.Result) {
	if res.Message != "" {
		printlnFn(res.Message)
	}
	fields := make([]string, 0, len(res.Errors))
	for field := range res.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		printlnFn(fmt.Sprintf("  %s: %s", field, res.Errors[field]))
	}
}
