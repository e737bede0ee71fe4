// Command blackmagic is a booster pack simulator: buy packs with a virtual
// balance, open them and keep or sell the cards.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/blackmagic-app/blackmagic/internal/app"
	"github.com/blackmagic-app/blackmagic/internal/config"
)

// command is one CLI subcommand.
type command struct {
	usage string
	help  string
	run   func(ctx context.Context, c *cli, args []string) error
}

var commands = map[string]command{
	"shop":           {"shop", "List boosters for sale", cmdShop},
	"sets":           {"sets", "List sets known to the catalog", cmdSets},
	"buy":            {"buy [-type play|collector] [-n count] <set>", "Buy boosters", cmdBuy},
	"boosters":       {"boosters", "List unopened boosters", cmdBoosters},
	"open":           {"open [-type t] [-sell-all | -sell ids] [-replace ids] <booster-id|set>", "Open a booster, then keep or sell its cards", cmdOpen},
	"collection":     {"collection [-set code] [-rarity r] [-sort name|price|count]", "List owned cards", cmdCollection},
	"search":         {"search <query>", "Fuzzy-search owned cards by name", cmdSearch},
	"stats":          {"stats", "Summarize the collection", cmdStats},
	"sell":           {"sell [-n count] <card-id>", "Sell owned copies of a card", cmdSell},
	"refresh-prices": {"refresh-prices", "Update collection prices from the catalog", cmdRefreshPrices},
	"balance":        {"balance", "Show the balance and daily reward status", cmdBalance},
	"reward":         {"reward", "Claim the daily reward", cmdReward},
	"history":        {"history [-n limit]", "Show transactions, newest first", cmdHistory},
	"clear-history":  {"clear-history", "Drop every transaction, keeping the balance", cmdClearHistory},
	"reset":          {"reset -yes", "Wipe balance, history, collection and boosters", cmdReset},
	"backup":         {"backup [-dir path] [-list]", "Back up the sqlite database", cmdBackup},
	"init-config":    {"init-config [-force]", "Write the default config file", cmdInitConfig},
	"version":        {"version", "Print the version", cmdVersion},
}

// cli carries what every command needs.
type cli struct {
	app        *app.App
	out        io.Writer
	configPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, app.Options{}); err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// run parses global flags, builds the app and dispatches the subcommand.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, opts app.Options) error {
	fs := flag.NewFlagSet("blackmagic", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Config file (default: ~/.blackmagic/config.toml)")
	debugMode := fs.Bool("debug-mode", false, "Enable verbose debug logging")
	debugShort := fs.Bool("d", false, "Enable debug logging (shorthand for -debug-mode)")
	ephemeral := fs.Bool("ephemeral", false, "Keep everything in memory for this run")
	fs.Usage = func() { usage(fs) }

	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("no command given")
	}

	name := fs.Arg(0)
	cmd, ok := commands[name]
	if !ok {
		fs.Usage()
		return fmt.Errorf("unknown command %q", name)
	}

	path := *configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}

	c := &cli{out: stdout, configPath: path}
	if name == "init-config" || name == "version" {
		return cmd.run(ctx, c, fs.Args()[1:])
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}

	if opts.Logger == nil {
		opts.Logger = app.NewLogger(stderr, *debugMode || *debugShort || cfg.App.DebugMode)
	}
	opts.Ephemeral = opts.Ephemeral || *ephemeral

	a, err := app.New(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	c.app = a

	return cmd.run(ctx, c, fs.Args()[1:])
}

func usage(fs *flag.FlagSet) {
	w := fs.Output()
	fmt.Fprintln(w, "Usage: blackmagic [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-70s %s\n", commands[name].usage, commands[name].help)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.PrintDefaults()
}
