package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/blackmagic-app/blackmagic/internal/booster"
	"github.com/blackmagic-app/blackmagic/internal/cards"
	"github.com/blackmagic-app/blackmagic/internal/collection"
	"github.com/blackmagic-app/blackmagic/internal/config"
	"github.com/blackmagic-app/blackmagic/internal/facade"
	"github.com/blackmagic-app/blackmagic/internal/version"
)

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func cmdShop(ctx context.Context, c *cli, _ []string) error {
	displayProducts(c.out, c.app.Shop.ListProducts(ctx))
	return nil
}

func cmdSets(ctx context.Context, c *cli, _ []string) error {
	sets, err := c.app.Shop.Sets(ctx)
	if err != nil {
		return err
	}
	displaySets(c.out, sets)
	return nil
}

func cmdBuy(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("buy")
	boosterType := fs.String("type", "play", "Booster type: play or collector")
	count := fs.Int("n", 1, "Number of boosters")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: buy [-type play|collector] [-n count] <set>")
	}

	result, err := c.app.Shop.Buy(ctx, fs.Arg(0), *boosterType, *count)
	if err != nil {
		return err
	}
	success.Fprintf(c.out, "Bought %d booster(s) for $%s\n", len(result.Boosters), result.Cost.StringFixed(2))
	for _, b := range result.Boosters {
		fmt.Fprintf(c.out, "  %s  %s %s\n", b.ID, strings.ToUpper(b.SetCode), b.Type)
	}
	fmt.Fprintf(c.out, "Balance: %s\n", money(result.Balance))
	return nil
}

func cmdBoosters(ctx context.Context, c *cli, _ []string) error {
	list, err := c.app.Boosters.Unopened(ctx)
	if err != nil {
		return err
	}
	displayBoosters(c.out, booster.GroupCounts(list), list)
	return nil
}

// cmdOpen opens one booster and settles the pack in the same run, since
// opened packs do not outlive the process.
func cmdOpen(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("open")
	boosterType := fs.String("type", "", "Booster type when opening by set code")
	sellAll := fs.Bool("sell-all", false, "Sell every card instead of keeping them")
	sell := fs.String("sell", "", "Comma-separated card ids to sell; the rest are kept")
	replace := fs.String("replace", "", "Comma-separated card ids to swap before settling")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: open [-type t] [-sell-all | -sell ids] [-replace ids] <booster-id|set>")
	}

	id, err := c.resolveBooster(ctx, fs.Arg(0), *boosterType)
	if err != nil {
		return err
	}

	pack, err := c.app.Boosters.Open(ctx, id)
	if err != nil {
		return err
	}
	for _, cardID := range splitIDs(*replace) {
		if pack, err = c.app.Boosters.ReplaceCard(ctx, pack.ID, cardID); err != nil {
			return err
		}
	}
	displayPack(c.out, pack)

	switch {
	case *sellAll:
		result, err := c.app.Boosters.SellAll(ctx, pack.ID)
		if err != nil {
			return err
		}
		displaySale(c.out, result)
		return nil

	case *sell != "":
		result, err := c.app.Boosters.SellSelected(ctx, pack.ID, splitIDs(*sell))
		if err != nil {
			return err
		}
		displaySale(c.out, result)
		if result.Pack == nil {
			return nil
		}
	}

	kept, err := c.app.Boosters.Keep(ctx, pack.ID)
	if err != nil {
		return err
	}
	success.Fprintf(c.out, "Kept %d card(s). Collection now has %d unique cards.\n", kept.Added, kept.UniqueCards)
	return nil
}

// resolveBooster accepts a booster id or a set code, in which case the
// first matching booster is used.
func (c *cli) resolveBooster(ctx context.Context, arg, boosterType string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}

	var want booster.Type
	if boosterType != "" {
		t, err := booster.ParseType(boosterType)
		if err != nil {
			return uuid.Nil, err
		}
		want = t
	}

	list, err := c.app.Boosters.Unopened(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	for _, b := range list {
		if strings.EqualFold(b.SetCode, arg) && (want == "" || b.Type == want) {
			return b.ID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("no unopened %s booster", strings.ToUpper(arg))
}

func cmdCollection(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("collection")
	setCode := fs.String("set", "", "Only cards from this set")
	rarity := fs.String("rarity", "", "Only cards of this rarity")
	sortBy := fs.String("sort", "name", "Sort by name, price or count")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := c.app.Collection.GetCollection(ctx, collection.Filter{
		SetCode: *setCode,
		Rarity:  cards.Rarity(*rarity),
		SortBy:  collection.SortBy(*sortBy),
	})
	if err != nil {
		return err
	}
	displayCards(c.out, list)
	return nil
}

func cmdSearch(ctx context.Context, c *cli, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: search <query>")
	}
	list, err := c.app.Collection.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	displayCards(c.out, list)
	return nil
}

func cmdStats(ctx context.Context, c *cli, _ []string) error {
	stats, err := c.app.Collection.Stats(ctx)
	if err != nil {
		return err
	}
	displayStats(c.out, stats)
	return nil
}

func cmdSell(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("sell")
	count := fs.Int("n", 1, "Number of copies")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: sell [-n count] <card-id>")
	}

	result, err := c.app.Collection.Sell(ctx, fs.Arg(0), *count)
	if err != nil {
		return err
	}
	displaySale(c.out, result)
	return nil
}

func cmdRefreshPrices(ctx context.Context, c *cli, _ []string) error {
	changed, err := c.app.Collection.RefreshPrices(ctx)
	if err != nil {
		return err
	}
	success.Fprintf(c.out, "Updated %d price(s)\n", changed)
	return nil
}

func cmdBalance(ctx context.Context, c *cli, _ []string) error {
	balance, err := c.app.Wallet.Balance(ctx)
	if err != nil {
		return err
	}
	status, err := c.app.Wallet.RewardStatus(ctx)
	if err != nil {
		return err
	}
	displayBalance(c.out, balance, status)
	return nil
}

func cmdReward(ctx context.Context, c *cli, _ []string) error {
	balance, err := c.app.Wallet.ClaimDailyReward(ctx)
	if err != nil {
		return err
	}
	success.Fprintf(c.out, "Claimed $%s\n", c.app.Services.Settings().DailyReward.StringFixed(2))
	fmt.Fprintf(c.out, "Balance: %s\n", money(balance))
	return nil
}

func cmdHistory(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("history")
	limit := fs.Int("n", 20, "Number of transactions to show; 0 shows all")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := c.app.Wallet.History(ctx)
	if err != nil {
		return err
	}
	displayHistory(c.out, list, *limit)
	return nil
}

func cmdClearHistory(ctx context.Context, c *cli, _ []string) error {
	if err := c.app.Wallet.ClearHistory(ctx); err != nil {
		return err
	}
	success.Fprintln(c.out, "Transaction history cleared")
	return nil
}

func cmdReset(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("reset")
	yes := fs.Bool("yes", false, "Confirm the reset")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !*yes {
		return errors.New("reset wipes all progress; run again with -yes to confirm")
	}
	if err := c.app.ResetUserData(ctx); err != nil {
		return err
	}
	success.Fprintln(c.out, "All progress wiped")
	return nil
}

func cmdBackup(ctx context.Context, c *cli, args []string) error {
	fs := newFlags("backup")
	dir := fs.String("dir", "", "Backup directory (default: next to the database)")
	list := fs.Bool("list", false, "List existing backups")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db := c.app.DB
	if db == nil {
		return errors.New("backups need the sqlite store")
	}
	target := *dir
	if target == "" {
		target = db.BackupDir()
	}

	if *list {
		backups, err := db.ListBackups(target)
		if err != nil {
			return err
		}
		displayBackups(c.out, backups)
		return nil
	}

	path, err := db.Backup(ctx, target)
	if err != nil {
		return err
	}
	success.Fprintf(c.out, "Backup written to %s\n", path)
	return nil
}

func cmdInitConfig(_ context.Context, c *cli, args []string) error {
	fs := newFlags("init-config")
	force := fs.Bool("force", false, "Overwrite an existing file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := os.Stat(c.configPath); err == nil && !*force {
		return fmt.Errorf("%s already exists; use -force to overwrite", c.configPath)
	}
	if err := config.DefaultConfig().SaveFile(c.configPath); err != nil {
		return err
	}
	success.Fprintf(c.out, "Wrote %s\n", c.configPath)
	return nil
}

func cmdVersion(_ context.Context, c *cli, _ []string) error {
	fmt.Fprintf(c.out, "blackmagic %s\n", version.String())
	return nil
}

func splitIDs(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// printError prints err, flagging purchases or sales that were only half
// applied.
func printError(w io.Writer, err error) {
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	failure.Fprintf(w, "Error: %v\n", err)
	if facade.IsPartialFailure(err) {
		warning.Fprintln(w, "Your balance and inventory may be out of step. Check `blackmagic history` and `blackmagic boosters`.")
	}
}
