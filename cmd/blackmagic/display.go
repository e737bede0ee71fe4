package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"github.com/blackmagic-app/blackmagic/internal/booster"
	"github.com/blackmagic-app/blackmagic/internal/cards"
	"github.com/blackmagic-app/blackmagic/internal/catalog"
	"github.com/blackmagic-app/blackmagic/internal/collection"
	"github.com/blackmagic-app/blackmagic/internal/facade"
	"github.com/blackmagic-app/blackmagic/internal/ledger"
	"github.com/blackmagic-app/blackmagic/internal/storage"
)

var (
	header  = color.New(color.Bold, color.FgCyan)
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed, color.Bold)
	warning = color.New(color.FgYellow)
	faint   = color.New(color.Faint)

	rarityColors = map[cards.Rarity]*color.Color{
		cards.RarityCommon:   color.New(color.FgWhite),
		cards.RarityUncommon: color.New(color.FgHiBlue),
		cards.RarityRare:     color.New(color.FgYellow),
		cards.RarityMythic:   color.New(color.FgHiRed),
	}
)

func title(w io.Writer, s string) {
	header.Fprintln(w, s)
	fmt.Fprintln(w, strings.Repeat("=", len(s)))
}

// money renders an amount, red when negative.
func money(d decimal.Decimal) string {
	s := "$" + d.StringFixed(2)
	if d.IsNegative() {
		return color.RedString("-$" + d.Abs().StringFixed(2))
	}
	return s
}

func rarityLabel(r cards.Rarity) string {
	r = cards.ParseRarity(string(r))
	if c, ok := rarityColors[r]; ok {
		return c.Sprintf("%-8s", r)
	}
	return fmt.Sprintf("%-8s", r)
}

func displayProducts(w io.Writer, products []facade.ProductView) {
	title(w, "Booster Shop")
	fmt.Fprintf(w, "%-6s %-32s %10s %10s\n", "SET", "NAME", "PLAY", "COLLECTOR")
	for _, p := range products {
		fmt.Fprintf(w, "%-6s %-32s %10s %10s\n",
			strings.ToUpper(p.SetCode), p.SetName, "$"+p.Price.StringFixed(2), "$"+p.CollectorPrice.StringFixed(2))
	}
}

func displaySets(w io.Writer, sets []catalog.SetInfo) {
	title(w, "Sets")
	for _, s := range sets {
		fmt.Fprintf(w, "%-6s %-40s %s\n", strings.ToUpper(s.Code), s.Name, faint.Sprint(s.ReleasedAt))
	}
}

func displayBoosters(w io.Writer, groups []booster.Group, list []booster.Unopened) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No unopened boosters. Buy some with `blackmagic buy <set>`.")
		return
	}
	title(w, "Unopened Boosters")
	for _, g := range groups {
		fmt.Fprintf(w, "  %-6s %-10s x%d\n", strings.ToUpper(g.SetCode), g.Type, g.Count)
	}
	fmt.Fprintln(w)
	for _, b := range list {
		fmt.Fprintf(w, "  %s  %s %s\n", faint.Sprint(b.ID), strings.ToUpper(b.SetCode), b.Type)
	}
}

func displayPack(w io.Writer, pack *facade.PackView) {
	title(w, fmt.Sprintf("%s %s booster", strings.ToUpper(pack.SetCode), pack.Type))
	for _, c := range pack.Cards {
		fmt.Fprintf(w, "  %s %-36s %8s  %s\n", rarityLabel(c.Rarity), c.Name, "$"+c.Price().StringFixed(2), faint.Sprint(c.ID))
	}
	if len(pack.Replaced) > 0 {
		warning.Fprintf(w, "  %d card(s) swapped for missing artwork\n", len(pack.Replaced))
	}
	fmt.Fprintf(w, "Pack value: %s\n", money(pack.Value))
}

func displaySale(w io.Writer, result *facade.SaleResult) {
	for _, c := range result.Sold {
		fmt.Fprintf(w, "  Sold %d x %s\n", c.Count, c.Name)
	}
	success.Fprintf(w, "Sold for $%s\n", result.Value.StringFixed(2))
	fmt.Fprintf(w, "Balance: %s\n", money(result.Balance))
}

func displayCards(w io.Writer, list []cards.Card) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No cards found.")
		return
	}
	for _, c := range list {
		fmt.Fprintf(w, "  %3dx %s %-36s %-5s %8s  %s\n",
			c.Count, rarityLabel(c.Rarity), c.Name, strings.ToUpper(c.SetCode), "$"+c.Price().StringFixed(2), faint.Sprint(c.ID))
	}
	fmt.Fprintf(w, "%d card(s), value %s\n", len(list), money(collection.Value(list)))
}

func displayStats(w io.Writer, stats collection.Stats) {
	title(w, "Collection")
	fmt.Fprintf(w, "  Unique Cards: %d\n", stats.UniqueCards)
	fmt.Fprintf(w, "  Total Cards:  %d\n", stats.TotalCards)
	fmt.Fprintf(w, "  Value:        %s\n", money(stats.Value))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "By Rarity:")
	for _, r := range []cards.Rarity{cards.RarityCommon, cards.RarityUncommon, cards.RarityRare, cards.RarityMythic} {
		if n := stats.ByRarity[r]; n > 0 {
			fmt.Fprintf(w, "  %s %d\n", rarityLabel(r), n)
		}
	}
}

func displayBalance(w io.Writer, balance decimal.Decimal, status *facade.RewardStatus) {
	fmt.Fprintf(w, "Balance: %s\n", money(balance))
	if status.State == ledger.RewardUnclaimed {
		success.Fprintf(w, "Daily reward of $%s is ready. Claim it with `blackmagic reward`.\n", status.Amount.StringFixed(2))
		return
	}
	faint.Fprintln(w, "Daily reward already claimed today.")
}

func displayHistory(w io.Writer, list []ledger.Transaction, limit int) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	for _, t := range list {
		fmt.Fprintf(w, "  %s  %-12s %10s  %s\n", t.Timestamp.Local().Format("2006-01-02 15:04"), t.Type, money(t.Amount), t.Description)
	}
}

func displayBackups(w io.Writer, backups []storage.BackupInfo) {
	if len(backups) == 0 {
		fmt.Fprintln(w, "No backups.")
		return
	}
	for _, b := range backups {
		fmt.Fprintf(w, "  %s  %8d bytes  %s\n", b.ModTime.Format("2006-01-02 15:04"), b.Size, b.Name)
	}
}
