package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmagic-app/blackmagic/internal/app"
	"github.com/blackmagic-app/blackmagic/internal/cards/scryfall"
	"github.com/blackmagic-app/blackmagic/internal/config"
)

type stubFetcher struct{}

func (stubFetcher) cards(setCode string) []scryfall.Card {
	price := "1.00"
	out := make([]scryfall.Card, 15)
	for i := range out {
		out[i] = scryfall.Card{
			ID:      fmt.Sprintf("%s-%02d", setCode, i),
			Name:    fmt.Sprintf("Card %02d", i),
			SetCode: setCode,
			Rarity:  "common",
			Prices:  scryfall.Prices{USD: &price},
		}
	}
	return out
}

func (f stubFetcher) SearchSet(_ context.Context, setCode string) ([]scryfall.Card, error) {
	return f.cards(setCode), nil
}

func (f stubFetcher) SearchSetRange(_ context.Context, setCode string, _, _ int) ([]scryfall.Card, error) {
	return f.cards(setCode), nil
}

func (stubFetcher) GetCardNamed(context.Context, string) (*scryfall.Card, error) {
	return nil, fmt.Errorf("not found")
}

func (stubFetcher) GetSets(context.Context) (*scryfall.SetList, error) {
	return &scryfall.SetList{Data: []scryfall.Set{{Code: "tdm", Name: "Tarkir: Dragonstorm"}}}, nil
}

func (stubFetcher) GetCardsByIDs(context.Context, []string) ([]scryfall.Card, []string, error) {
	return nil, nil, nil
}

// setupCLI writes a config pointing at a temp database and returns a
// function that runs one command against it.
func setupCLI(t *testing.T) func(args ...string) (string, error) {
	t.Helper()
	color.NoColor = true

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Store.DBPath = filepath.Join(dir, "blackmagic.db")
	cfg.Catalog.VerifyImages = false
	configPath := filepath.Join(dir, "config.toml")
	require.NoError(t, cfg.SaveFile(configPath))

	return func(args ...string) (string, error) {
		var out bytes.Buffer
		opts := app.Options{Fetcher: stubFetcher{}, Logger: app.NewLogger(io.Discard, false)}
		err := run(context.Background(), append([]string{"-config", configPath}, args...), &out, io.Discard, opts)
		return out.String(), err
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"dance"}, io.Discard, io.Discard, app.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command")

	err = run(context.Background(), nil, io.Discard, io.Discard, app.Options{})
	require.Error(t, err)
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"version"}, &out, io.Discard, app.Options{})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "blackmagic dev")
}

func TestRun_Shop(t *testing.T) {
	cli := setupCLI(t)

	out, err := cli("shop")
	require.NoError(t, err)
	assert.Contains(t, out, "Booster Shop")
	assert.Contains(t, out, "TDM")
}

func TestRun_FullLoop(t *testing.T) {
	cli := setupCLI(t)

	out, err := cli("balance")
	require.NoError(t, err)
	assert.Contains(t, out, "$0.00")
	assert.Contains(t, out, "is ready")

	_, err = cli("buy", "tdm")
	require.Error(t, err, "buying with an empty balance should fail")

	out, err = cli("reward")
	require.NoError(t, err)
	assert.Contains(t, out, "Claimed $500.00")

	_, err = cli("reward")
	require.Error(t, err, "second claim on the same day should fail")

	out, err = cli("buy", "-n", "2", "tdm")
	require.NoError(t, err)
	assert.Contains(t, out, "Bought 2 booster(s)")

	out, err = cli("boosters")
	require.NoError(t, err)
	assert.Contains(t, out, "x2")

	out, err = cli("open", "tdm")
	require.NoError(t, err)
	assert.Contains(t, out, "Kept 12 card(s)")

	out, err = cli("open", "-sell-all", "tdm")
	require.NoError(t, err)
	assert.Contains(t, out, "Sold for $12.00")

	out, err = cli("boosters")
	require.NoError(t, err)
	assert.Contains(t, out, "No unopened boosters")

	out, err = cli("stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Cards:  12")

	out, err = cli("history", "-n", "0")
	require.NoError(t, err)
	lines := strings.Count(strings.TrimSpace(out), "\n") + 1
	assert.Equal(t, 3, lines, "reward, purchase and sale")

	_, err = cli("clear-history")
	require.NoError(t, err)
	out, err = cli("history")
	require.NoError(t, err)
	assert.Contains(t, out, "No transactions")
}

func TestRun_SellFromCollection(t *testing.T) {
	cli := setupCLI(t)

	_, err := cli("reward")
	require.NoError(t, err)
	_, err = cli("buy", "tdm")
	require.NoError(t, err)
	_, err = cli("open", "tdm")
	require.NoError(t, err)

	out, err := cli("collection", "-sort", "name")
	require.NoError(t, err)
	assert.Contains(t, out, "card(s), value")

	out, err = cli("search", "card")
	require.NoError(t, err)
	assert.NotContains(t, out, "No cards found")

	_, err = cli("sell", "no-such-card")
	require.Error(t, err)
}

func TestRun_ResetNeedsConfirmation(t *testing.T) {
	cli := setupCLI(t)

	_, err := cli("reset")
	require.Error(t, err)

	_, err = cli("reward")
	require.NoError(t, err)
	_, err = cli("reset", "-yes")
	require.NoError(t, err)

	out, err := cli("balance")
	require.NoError(t, err)
	assert.Contains(t, out, "$0.00")
}

func TestRun_Backup(t *testing.T) {
	cli := setupCLI(t)
	dir := t.TempDir()

	out, err := cli("backup", "-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Backup written")

	out, err = cli("backup", "-dir", dir, "-list")
	require.NoError(t, err)
	assert.Contains(t, out, "bytes")
}

func TestRun_InitConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "config.toml")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-config", path, "init-config"}, &out, io.Discard, app.Options{}))
	assert.Contains(t, out.String(), "Wrote")

	err := run(context.Background(), []string{"-config", path, "init-config"}, io.Discard, io.Discard, app.Options{})
	require.Error(t, err)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Store.Backend)
}
