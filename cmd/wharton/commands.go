package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"wharton/internal/api"
	"wharton/internal/batch"
	"wharton/internal/commission"
	"wharton/internal/performance"
	"wharton/internal/staking"
)

func (a *app) runSingle(args []string) error {
	fs := flag.NewFlagSet("single", flag.ContinueOnError)
	bankroll := fs.Float64("bankroll", 100, "Weekly bankroll in dollars")
	prob := fs.Float64("prob", 0, "Model win probability (68 or 0.68)")
	price := fs.Float64("price", 0, "Contract price (45 cents or 0.45 dollars)")
	label := fs.String("label", "", "Optional game label")
	margin := fs.String("margin", "", "Optional predicted margin, for reference")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var marginHint *float64
	if *margin != "" {
		m, err := strconv.ParseFloat(*margin, 64)
		if err != nil {
			return fmt.Errorf("parsing -margin: %w", err)
		}
		marginHint = &m
	}

	in, err := staking.NewBetInput(*label, *prob, *price, a.commission.Rate(), marginHint)
	if err != nil {
		return err
	}
	d, err := a.engine.EvaluateInput(*bankroll, in)
	if err != nil {
		return err
	}
	return printDecision(os.Stdout, d, a.commission.Label())
}

func printDecision(w io.Writer, d staking.Decision, platform string) error {
	in := d.Bet()
	var b strings.Builder
	if in.Label != "" {
		fmt.Fprintf(&b, "Game: %s\n", in.Label)
	}
	fmt.Fprintf(&b, "Win probability: %.2f%%  Price: %s  Commission: %s (%s)\n",
		in.WinProbability*100, performance.Dollars(in.UnitPrice), performance.Dollars(in.FeePerUnit), platform)
	if in.MarginHint != nil {
		fmt.Fprintf(&b, "Model margin: %.1f\n", *in.MarginHint)
	}
	fmt.Fprintf(&b, "Decision: %s\nEV: %.2f%%\n", d.Outcome(), d.EV())

	switch d := d.(type) {
	case *staking.BetDecision:
		fmt.Fprintf(&b, "Full Kelly: %.2f%%  Stake fraction: %.2f%%\n", d.FullKelly*100, d.CappedFraction*100)
		fmt.Fprintf(&b, "Target: %s  Contracts: %d @ %s  Cost: %s  Unused: %s\n",
			performance.Dollars(d.TargetAmount), d.Units, performance.Dollars(d.AdjustedPrice),
			performance.Dollars(d.ActualAmount), performance.Dollars(d.UnusedAmount))
		fmt.Fprintf(&b, "Expected profit: %s  Profit if win: %s\n",
			performance.Dollars(d.ExpectedProfit), performance.Dollars(d.NetProfit()))
	case *staking.NoBetDecision:
		fmt.Fprintf(&b, "Why: %s\nReason: %s\n", d.Reason.Message(), d.String())
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (a *app) runBatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("batch", flag.ContinueOnError)
	in := fs.String("in", "", "Input .xlsx or .csv file")
	bankroll := fs.Float64("bankroll", 0, "Weekly bankroll in dollars")
	sheet := fs.String("sheet", a.cfg.Batch.SheetName, "Worksheet to read")
	outDir := fs.String("out", a.cfg.General.OutputDir, "Directory for the results file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("-in is required")
	}
	if *bankroll <= 0 {
		return errors.New("-bankroll must be positive")
	}

	rows, err := batch.ReadRows(*in, *sheet)
	if err != nil {
		return err
	}
	slog.Info("games loaded", "path", *in, "rows", len(rows))

	res, err := batch.Process(ctx, rows, *bankroll, a.commission.Snapshot(), a.engine, batch.Options{
		Workers:            a.cfg.Batch.Workers,
		PartialMinFraction: a.cfg.Allocation.PartialMinFraction,
	})
	if err != nil {
		return err
	}

	ext := strings.ToLower(filepath.Ext(*in))
	if ext != ".csv" {
		ext = ".xlsx"
	}
	outPath := batch.OutputPath(*outDir, *in, ext)
	if err := writeResult(outPath, ext, res); err != nil {
		return err
	}
	slog.Info("results saved", "run_id", res.RunID, "path", outPath)

	report := performance.Summarize(res)
	performance.LogReport(report)
	return performance.WriteText(os.Stdout, report)
}

func writeResult(path, ext string, res *batch.Result) error {
	if ext == ".xlsx" {
		return batch.WriteXLSX(path, res)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := batch.WriteCSV(f, res); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (a *app) runSample(args []string) error {
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	out := fs.String("out", filepath.Join("data", "input", batch.SampleFileName), "Path of the workbook to write")
	sheet := fs.String("sheet", a.cfg.Batch.SheetName, "Worksheet name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := batch.WriteSample(*out, *sheet); err != nil {
		return err
	}
	fmt.Printf("Sample file created: %s\n", *out)
	return nil
}

func (a *app) runCommission(args []string) error {
	action := "show"
	if len(args) > 0 {
		action, args = args[0], args[1:]
	}

	switch action {
	case "show":
	case "set":
		fs := flag.NewFlagSet("commission set", flag.ContinueOnError)
		rate := fs.Float64("rate", -1, "Commission per contract in dollars (0 to 1)")
		platform := fs.String("platform", commission.Custom, "Label for the rate")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if err := a.commission.SetRate(*rate, *platform); err != nil {
			return err
		}
	case "platform":
		if len(args) != 1 {
			return fmt.Errorf("usage: wharton commission platform <%s>", strings.Join(commission.PresetNames(), "|"))
		}
		if err := a.commission.SetPlatform(args[0]); err != nil {
			return err
		}
	case "reset":
		a.commission.ResetToDefault()
	default:
		return fmt.Errorf("unknown commission action %q", action)
	}

	saved, err := a.settings.All()
	if err != nil {
		return err
	}
	return printCommission(os.Stdout, a.commission.Info(), saved)
}

// printCommission shows the active setting, the presets and whatever is
// saved in the settings table.
func printCommission(w io.Writer, info commission.Info, saved map[string]string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Platform: %s\nCommission: %s per contract\nDefault: %s\n\nPresets:\n",
		info.Platform, performance.Dollars(info.Rate), info.Default)

	names := make([]string, 0, len(info.Presets))
	for name := range info.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "  %-12s %s\n", name, performance.Dollars(info.Presets[name]))
	}

	b.WriteString("\nSaved settings:\n")
	if len(saved) == 0 {
		b.WriteString("  (none, using configured default)\n")
	}
	keys := make([]string, 0, len(saved))
	for k := range saved {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s = %s\n", k, saved[k])
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (a *app) runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", a.cfg.Server.Addr, "Listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	h := api.NewHandler(a.engine, a.commission, batch.Options{
		Workers:            a.cfg.Batch.Workers,
		PartialMinFraction: a.cfg.Allocation.PartialMinFraction,
	})
	timeout := a.cfg.Server.RequestTimeout.Duration
	server := &http.Server{
		Addr:         *addr,
		Handler:      api.NewRouter(h, a.cfg.Server.AllowedOrigins, timeout),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: timeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("wharton api started", "addr", *addr,
			"ev_floor_pct", a.engine.Params().EVFloorPercent,
			"kelly_multiplier", a.engine.Params().KellyMultiplier,
			"max_stake_fraction", a.engine.Params().MaxStakeFraction,
			"platform", a.commission.Platform())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	slog.Info("wharton api stopped")
	return nil
}
