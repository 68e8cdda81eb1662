// Command seed fills the database with a demo user whose food waste falls over a date range,
// so dashboards and the admin trend chart have something to show.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"github.com/wastewise/api/config"
	"github.com/wastewise/api/engine"
	"github.com/wastewise/api/models"
	"github.com/wastewise/api/services"
	"github.com/wastewise/api/utils"
)

var CLI struct {
	Username string  `help:"Demo account username; generated when empty."`
	Password string  `help:"Demo account password." default:"demo1234"`
	From     string  `help:"First day to seed (YYYY-MM-DD). Defaults to --days before --to."`
	To       string  `help:"Last day to seed (YYYY-MM-DD). Defaults to today."`
	Days     int     `help:"Range length when --from is omitted." default:"60"`
	PerDay   int     `help:"Purchases generated per day." default:"10"`
	Seed     int64   `help:"Random seed; equal seeds give equal histories." default:"1"`
	Reset    bool    `help:"Delete the demo user's existing history first."`
	TZ       string  `name:"tz" help:"IANA zone the days are interpreted in. Defaults to the configured zone."`
	Noise    float64 `help:"Daily noise amplitude around the base waste curve." default:"0.04"`
	Driver   string  `help:"Override the configured database driver."`
	SQLite   string  `name:"sqlite-path" help:"Override the configured SQLite file." type:"path"`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("seed"),
		kong.Description("Generate a synthetic purchase and waste history for a demo user."),
		kong.UsageOnError(),
	)

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		kctx.Exit(1)
	}
}

func run() error {
	cfg := config.Read()
	if CLI.Driver != "" {
		cfg.DBDriver = CLI.Driver
	}
	if CLI.SQLite != "" {
		cfg.SQLitePath = CLI.SQLite
	}
	if CLI.TZ != "" {
		if _, err := time.LoadLocation(CLI.TZ); err != nil {
			return fmt.Errorf("--tz: %w", err)
		}
		cfg.Timezone = CLI.TZ
	}
	config.Override(cfg)

	if err := utils.InitLogger(cfg); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer utils.Logger.Sync()

	loc := cfg.Location()
	from, to, err := seedRange(time.Now().In(loc), loc)
	if err != nil {
		return err
	}

	curve := engine.DefaultTrendCurve()
	curve.Noise = CLI.Noise

	db := config.InitDatabase(models.All()...)
	report, err := services.NewSeeder(db).Seed(context.Background(), services.SeedOptions{
		Username: CLI.Username,
		Password: CLI.Password,
		From:     from,
		To:       to,
		PerDay:   CLI.PerDay,
		Seed:     CLI.Seed,
		Reset:    CLI.Reset,
		Curve:    curve,
	})
	if err != nil {
		return err
	}
	services.InvalidateLeaderboard()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func seedRange(now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	to := now
	if CLI.To != "" {
		t, err := time.ParseInLocation(engine.DayLayout, CLI.To, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
		to = t
	}
	if CLI.From == "" {
		if CLI.Days <= 0 {
			return time.Time{}, time.Time{}, fmt.Errorf("--days must be positive")
		}
		return to.AddDate(0, 0, -(CLI.Days - 1)), to, nil
	}
	from, err := time.ParseInLocation(engine.DayLayout, CLI.From, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
	}
	return from, to, nil
}
