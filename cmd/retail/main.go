// backend-go/cmd/retail/main.go
//
// CLI for running the forecasting flow without the HTTP server: train on a
// local snapshot, inspect forecasts and recommendations, compare years, and
// export monthly analytics.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/retailinsight/backend-go/internal/cache"
	"github.com/retailinsight/backend-go/internal/config"
	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/internal/pipeline"
	"github.com/retailinsight/backend-go/internal/recommend"
	"github.com/retailinsight/backend-go/internal/service"
	"github.com/retailinsight/backend-go/internal/storage"
	"github.com/retailinsight/backend-go/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "retail",
		Usage: "demand forecasting and stock recommendations from dataset snapshots",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "directory holding the snapshot CSVs",
			},
			&cli.StringFlag{
				Name:  "artifact-dir",
				Usage: "directory holding model artifacts",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Value: "info",
				Usage: "zerolog level",
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			trainCommand(),
			forecastCommand(),
			recommendCommand(),
			compareCommand(),
			exportCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newForecastService(c *cli.Context) (*service.ForecastService, *service.SnapshotStore, error) {
	cfg := config.Load()

	dataDir := c.String("data-dir")
	if dataDir == "" {
		dataDir = cfg.App.DataDir
	}
	artifactDir := c.String("artifact-dir")
	if artifactDir == "" {
		artifactDir = cfg.App.ArtifactDir
	}

	snapshots := service.NewSnapshotStore(dataDir)
	if err := snapshots.Reload(); err != nil {
		return nil, nil, err
	}

	store, err := storage.NewLocalStore(artifactDir)
	if err != nil {
		return nil, nil, err
	}

	batchCfg := pipeline.DefaultBatchConfig()
	batchCfg.HorizonDays = cfg.Model.HorizonDays
	batchCfg.Recommend.SafetyFactor = cfg.Recommend.SafetyFactor
	batchCfg.Recommend.LeadTimePeriods = cfg.Recommend.LeadTimeDays

	return service.NewForecastService(snapshots, store, nil, batchCfg), snapshots, nil
}

func trainCommand() *cli.Command {
	return &cli.Command{
		Name:  "train",
		Usage: "train the model on the snapshot and store the artifacts",
		Action: func(c *cli.Context) error {
			svc, _, err := newForecastService(c)
			if err != nil {
				return err
			}

			result, err := svc.Train(context.Background())
			if err != nil {
				return err
			}

			stats := result.Stats
			fmt.Printf("Trained on %d products (encoder revision %s)\n",
				stats.ProductsForecasted, svc.EncoderRevision())
			if len(stats.ColdStartProducts) > 0 {
				fmt.Printf("Cold-start products: %d\n", len(stats.ColdStartProducts))
			}
			if len(stats.UnseenCategories) > 0 {
				fmt.Printf("Unseen categories skipped: %s\n", strings.Join(stats.UnseenCategories, ", "))
			}
			if stats.NegativeClamps > 0 {
				fmt.Printf("Negative outputs clamped: %d\n", stats.NegativeClamps)
			}
			return nil
		},
	}
}

func forecastCommand() *cli.Command {
	return &cli.Command{
		Name:      "forecast",
		Usage:     "forecast demand for a product",
		ArgsUsage: "<product-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "horizon", Value: 30, Usage: "horizon in days"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one product id")
			}
			svc, _, err := newForecastService(c)
			if err != nil {
				return err
			}
			if err := svc.LoadArtifacts(context.Background()); err != nil {
				return fmt.Errorf("no stored model, run train first: %w", err)
			}

			resp, err := svc.Forecast(context.Background(), domain.ProductID(c.Args().First()), c.Int("horizon"))
			if err != nil {
				return err
			}

			if resp.ColdStart {
				fmt.Println("(cold-start: baseline fallback)")
			}
			for _, f := range resp.Forecasts {
				fmt.Printf("%s  %8.2f  [%8.2f, %8.2f]\n",
					f.HorizonDate.Format("2006-01-02"), f.PredictedQuantity, f.LowerBound, f.UpperBound)
			}
			return nil
		},
	}
}

func recommendCommand() *cli.Command {
	return &cli.Command{
		Name:      "recommend",
		Usage:     "compute a stock recommendation for a product",
		ArgsUsage: "<product-id>",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "safety-factor", Value: 0.15},
			&cli.IntFlag{Name: "lead-time", Value: 30, Usage: "lead time in days"},
			&cli.Float64Flag{Name: "service-level", Value: 0.5},
			&cli.Int64Flag{Name: "min-order-unit", Value: 1},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one product id")
			}
			svc, _, err := newForecastService(c)
			if err != nil {
				return err
			}
			if err := svc.LoadArtifacts(context.Background()); err != nil {
				return fmt.Errorf("no stored model, run train first: %w", err)
			}

			cfg := recommend.Config{
				SafetyFactor:    c.Float64("safety-factor"),
				LeadTimePeriods: c.Int("lead-time"),
				ServiceLevel:    c.Float64("service-level"),
				MinOrderUnit:    c.Int64("min-order-unit"),
			}
			rec, err := svc.Recommend(context.Background(), domain.ProductID(c.Args().First()), cfg)
			if err != nil {
				return err
			}

			fmt.Printf("Recommended quantity: %d units through %s\n",
				rec.RecommendedQuantity, rec.HorizonDate.Format("2006-01-02"))
			fmt.Printf("Forecast demand: %.2f, safety factor: %.0f%%\n",
				rec.ForecastDemand, rec.SafetyFactor*100)
			if rec.UsedUpperBound {
				fmt.Println("Policy: upper uncertainty bound")
			}
			if rec.ColdStart {
				fmt.Println("(cold-start: baseline fallback)")
			}
			return nil
		},
	}
}

func compareCommand() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Usage:     "compare yearly sales for a product",
		ArgsUsage: "<product-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "years", Usage: "comma-separated years, defaults to all"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one product id")
			}
			_, snapshots, err := newForecastService(c)
			if err != nil {
				return err
			}

			var years []int
			if raw := c.String("years"); raw != "" {
				for _, part := range strings.Split(raw, ",") {
					year, err := strconv.Atoi(strings.TrimSpace(part))
					if err != nil {
						return fmt.Errorf("invalid year %q", part)
					}
					years = append(years, year)
				}
			}

			svc := service.NewComparisonService(snapshots, cache.NewNoopComparisonCache())
			reports, err := svc.Compare(context.Background(), domain.ProductID(c.Args().First()), years)
			if err != nil {
				return err
			}

			for _, r := range reports {
				growth := "     -"
				if r.GrowthPct != nil {
					growth = fmt.Sprintf("%+5.1f%%", *r.GrowthPct)
				}
				fmt.Printf("%d  qty %8d  revenue %12s  growth %s\n",
					r.Year, r.TotalQuantity, r.TotalRevenue.StringFixed(2), growth)
			}
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "export monthly analytics for a product as CSV",
		ArgsUsage: "<product-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "output file, defaults to stdout"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("expected exactly one product id")
			}
			_, snapshots, err := newForecastService(c)
			if err != nil {
				return err
			}

			out := os.Stdout
			if path := c.String("out"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			svc := service.NewAnalyticsService(snapshots)
			return svc.ExportMonthlyCSV(domain.ProductID(c.Args().First()), out)
		},
	}
}
