// Command locator serves locate requests against the sportsbook. It reads
// requests from Redis and streams run events back, or with -once runs a
// single query given on the command line.
//
// Usage:
//
//	go run ./cmd/locator
//	go run ./cmd/locator -once -sport=Soccer -team1="Brentford FC" -team2="Wolverhampton Wanderers FC"
//	go run ./cmd/locator -fixture=internal/scraper/locate/crown/testdata/fixtures/sportsbook.html -once ...
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grez-lucas/event-locator/internal/config"
	"github.com/grez-lucas/event-locator/internal/logger"
	"github.com/grez-lucas/event-locator/internal/lookup"
	"github.com/grez-lucas/event-locator/internal/scraper/browser"
	"github.com/grez-lucas/event-locator/internal/scraper/locate/crown"
	"github.com/grez-lucas/event-locator/internal/scraper/replay"
	"github.com/grez-lucas/event-locator/internal/scraper/ui"
	"github.com/grez-lucas/event-locator/internal/transport"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Config file (default: configs/config.yaml)")
	fixture := flag.String("fixture", "", "Run against a static HTML file instead of a browser")
	once := flag.Bool("once", false, "Locate a single event from flags and exit")
	sport := flag.String("sport", "", "Sport of the event (-once)")
	team1 := flag.String("team1", "", "Home team (-once)")
	team2 := flag.String("team2", "", "Away team (-once)")
	league := flag.String("league", "", "League name (-once)")
	hint := flag.String("hint", "", `Kick-off hint such as "Sun, Nov 30 at 8:00 PM" (-once)`)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kw, err := crown.LoadKeywords(cfg.Locator.KeywordsFile)
	if err != nil {
		log.Fatal("failed to load keywords", zap.Error(err))
	}

	tree, closeTree, err := openTree(ctx, cfg, *fixture, log)
	if err != nil {
		log.Fatal("failed to open sportsbook", zap.Error(err))
	}
	defer closeTree()

	locator := crown.NewLocator(tree, lookup.New(),
		crown.WithLogger(log),
		crown.WithKeywords(kw),
		crown.WithTimings(cfg.Locator.Timings.Crown()),
		crown.WithCategoryOrder(cfg.Locator.Categories()),
	)

	if cfg.Metrics.Enabled {
		stopMetrics := serveMetrics(cfg.Metrics.Address, log)
		defer stopMetrics()
	}

	if *once {
		req := transport.LocateRequest{
			Sport:         *sport,
			Team1:         *team1,
			Team2:         *team2,
			League:        *league,
			MatchTimeHint: *hint,
		}
		if err := runOnce(ctx, locator, req, log); err != nil {
			log.Fatal("locate failed", zap.Error(err))
		}
		return
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("redis unreachable", zap.String("address", cfg.Redis.Address), zap.Error(err))
	}

	srv := transport.NewServer(
		transport.NewRedisSource(client, cfg.Redis.RequestKey),
		transport.NewRedisPublisher(client, cfg.Redis.EventStream),
		locator,
		transport.WithServerLogger(log),
	)
	if err := srv.Run(ctx); err != nil {
		log.Error("server stopped with error", zap.Error(err))
	}
}

// openTree returns the UI tree the locator works on: a static document when
// fixture is set, otherwise the sportsbook tab of a live browser.
func openTree(ctx context.Context, cfg *config.Config, fixture string, log *zap.Logger) (ui.Tree, func(), error) {
	if fixture != "" {
		data, err := os.ReadFile(fixture)
		if err != nil {
			return nil, nil, fmt.Errorf("read fixture: %w", err)
		}
		tree, err := ui.NewHTMLTree(string(data))
		if err != nil {
			return nil, nil, err
		}
		log.Info("using static fixture", zap.String("path", fixture))
		return tree, func() {}, nil
	}

	opts := cfg.Browser.Options()
	b, err := browser.Connect(ctx, opts, log)
	if err != nil {
		return nil, nil, err
	}

	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	if opts.ControlURL == "" {
		closers = append(closers, func() { _ = b.Close() })
	}

	if cfg.Browser.ReplayHAR != "" {
		archive, err := replay.Load(cfg.Browser.ReplayHAR)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		router := replay.New(archive, replay.WithLogger(log)).Route(b)
		closers = append(closers, func() { _ = router.Stop() })
		log.Info("replaying recorded session",
			zap.String("har", cfg.Browser.ReplayHAR),
			zap.Int("entries", len(archive.Entries)))
	}

	page, err := browser.OpenTarget(ctx, b, opts, log)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	frame, err := browser.TargetFrame(ctx, page)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return browser.NewRodTree(frame), closeAll, nil
}

// runOnce pushes req through the same ack and run path as a queued request
// and logs every event.
func runOnce(ctx context.Context, locator *crown.Locator, req transport.LocateRequest, log *zap.Logger) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}

	var invalid bool
	pub := transport.PublisherFunc(func(ctx context.Context, msg transport.Message) error {
		if msg.Status == transport.AckInvalid {
			invalid = true
		}
		return transport.LogPublisher{Logger: log}.Publish(ctx, msg)
	})

	srv := transport.NewServer(nil, pub, locator, transport.WithServerLogger(log))
	srv.Handle(ctx, data)
	srv.Wait()

	if invalid {
		return errors.New("request rejected as invalid")
	}
	return nil
}

func serveMetrics(addr string, log *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.Info("serving metrics", zap.String("address", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
