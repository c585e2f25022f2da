// capture-fixtures walks an operator through the sportsbook and saves each
// rendered screen as a static HTML fixture for the locator tests. With -har
// it instead trims and scrubs a devtools HAR export for replay.
//
// Usage:
//
//	go run ./scripts/capture-fixtures -site=crown
//	go run ./scripts/capture-fixtures -har=session.har -har-out=internal/scraper/replay/testdata/crown.har
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/grez-lucas/event-locator/internal/config"
	"github.com/grez-lucas/event-locator/internal/logger"
	"github.com/grez-lucas/event-locator/internal/scraper/browser"
	"github.com/grez-lucas/event-locator/internal/scraper/replay"
	"go.uber.org/zap"
)

type screen struct {
	Name         string
	Instructions string
}

var screens = []screen{
	{Name: "navigation", Instructions: "Open the sportsbook landing page, no category selected"},
	{Name: "sport_menu", Instructions: "Click the Today tab so the sport icons show"},
	{Name: "date_bar", Instructions: "Click Early, then Soccer, so the date buttons show"},
	{Name: "league_collapsed", Instructions: "Open a list where at least one league group is collapsed"},
	{Name: "event_list", Instructions: "Expand the leagues so event rows with kick-off times show"},
	{Name: "event_detail", Instructions: "Click into one match (or skip)"},
}

func main() {
	site := flag.String("site", "crown", "Sportsbook key, used for the fixture directory")
	outputDir := flag.String("output", "", "Output directory (default: internal/scraper/locate/{site}/testdata/fixtures)")
	configPath := flag.String("config", "", "Config file (default: configs/config.yaml)")
	harIn := flag.String("har", "", "Devtools HAR export to trim and scrub")
	harOut := flag.String("har-out", "", "Where to write the trimmed HAR")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level, "console")
	defer log.Sync()

	if *harIn != "" {
		if err := trimHAR(*harIn, *harOut, cfg.Browser.TargetURLs, log); err != nil {
			log.Fatal("trim HAR failed", zap.Error(err))
		}
		return
	}

	outDir := *outputDir
	if outDir == "" {
		outDir = filepath.Join("internal", "scraper", "locate", *site, "testdata", "fixtures")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		log.Fatal("create output directory", zap.Error(err))
	}

	fmt.Println("╔════════════════════════════════════════════════════════════════╗")
	fmt.Println("║           SPORTSBOOK FIXTURE CAPTURE TOOL                      ║")
	fmt.Println("╠════════════════════════════════════════════════════════════════╣")
	fmt.Printf("║  Site: %-54s  ║\n", strings.ToUpper(*site))
	fmt.Printf("║  Output: %-52s  ║\n", outDir)
	fmt.Println("╚════════════════════════════════════════════════════════════════╝")
	fmt.Println()

	ctx := context.Background()
	opts := cfg.Browser.Options()
	opts.Headless = false
	opts.Stealth = true

	b, err := browser.Connect(ctx, opts, log)
	if err != nil {
		log.Fatal("browser unavailable", zap.Error(err))
	}
	defer b.MustClose()

	page, err := browser.OpenTarget(ctx, b, opts, log)
	if err != nil {
		log.Fatal("open sportsbook", zap.Error(err))
	}

	reader := bufio.NewReader(os.Stdin)

	fmt.Println("📋 Instructions:")
	fmt.Println("   - A browser window has opened on the sportsbook")
	fmt.Println("   - Press ENTER after completing each step")
	fmt.Println("   - Type 'skip' to skip a screen, 'quit' to exit")
	fmt.Println()

	for _, s := range screens {
		fmt.Println("────────────────────────────────────────────────────────────────")
		fmt.Printf("📄 Capturing: %s.html\n", s.Name)
		fmt.Printf("📝 Instructions: %s\n", s.Instructions)
		fmt.Print("   Press ENTER when ready (or 'skip'/'quit'): ")

		input, _ := reader.ReadString('\n')
		input = strings.TrimSpace(strings.ToLower(input))
		if input == "quit" {
			fmt.Println("\n👋 Exiting...")
			break
		}
		if input == "skip" {
			fmt.Printf("   ⏭️  Skipped %s\n\n", s.Name)
			continue
		}

		frame, err := browser.TargetFrame(ctx, page)
		if err != nil {
			fmt.Printf("   ❌ Error finding book frame: %v\n\n", err)
			continue
		}
		time.Sleep(time.Second)

		shotPath := filepath.Join(outDir, s.Name+".png")
		if buf, err := page.Screenshot(false, nil); err == nil {
			if err := os.WriteFile(shotPath, buf, 0o644); err != nil {
				fmt.Printf("   ⚠️  Error saving screenshot: %v\n", err)
			} else {
				fmt.Printf("   📸 Screenshot: %s\n", shotPath)
			}
		}

		c, err := browser.CapturePage(ctx, frame)
		if err != nil {
			fmt.Printf("   ❌ Error capturing HTML: %v\n\n", err)
			continue
		}
		if c.Frames > 0 || c.ShadowRoots > 0 {
			fmt.Printf("   🔲 Inlined %d frame(s), %d shadow root(s)\n", c.Frames, c.ShadowRoots)
		}

		htmlPath := filepath.Join(outDir, s.Name+".html")
		if err := os.WriteFile(htmlPath, []byte(c.HTML), 0o644); err != nil {
			fmt.Printf("   ❌ Error saving HTML: %v\n\n", err)
			continue
		}
		fmt.Printf("   ✅ Saved: %s (%d hidden elements marked)\n\n", htmlPath, c.Hidden)
	}

	fmt.Println("════════════════════════════════════════════════════════════════")
	fmt.Println("✅ Capture complete!")
	fmt.Println("   Wire click behaviour for new fixtures in the site's test helpers.")
	fmt.Println("════════════════════════════════════════════════════════════════")
}

func trimHAR(in, out string, targets []string, log *zap.Logger) error {
	if out == "" {
		out = in
	}
	a, err := replay.Load(in)
	if err != nil {
		return err
	}

	var hosts []string
	for _, t := range targets {
		if u, err := url.Parse(t); err == nil && u.Hostname() != "" {
			hosts = append(hosts, strings.TrimPrefix(u.Hostname(), "www."))
		}
	}
	kept := a.Keep(hosts...)
	scrubbed := replay.Scrub(kept)

	log.Info("trimmed HAR",
		zap.Int("entries", len(a.Entries)),
		zap.Int("kept", len(kept.Entries)),
		zap.Int("redacted", replay.Redactions(kept, scrubbed)),
	)
	return replay.Save(out, scrubbed)
}
