// Package main provides a debugging CLI tool to inspect POIs around a
// position. It issues a single Overpass query, runs the same
// classification as the server, and prints each POI with its distance,
// matched categories, and the announced category.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"geoguidego/pkg/cache"
	"geoguidego/pkg/classifier"
	"geoguidego/pkg/config"
	"geoguidego/pkg/geo"
	"geoguidego/pkg/model"
	"geoguidego/pkg/overpass"
	"geoguidego/pkg/request"
	"geoguidego/pkg/tracker"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfgPath := flag.String("config", "configs/geoguide.yaml", "Path to config file")
	lat := flag.Float64("lat", 55.7558, "Latitude")
	lon := flag.Float64("lon", 37.6173, "Longitude")
	radius := flag.Float64("radius", 500, "Search radius in meters")
	categories := flag.String("categories", "", "Comma-separated category ids (empty = all)")
	lang := flag.String("lang", "ru", "Preferred name language")
	showAll := flag.Bool("all", false, "Show all POIs, not just first 50")
	flag.Parse()

	// Keep slog noise on stderr, results on stdout
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	catCfg, err := config.LoadCategories("configs/categories.yaml")
	if err != nil {
		return fmt.Errorf("failed to load categories config: %w", err)
	}

	// The empty enabled set means "nothing"; the flag default means "all"
	enabled := catCfg.IDs()
	if *categories != "" {
		enabled = strings.Split(*categories, ",")
	}

	// One-shot tool: no persistence, no response cache
	reqClient := request.New(&cache.Null{}, tracker.New(), 10*time.Second)
	client := overpass.New(reqClient, &cfg.Overpass, catCfg, classifier.New(catCfg), nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	here := geo.Point{Lat: *lat, Lon: *lon}
	fmt.Printf("Position: %.4f, %.4f\n", *lat, *lon)
	fmt.Printf("Search radius: %.0f m\n\n", *radius)

	pois, err := client.FetchAround(ctx, here, *radius, enabled, *lang)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}
	if len(pois) == 0 {
		fmt.Println("WARN: No POIs found within radius.")
		return nil
	}

	printResults(pois, *showAll)
	return nil
}

func printResults(pois []*model.POI, showAll bool) {
	sort.Slice(pois, func(i, j int) bool {
		return pois[i].Distance < pois[j].Distance
	})

	displayCount := len(pois)
	if !showAll && displayCount > 50 {
		displayCount = 50
	}

	fmt.Printf("Found %d POIs (showing %d)\n\n", len(pois), displayCount)
	fmt.Println(strings.Repeat("-", 80))

	for i := 0; i < displayCount; i++ {
		p := pois[i]
		fmt.Printf("\nPOI: %s (%s)\n", p.Title, p.Key())
		fmt.Printf("   Loc:      %.4f, %.4f (%.0f m away)\n", p.Lat, p.Lon, p.Distance)
		if p.Description != "" {
			fmt.Printf("   Desc:     %s\n", p.Description)
		}

		switch {
		case len(p.MatchedCategories) > 0:
			fmt.Printf("   MATCH:    %s\n", strings.Join(p.MatchedCategories, ", "))
			fmt.Printf("   Speaks:   %s\n", p.Category)
		case p.Category != "":
			fmt.Printf("   KEYWORD:  %s (no tag match, classified by title)\n", p.Category)
		default:
			fmt.Printf("   NO MATCH\n")
		}
	}

	fmt.Println(strings.Repeat("-", 80))
	if len(pois) > displayCount {
		fmt.Printf("\n... and %d more. Use -all to see all.\n", len(pois)-displayCount)
	}
}
