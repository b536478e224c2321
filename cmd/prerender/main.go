// Package main is the entry point for the prerender service.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/quillpress/prerender/internal/app"
)

var (
	// version can be set at build time via -ldflags
	version = "dev"
)

const flushCacheTimeout = 30 * time.Second

func main() {
	var configPath string
	var flushCache bool
	flag.StringVar(&configPath, "config", "config.yml", "Path to configuration file")
	flag.BoolVar(&flushCache, "flush-cache", false, "Clear the render cache and exit")
	flag.Parse()

	application, err := app.New(app.Options{
		ConfigPath: configPath,
		Version:    version,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := application.Close(); closeErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to close application: %v\n", closeErr)
		}
	}()

	if flushCache {
		ctx, cancel := context.WithTimeout(context.Background(), flushCacheTimeout)
		defer cancel()

		if flushErr := application.FlushCache(ctx); flushErr != nil {
			application.Logger().Error("Failed to clear render cache")
			os.Exit(1)
		}

		application.Logger().Info("Render cache cleared")
		return
	}

	if runErr := application.Run(context.Background()); runErr != nil {
		application.Logger().Error("Application error")
		os.Exit(1)
	}
}
