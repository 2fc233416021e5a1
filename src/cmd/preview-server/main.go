package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	tl "github.com/tuumbleweed/tintlog/logger"
	"github.com/tuumbleweed/tintlog/palette"
	"github.com/tuumbleweed/xerr"

	"synth-ocr/src/pkg/config"
	echomw "synth-ocr/src/pkg/echo-middleware"
	"synth-ocr/src/pkg/fonts"
	"synth-ocr/src/pkg/preview"
	"synth-ocr/src/pkg/render"
	"synth-ocr/src/pkg/util"
)

/*
main serves rendered previews of single samples over HTTP until it
receives SIGINT or SIGTERM.
*/
func main() {
	config.CheckIfEnvVarsPresent()

	// Common flags.
	configPath := flag.String("config", "./cfg/config.json", "Path to your configuration file.")

	// Program-specific flags.
	port := flag.Int("port", 0, "Port to listen on. 0 keeps server.port from the config.")

	// Parse and initialize config.
	flag.Parse()
	util.EnsureFlags()
	cfg := config.InitializeConfig(*configPath)

	serverCfg := echomw.InitializeConfig(cfg.Server)
	if *port > 0 {
		serverCfg.Port = *port
	}
	token := echomw.TokenFromEnv()
	if serverCfg.RequireToken {
		config.CheckIfEnvVarsPresent(echomw.EnvPreviewBearerToken)
	}

	catalog, e := fonts.Discover(cfg.Fonts.Directory)
	e.QuitIf(xerr.ErrorTypeError)

	server := preview.New(preview.Options{
		Server:       serverCfg,
		Token:        token,
		Background:   cfg.Background,
		Augmentation: cfg.Augmentation,
	}, catalog, render.New(cfg.Fonts.Config))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		if err != nil {
			tl.Log(tl.Warning, palette.Yellow, "Unclean shutdown: %s", err.Error())
		}
	}()

	err := server.Start()
	xerr.QuitIfError(err, "Preview server stopped")
	tl.Log(tl.Notice1, palette.GreenBold, "%s", "Preview server stopped")
}
