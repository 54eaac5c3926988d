package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solenoid-ac/internal/config"
	"solenoid-ac/internal/registry"
	"solenoid-ac/internal/web"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./solenoid.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	reg, err := registry.Build(cfg)
	if err != nil {
		log.Fatalf("registry build failed: %v", err)
	}
	defer reg.Close()

	log.Printf("solenoid-ac starting")
	for _, sw := range reg.List() {
		log.Printf("solenoid %s model=%s", sw.Name(), sw.Model())
	}

	var srv *http.Server
	if cfg.Listen != "" {
		srv = &http.Server{Addr: cfg.Listen, Handler: web.Handler(reg)}
		go func() {
			log.Printf("api listening on %s", cfg.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("api server stopped: %v", err)
				cancel()
			}
		}()
	}

	<-ctx.Done()
	log.Printf("solenoid-ac stopping")

	if srv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
