package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	httpfrontend "github.com/kotori/kotori/frontend/http"
	"github.com/kotori/kotori/pkg/log"
	"github.com/kotori/kotori/pkg/stop"
	"github.com/kotori/kotori/tracker"
)

func rootRun(cfg Config) error {
	if cfg.Debug {
		log.SetDebug(true)
	}

	if cfg.PrometheusAddr != "" {
		go func() {
			promServer := http.Server{
				Addr:    cfg.PrometheusAddr,
				Handler: promhttp.Handler(),
			}
			log.Info("started serving prometheus stats", log.Fields{"addr": cfg.PrometheusAddr})
			if err := promServer.ListenAndServe(); err != nil {
				log.Fatal("failed to serve prometheus stats", log.Err(err))
			}
		}()
	}

	t, err := tracker.New(cfg.Config, nil)
	if err != nil {
		return err
	}

	if cfg.StoreSession {
		if err := loadSession(t, cfg.SessionFile); err != nil {
			// The operator owns the corrupt-snapshot decision; the tracker
			// starts with an empty registry either way.
			log.Error("failed to restore session snapshot", log.Err(err))
		}
	}

	errChan := make(chan error, 1)

	httpFrontend := httpfrontend.NewFrontend(t, cfg.HTTPConfig)
	go func() {
		log.Info("started serving HTTP", log.Fields{"addr": cfg.HTTPConfig.Addr})
		errChan <- errors.Wrap(httpFrontend.ListenAndServe(), "HTTP frontend failed")
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case <-sigChan:
	case serveErr = <-errChan:
	}

	group := stop.NewGroup()
	group.Add(httpFrontend)
	group.Add(t)
	for _, err := range group.Stop().Wait() {
		log.Error("error during shutdown", log.Err(err))
	}

	if cfg.StoreSession {
		if err := saveSession(t, cfg.SessionFile); err != nil {
			log.Error("failed to persist session snapshot", log.Err(err))
		}
	}

	return serveErr
}

// loadSession restores the registry from the session file, if one exists.
func loadSession(t *tracker.Tracker, path string) error {
	if path == "" {
		return errors.New("store_session is enabled but session_file is empty")
	}

	f, err := os.Open(os.ExpandEnv(path))
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	defer f.Close()

	return t.ReadSnapshot(f)
}

// saveSession writes the registry to the session file.
func saveSession(t *tracker.Tracker, path string) error {
	if path == "" {
		return errors.New("store_session is enabled but session_file is empty")
	}

	f, err := os.Create(os.ExpandEnv(path))
	if err != nil {
		return err
	}
	defer f.Close()

	return t.WriteSnapshot(f)
}

func main() {
	var configFilePath string
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "kotori",
		Short: "BitTorrent Tracker",
		Long:  "An in-memory HTTP BitTorrent tracker",
		Run: func(cmd *cobra.Command, args []string) {
			configFile, err := ParseConfigFile(configFilePath)
			if err != nil {
				log.Fatal("failed to read config", log.Err(err))
			}

			cfg := configFile.Kotori
			if debug {
				cfg.Debug = true
			}

			if err := rootRun(cfg); err != nil {
				log.Fatal("shutting down", log.Err(err))
			}
		},
	}

	rootCmd.Flags().StringVar(&configFilePath, "config", "/etc/kotori.yaml", "location of configuration file")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal("failed to execute root command", log.Err(err))
	}
}
