package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rubiojr/textboard/pkg/api"
	"github.com/rubiojr/textboard/pkg/config"
	"github.com/rubiojr/textboard/pkg/db"
	"github.com/rubiojr/textboard/pkg/log"
	"github.com/rubiojr/textboard/pkg/maintenance"
	"github.com/rubiojr/textboard/pkg/realtime"
	"github.com/rubiojr/textboard/pkg/search"
	"github.com/rubiojr/textboard/pkg/storage"
	"github.com/urfave/cli/v3"
)

var serveLogger = log.ForService("serve")

const shutdownTimeout = 30 * time.Second

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the board HTTP server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind to (overrides server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (overrides server.port)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.String("host"), c.Int("port"))
		},
	}
}

// serve runs the HTTP API until SIGINT or SIGTERM. SIGHUP and changes to
// the config file reload the runtime settings.
func serve(ctx context.Context, configPath, host string, port int) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	conn, err := db.OpenAndMigrate(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("opening database %s: %w", cfg.DatabasePath, err)
	}
	defer closeDB(conn)

	store := storage.New(conn)
	apiServer := api.NewServer(store, search.NewService(conn), settingsFromConfig(cfg))
	apiServer.SetHub(realtime.NewHub(cfg.Live.Buffer))

	if cfg.Server.AdminToken == "" {
		serveLogger.Infof("admin API disabled: no admin token configured")
	}

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout.Duration,
		WriteTimeout:      cfg.Server.WriteTimeout.Duration,
	}

	errCh := make(chan error, 1)
	go func() {
		serveLogger.Infof("listening on http://%s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	scheduler := maintenance.NewScheduler(store, cfg.Maintenance.Interval.Duration)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("starting maintenance scheduler: %w", err)
	}
	defer scheduler.Stop()

	stopMDNS, err := advertise(cfg)
	if err != nil {
		serveLogger.Warnf("mdns advertisement failed: %v", err)
	}
	defer stopMDNS()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	var cfgMutex sync.Mutex
	currentConfig := cfg

	var events <-chan fsnotify.Event
	var watchErrors <-chan error
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		serveLogger.Warnf("failed to create config file watcher: %v", err)
	} else {
		defer func() {
			if err := watcher.Close(); err != nil {
				serveLogger.Warnf("failed to close config file watcher: %v", err)
			}
		}()
		if err := watcher.Add(configPath); err != nil {
			serveLogger.Warnf("failed to watch config file %s: %v", configPath, err)
		} else {
			serveLogger.Infof("watching config file for changes: %s", configPath)
		}
		events = watcher.Events
		watchErrors = watcher.Errors
	}

	reload := func(reason string) {
		cfgMutex.Lock()
		defer cfgMutex.Unlock()
		next, err := reloadConfiguration(configPath, apiServer, currentConfig)
		if err != nil {
			serveLogger.Errorf("failed to reload configuration (%s): %v", reason, err)
			return
		}
		currentConfig = next
		serveLogger.Infof("configuration reloaded (%s)", reason)
	}

	for {
		select {
		case <-ctx.Done():
			return shutdown(server)
		case err := <-errCh:
			return fmt.Errorf("http server: %w", err)
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				reload("SIGHUP")
				continue
			}
			return shutdown(server)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			// Editors often replace the file, which drops the watch.
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					serveLogger.Warnf("config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					serveLogger.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			reload(event.Op.String())
		case err, ok := <-watchErrors:
			if !ok {
				watchErrors = nil
				continue
			}
			serveLogger.Warnf("config file watcher error: %v", err)
		}
	}
}

// reloadConfiguration applies the reloadable settings of the config file to
// the running server and returns the new configuration. Listener, database
// and mdns settings only take effect after a restart.
func reloadConfiguration(configPath string, apiServer *api.Server, current *config.Config) (*config.Config, error) {
	next, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading new config: %w", err)
	}

	for _, w := range restartRequired(current, next) {
		serveLogger.Warnf("%s changed, restart to apply", w)
	}
	// Command line overrides stay in effect.
	next.Server.Host = current.Server.Host
	next.Server.Port = current.Server.Port

	apiServer.UpdateSettings(settingsFromConfig(next))
	return next, nil
}

// restartRequired names the settings that differ between old and next but
// cannot change while running.
func restartRequired(old, next *config.Config) []string {
	var changed []string
	if old.DatabasePath != next.DatabasePath {
		changed = append(changed, "database_path")
	}
	if old.Server.ReadTimeout != next.Server.ReadTimeout || old.Server.WriteTimeout != next.Server.WriteTimeout {
		changed = append(changed, "server timeouts")
	}
	if old.Live.Buffer != next.Live.Buffer {
		changed = append(changed, "live.buffer")
	}
	if old.MDNS != next.MDNS {
		changed = append(changed, "mdns")
	}
	if old.Maintenance != next.Maintenance {
		changed = append(changed, "maintenance.interval")
	}
	return changed
}

func shutdown(server *http.Server) error {
	serveLogger.Infof("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
