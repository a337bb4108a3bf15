package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"runtime"
	"syscall"
	"time"

	"github.com/mdouchement/chestlink/internal/config"
	"github.com/mdouchement/chestlink/internal/database"
	"github.com/mdouchement/chestlink/internal/economy"
	"github.com/mdouchement/chestlink/internal/manager"
	"github.com/mdouchement/chestlink/internal/scheduler"
	"github.com/mdouchement/chestlink/internal/storage"
	"github.com/mdouchement/chestlink/internal/webserver"
	"github.com/mdouchement/chestlink/internal/webserver/service"
	"github.com/mdouchement/logger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const dbname = "chestlink.db"

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	binding string
	port    string
	debug   bool
	records bool
)

func main() {
	c := &cobra.Command{
		Use:     "chestlink",
		Short:   "Linked container storage server",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    cobra.ExactArgs(0),
	}
	c.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Version for chestlink",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(c.Version)
		},
	})
	c.AddCommand(initCmd)
	reindexCmd.Flags().BoolVar(&records, "records", false, "Renumber the records of every owner")
	c.AddCommand(reindexCmd)
	c.AddCommand(migrateCmd)
	c.AddCommand(purgeCmd)

	serverCmd.Flags().StringVarP(&binding, "binding", "b", "0.0.0.0", "Server's binding")
	serverCmd.Flags().StringVarP(&port, "port", "p", "5000", "Server's port")
	serverCmd.Flags().BoolVar(&debug, "debug", false, "Dump requests and log at debug level")
	c.AddCommand(serverCmd)

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

var (
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Init the storm database",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.ParseEnv()
			if err != nil {
				return err
			}
			if err = os.MkdirAll(cfg.DataPath, 0755); err != nil {
				return errors.Wrap(err, "could not create data directory")
			}
			return database.StormInit(filepath.Join(cfg.DataPath, dbname))
		},
	}

	//

	reindexCmd = &cobra.Command{
		Use:   "reindex",
		Short: "Reindex the storm database, and the records with --records",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.ParseEnv()
			if err != nil {
				return err
			}

			if cfg.Store == config.StoreStorm {
				if err = database.StormReIndex(filepath.Join(cfg.DataPath, dbname)); err != nil {
					return err
				}
			}
			if !records {
				return nil
			}

			return withManager(cfg, func(m *manager.Manager) error {
				_, err := m.ReindexAll()
				return err
			})
		},
	}

	//

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Migrate the legacy bundled files",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.ParseEnv()
			if err != nil {
				return err
			}

			env, err := open(cfg, newLogger(false))
			if err != nil {
				return err
			}
			defer env.db.Close()

			n, err := env.db.MigrateLegacy()
			if err != nil {
				return err
			}
			fmt.Printf("Migrated %d owners\n", n)
			return nil
		},
	}

	//

	purgeCmd = &cobra.Command{
		Use:   "purge",
		Short: "Remove the records without position or contents",
		Args:  cobra.ExactArgs(0),
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.ParseEnv()
			if err != nil {
				return err
			}

			return withManager(cfg, func(m *manager.Manager) error {
				n, err := m.PurgeBroken()
				if err != nil {
					return err
				}
				fmt.Printf("Purged %d records\n", n)
				return nil
			})
		},
	}

	//

	serverCmd = &cobra.Command{
		Use:   "server",
		Short: "Start server",
		Args:  cobra.ExactArgs(0),
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := config.ParseEnv()
			if err != nil {
				return err
			}

			l := newLogger(debug)
			env, err := open(cfg, l)
			if err != nil {
				return err
			}
			defer env.db.Close()

			//

			stop, err := env.settings.Watch(cfg.SettingsPath, l)
			if err != nil {
				l.Warnf("Settings hot reload disabled: %s", err)
			} else {
				defer stop()
			}

			if n, err := env.db.MigrateLegacy(); err != nil {
				l.Errorf("Could not migrate legacy files: %s", err)
			} else if n > 0 {
				l.Infof("Migrated %d legacy owners", n)
			}

			//

			queue := scheduler.NewQueue(l, cfg.Tick)
			queue.Start()

			bank := economy.NewLedger(cfg.StartingBalance)
			drops := service.NewDropLedger(l, 1000)

			m := manager.New(manager.Controller{
				Logger:         l,
				Database:       env.db,
				Settings:       env.settings,
				Economy:        bank,
				Host:           drops,
				Queue:          queue,
				PendingBindTTL: cfg.PendingBindTTL,
			})

			cron, err := scheduler.Start(scheduler.Controller{
				Logger:        l,
				Saver:         m,
				Storage:       env.storage,
				Specification: cfg.Autosave,
			})
			if err != nil {
				return err
			}

			//

			engine := webserver.EchoEngine(webserver.Controller{
				Version:   c.Parent().Version,
				Logger:    l,
				Manager:   m,
				Drops:     drops,
				Bank:      bank,
				RateLimit: cfg.RateLimit,
				Debug:     debug,
			})
			engine.HideBanner = true
			webserver.PrintRoutes(engine)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			listen := fmt.Sprintf("%s:%s", binding, port)
			l.Infof("Server listening on %s", listen)

			failure := make(chan error, 1)
			go func() {
				if err := engine.Start(listen); err != nil && err != http.ErrServerClosed {
					failure <- err
				}
				close(failure)
			}()

			select {
			case err = <-failure:
			case <-ctx.Done():
			}

			//

			l.Infof("Shutting down")
			shutdown, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			if serr := engine.Shutdown(shutdown); serr != nil {
				l.Errorf("Could not shutdown server: %s", serr)
			}

			<-cron.Stop().Done()
			queue.Stop()
			if n, serr := m.SaveAll(); serr != nil {
				l.Errorf("Could not save every owner: %s", serr)
			} else {
				l.Infof("Saved %d owners", n)
			}
			if serr := env.storage.Cleanup(); serr != nil {
				l.Errorf("Could not cleanup storage: %s", serr)
			}

			return errors.Wrap(err, "could not run server")
		},
	}
)

type environment struct {
	settings *config.Holder
	storage  storage.Backend
	db       database.Client
}

// open loads the settings and opens the configured store.
func open(cfg config.Config, l logger.Logger) (*environment, error) {
	settings, err := config.LoadSettings(cfg.SettingsPath, l.WithPrefix("[config]"))
	if err != nil {
		return nil, err
	}

	env := &environment{
		settings: config.NewHolder(settings),
		storage:  storage.NewFileSystem(cfg.DataPath),
	}
	ctrl := database.Controller{
		Logger:   l,
		Storage:  env.storage,
		Settings: env.settings,
	}

	switch cfg.Store {
	case config.StoreStorm:
		if err = os.MkdirAll(cfg.DataPath, 0755); err != nil {
			return nil, errors.Wrap(err, "could not create data directory")
		}
		env.db, err = database.StormOpen(filepath.Join(cfg.DataPath, dbname), ctrl)
		if err != nil {
			return nil, errors.Wrap(err, "could not open database")
		}
	default:
		env.db = database.NewFileStore(ctrl)
	}

	return env, nil
}

// withManager runs fn against a manager over the configured store, then saves every touched owner.
func withManager(cfg config.Config, fn func(m *manager.Manager) error) error {
	l := newLogger(false)
	env, err := open(cfg, l)
	if err != nil {
		return err
	}
	defer env.db.Close()

	m := manager.New(manager.Controller{
		Logger:   l,
		Database: env.db,
		Settings: env.settings,
	})
	if err = fn(m); err != nil {
		return err
	}

	_, err = m.SaveAll()
	return err
}

func newLogger(debug bool) logger.Logger {
	log := logrus.New()
	log.SetFormatter(&logger.LogrusTextFormatter{
		DisableColors:   false,
		ForceColors:     true,
		ForceFormatting: true,
		PrefixRE:        regexp.MustCompile(`^(\[.*?\])\s`),
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	return logger.WrapLogrus(log)
}
