package scheduler

import (
	"github.com/mdouchement/chestlink/internal/storage"
	"github.com/mdouchement/logger"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
)

// A Saver flushes every cached registry to the database.
type Saver interface {
	SaveAll() (int, error)
}

// A Controller is an Iversion Of Control pattern used to init the scheduler package.
type Controller struct {
	Logger        logger.Logger
	Saver         Saver
	Storage       storage.Backend
	Specification string
}

// Start cleans the storage then lauches the autosave job asynchronously.
// The storage is not cleaned by the job: writes may be in flight.
// The returned cron must be stopped on shutdown.
func Start(c Controller) (*cron.Cron, error) {
	cron := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	log := c.Logger.WithPrefix("[scheduler]")

	if c.Storage != nil {
		if err := c.Storage.Cleanup(); err != nil {
			log.Error(err)
		}
	}

	_, err := cron.AddFunc(c.Specification, func() {
		log := c.Logger.WithPrefix("[autosave]")

		n, err := c.Saver.SaveAll()
		if err != nil {
			log.Error(err)
		}
		log.Debugf("Saved %d owners", n)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not register autosave task %q", c.Specification)
	}
	log.Info("Autosave task registred")

	cron.Start()
	log.Info("Scheduler is running")
	return cron, nil
}
