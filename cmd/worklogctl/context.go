package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"worklog/backend/internal/clock"
	"worklog/backend/internal/config"
	"worklog/backend/internal/db"
	apperrors "worklog/backend/internal/errors"
	"worklog/backend/internal/logging"
	"worklog/backend/internal/repository"
	"worklog/backend/internal/service"
)

type commandContext struct {
	configFlag string
	dateFlag   string
	jsonFlag   bool
	verbose    bool
	clock      clock.Clock

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(c.configFlag)
		if path == "" {
			path = os.Getenv(config.PathEnv)
		}
		c.config, c.configErr = config.LoadFile(path)
	})
	return c.config, c.configErr
}

// withTracker opens the database under the process lock, resolves --date and runs fn.
func (c *commandContext) withTracker(cmd *cobra.Command, fn func(tracker *service.TrackerService, date string) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	level := "warn"
	if c.verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: cfg.LogFormat, Output: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}

	lock, err := db.AcquireLock(cfg.LockPath)
	if errors.Is(err, db.ErrLocked) {
		return fmt.Errorf("%w; stop the worklog server or use its API", err)
	}
	if err != nil {
		return err
	}
	defer lock.Release()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if _, err := db.RunMigrations(cmd.Context(), database); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	tracker := service.NewTrackerService(repository.NewWorklogRepository(database), service.TrackerOptions{
		NormMinutes: cfg.WorkNormMinutes,
		Location:    loc,
		Clock:       c.clock,
		Logger:      logger,
	})
	date, apiErr := tracker.ResolveDate(c.dateFlag)
	if apiErr != nil {
		return cliError(apiErr)
	}
	return fn(tracker, date)
}

func cliError(apiErr *apperrors.APIError) error {
	if apiErr == nil {
		return nil
	}
	return fmt.Errorf("%s: %s", apiErr.Code, apiErr.Message)
}
