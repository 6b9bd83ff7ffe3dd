// Package sqlite stores posts and orders in a SQLite file through gorm.
package sqlite

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const DefaultPath = "dawat.db"

type DB struct {
	db     *gorm.DB
	path   string
	logger apt.Logger
}

func NewDB(path string, log apt.Logger) *DB {
	if log == nil {
		log = apt.NewNoopLogger()
	}
	if path == "" {
		path = DefaultPath
	}
	return &DB{
		path:   path,
		logger: log,
	}
}

func (d *DB) Start(ctx context.Context) error {
	db, err := gorm.Open(sqlite.Open(d.path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("cannot open sqlite database: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(&postRow{}, &orderRow{}); err != nil {
		return fmt.Errorf("cannot migrate sqlite database: %w", err)
	}

	d.db = db
	d.logger.Info("Opened SQLite database", "path", d.path)
	return nil
}

func (d *DB) Stop(ctx context.Context) error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return fmt.Errorf("cannot get sqlite handle: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("cannot close sqlite database: %w", err)
	}
	d.logger.Info("Closed SQLite database")
	return nil
}

func (d *DB) Gorm() *gorm.DB {
	return d.db
}
