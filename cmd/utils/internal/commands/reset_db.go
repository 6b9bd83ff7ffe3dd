package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/appetiteclub/apt"
	"go.mongodb.org/mongo-driver/bson"
)

// ResetDB drops the marketplace database and, when sqlite.path is set, removes
// the SQLite file as well. USE WITH CAUTION.
func ResetDB(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	name := databaseName(config)
	logger.Infof("DANGER: this will drop the %s database and cannot be undone", name)

	client, err := connect(ctx, config, logger)
	if err != nil {
		return err
	}
	defer client.Disconnect(ctx)

	result := client.Database(name).RunCommand(ctx, bson.D{{Key: "dropDatabase", Value: 1}})
	if result.Err() != nil {
		return fmt.Errorf("drop database %s: %w", name, result.Err())
	}
	logger.Info("Database dropped", "database", name)

	if path, _ := config.GetString("sqlite.path"); path != "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove sqlite file: %w", err)
		}
		logger.Info("SQLite file removed", "path", path)
	}

	return nil
}
