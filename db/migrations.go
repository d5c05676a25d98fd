package db

import (
	"context"
	"fmt"
	"time"

	"github.com/everestpanel/billing-backend/internal/log"
	"github.com/everestpanel/billing-backend/migrations"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MigrationRecord represents a migration record stored in MongoDB
type MigrationRecord struct {
	Version   int       `bson:"version"`
	AppliedAt time.Time `bson:"applied_at"`
}

// RunMigrationsUp executes all pending database migrations
func (ms *MongoStorage) RunMigrationsUp() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	lastMigration, err := lastAppliedMigration(ctx, ms.migrations)
	if err != nil {
		return fmt.Errorf("failed to get last applied migration: %w", err)
	}

	migs := migrations.SortedByVersionAsc()
	if len(migs) == 0 || migs[len(migs)-1].Version == lastMigration {
		log.Infow("database is up-to-date, no need to migrate")
		return nil
	}

	log.Infow("starting database migrations",
		"migrationsAvailable", len(migs), "lastAppliedMigration", lastMigration)

	for _, migration := range migs {
		if migration.Version <= lastMigration {
			continue
		}

		log.Infow("applying migration", "version", migration.Version, "name", migration.Name)

		if err := migration.Up(ctx, ms.client.Database(ms.database)); err != nil {
			return fmt.Errorf("failed to apply migration %d (%s): %w", migration.Version, migration.Name, err)
		}

		record := MigrationRecord{
			Version:   migration.Version,
			AppliedAt: time.Now(),
		}
		if _, err := ms.migrations.InsertOne(ctx, record); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}
	}

	log.Infow("database migrations completed successfully")
	return nil
}

// RunMigrationsDown rolls back the given number of applied migrations.
func (ms *MongoStorage) RunMigrationsDown(steps int) error {
	log.Infow("rolling back database migrations", "steps", steps)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	applied, err := appliedMigrations(ctx, ms.migrations)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}
	if steps <= 0 || steps > len(applied) {
		steps = len(applied)
	}

	byVersion := map[int]migrations.Migration{}
	for _, m := range migrations.SortedByVersionAsc() {
		byVersion[m.Version] = m
	}

	// applied is sorted descending, so roll back newest first
	for i := 0; i < steps; i++ {
		record := applied[i]
		migration, ok := byVersion[record.Version]
		if !ok {
			return fmt.Errorf("no registered migration for applied version %d", record.Version)
		}
		log.Infow("rolling back migration", "version", migration.Version, "name", migration.Name)
		if err := migration.Down(ctx, ms.client.Database(ms.database)); err != nil {
			return fmt.Errorf("failed to roll back migration %d (%s): %w", migration.Version, migration.Name, err)
		}
		if _, err := ms.migrations.DeleteOne(ctx, bson.M{"version": record.Version}); err != nil {
			return fmt.Errorf("failed to delete migration record %d: %w", record.Version, err)
		}
	}
	return nil
}

// lastAppliedMigration returns the highest applied migration version, or 0
// when none has been applied yet.
func lastAppliedMigration(ctx context.Context, collection *mongo.Collection) (int, error) {
	var record MigrationRecord
	opts := options.FindOne().SetSort(bson.D{{Key: "version", Value: -1}})
	if err := collection.FindOne(ctx, bson.M{}, opts).Decode(&record); err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}
	return record.Version, nil
}

// appliedMigrations returns all applied migration records, newest first.
func appliedMigrations(ctx context.Context, collection *mongo.Collection) ([]MigrationRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "version", Value: -1}})
	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var records []MigrationRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
