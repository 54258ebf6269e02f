package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"noticeboard/pkg/logger"

	_ "github.com/lib/pq"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	_ "modernc.org/sqlite"
)

// RetryDelay is the pause between failed connection attempts.
var RetryDelay = 2 * time.Second

// ConnectSQL opens a PostgreSQL ("postgres") or SQLite ("sqlite") handle and
// pings it up to attempts times.
func ConnectSQL(ctx context.Context, driver, dsn string, attempts int) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == "sqlite" {
		// One writer at a time; concurrent connections only produce SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	err = retry(ctx, attempts, func() error { return db.PingContext(ctx) })
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s database: %w", driver, err)
	}
	logger.Sugar.Infof("Successfully connected to the %s database", driver)
	return db, nil
}

// ConnectMongo dials uri and pings the primary up to attempts times.
func ConnectMongo(ctx context.Context, uri string, attempts int) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("open mongo client: %w", err)
	}

	err = retry(ctx, attempts, func() error { return client.Ping(ctx, readpref.Primary()) })
	if err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	logger.Sugar.Info("Successfully connected to MongoDB")
	return client, nil
}

func retry(ctx context.Context, attempts int, ping func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		if err = ping(); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		logger.Sugar.Infof("Database connection failed, retrying in %s... (%v)", RetryDelay, err)
		select {
		case <-time.After(RetryDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
