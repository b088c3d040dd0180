package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
	"go.uber.org/zap"
)

const pingTimeout = 3 * time.Second

// Repository is the mongo backed transaction journal
type Repository struct {
	// Disconnect closes the client
	Disconnect func()

	db     *mongo.Database
	logger *zap.Logger
}

// NewConnection connects to uri and pings the primary. Journal writes wait
// for the majority so an acknowledged transaction survives a failover.
func NewConnection(ctx context.Context, logger *zap.Logger, uri, dbName string) (Repository, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetWriteConcern(writeconcern.New(writeconcern.WMajority())).
		SetReadPreference(readpref.Primary())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		logger.Error("db connection failed", zap.String("db", dbName))
		return Repository{}, fmt.Errorf("mongodb: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return Repository{}, fmt.Errorf("mongodb: ping: %w", err)
	}

	logger.Info("connected to mongodb", zap.String("db", dbName))

	return Repository{
		Disconnect: func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error("failed to disconnect the DB: " + err.Error())
			}
		},
		db:     client.Database(dbName),
		logger: logger,
	}, nil
}

func (b Repository) collection(name string) *mongo.Collection {
	return b.db.Collection(name)
}
