package database

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultMongoDatabase = "solace"

// ConnectMongo connects and pings MongoDB, returning the client and the
// database named in the URI path (or "solace").
func ConnectMongo(ctx context.Context, mongoURI string) (*mongo.Client, *mongo.Database, error) {
	// Atlas clusters can take a while to answer the first handshake.
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURI)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
	defer pingCancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	return client, client.Database(mongoDatabaseName(mongoURI)), nil
}

// DisconnectMongo closes the client. A nil client is a no-op.
func DisconnectMongo(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Disconnect(ctx)
}

// mongoDatabaseName extracts the database from mongodb://host/db?opts.
func mongoDatabaseName(uri string) string {
	parts := strings.Split(uri, "/")
	if len(parts) > 3 {
		if name := strings.Split(parts[len(parts)-1], "?")[0]; name != "" {
			return name
		}
	}
	return defaultMongoDatabase
}
