package database

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	c "github.com/life-stream-dev/life-stream-go-stomp-broker/internal/config"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Database is a connected MongoDB client bound to the configured
// database. It implements event.Callable to close on shutdown.
type Database struct {
	Client           *mongo.Client
	Database         *mongo.Database
	OperationTimeout time.Duration
}

func (db *Database) Invoke(ctx context.Context) error {
	logger.InfoF("Closing database connection")
	if db.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.OperationTimeout)
		defer cancel()
	}
	return db.Client.Disconnect(ctx)
}

// BuildURI returns the connection string for config, escaping the
// credentials.
func BuildURI(config c.DatabaseConfig) string {
	if config.Username == "" {
		return fmt.Sprintf("mongodb://%s:%d/", config.Host, config.Port)
	}
	encodedUser := url.QueryEscape(config.Username)
	encodedPass := url.QueryEscape(config.Password)
	return fmt.Sprintf("mongodb://%s:%s@%s:%d/?authSource=admin",
		encodedUser, encodedPass,
		config.Host,
		config.Port,
	)
}

func clientOptions(appName string, config c.DatabaseConfig) *options.ClientOptions {
	clientOptions := options.Client().ApplyURI(BuildURI(config)).SetAppName(appName)
	// pool
	clientOptions.SetMinPoolSize(config.MinPoolSize)
	clientOptions.SetMaxPoolSize(config.MaxPoolSize)
	clientOptions.SetMaxConnIdleTime(utils.MustParseStringTime(config.ConnectIdleTimeout))
	// timeouts
	clientOptions.SetConnectTimeout(utils.MustParseStringTime(config.ConnectTimeout))
	clientOptions.SetSocketTimeout(utils.MustParseStringTime(config.SocketTimeout))
	if heartbeat := utils.MustParseStringTime(config.Heartbeat); heartbeat > 0 {
		clientOptions.SetHeartbeatInterval(heartbeat)
	}
	if config.UseTLS {
		clientOptions.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	clientOptions.SetPoolMonitor(&event.PoolMonitor{
		Event: func(evt *event.PoolEvent) {
			switch evt.Type {
			case event.ConnectionCreated:
				logger.DebugF("Database connection created: %s#%d", evt.Address, evt.ConnectionID)
			case event.ConnectionClosed:
				logger.DebugF("Database connection closed: %s#%d (%s)", evt.Address, evt.ConnectionID, evt.Reason)
			}
		},
	})
	return clientOptions
}

// Connect dials MongoDB, checks the connection and makes sure the users
// collection has its unique login index.
func Connect(ctx context.Context, appName string, config c.DatabaseConfig) (*Database, error) {
	logger.DebugF("Connecting to database %s:%d...", config.Host, config.Port)

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions(appName, config))
	if err != nil {
		return nil, fmt.Errorf("error occured while connecting to database: %w", err)
	}

	if err = client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("error occured while pinging database: %w", err)
	}

	db := &Database{
		Client:           client,
		Database:         client.Database(config.Database),
		OperationTimeout: utils.MustParseStringTime(config.OperationTimeout),
	}

	_, err = db.Database.Collection(UserCollectionName).Indexes().CreateOne(
		connectCtx,
		mongo.IndexModel{
			Keys:    bson.D{{Key: "login", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_login_unique"),
		},
	)
	if err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, fmt.Errorf("error occured while creating database indexes: %w", err)
	}

	logger.InfoF("Connected to database %s", config.Database)
	return db, nil
}
