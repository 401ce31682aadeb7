// Package app assembles the engine, its sinks and the account store from a
// Config. Both binaries share it.
package app

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/traffic-sim/internal/config"
	"github.com/ukydev/traffic-sim/internal/db"
	"github.com/ukydev/traffic-sim/internal/netfile"
	"github.com/ukydev/traffic-sim/internal/roadnet"
	"github.com/ukydev/traffic-sim/internal/sim"
	"github.com/ukydev/traffic-sim/internal/telemetry"
)

// statusEvery is how often the log sink prints a fleet summary.
const statusEvery = 100

// LoadNetwork reads NETWORK_PATH, or builds the named built-in network.
func LoadNetwork(cfg config.Config) (*roadnet.Network, error) {
	if cfg.NetworkPath != "" {
		return netfile.Load(cfg.NetworkPath, cfg.Network)
	}
	return netfile.Builtin(cfg.NetworkBuiltin, cfg.Network)
}

// NewEngine loads the network and parks FLEET_SIZE vehicles on it.
func NewEngine(cfg config.Config) (*sim.Engine, error) {
	network, err := LoadNetwork(cfg)
	if err != nil {
		return nil, fmt.Errorf("load network: %w", err)
	}
	engine := sim.NewEngine(network, cfg.SimOptions())
	for i := 0; i < cfg.FleetSize; i++ {
		if _, err := engine.Spawn(); err != nil {
			return nil, fmt.Errorf("spawn vehicle %d of %d: %w", i+1, cfg.FleetSize, err)
		}
	}
	log.WithFields(log.Fields{
		"run_id":        engine.RunID(),
		"roads":         len(network.Roads()),
		"intersections": len(network.Intersections()),
		"vehicles":      cfg.FleetSize,
	}).Info("Simulation ready")
	return engine, nil
}

// OpenSinks connects every sink named in SINKS. Sinks opened before a
// failure are closed again.
func OpenSinks(ctx context.Context, cfg config.Config) (telemetry.Fanout, error) {
	var sinks telemetry.Fanout
	fail := func(err error) (telemetry.Fanout, error) {
		return nil, errors.Join(err, sinks.Close(ctx))
	}

	for _, name := range cfg.Sinks {
		switch name {
		case config.SinkLog:
			sinks = append(sinks, telemetry.LogSink{Every: statusEvery})
		case config.SinkMongo:
			client, err := db.ConnectMongo(ctx, cfg.MongoURI)
			if err != nil {
				return fail(fmt.Errorf("mongo sink: %w", err))
			}
			database := client.Database(cfg.MongoDB)
			sinks = append(sinks, telemetry.NewMongoSink(
				&db.MongoCollection{Collection: database.Collection("telemetry")},
				&db.MongoCollection{Collection: database.Collection("trips")},
				cfg.PersistEvery,
				client.Disconnect,
			))
		case config.SinkPostgres:
			conn, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
			if err != nil {
				return fail(fmt.Errorf("postgres sink: %w", err))
			}
			store := db.NewPostgresStore(conn)
			if err := store.InitSchema(ctx); err != nil {
				_ = conn.Close()
				return fail(fmt.Errorf("postgres sink: %w", err))
			}
			sinks = append(sinks, telemetry.NewPostgresSink(store, cfg.PersistEvery))
		case config.SinkMQTT:
			client, err := telemetry.ConnectMQTT(cfg.MQTTBroker, cfg.MQTTClientID)
			if err != nil {
				return fail(fmt.Errorf("mqtt sink: %w", err))
			}
			sinks = append(sinks, telemetry.NewMQTTSink(client, cfg.MQTTTopic))
		default:
			return fail(fmt.Errorf("%w: %q", config.ErrUnknownSink, name))
		}
		log.WithField("sink", name).Info("Telemetry sink ready")
	}
	return sinks, nil
}

// OpenUsers returns the operator account store: MongoDB when MONGO_URI is
// set, memory otherwise. The returned function releases it.
func OpenUsers(ctx context.Context, cfg config.Config) (db.UserCollection, func(context.Context) error, error) {
	if cfg.MongoURI == "" {
		log.Info("MONGO_URI not set, keeping operator accounts in memory")
		return db.NewMemoryUserCollection(), func(context.Context) error { return nil }, nil
	}
	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, fmt.Errorf("open users: %w", err)
	}
	users := &db.MongoUserCollection{Collection: client.Database(cfg.MongoDB).Collection("users")}
	return users, client.Disconnect, nil
}
