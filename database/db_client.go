package database

import (
	"context"
	"os"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var client *mongo.Client
var db *mongo.Database

// InitDB initializes the MongoDB connection
func InitDB() {
	// Read MongoDB URI from environment variable
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017" // Default URI
	}
	name := os.Getenv("DB_NAME")
	if name == "" {
		name = "docquery"
	}

	clientOptions := options.Client().ApplyURI(uri)

	var err error
	client, err = mongo.Connect(context.TODO(), clientOptions)
	if err != nil {
		log.Fatal().Err(err).Msg("connect mongodb failed")
	}

	// Wait for a connection to be established
	if err = client.Ping(context.TODO(), nil); err != nil {
		log.Fatal().Err(err).Msg("ping mongodb failed")
	}

	db = client.Database(name)
	log.Info().Str("db", name).Msg("connected to mongodb")
}

// GetDBClient returns the underlying client
func GetDBClient() *mongo.Client {
	return client
}

// GetDB returns the database instance
func GetDB() *mongo.Database {
	return db
}

// CloseDB gracefully closes the MongoDB connection
func CloseDB() {
	if err := client.Disconnect(context.TODO()); err != nil {
		log.Error().Err(err).Msg("close mongodb failed")
		return
	}
	log.Info().Msg("mongodb connection closed")
}
