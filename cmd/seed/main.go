package main

import (
	"context"
	"time"

	"github.com/Netflix/go-env"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	identitymongo "github.com/teslo-shop/realtime-gateway/internal/identity/mongodb"
)

type Settings struct {
	MongoURI      string `env:"MONGO_URI,default=mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE,default=shop"`
}

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		logger.Fatal("failed to parse settings from environment", zap.Error(err))
	}

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(settings.MongoURI))
	if err != nil {
		logger.Fatal("failed to connect to mongodb", zap.Error(err))
	}
	defer mongoClient.Disconnect(context.Background())

	directory := identitymongo.NewDirectory(mongoClient, settings.MongoDatabase)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := directory.Setup(ctx); err != nil {
		logger.Fatal("failed to setup identity directory", zap.Error(err))
	}

	users := []identitymongo.SeedUser{
		{
			Id:       uuid.NewString(),
			Email:    "ann@example.com",
			Password: "Abc123",
			FullName: "Ann Smith",
			IsActive: true,
			Roles:    []string{"admin"},
		},
		{
			Id:       uuid.NewString(),
			Email:    "ben@example.com",
			Password: "Abc123",
			FullName: "Ben Ortiz",
			IsActive: true,
			Roles:    []string{"user"},
		},
		{
			Id:       uuid.NewString(),
			Email:    "carla@example.com",
			Password: "Abc123",
			FullName: "Carla Ruiz",
			IsActive: false,
			Roles:    []string{"user"},
		},
	}

	if err := directory.Seed(ctx, users); err != nil {
		logger.Fatal("failed to seed users", zap.Error(err))
	}

	logger.Info("seed executed", zap.Int("users", len(users)))
}
