package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/teslo-shop/realtime-gateway/internal/auth"
	"github.com/teslo-shop/realtime-gateway/internal/gateway"
	"github.com/teslo-shop/realtime-gateway/internal/identity"
	identitymongo "github.com/teslo-shop/realtime-gateway/internal/identity/mongodb"
	"github.com/teslo-shop/realtime-gateway/internal/realtime"
	"github.com/teslo-shop/realtime-gateway/internal/server"
)

type App struct {
	logger          *zap.Logger
	settings        Settings
	websocketServer *server.WebSocketServer
	restServer      *server.RESTServer
}

func NewApp(logger *zap.Logger, settings Settings, directory identity.Directory) *App {
	originChecker := server.NewOriginChecker()
	websocketUpgrader := &websocket.Upgrader{
		ReadBufferSize:    1024,
		WriteBufferSize:   1024,
		CheckOrigin:       originChecker.Check,
		EnableCompression: true,
	}

	authenticator := auth.NewAuthenticator(settings.JWTSecret, settings.APIKeys)
	registry := realtime.NewInMemoryRegistry(logger)

	presenceGateway := gateway.NewGateway(
		logger,
		authenticator,
		directory,
		registry,
		time.Duration(settings.AuthTimeoutSeconds)*time.Second,
	)
	relay := gateway.NewRelay(logger, registry)

	websocketServer := server.NewWebSocketServer(
		logger,
		websocketUpgrader,
		presenceGateway,
		relay,
	)
	restServer := server.NewRESTServer(
		logger,
		registry,
		relay,
		authenticator,
	)

	return &App{
		logger,
		settings,
		websocketServer,
		restServer,
	}
}

func (a *App) startHttpServer(ctx context.Context) {
	notifyCtx, notifyCtxCancel := signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
	defer notifyCtxCancel()

	address := fmt.Sprintf("0.0.0.0:%d", a.settings.Port)

	router := mux.NewRouter().
		PathPrefix(a.settings.BasePath).
		Subrouter()

	a.websocketServer.Register(router)
	a.restServer.Register(router)

	httpServer := &http.Server{
		Addr:    address,
		Handler: router,
	}

	a.logger.Info("starting http server",
		zap.String("address", address))

	go func() {
		err := httpServer.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("failed to start http server",
				zap.Error(err))
		}
	}()

	<-notifyCtx.Done()

	a.logger.Info("stopping http server")

	shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCtxCancel()

	err := httpServer.Shutdown(shutdownCtx)
	if err != nil {
		a.logger.Fatal("http server shutdown failed",
			zap.Error(err))
	}

	a.logger.Info("http server stopped")
}

func main() {
	ctx := context.Background()

	bootLogger, _ := zap.NewDevelopment()

	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	if err != nil {
		bootLogger.Fatal("failed to parse settings from environment", zap.Error(err))
	}

	logger, err := buildZapLogger(settings.LogEncoding)
	if err != nil {
		bootLogger.Fatal("failed to build logger", zap.Error(err))
	}
	defer logger.Sync()

	mongoClient, err := mongo.Connect(options.Client().ApplyURI(settings.MongoURI))
	if err != nil {
		logger.Fatal("failed to connect to mongodb", zap.Error(err))
	}
	defer mongoClient.Disconnect(context.Background())

	directory := identitymongo.NewDirectory(mongoClient, settings.MongoDatabase)

	setupCtx, setupCtxCancel := context.WithTimeout(ctx, 10*time.Second)
	err = directory.Setup(setupCtx)
	setupCtxCancel()
	if err != nil {
		logger.Fatal("failed to setup identity directory", zap.Error(err))
	}

	app := NewApp(logger, settings, directory)

	app.startHttpServer(ctx)
}
