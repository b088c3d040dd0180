package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"share-governance/internal/app"
	"share-governance/internal/config"
	"share-governance/internal/ledger"
	"share-governance/internal/model"
	"share-governance/internal/ports/http"
	"share-governance/internal/ports/http/middleware/auth"
	"share-governance/internal/repository/memory"
	"share-governance/internal/repository/mongodb"
	"share-governance/internal/repository/postgres"
	"share-governance/internal/signkeys"
	"share-governance/internal/treasury"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger, err := getLogger()
	if err != nil {
		log.Fatalln("setting up the logger failed: ", err)
		return
	}
	defer logger.Sync()

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded: " + err.Error())
	}

	logger.Info("application started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("application failed: " + err.Error())
		os.Exit(1)
	}

	logger.Info("application finished")
}

func run(ctx context.Context, logger *zap.Logger) error {
	keys, err := getSignerKeys(logger)
	if err != nil {
		return err
	}

	policy, err := config.LoadPolicy(config.GetPolicyFile())
	if err != nil {
		return err
	}

	store, closeStore, err := openJournal(ctx, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var owner model.Identity
	if raw := config.GetOwner(); raw != "" {
		if owner, err = model.ParseIdentity(raw); err != nil {
			return err
		}
	}

	strict := config.GetStrictFunds()
	vault := treasury.NewVault(logger, strict)

	engine, err := ledger.Open(ctx, logger, owner, store, keys, policy, ledger.WithFunds(vault))
	if err != nil {
		return err
	}

	secret := config.GetJWTSecret()
	if secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	tokens := auth.NewTokenValidator(logger, auth.JwtTokenParams{
		Issuer: config.GetJWTIssuer(),
		Secret: []byte(secret),
	})

	ser := http.NewServer(logger, app.NewApp(logger, engine, vault, strict), tokens,
		config.GetPort(), config.GetAllowedOrigins(), config.GetRequestTimeout())

	errCh := make(chan error, 1)
	go func() {
		errCh <- ser.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down the server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return ser.Shutdown(shutdownCtx)
}

func getSignerKeys(logger *zap.Logger) (signkeys.LedgerKeys, error) {
	if keyHex := config.GetSignerKey(); keyHex != "" {
		return signkeys.NewKeysFromHex(keyHex)
	}

	logger.Warn("LEDGER_SIGNER_KEY is not set, signing with a one-off key; the journal can only be reopened with memory storage")
	return signkeys.GenerateKeys()
}

func openJournal(ctx context.Context, logger *zap.Logger) (ledger.Journal, func(), error) {
	switch driver := config.GetStoreDriver(); driver {
	case config.StoreMemory:
		return memory.NewJournal(), func() {}, nil

	case config.StoreMongoDB:
		repo, err := mongodb.NewConnection(ctx, logger, config.GetDbConnectionURI(), config.GetDatabaseName())
		if err != nil {
			return nil, nil, err
		}
		if err := repo.EnsureIndexes(ctx); err != nil {
			repo.Disconnect()
			return nil, nil, err
		}
		return repo, repo.Disconnect, nil

	case config.StorePostgres:
		client, err := postgres.New(ctx, logger, config.GetPostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		if err := client.RunMigrations(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}
		return client.Journal(), client.Close, nil

	default:
		return nil, nil, errors.New("unknown store driver: " + driver)
	}
}

func getLogger() (*zap.Logger, error) {
	options := []zap.Option{
		zap.AddCaller(),
		zap.AddStacktrace(zap.FatalLevel),
	}

	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
	config.Development = true
	config.Level.SetLevel(zap.DebugLevel)

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return logger.WithOptions(options...), nil
}
