package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"shop-bot/handler"
	"shop-bot/internal/config"
	"shop-bot/internal/integrations/catalog"
	"shop-bot/internal/integrations/luis"
	"shop-bot/internal/integrations/paramstore"
	"shop-bot/internal/integrations/qnamaker"
	"shop-bot/internal/repository"
	"shop-bot/internal/usecase"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// ---- Configuration (read only here) ----
	stateTable := mustEnv("STATE_TABLE")
	paramPrefix := mustEnv("PARAM_PREFIX")
	botConfig := envString("BOT_CONFIG", "bot.yaml")

	services, err := config.Load(botConfig)
	if err != nil {
		slog.Error("failed to load bot services", "path", botConfig, "err", err)
		os.Exit(1)
	}
	scoreThreshold := envFloat("QNA_SCORE_THRESHOLD", *services.QnA.ScoreThreshold)

	// ---- AWS SDK config ----
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		slog.Error("failed to create SSM client", "err", err)
		os.Exit(1)
	}
	dynamoClient := awsdynamodb.NewFromConfig(cfg)
	stateClient, err := repository.New(dynamoClient, stateTable)
	if err != nil {
		slog.Error("failed to create state client", "err", err)
		os.Exit(1)
	}

	kbClient, err := qnamaker.NewClient(
		ssmClient,
		services.QnA.Host,
		services.QnA.KnowledgeBaseID,
		config.ParameterName(paramPrefix, services.QnA.EndpointKeyParameter),
		qnamaker.WithTop(services.QnA.Top),
		qnamaker.WithScoreThreshold(scoreThreshold),
	)
	if err != nil {
		slog.Error("failed to create QnA Maker client", "err", err)
		os.Exit(1)
	}
	luisClient, err := luis.NewClient(
		ssmClient,
		services.Luis.Endpoint,
		services.Luis.AppID,
		config.ParameterName(paramPrefix, services.Luis.KeyParameter),
	)
	if err != nil {
		slog.Error("failed to create LUIS client", "err", err)
		os.Exit(1)
	}
	catalogClient, err := catalog.NewClient(services.Catalog.BaseURL)
	if err != nil {
		slog.Error("failed to create catalog client", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	turnService, err := usecase.NewTurnService(kbClient, luisClient, catalogClient, stateClient, usecase.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create turn service", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(turnService, handler.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}

	lambda.Start(h.Handle)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("ignoring unparsable environment variable", "key", key, "value", v)
		return def
	}
	return f
}
