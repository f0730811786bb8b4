// Package server initializes and runs the main application server.
// It configures the AWS clients, wires the secret and directory services,
// handles graceful shutdown, and starts the HTTP server for the vault API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	cognito "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/runavault/runavault/internal/logging"
	"github.com/runavault/runavault/internal/server/auth"
	"github.com/runavault/runavault/internal/server/config"
	"github.com/runavault/runavault/internal/server/directory"
	"github.com/runavault/runavault/internal/server/httpapi"
	"github.com/runavault/runavault/internal/server/secrets"
	"github.com/runavault/runavault/internal/server/storage/dynamo"
)

type App struct {
	config           *config.Config
	logger           logging.Logger
	verifier         auth.Verifier
	secretService    *secrets.Service
	directoryService *directory.Service
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	awsCfg, err := loadAWSConfig(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("aws config init error: %w", err)
	}

	dynamoClient := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if c.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(c.AWSEndpoint)
		}
	})
	cognitoClient := cognito.NewFromConfig(awsCfg, func(o *cognito.Options) {
		if c.AWSEndpoint != "" {
			o.BaseEndpoint = aws.String(c.AWSEndpoint)
		}
	})

	store := dynamo.NewStore(dynamoClient, dynamo.Config{
		TableName:  c.TableName(),
		GroupIndex: c.GroupIndex,
		UserIndex:  c.UserIndex,
	})

	verifier, err := auth.NewCognitoVerifier(ctx, c.AWSRegion, c.UserPoolID)
	if err != nil {
		return nil, fmt.Errorf("verifier init error: %w", err)
	}

	ss := secrets.NewService(store, logger)
	ds := directory.NewService(directory.NewCognitoProvider(cognitoClient, c.UserPoolID), logger)

	return &App{config: c, logger: logger, verifier: verifier, secretService: ss, directoryService: ds}, nil
}

func loadAWSConfig(ctx context.Context, c *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.AWSRegion),
	}
	// Static credentials only make sense against a local endpoint override.
	if c.AWSAccessKeyID != "" && c.AWSSecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AWSAccessKeyID, c.AWSSecretAccessKey, ""),
		))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s := httpapi.NewServer(app.config.EndpointAddr, app.logger, app.verifier,
		app.secretService, app.directoryService, app.config.ReadTimeout)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

}
