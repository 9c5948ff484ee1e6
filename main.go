package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kataras/golog"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/tcsec/vulncases/ctrl"
)

var log = golog.Child("[main]")
var Version = "v1.0.0"

func main() {
	golog.Default.SetLevel("info")
	cli.VersionFlag = &cli.BoolFlag{
		Name:     "version",
		Aliases:  []string{"v"},
		Usage:    "print the version",
		Category: "[Other Options]",
	}
	cli.HelpFlag = &cli.BoolFlag{
		Name:     "help",
		Aliases:  []string{"h"},
		Usage:    "show help",
		Category: "[Other Options]",
	}

	app := cli.NewApp()
	app.Name = "vulncases"
	app.Usage = "REST service managing vulnerability test-case metadata with AI-assisted generation"
	app.Version = Version

	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "config file path, support json or yaml",
		},
		&cli.StringFlag{
			Name:     "addr",
			Aliases:  []string{"a"},
			Usage:    "listen address of the API server",
			Value:    ctrl.DefaultAddr,
			EnvVars:  []string{"ADDR"},
			Category: "[Launch Options]",
		},
		&cli.StringFlag{
			Name:     "mongo-uri",
			Aliases:  []string{"m"},
			Usage:    "mongodb connection string",
			EnvVars:  []string{"MONGO_URI"},
			Category: "[Launch Options]",
		},
		&cli.StringFlag{
			Name:     "db-name",
			Usage:    "mongodb database name",
			EnvVars:  []string{"DB_NAME"},
			Category: "[Launch Options]",
		},
		&cli.StringFlag{
			Name:     "collection",
			Usage:    "mongodb collection name",
			EnvVars:  []string{"COLLECTION_NAME"},
			Category: "[Launch Options]",
		},
		&cli.StringFlag{
			Name:     "gemini-model",
			Usage:    "gemini model used for metadata generation",
			EnvVars:  []string{"GEMINI_MODEL"},
			Category: "[Generation Options]",
		},
		&cli.IntFlag{
			Name:     "gemini-timeout",
			Usage:    "generation timeout in seconds",
			EnvVars:  []string{"GEMINI_TIMEOUT_SECONDS"},
			Category: "[Generation Options]",
		},
		&cli.StringFlag{
			Name:     "webhook-url",
			Aliases:  []string{"webhook"},
			Usage:    "optional webhook notified about newly created test cases",
			EnvVars:  []string{"WEBHOOK_URL"},
			Category: "[Push Options]",
		},
		&cli.StringFlag{
			Name:     "sample-file",
			Usage:    "sample test cases loaded by the setup command",
			EnvVars:  []string{"SAMPLE_FILE"},
			Category: "[Launch Options]",
		},
		&cli.BoolFlag{
			Name:     "debug",
			Aliases:  []string{"d"},
			Usage:    "set log level to debug, print more details",
			Value:    false,
			Category: "[Other Options]",
		},
	}
	app.Before = func(c *cli.Context) error {
		if c.Bool("debug") {
			golog.Default.SetLevel("debug")
		}
		return nil
	}
	app.Commands = []*cli.Command{
		{
			Name:   "serve",
			Usage:  "start the test case API server",
			Action: serveAction,
		},
		{
			Name:   "setup",
			Usage:  "ensure the unique vuln_id index and load sample test cases",
			Action: setupAction,
		},
	}
	app.Action = serveAction

	err := app.Run(os.Args)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Fatal("user canceled")
		} else {
			log.Fatal(err)
		}
	}
}

func serveAction(c *cli.Context) error {
	ctx, cancel := signalCtx()
	defer cancel()

	config, err := initConfig(c)
	if err != nil {
		return errors.Wrap(err, "failed to init config")
	}
	app, err := ctrl.NewApp(config)
	if err != nil {
		return errors.Wrap(err, "failed to create app")
	}
	defer app.Close()
	if err = app.Run(ctx); err != nil {
		return errors.Wrap(err, "failed to run app")
	}
	return nil
}

func setupAction(c *cli.Context) error {
	ctx, cancel := signalCtx()
	defer cancel()

	config, err := initConfig(c)
	if err != nil {
		return errors.Wrap(err, "failed to init config")
	}
	if err := ctrl.Setup(ctx, config); err != nil {
		return errors.Wrap(err, "setup failed")
	}
	log.Info("setup complete")
	return nil
}

func initConfig(c *cli.Context) (*ctrl.Config, error) {
	if c.String("config") != "" {
		return initConfigFromFile(c)
	}
	return initConfigFromCli(c), nil
}

func initConfigFromFile(c *cli.Context) (*ctrl.Config, error) {
	configFile := c.String("config")
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, err
	}
	var config ctrl.Config
	if strings.HasSuffix(configFile, ".json") {
		err = json.Unmarshal(data, &config)
	} else if strings.HasSuffix(configFile, ".yaml") || strings.HasSuffix(configFile, ".yml") {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = fmt.Errorf("unsupported config file format: %s", configFile)
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func initConfigFromCli(c *cli.Context) *ctrl.Config {
	return &ctrl.Config{
		Addr:                 c.String("addr"),
		MongoURI:             c.String("mongo-uri"),
		DBName:               c.String("db-name"),
		Collection:           c.String("collection"),
		GeminiModel:          c.String("gemini-model"),
		GeminiTimeoutSeconds: c.Int("gemini-timeout"),
		WebhookURL:           c.String("webhook-url"),
		SampleFile:           c.String("sample-file"),
	}
}

func signalCtx() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigs:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigs)
	}()
	return ctx, cancel
}
