// template-publisher creates or updates email templates on Postmark (or
// SES) from a local config file and writes the resulting template ids to a
// JSON file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	publisher "github.com/interactive-solutions/go-template-publisher"
	provider "github.com/interactive-solutions/go-template-publisher/provider/aws"
	"github.com/interactive-solutions/go-template-publisher/provider/postmark"
	"github.com/interactive-solutions/go-template-publisher/provider/postmark/postmarktest"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var (
		configPath  string
		serverToken string
		output      string
		providerArg string
		envFile     string
		logLevel    string
		concurrency int
		merge       bool
		fake        bool
	)

	flagSet := pflag.NewFlagSet("template-publisher", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", publisher.DefaultConfigFile, "template config file (.yaml, .yml, .json or .jsonc)")
	flagSet.StringVar(&serverToken, "server-token", "", "Postmark server token (overrides the config file)")
	flagSet.StringVarP(&output, "output", "o", "", "results file (default from config, else "+publisher.DefaultOutputFile+")")
	flagSet.StringVar(&providerArg, "provider", "postmark", "template service: postmark or ses")
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the config")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level")
	flagSet.IntVar(&concurrency, "concurrency", 1, "templates published in parallel")
	flagSet.BoolVar(&merge, "merge", false, "keep entries of an existing results file for templates not in the config and reuse its ids")
	flagSet.BoolVar(&fake, "fake", false, "publish to an in-memory Postmark API instead of the real one")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	log := logger.WithField("run", uuid.New().String())

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	cfg, err := publisher.LoadConfig(configPath)
	if err != nil {
		return err
	}

	task := &publisher.Task{
		Config:  cfg,
		Options: publisher.Options{ServerToken: serverToken},
		Output:  output,
		Merge:   merge,
		Logger:  log,
		PublisherOptions: []publisher.PublisherOption{
			publisher.SetConcurrency(concurrency),
		},
	}

	switch strings.ToLower(providerArg) {
	case "postmark":
		task.NewService = func(token string) (publisher.TemplateService, error) {
			options := []postmark.PostmarkOption{postmark.SetLogger(log)}

			if fake {
				server := postmarktest.NewServer(token, 1)
				options = append(options, postmark.SetBaseURL(server.URL))
				log.WithField("url", server.URL).Warn("publishing to an in-memory Postmark API")
			}

			return postmark.NewClient(token, options...), nil
		}

	case "ses":
		task.SkipToken = true
		task.NewService = func(string) (publisher.TemplateService, error) {
			sess, err := session.NewSession()
			if err != nil {
				return nil, err
			}

			return provider.NewSesTemplateService(sess), nil
		}

	default:
		return fmt.Errorf("unknown provider %q", providerArg)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	_, err = task.Run(ctx)

	return err
}
