package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/robert-malhotra/copernicus-cli/internal/config"
	"github.com/robert-malhotra/copernicus-cli/internal/credentials"
	"github.com/robert-malhotra/copernicus-cli/internal/logging"
	"github.com/robert-malhotra/copernicus-cli/pkg/auth"
	"github.com/robert-malhotra/copernicus-cli/pkg/client"
)

// session is the per-invocation state shared by the catalogue commands: the
// loaded configuration and a token that is valid right now.
type session struct {
	logger *log.Logger
	store  *config.Store
	file   *config.File
	token  *auth.Token
	client *client.Client
}

func newLogger(cmd *cli.Command) (*log.Logger, error) {
	return logging.New(os.Stderr, cmd.String(logLevelFlag.Name))
}

func openStore(cmd *cli.Command) (*config.Store, error) {
	path := cmd.String(configFlag.Name)
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return config.NewStore(nil, path), nil
}

// openSession loads the configuration, makes sure the cached token is usable
// and persists whatever token that produced.
func openSession(ctx context.Context, cmd *cli.Command) (*session, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}
	store, err := openStore(cmd)
	if err != nil {
		return nil, err
	}
	file, err := store.Load()
	if err != nil {
		return nil, err
	}

	if err := credentials.LoadEnvFile(cmd.String(envFileFlag.Name)); err != nil {
		return nil, err
	}
	creds, err := credentials.Lookup()
	if err != nil {
		return nil, err
	}

	authn := auth.New(authOptions(file.Settings, cmd, logger)...)
	token, err := authn.EnsureValid(ctx, file.AuthToken, creds)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if token != file.AuthToken {
		file.AuthToken = token
		if err := store.Save(file); err != nil {
			return nil, err
		}
		logger.Debug("saved token", "path", store.Path(), "expires", token.Expiry())
	}

	c, err := client.NewClient(clientOptions(file.Settings, cmd, logger)...)
	if err != nil {
		return nil, err
	}

	return &session{logger: logger, store: store, file: file, token: token, client: c}, nil
}

func authOptions(s config.Settings, cmd *cli.Command, logger *log.Logger) []auth.Option {
	opts := []auth.Option{
		auth.WithTimeout(cmd.Duration(timeoutFlag.Name)),
		auth.WithLogger(logger),
	}
	if s.TokenURL != "" {
		opts = append(opts, auth.WithTokenURL(s.TokenURL))
	}
	if s.ClientID != "" {
		opts = append(opts, auth.WithClientID(s.ClientID))
	}
	return opts
}

func clientOptions(s config.Settings, cmd *cli.Command, logger *log.Logger) []client.ClientOption {
	opts := []client.ClientOption{
		client.WithTimeout(cmd.Duration(timeoutFlag.Name)),
		client.WithLogger(logger),
	}
	if s.SearchURL != "" {
		opts = append(opts, client.WithSearchURL(s.SearchURL))
	}
	if s.ListURL != "" {
		opts = append(opts, client.WithListURL(s.ListURL))
	}
	if s.CollectionsURL != "" {
		opts = append(opts, client.WithCollectionsURL(s.CollectionsURL))
	}
	return opts
}
