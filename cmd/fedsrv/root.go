// fedsrv is the federation server and its administrative CLI.
package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	federation "github.com/federatedsec/federation"
	"github.com/federatedsec/federation/aws_s3"
	"github.com/federatedsec/federation/config"
	"github.com/federatedsec/federation/fs"
	"github.com/federatedsec/federation/inmemory"
	fedmysql "github.com/federatedsec/federation/mysql"
	fedredis "github.com/federatedsec/federation/redis"
	"github.com/federatedsec/federation/registry"
	"github.com/federatedsec/federation/scan"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "fedsrv",
	Short:         "Federated abuse reputation server",
	Long:          "fedsrv runs the federation HTTP server and administers its operators.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to the configuration file (FEDERATION_* env vars override)")
}

// environment bundles everything a subcommand needs against one running
// configuration.
type environment struct {
	cfg     config.Config
	db      *sqlx.DB
	reg     *registry.Registry
	scanner *scan.Scanner
	closers []func() error
}

func openEnvironment(ctx context.Context) (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	federation.ConfigureLogging(cfg.Server.LogFile)

	db, err := fedmysql.Open(fedmysql.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		Username:  cfg.Database.Username,
		Password:  cfg.Database.Password,
		Name:      cfg.Database.Name,
		Charset:   cfg.Database.Charset,
		Collation: cfg.Database.Collation,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	env := &environment{cfg: cfg, db: db}
	env.closers = append(env.closers, db.Close)

	var cache federation.Cache
	if cfg.Redis.Enabled && cfg.Redis.SystemCachingEnabled {
		conn := fedredis.NewConnection(fedredis.Options{
			Address:  fedredis.Addr(cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		env.closers = append(env.closers, conn.Close)
		cache = fedredis.NewClient(conn, cfg.Redis.ThrowOnErrors)
	} else {
		cache = inmemory.NewCache()
	}

	var files federation.FileStore
	switch cfg.Server.StorageBackend {
	case "s3":
		files, err = aws_s3.NewFileStore(ctx, cfg.Server.S3Bucket)
	default:
		files, err = fs.NewFileStore(cfg.Server.StoragePath)
	}
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("open attachment storage: %w", err)
	}

	env.reg = registry.New(cfg, fedmysql.NewStores(db), cache, files)
	env.scanner = scan.NewScanner(env.reg.Entities, env.reg.Query)
	return env, nil
}

func (e *environment) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
}
