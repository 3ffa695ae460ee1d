package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dmarcstack/dmarcstack/config"
	"github.com/dmarcstack/dmarcstack/internal/database"
	"github.com/dmarcstack/dmarcstack/internal/logger"
	"github.com/dmarcstack/dmarcstack/internal/repository"
	"github.com/dmarcstack/dmarcstack/server"
	"github.com/dmarcstack/dmarcstack/services"
)

func main() {
	app := &cli.App{
		Name:  "dmarcstack",
		Usage: "DMARC aggregate report ingestion pipeline",
		Commands: []*cli.Command{
			{
				Name:   "server",
				Usage:  "Start the application server",
				Action: runServer,
			},
			{
				Name:   "migrate",
				Usage:  "Run database migrations",
				Action: runMigrations,
			},
			{
				Name:   "process",
				Usage:  "Run a single report ingestion cycle and exit",
				Action: runProcessCycle,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup() (*config.Config, *database.DatabaseConfig) {
	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Config initialization failed: %v", err)
	}

	dbConfig := &database.DatabaseConfig{
		DBName:          cfg.DatabaseConfig.DBName,
		Host:            cfg.DatabaseConfig.Host,
		Port:            cfg.DatabaseConfig.Port,
		User:            cfg.DatabaseConfig.User,
		Password:        cfg.DatabaseConfig.Password,
		MaxConn:         cfg.DatabaseConfig.MaxConn,
		MaxIdleConn:     cfg.DatabaseConfig.MaxIdleConn,
		ConnMaxLifetime: cfg.DatabaseConfig.ConnMaxLifetime,
		LogLevel:        cfg.DatabaseConfig.LogLevel,
		SSLMode:         cfg.DatabaseConfig.SSLMode,
	}

	return cfg, dbConfig
}

func runServer(c *cli.Context) error {
	cfg, dbConfig := setup()

	db, err := database.InitDatabase(dbConfig)
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}

	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("DmarcStack starting up...")

	srv, err := server.NewServer(cfg, db)
	if err != nil {
		log.Fatalf("Server setup failed: %v", err)
	}

	if err := srv.Run(); err != nil {
		log.Fatalf("Server startup failed: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

func runMigrations(c *cli.Context) error {
	_, dbConfig := setup()

	db, err := database.InitDatabase(dbConfig)
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}

	if err := repository.MigrateDB(db); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}
	log.Println("Database migration completed successfully")
	return nil
}

// runProcessCycle allows operators to drain the inbox once without keeping a
// server running.
func runProcessCycle(c *cli.Context) error {
	cfg, dbConfig := setup()

	db, err := database.InitDatabase(dbConfig)
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}

	appLogger := logger.NewAppLogger(cfg.Logger)
	appLogger.InitLogger()

	repos := repository.InitRepositories(db)
	svcs, err := services.InitServices(cfg, appLogger, repos)
	if err != nil {
		log.Fatalf("Service initialization failed: %v", err)
	}

	ctx := context.Background()
	if err := svcs.MailSource.Start(ctx); err != nil {
		log.Fatalf("Mail source start failed: %v", err)
	}
	defer svcs.MailSource.Stop()

	results, err := svcs.Orchestrator.RunCycle(ctx)
	if err != nil {
		log.Fatalf("Ingestion cycle failed: %v", err)
	}

	appLogger.Infof("Processed %d batches", len(results))
	return nil
}
