package main

import (
	"flag"
	"log"
	"time"

	"github.com/damoang/angple-bans/internal/config"
	"github.com/damoang/angple-bans/internal/migration"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "configs/config.local.yaml", "config file path")
	seed := flag.Bool("seed", false, "insert sample groups and members when the directory is empty")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	config.LoadDotEnv()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := gormlogger.Warn
	if *verbose {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying DB: %v", err)
	}
	defer sqlDB.Close()

	start := time.Now()
	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Schema migrated in %s", time.Since(start).Round(time.Millisecond))

	if *seed {
		if err := migration.Seed(db); err != nil {
			log.Fatalf("Seed failed: %v", err)
		}
		log.Println("Seed data applied")
	}
}
