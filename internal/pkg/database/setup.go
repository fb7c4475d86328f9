package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/env"
)

const maxRetries = 5
const retryDelay = 5 * time.Second

const (
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

// DB is nil when DB_DRIVER=memory.
var DB *gorm.DB

// GetDB returns the shared connection, or nil in memory mode
func GetDB() *gorm.DB {
	return DB
}

// Driver returns the configured DB_DRIVER.
func Driver() string {
	return env.GetEnv("DB_DRIVER", DriverMySQL)
}

func dsn() string {
	// timestamps are stored and read as UTC
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		env.GetEnv("DB_USER", ""),
		env.GetEnv("DB_PASSWORD", ""),
		env.GetEnv("DB_HOST", "127.0.0.1"),
		env.GetEnv("DB_PORT", "3306"),
		env.GetEnv("DB_NAME", ""),
	)
}

func SetupDatabase() {
	if Driver() == DriverMemory {
		log.Println("DB_DRIVER=memory, data is kept in process and lost on restart")
		DB = nil
		return
	}

	logLevel := gormlogger.Warn
	if env.IsDev() {
		logLevel = gormlogger.Info
	}

	var err error
	for i := 0; i < maxRetries; i++ {
		DB, err = gorm.Open(mysql.New(mysql.Config{
			DSN:                       dsn(),
			DefaultStringSize:         256,
			DontSupportRenameIndex:    true,
			DontSupportRenameColumn:   true,
			SkipInitializeWithVersion: false,
		}), &gorm.Config{
			Logger:  gormlogger.Default.LogMode(logLevel),
			NowFunc: func() time.Time { return time.Now().UTC() },
		})
		if err == nil {
			if err = DB.AutoMigrate(&models.Issue{}, &models.Contribution{}); err != nil {
				log.Printf("AutoMigrate failed: %v", err)
			}
			return
		}

		log.Printf("Failed to connect to database (try %d/%d): %v", i+1, maxRetries, err)
		if i < maxRetries-1 {
			log.Printf("Retry in %v...", retryDelay)
			time.Sleep(retryDelay)
		}
	}

	if err != nil {
		panic(err)
	}
}
