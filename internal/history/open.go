package history

import (
	"errors"
	"fmt"

	sqldrv "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Supported drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Store is the run-history store.
type Store struct {
	db *gorm.DB
}

// Opts holds connection parameters for the store. Driver selects which
// of the remaining fields apply.
type Opts struct {
	Driver string // defaults to DriverSQLite

	// SQLite.
	Path string

	// MySQL.
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Open connects to the run-history store and migrates the schema.
func Open(opts Opts) (*Store, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "", DriverSQLite:
		if opts.Path == "" {
			return nil, fmt.Errorf("history: sqlite path is required")
		}
		dialector = sqlite.Open(opts.Path)
	case DriverMySQL:
		dialector = mysql.Open(mysqlDSN(opts))
	default:
		return nil, fmt.Errorf("history: unknown driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("history: open store: %w", err)
	}
	if err := db.AutoMigrate(&SyncRun{}); err != nil {
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// mysqlDSN builds the MySQL DSN from connection options.
func mysqlDSN(opts Opts) string {
	cfg := sqldrv.Config{
		User:                 opts.User,
		Passwd:               opts.Password,
		Net:                  "tcp",
		Addr:                 fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		DBName:               opts.Database,
		ParseTime:            true,
		AllowNativePasswords: true,
	}
	return cfg.FormatDSN()
}

// Record writes one completed run. A run ID is assigned when missing.
func (s *Store) Record(run *SyncRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if err := s.db.Create(run).Error; err != nil {
		return fmt.Errorf("history: record run: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first. limit <= 0 means
// the default of 20.
func (s *Store) Recent(limit int) ([]SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []SyncRun
	if err := s.db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("history: recent runs: %w", err)
	}
	return runs, nil
}

// LastRun returns the most recent run, or nil when none are recorded.
func (s *Store) LastRun() (*SyncRun, error) {
	var run SyncRun
	err := s.db.Order("started_at DESC").First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("history: last run: %w", err)
	}
	return &run, nil
}
