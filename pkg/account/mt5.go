// Package account validates MT5 trading accounts against a MySQL table.
package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/raykavin/signalrun/pkg/logger"
)

// ErrAccountNotFound is returned when no account matches the login.
var ErrAccountNotFound = errors.New("mt5 account not found")

// MT5Account mirrors one row of the mt5_accounts table.
type MT5Account struct {
	Login     int64     `gorm:"column:login;primaryKey"`
	Name      string    `gorm:"column:name"`
	Balance   float64   `gorm:"column:balance"`
	Enabled   bool      `gorm:"column:enabled"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName implements the gorm naming override.
func (MT5Account) TableName() string { return "mt5_accounts" }

// Service is a thin query facade over the accounts database.
type Service struct {
	db  *gorm.DB
	log logger.Logger
}

// NewService opens the MySQL connection described by the DSN.
func NewService(dsn string, log logger.Logger, opts ...gorm.Option) (*Service, error) {
	db, err := gorm.Open(mysql.Open(dsn), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Service{db: db, log: log}, nil
}

// Verify looks up an account by login. Disabled accounts verify as not found.
func (s *Service) Verify(ctx context.Context, login int64) (*MT5Account, error) {
	var acc MT5Account
	err := s.db.WithContext(ctx).First(&acc, "login = ?", login).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("account lookup failed: %w", err)
	}
	if !acc.Enabled {
		s.log.Warnf("verification attempt on disabled account %d", login)
		return nil, ErrAccountNotFound
	}
	return &acc, nil
}

// Close releases the database handle.
func (s *Service) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
