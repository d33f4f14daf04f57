package ticker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/etnz/holdings"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type tickerRow struct {
	CUSIP      string    `gorm:"column:cusip;primaryKey"`
	Ticker     string    `gorm:"column:ticker;index"`
	Name       string    `gorm:"column:name"`
	Source     string    `gorm:"column:source"`
	ResolvedAt time.Time `gorm:"column:resolved_at"`
}

func (tickerRow) TableName() string { return "tickers" }

func (r tickerRow) entry() holdings.TickerEntry {
	return holdings.TickerEntry{
		CUSIP:      holdings.CUSIP(r.CUSIP),
		Ticker:     r.Ticker,
		Name:       r.Name,
		Source:     r.Source,
		ResolvedAt: r.ResolvedAt.UTC(),
	}
}

// SQLStore is a Store backed by a sqlite database.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLStore opens (and migrates) the sqlite database at dsn.
func OpenSQLStore(dsn string) (*SQLStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&tickerRow{}); err != nil {
		return nil, err
	}
	return &SQLStore{db: db}, nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, cusip holdings.CUSIP) (holdings.TickerEntry, bool, error) {
	var row tickerRow
	err := s.db.WithContext(ctx).Where("cusip = ?", string(cusip)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return holdings.TickerEntry{}, false, nil
	}
	if err != nil {
		return holdings.TickerEntry{}, false, err
	}
	return row.entry(), true, nil
}

// Put implements Store.
func (s *SQLStore) Put(ctx context.Context, e holdings.TickerEntry) error {
	row := tickerRow{
		CUSIP:      string(e.CUSIP),
		Ticker:     e.Ticker,
		Name:       e.Name,
		Source:     e.Source,
		ResolvedAt: e.ResolvedAt.UTC(),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

// FindTicker implements Store.
func (s *SQLStore) FindTicker(ctx context.Context, ticker string) (holdings.TickerEntry, bool, error) {
	var row tickerRow
	err := s.db.WithContext(ctx).Where("ticker = ?", strings.ToUpper(ticker)).Order("cusip").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return holdings.TickerEntry{}, false, nil
	}
	if err != nil {
		return holdings.TickerEntry{}, false, err
	}
	return row.entry(), true, nil
}

// Close implements Store.
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
