package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"FinScope/internal/domain/models"
	"FinScope/internal/domain/repository"
)

// StrategyRecord is the postgres row of a user defined strategy.
type StrategyRecord struct {
	Name        string `gorm:"primaryKey;size:64"`
	Description string `gorm:"size:512"`
	Entry       string `gorm:"type:jsonb;not null"`
	Exit        string `gorm:"type:jsonb;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (StrategyRecord) TableName() string { return "strategies" }

// GormStrategyCatalog stores user strategies in postgres and falls back to a base catalog
// (the built-in strategies) for names it does not know.
type GormStrategyCatalog struct {
	db       *gorm.DB
	base     repository.StrategyCatalog
	validate StrategyValidator
}

// OpenPostgres connects with a quiet gorm logger and a small pool.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func NewGormStrategyCatalog(db *gorm.DB, base repository.StrategyCatalog, validate StrategyValidator) (*GormStrategyCatalog, error) {
	if err := db.AutoMigrate(&StrategyRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate strategies: %w", err)
	}
	return &GormStrategyCatalog{db: db, base: base, validate: validate}, nil
}

func (c *GormStrategyCatalog) Get(ctx context.Context, name string) (models.StrategyDefinition, error) {
	var rec StrategyRecord
	err := c.db.WithContext(ctx).Where("name = ?", strings.ToLower(name)).First(&rec).Error
	switch {
	case err == nil:
		return rec.Definition()
	case errors.Is(err, gorm.ErrRecordNotFound):
		if c.base != nil {
			return c.base.Get(ctx, name)
		}
		return models.StrategyDefinition{}, fmt.Errorf("strategy %q: %w", name, models.ErrNotFound)
	default:
		return models.StrategyDefinition{}, fmt.Errorf("get strategy: %w", err)
	}
}

// List merges stored and base definitions; stored ones win on name clashes.
func (c *GormStrategyCatalog) List(ctx context.Context) ([]models.StrategyDefinition, error) {
	var recs []StrategyRecord
	if err := c.db.WithContext(ctx).Order("name").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	seen := make(map[string]bool, len(recs))
	out := make([]models.StrategyDefinition, 0, len(recs))
	for _, r := range recs {
		def, err := r.Definition()
		if err != nil {
			return nil, err
		}
		seen[r.Name] = true
		out = append(out, def)
	}
	if c.base != nil {
		base, err := c.base.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, d := range base {
			if !seen[strings.ToLower(d.Name)] {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

// Save upserts a validated definition.
func (c *GormStrategyCatalog) Save(ctx context.Context, def models.StrategyDefinition) error {
	if c.validate != nil {
		if err := c.validate(def); err != nil {
			return err
		}
	}
	rec, err := NewStrategyRecord(def)
	if err != nil {
		return err
	}
	err = c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"description", "entry", "exit", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save strategy: %w", err)
	}
	return nil
}

// NewStrategyRecord serialises the rule trees as JSON.
func NewStrategyRecord(def models.StrategyDefinition) (StrategyRecord, error) {
	entry, err := json.Marshal(def.Entry)
	if err != nil {
		return StrategyRecord{}, fmt.Errorf("marshal entry: %w", err)
	}
	exit, err := json.Marshal(def.Exit)
	if err != nil {
		return StrategyRecord{}, fmt.Errorf("marshal exit: %w", err)
	}
	return StrategyRecord{
		Name:        strings.ToLower(def.Name),
		Description: def.Description,
		Entry:       string(entry),
		Exit:        string(exit),
	}, nil
}

// Definition decodes the stored rule trees.
func (r StrategyRecord) Definition() (models.StrategyDefinition, error) {
	def := models.StrategyDefinition{Name: r.Name, Description: r.Description}
	if err := json.Unmarshal([]byte(r.Entry), &def.Entry); err != nil {
		return def, fmt.Errorf("decode entry of %s: %w", r.Name, err)
	}
	if err := json.Unmarshal([]byte(r.Exit), &def.Exit); err != nil {
		return def, fmt.Errorf("decode exit of %s: %w", r.Name, err)
	}
	return def, nil
}

var _ repository.StrategyCatalog = (*GormStrategyCatalog)(nil)
