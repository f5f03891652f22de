package repositories

import (
	"fmt"
	"github.com/glebarez/sqlite"
	"github.com/maxaizer/recruit-pipeline/internal/domain/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(connectionString string) (*DbContext, error) {
	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {
	err := c.DB.AutoMigrate(models.JobOffer{})
	if err != nil {
		return fmt.Errorf("failed to migrate JobOffer entity: %w", err)
	}

	err = c.DB.AutoMigrate(models.Proposal{})
	if err != nil {
		return fmt.Errorf("failed to migrate Proposal entity: %w", err)
	}

	err = c.DB.AutoMigrate(models.Message{})
	if err != nil {
		return fmt.Errorf("failed to migrate Message entity: %w", err)
	}

	if err = c.DB.Exec("CREATE INDEX IF NOT EXISTS idx_message_thread ON messages (conversation_id, created_at);").
		Error; err != nil {
		return fmt.Errorf("failed to create message thread index: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
