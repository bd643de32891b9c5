package infra

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3"
)

// GuildRecord is a guild document serialized into a single sqlite row.
type GuildRecord struct {
	GuildID  string `gorm:"type:varchar(30);primary_key"`
	Document string `gorm:"type:text"`
}

type gormBackend struct {
	db *gorm.DB
}

func NewDataBase() (*Store, error) {
	dbpath := "./db/ticket_control.db"
	if os.Getenv("DB_PATH") != "" {
		dbpath = os.Getenv("DB_PATH")
	}
	if !path.IsAbs(dbpath) {
		dbpath = path.Join(os.Getenv("PWD"), dbpath)
	}
	if err := os.MkdirAll(path.Dir(dbpath), 0o755); err != nil {
		return nil, err
	}
	db, err := gorm.Open("sqlite3", dbpath)
	if err != nil {
		return nil, err
	}
	db.AutoMigrate(&GuildRecord{})
	return &Store{backend: &gormBackend{db: db}}, nil
}

func (g *gormBackend) loadDocument(guildID string) (*guildDocument, error) {
	var rec GuildRecord
	err := g.db.Where("guild_id = ?", guildID).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return newGuildDocument(), nil
	}
	if err != nil {
		return nil, err
	}

	var doc guildDocument
	if err := json.Unmarshal([]byte(rec.Document), &doc); err != nil {
		slog.Error("guild document corrupted, reinitializing with defaults (data loss)",
			slog.String("guild_id", guildID), slog.Any("err", err))
		return newGuildDocument(), nil
	}
	doc.normalize()
	return &doc, nil
}

func (g *gormBackend) saveDocument(guildID string, doc *guildDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal guild document: %w", err)
	}
	return g.db.Save(&GuildRecord{GuildID: guildID, Document: string(data)}).Error
}
