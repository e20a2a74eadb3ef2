package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"sneakstudy/models"
)

// Store manages one credential partition per identity. Each partition is its
// own SQLite database file, opened and migrated lazily on first access.
type Store struct {
	dir string

	mu         sync.Mutex
	partitions map[string]*Partition
}

// Open prepares a store rooted at dir. Partition databases are created on
// demand under it.
func Open(dir string) (*Store, error) {
	if dir == "" {
		dir = "data/users"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return &Store{
		dir:        dir,
		partitions: make(map[string]*Partition),
	}, nil
}

// Partition returns the partition owning ownerID's credential, opening and
// migrating its database if this is the first access. All operations on the
// partition block until that migration has completed.
func (s *Store) Partition(ownerID string) (*Partition, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("partition owner id is empty")
	}

	s.mu.Lock()
	p, ok := s.partitions[ownerID]
	if !ok {
		p = &Partition{path: s.partitionPath(ownerID)}
		s.partitions[ownerID] = p
	}
	s.mu.Unlock()

	if err := p.ensureOpen(); err != nil {
		return nil, err
	}
	return p, nil
}

// partitionPath derives a stable filename from the opaque owner id. Hashing
// keeps provider-issued ids with arbitrary characters filesystem safe.
func (s *Store) partitionPath(ownerID string) string {
	sum := sha256.Sum256([]byte(ownerID))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".db")
}

// Close closes every open partition database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, p := range s.partitions {
		if err := p.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Partition holds at most one credential for exactly one identity. Every
// operation is serialized by the partition mutex, so delete-then-insert
// replacement is never observable half done.
type Partition struct {
	mu   sync.Mutex
	path string
	db   *gorm.DB
}

func (p *Partition) ensureOpen() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db != nil {
		return nil
	}

	db, err := gorm.Open(sqlite.Open(p.path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open partition database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// One writer per partition; a second connection would only contend.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.Exec("PRAGMA journal_mode = WAL")
	sqlDB.Exec("PRAGMA synchronous = NORMAL")
	sqlDB.Exec("PRAGMA busy_timeout = 5000")

	if err := db.AutoMigrate(&models.Credential{}); err != nil {
		sqlDB.Close()
		return fmt.Errorf("failed to migrate partition schema: %w", err)
	}

	p.db = db
	return nil
}

// Get returns the stored credential, or nil when the identity has none.
func (p *Partition) Get() (*models.Credential, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var cred models.Credential
	err := p.db.First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// Exists reports credential presence without reading the token column.
func (p *Partition) Exists() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var ids []uint
	if err := p.db.Model(&models.Credential{}).Limit(1).Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

// Set replaces any stored credential with a new one. The delete and insert
// run in a single transaction so callers never observe zero or two rows.
func (p *Partition) Set(accessToken string, balance int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Credential{}).Error; err != nil {
			return err
		}
		return tx.Create(&models.Credential{
			ID:          1,
			AccessToken: accessToken,
			Balance:     balance,
		}).Error
	})
}

// UpdateBalance sets the cached balance of the stored credential. Updating a
// missing credential is a no-op.
func (p *Partition) UpdateBalance(balance int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.db.Model(&models.Credential{}).Where("id = ?", 1).Update("balance", balance).Error
}

// Clear deletes the stored credential. Clearing an empty partition succeeds.
func (p *Partition) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.db.Where("1 = 1").Delete(&models.Credential{}).Error
}

func (p *Partition) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.db == nil {
		return nil
	}

	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	sqlDB.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing partition database: %v", err)
		return err
	}
	p.db = nil
	return nil
}
