package migration

import (
	"github.com/damoang/angple-bans/internal/domain"
	"github.com/damoang/angple-bans/internal/repository"
	"gorm.io/gorm"
)

// Models lists every table this service migrates
func Models() []interface{} {
	return []interface{}{
		&repository.BanRecord{},
		&domain.Member{},
		&domain.Group{},
	}
}

// Run executes AutoMigrate for the ban tables. Existing tables are altered, never dropped.
func Run(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Seed inserts demo groups and members when the directory is empty
func Seed(db *gorm.DB) error {
	var count int64
	if err := db.Model(&domain.Group{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	strPtr := func(s string) *string { return &s }

	groups := []domain.Group{
		{ID: "grp-engineering", Name: "Engineering", RequestLimit: 1000},
		{ID: "grp-support", Name: "Support", RequestLimit: 500},
		{ID: "grp-trial", Name: "Trial", RequestLimit: 50},
	}
	members := []domain.Member{
		{ID: "mem-0001", FirstName: "Jiwoo", LastName: "Kim", Email: "jiwoo@example.com", GroupID: strPtr("grp-engineering")},
		{ID: "mem-0002", FirstName: "Minseo", LastName: "Park", Email: "minseo@example.com", GroupID: strPtr("grp-engineering")},
		{ID: "mem-0003", FirstName: "Alex", LastName: "Rivera", Email: "alex@support.example.org", GroupID: strPtr("grp-support")},
		{ID: "mem-0004", FirstName: "Sam", LastName: "Lee", Email: "sam@trial.example.net", GroupID: strPtr("grp-trial")},
		{ID: "mem-0005", FirstName: "Dana", LastName: "Cho", Email: "dana@example.com"},
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&groups).Error; err != nil {
			return err
		}
		return tx.Create(&members).Error
	})
}
