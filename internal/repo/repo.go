package repo

import "gorm.io/gorm"

// GormRepo bundles every query the auth subsystem runs against the
// relational store. Each method relies on the store's own per-statement
// atomicity; no multi-step operation opens an explicit transaction.
type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}
