package main

import (
	"fmt"

	"github.com/alphabill-org/alphabill-nft/approvals"
	"github.com/alphabill-org/alphabill-nft/approvals/sqlstore"
	"github.com/alphabill-org/alphabill-nft/config"
)

// openStore returns the approval store configured and a function to close it.
func openStore(cfg *config.Config) (approvals.Store, func(), error) {
	if cfg.Store.Driver == config.StoreMemory {
		return approvals.NewMemoryStore(cfg.Approvals.InitialID), func() {}, nil
	}
	db, err := sqlstore.Open(cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	store, err := sqlstore.New(db, cfg.Approvals.InitialID)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("creating approval store: %w", err)
	}
	return store, closeDB, nil
}
