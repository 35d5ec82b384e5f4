// Package database opens the SQLite file holding the library records,
// settings, audit log, sync history and sealed credentials.
//
// Each table has its own sub-package with a Repository built on the shared
// *gorm.DB:
//
//	db, err := database.NewDatabase("./lumina.db")
//	books := library.NewRepository(db.DB)
//	runs := syncruns.NewRepository(db.DB)
//
// New entities must be added to Migrate.
package database
