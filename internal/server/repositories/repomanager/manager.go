package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/sharekeeper/internal/dbx"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/groups"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/passwords"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/revisions"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/settings"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/shares"
	"github.com/dmitrijs2005/sharekeeper/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same
// service code runs against *sql.DB or inside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Passwords(db dbx.DBTX) passwords.Repository
	Revisions(db dbx.DBTX) revisions.Repository
	Shares(db dbx.DBTX) shares.Repository
	Users(db dbx.DBTX) users.Repository
	Groups(db dbx.DBTX) groups.Repository
	Settings(db dbx.DBTX) settings.Repository
}
