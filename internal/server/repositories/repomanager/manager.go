package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/tracekeeper/internal/dbx"
	"github.com/dmitrijs2005/tracekeeper/internal/server/repositories/closecontacts"
	"github.com/dmitrijs2005/tracekeeper/internal/server/repositories/infections"
	"github.com/dmitrijs2005/tracekeeper/internal/server/repositories/notifications"
	"github.com/dmitrijs2005/tracekeeper/internal/server/repositories/secrets"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code
// path works on a plain *sql.DB and inside dbx.WithTx.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Infections(db dbx.DBTX) infections.Repository
	Notifications(db dbx.DBTX) notifications.Repository
	CloseContacts(db dbx.DBTX) closecontacts.Repository
	Secrets(db dbx.DBTX) secrets.Repository
}
