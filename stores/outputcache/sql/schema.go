package sql

import (
	"context"

	"github.com/bsv-blockchain/outputcache/errors"
	"github.com/bsv-blockchain/outputcache/util"
	"github.com/bsv-blockchain/outputcache/util/usql"
)

const tableName = "cached_outputs"

func createSchema(ctx context.Context, db *usql.DB, engine util.SQLEngine) error {
	switch engine {
	case util.Postgres:
		return createPostgresSchema(ctx, db)
	case util.Sqlite, util.SqliteMemory:
		return createSqliteSchema(ctx, db)
	default:
		return errors.NewConfigurationError("unknown database engine: %s", engine)
	}
}

func createPostgresSchema(ctx context.Context, db *usql.DB) error {
	if _, err := db.ExecContext(ctx, `
      CREATE TABLE IF NOT EXISTS cached_outputs (
	     transaction_id  BYTEA NOT NULL
	    ,output_index    BIGINT NOT NULL
	    ,value           BIGINT NOT NULL
	    ,locking_script  BYTEA NOT NULL
	    ,asset_address   BYTEA NULL
	    ,asset_quantity  BIGINT NOT NULL
	    ,output_type     SMALLINT NOT NULL
	    ,PRIMARY KEY (transaction_id, output_index)
	  );
	`); err != nil {
		return errors.NewStorageUnavailableError("could not create cached_outputs table", err)
	}

	return nil
}

func createSqliteSchema(ctx context.Context, db *usql.DB) error {
	if _, err := db.ExecContext(ctx, `
      CREATE TABLE IF NOT EXISTS cached_outputs (
	     transaction_id  BLOB NOT NULL
	    ,output_index    BIGINT NOT NULL
	    ,value           BIGINT NOT NULL
	    ,locking_script  BLOB NOT NULL
	    ,asset_address   BLOB
	    ,asset_quantity  BIGINT NOT NULL
	    ,output_type     SMALLINT NOT NULL
	    ,PRIMARY KEY (transaction_id, output_index)
	  );
	`); err != nil {
		return errors.NewStorageUnavailableError("could not create cached_outputs table", err)
	}

	return nil
}

// validateSchema fails when a cached_outputs table exists that was not created by us.
func validateSchema(ctx context.Context, db *usql.DB) error {
	rows, err := db.QueryContext(ctx, `
		SELECT transaction_id, output_index, value, locking_script, asset_address, asset_quantity, output_type
		FROM cached_outputs
		WHERE 1 = 0
	`)
	if err != nil {
		return errors.NewStorageUnavailableError("existing %s table has an unexpected layout", tableName, err)
	}

	return rows.Close()
}
