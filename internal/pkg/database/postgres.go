package database

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5"
)

// Database persists panel/page/slot configuration between runs. It is
// optional: without a configured database URL the controller runs from its
// in-memory configuration only.
type Database struct {
	conn *pgx.Conn
	io.Closer
}

func NewDatabase(ctx context.Context, conn *pgx.Conn) *Database {
	initialise(ctx, conn)
	return &Database{
		conn: conn,
	}
}

func initialise(ctx context.Context, conn *pgx.Conn) {
	const createTablesSQL = `
CREATE TABLE IF NOT EXISTS Panel (
    node_name TEXT PRIMARY KEY,
    home_title TEXT NOT NULL,
    temp_entity TEXT NOT NULL DEFAULT '',
    relay1 TEXT NOT NULL DEFAULT '',
    relay2 TEXT NOT NULL DEFAULT '',
    relay3 TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS Page (
    node_name TEXT NOT NULL REFERENCES Panel (node_name) ON DELETE CASCADE,
    page_order INT NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (node_name, page_order)
);
CREATE TABLE IF NOT EXISTS Slot (
    node_name TEXT NOT NULL,
    page_order INT NOT NULL,
    slot_index INT NOT NULL,
    entity_id TEXT NOT NULL,
    class TEXT NOT NULL,
    PRIMARY KEY (node_name, page_order, slot_index),
    FOREIGN KEY (node_name, page_order) REFERENCES Page (node_name, page_order) ON DELETE CASCADE
);
`
	if _, err := conn.Exec(ctx, createTablesSQL); err != nil {
		panic(err)
	}
}

func (db *Database) Close() error {
	if db.conn == nil {
		return nil
	}
	return db.conn.Close(context.Background())
}
