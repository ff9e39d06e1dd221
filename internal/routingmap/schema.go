package routingmap

// CreateSnapshotsTableSQL creates the routing map snapshot table. Each row
// holds one complete map for a container, as snappy-compressed JSON.
const CreateSnapshotsTableSQL = `
CREATE TABLE IF NOT EXISTS routing_snapshots (
    snapshot_id TEXT PRIMARY KEY,
    container TEXT NOT NULL,
    range_count INTEGER NOT NULL,
    payload BLOB NOT NULL,
    created_at INTEGER NOT NULL
)`

// CreateSnapshotsIndexesSQL creates the lookup index for the latest snapshot
// of a container.
var CreateSnapshotsIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_routing_snapshots_container ON routing_snapshots(container, created_at)`,
}

// AllSchemaSQL returns every schema statement in execution order.
func AllSchemaSQL() []string {
	stmts := []string{CreateSnapshotsTableSQL}
	return append(stmts, CreateSnapshotsIndexesSQL...)
}
