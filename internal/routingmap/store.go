package routingmap

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	pkerrors "github.com/arkilian/pkrouting/internal/errors"
)

// SnapshotInfo describes a stored snapshot without its ranges.
type SnapshotInfo struct {
	ID         string
	Container  string
	RangeCount int
	CreatedAt  time.Time
}

// Store persists routing map snapshots in SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex // serializes writers
	logger *zap.Logger
	now    func() time.Time
}

// NewStore opens (or creates) the snapshot database at dbPath.
func NewStore(dbPath string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, pkerrors.NewStorageError(pkerrors.CodeSnapshotWrite, "failed to open snapshot database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, dbPath: dbPath, logger: logger, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, pkerrors.NewStorageError(pkerrors.CodeSnapshotWrite, "failed to initialize snapshot schema", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stmt := range AllSchemaSQL() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// Save stores m as the newest snapshot of container and returns its id.
func (s *Store) Save(ctx context.Context, container string, m *Map) (string, error) {
	raw, err := json.Marshal(m.ranges)
	if err != nil {
		return "", pkerrors.NewInternalError("failed to encode routing map", err)
	}
	id := uuid.New().String()
	payload := snappy.Encode(nil, raw)

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO routing_snapshots (snapshot_id, container, range_count, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, container, len(m.ranges), payload, s.now().UnixNano())
	if err != nil {
		return "", pkerrors.NewStorageError(pkerrors.CodeSnapshotWrite,
			fmt.Sprintf("failed to save snapshot for %s", container), err)
	}
	s.logger.Debug("saved routing map snapshot",
		zap.String("container", container),
		zap.String("snapshot", id),
		zap.Int("ranges", len(m.ranges)),
		zap.Int("bytes", len(payload)))
	return id, nil
}

// Load returns the newest snapshot of container.
func (s *Store) Load(ctx context.Context, container string, opts ...Option) (*Map, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT snapshot_id, payload FROM routing_snapshots
		WHERE container = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1`, container)
	return s.scanSnapshot(row, container, opts)
}

// LoadByID returns the snapshot with the given id.
func (s *Store) LoadByID(ctx context.Context, snapshotID string, opts ...Option) (*Map, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT snapshot_id, payload FROM routing_snapshots
		WHERE snapshot_id = ?`, snapshotID)
	return s.scanSnapshot(row, snapshotID, opts)
}

func (s *Store) scanSnapshot(row *sql.Row, what string, opts []Option) (*Map, error) {
	var id string
	var payload []byte
	if err := row.Scan(&id, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, pkerrors.NewStorageError(pkerrors.CodeSnapshotNotFound,
				fmt.Sprintf("no routing map snapshot for %s", what), err)
		}
		return nil, pkerrors.NewStorageError(pkerrors.CodeSnapshotRead,
			fmt.Sprintf("failed to read snapshot for %s", what), err)
	}

	raw, err := snappy.Decode(nil, payload)
	if err != nil {
		return nil, pkerrors.NewCorruption(pkerrors.CodeTruncatedInput,
			fmt.Sprintf("snapshot %s payload is not valid snappy data", id), err)
	}
	ranges, err := ParseRangesJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	return New(ranges, append([]Option{WithLogger(s.logger)}, opts...)...)
}

// List returns the snapshots of container, newest first.
func (s *Store) List(ctx context.Context, container string) ([]SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT snapshot_id, container, range_count, created_at FROM routing_snapshots
		WHERE container = ?
		ORDER BY created_at DESC, rowid DESC`, container)
	if err != nil {
		return nil, pkerrors.NewStorageError(pkerrors.CodeSnapshotRead,
			fmt.Sprintf("failed to list snapshots for %s", container), err)
	}
	defer rows.Close()

	var infos []SnapshotInfo
	for rows.Next() {
		var info SnapshotInfo
		var createdAt int64
		if err := rows.Scan(&info.ID, &info.Container, &info.RangeCount, &createdAt); err != nil {
			return nil, pkerrors.NewStorageError(pkerrors.CodeSnapshotRead, "failed to scan snapshot row", err)
		}
		info.CreatedAt = time.Unix(0, createdAt)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, pkerrors.NewStorageError(pkerrors.CodeSnapshotRead, "failed to iterate snapshot rows", err)
	}
	return infos, nil
}

// Prune deletes all but the newest keep snapshots of container and returns
// how many were removed.
func (s *Store) Prune(ctx context.Context, container string, keep int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM routing_snapshots
		WHERE container = ? AND snapshot_id NOT IN (
			SELECT snapshot_id FROM routing_snapshots
			WHERE container = ?
			ORDER BY created_at DESC, rowid DESC
			LIMIT ?)`, container, container, keep)
	if err != nil {
		return 0, pkerrors.NewStorageError(pkerrors.CodeSnapshotWrite,
			fmt.Sprintf("failed to prune snapshots for %s", container), err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
