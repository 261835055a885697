package sink

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/javier/questdb-adc-planes-simulator/telemetry"
)

var rowColumns = []string{
	ColumnPlaneID,
	ColumnLatitude,
	ColumnLongitude,
	ColumnAltitude,
	ColumnGroundSpeed,
	ColumnHeading,
	ColumnPitch,
	ColumnRoll,
	ColumnAngleOfAttack,
	ColumnOutsideAirTemp,
	ColumnTimestamp,
}

// A PostgresSink writes over the PostgreSQL wire protocol. Each batch goes
// out as a single pgx.Batch, which the server runs as one implicit
// transaction.
type PostgresSink struct {
	pool *pgxpool.Pool

	lock    sync.Mutex
	created map[string]bool
}

func NewPostgresSink(ctx context.Context, connString string) (*PostgresSink, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConf, err)
	}

	pool, err := pgxpool.ConnectConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", config.ConnConfig.Host, err)
	}

	return &PostgresSink{pool: pool, created: make(map[string]bool)}, nil
}

// CreateTableStatement is the QuestDB DDL for a telemetry table
func CreateTableStatement(table string) string {
	return fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %s (`+
			`%s SYMBOL, %s DOUBLE, %s DOUBLE, %s DOUBLE, %s DOUBLE, %s DOUBLE, `+
			`%s DOUBLE, %s DOUBLE, %s DOUBLE, %s DOUBLE, %s TIMESTAMP`+
			`) TIMESTAMP(%s) PARTITION BY DAY WAL`,
		pgx.Identifier{table}.Sanitize(),
		ColumnPlaneID, ColumnLatitude, ColumnLongitude, ColumnAltitude, ColumnGroundSpeed,
		ColumnHeading, ColumnPitch, ColumnRoll, ColumnAngleOfAttack, ColumnOutsideAirTemp,
		ColumnTimestamp, ColumnTimestamp,
	)
}

// InsertStatement is the parameterized single-row insert
func InsertStatement(table string) string {
	placeholders := make([]string, len(rowColumns))
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{table}.Sanitize(),
		strings.Join(rowColumns, ", "),
		strings.Join(placeholders, ", "),
	)
}

func rowArgs(row telemetry.Row) []interface{} {
	return []interface{}{
		row.PlaneID.String(),
		row.Latitude,
		row.Longitude,
		row.Altitude,
		row.GroundSpeed,
		row.Heading,
		row.Pitch,
		row.Roll,
		row.AngleOfAttack,
		row.OutsideAirTemp,
		row.Timestamp.UTC(),
	}
}

func (s *PostgresSink) ensureTable(ctx context.Context, table string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.created[table] {
		return nil
	}

	if _, err := s.pool.Exec(ctx, CreateTableStatement(table)); err != nil {
		return fmt.Errorf("failed to create table %s: %w", table, err)
	}

	s.created[table] = true
	return nil
}

func (s *PostgresSink) Send(ctx context.Context, table string, batch telemetry.Batch) error {
	if err := s.ensureTable(ctx, table); err != nil {
		return sendError(table, batch, err)
	}

	insert := InsertStatement(table)

	queries := &pgx.Batch{}
	for _, row := range batch.Rows {
		queries.Queue(insert, rowArgs(row)...)
	}

	results := s.pool.SendBatch(ctx, queries)
	for range batch.Rows {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return sendError(table, batch, err)
		}
	}

	if err := results.Close(); err != nil {
		return sendError(table, batch, err)
	}

	return nil
}

func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
