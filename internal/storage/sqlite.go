package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/willi-kappler/iridium-weatherstation/internal/logging"
	"github.com/willi-kappler/iridium-weatherstation/internal/protocol"
)

// ErrNotFound is returned by the Latest queries when a station has no rows
var ErrNotFound = errors.New("no records found")

// Config holds the parameters for opening a Store.
type Config struct {
	// Path is the SQLite database file. The parent directory must exist.
	// Use ":memory:" only together with PoolSize 1.
	Path string

	// PoolSize is the number of pooled connections. Defaults to 4.
	PoolSize int
}

// Store persists decoded records in SQLite. It implements Sink.
//
// Records are keyed by station and logger timestamp, so a logger that
// re-sends the same data replaces the existing rows instead of
// duplicating them.
type Store struct {
	pool *sqlitex.Pool
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS logger_status (
	station         TEXT    NOT NULL,
	timestamp       INTEGER NOT NULL,
	solar_battery   REAL,
	lithium_battery REAL,
	wind_diag       REAL,
	cf_card         INTEGER NOT NULL,
	received_at     INTEGER NOT NULL,
	PRIMARY KEY (station, timestamp)
);

CREATE TABLE IF NOT EXISTS weather_data (
	station               TEXT    NOT NULL,
	timestamp             INTEGER NOT NULL,
	air_temperature       REAL,
	air_relative_humidity REAL,
	solar_radiation       REAL,
	soil_water_content    REAL,
	soil_temperature      REAL,
	wind_speed            REAL,
	wind_max              REAL,
	wind_direction        REAL,
	precipitation         REAL,
	air_pressure          REAL,
	received_at           INTEGER NOT NULL,
	PRIMARY KEY (station, timestamp)
);
`

// Open creates the connection pool, applies pragmas to every connection
// and creates the tables if needed.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("storage: Path is required")
	}

	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 4
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s: %w", cfg.Path, err)
	}

	s := &Store{pool: pool, path: cfg.Path}

	if err := s.migrate(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	logging.Info("Database opened",
		zap.String("path", cfg.Path),
		zap.Int("pool_size", poolSize),
	)

	return s, nil
}

// prepareConnection runs once per pooled connection on first use.
func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}

	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("storage: %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("storage: take: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("storage: creating schema: %w", err)
	}
	return nil
}

// Close closes all connections in the pool.
func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("storage: closing %s: %w", s.path, err)
	}
	return nil
}

// Store implements Sink.
func (s *Store) Store(ctx context.Context, station string, rec protocol.Record) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("storage: take: %w", err)
	}
	defer s.pool.Put(conn)

	return insert(conn, station, rec, time.Now().Unix())
}

// StoreAll writes a batch of records in a single transaction. Replaying an
// archive uses this to avoid one fsync per record.
func (s *Store) StoreAll(ctx context.Context, station string, records []protocol.Record) (err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("storage: take: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("storage: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	receivedAt := time.Now().Unix()
	for _, rec := range records {
		if err = insert(conn, station, rec, receivedAt); err != nil {
			return err
		}
	}
	return nil
}

func insert(conn *sqlite.Conn, station string, rec protocol.Record, receivedAt int64) error {
	var err error

	switch r := rec.(type) {
	case *protocol.LoggerStatus:
		err = sqlitex.Execute(conn, `INSERT OR REPLACE INTO logger_status
			(station, timestamp, solar_battery, lithium_battery, wind_diag, cf_card, received_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
			Args: []any{
				station,
				r.Timestamp.Unix(),
				nullable(r.SolarBattery),
				nullable(r.LithiumBattery),
				nullable(r.WindDiag),
				int64(r.CFCard),
				receivedAt,
			},
		})
	case *protocol.WeatherSample:
		args := make([]any, 0, 3+protocol.WeatherFieldCount)
		args = append(args, station, r.Timestamp.Unix())
		for _, v := range r.Fields() {
			args = append(args, nullable(v))
		}
		args = append(args, receivedAt)

		err = sqlitex.Execute(conn, `INSERT OR REPLACE INTO weather_data
			(station, timestamp, air_temperature, air_relative_humidity, solar_radiation,
			 soil_water_content, soil_temperature, wind_speed, wind_max, wind_direction,
			 precipitation, air_pressure, received_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{Args: args})
	default:
		return fmt.Errorf("storage: unsupported record type %T", rec)
	}

	if err != nil {
		return fmt.Errorf("storage: insert %s for %s: %w", rec.Kind(), station, err)
	}
	return nil
}

// Stations lists every station with at least one stored record.
func (s *Store) Stations(ctx context.Context) ([]string, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: take: %w", err)
	}
	defer s.pool.Put(conn)

	var stations []string
	err = sqlitex.Execute(conn, `SELECT station FROM logger_status
		UNION SELECT station FROM weather_data ORDER BY station`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			stations = append(stations, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list stations: %w", err)
	}
	return stations, nil
}

// LatestLoggerStatus returns the newest logger status of a station.
func (s *Store) LatestLoggerStatus(ctx context.Context, station string) (*protocol.LoggerStatus, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage: take: %w", err)
	}
	defer s.pool.Put(conn)

	var status *protocol.LoggerStatus
	err = sqlitex.Execute(conn, `SELECT timestamp, solar_battery, lithium_battery, wind_diag, cf_card
		FROM logger_status WHERE station = ? ORDER BY timestamp DESC LIMIT 1`, &sqlitex.ExecOptions{
		Args: []any{station},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			status = &protocol.LoggerStatus{
				Timestamp:      time.Unix(stmt.ColumnInt64(0), 0).UTC(),
				SolarBattery:   columnFloat(stmt, 1),
				LithiumBattery: columnFloat(stmt, 2),
				WindDiag:       columnFloat(stmt, 3),
				CFCard:         uint32(stmt.ColumnInt64(4)),
			}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("storage: latest logger status: %w", err)
	}
	if status == nil {
		return nil, ErrNotFound
	}
	return status, nil
}

// LatestWeather returns the newest weather sample of a station.
func (s *Store) LatestWeather(ctx context.Context, station string) (*protocol.WeatherSample, error) {
	samples, err := s.queryWeather(ctx, weatherColumns+` WHERE station = ?
		ORDER BY timestamp DESC LIMIT 1`, station)
	if err != nil {
		return nil, fmt.Errorf("storage: latest weather: %w", err)
	}
	if len(samples) == 0 {
		return nil, ErrNotFound
	}
	return samples[0], nil
}

// WeatherRange returns the samples of a station with from <= timestamp < to,
// oldest first.
func (s *Store) WeatherRange(ctx context.Context, station string, from, to time.Time) ([]*protocol.WeatherSample, error) {
	samples, err := s.queryWeather(ctx, weatherColumns+` WHERE station = ?
		AND timestamp >= ? AND timestamp < ? ORDER BY timestamp`, station, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("storage: weather range: %w", err)
	}
	return samples, nil
}

const weatherColumns = `SELECT timestamp, air_temperature, air_relative_humidity, solar_radiation,
	soil_water_content, soil_temperature, wind_speed, wind_max, wind_direction,
	precipitation, air_pressure FROM weather_data`

func (s *Store) queryWeather(ctx context.Context, query string, args ...any) ([]*protocol.WeatherSample, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("take: %w", err)
	}
	defer s.pool.Put(conn)

	var samples []*protocol.WeatherSample
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			var fields [protocol.WeatherFieldCount]float64
			for i := range fields {
				fields[i] = columnFloat(stmt, i+1)
			}
			sample := &protocol.WeatherSample{
				Timestamp: time.Unix(stmt.ColumnInt64(0), 0).UTC(),
			}
			sample.SetFields(fields)
			samples = append(samples, sample)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// nullable maps NaN to NULL, which SQLite would do anyway. Infinities are
// kept as REAL values.
func nullable(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func columnFloat(stmt *sqlite.Stmt, col int) float64 {
	if stmt.ColumnType(col) == sqlite.TypeNull {
		return math.NaN()
	}
	return stmt.ColumnFloat(col)
}
