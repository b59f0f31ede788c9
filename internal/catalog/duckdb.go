package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"

	"github.com/labstack/gommon/log"
	"github.com/marcboeker/go-duckdb"

	"github.com/mlexplainer/backend/internal/logging"
	"github.com/mlexplainer/backend/internal/models"
)

// DuckOptions configures a DuckStore.
type DuckOptions struct {
	Path        string
	MemoryLimit string
	Threads     int
}

// DuckStore persists records as msgpack payloads in a DuckDB file so the
// catalog survives restarts.
type DuckStore struct {
	db  *sql.DB
	log *log.Logger

	// serializes the existence check and insert of Put*
	writeMu sync.Mutex
}

var _ Store = (*DuckStore)(nil)

var schema = []string{
	`CREATE SEQUENCE IF NOT EXISTS catalog_seq`,
	`CREATE TABLE IF NOT EXISTS uploads (
		id         VARCHAR PRIMARY KEY,
		seq        BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		payload    BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS analyses (
		id         VARCHAR PRIMARY KEY,
		upload_id  VARCHAR NOT NULL,
		seq        BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		payload    BLOB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_analyses_upload ON analyses(upload_id)`,
}

// NewDuckStore opens (or creates) the catalog database at opts.Path.
func NewDuckStore(opts DuckOptions) (*DuckStore, error) {
	logger := logging.New("DuckStore")
	if opts.MemoryLimit == "" {
		opts.MemoryLimit = "512MB"
	}
	if opts.Threads <= 0 {
		opts.Threads = 2
	}
	logger.Infof("Opening catalog database at: %s", opts.Path)

	connector, err := duckdb.NewConnector(opts.Path, func(execer driver.ExecerContext) error {
		pragmas := []string{
			fmt.Sprintf("PRAGMA memory_limit='%s'", opts.MemoryLimit),
			fmt.Sprintf("PRAGMA threads=%d", opts.Threads),
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				logger.Errorf("Pragma error: %v", err)
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)
	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create catalog tables: %w", err)
		}
	}

	return &DuckStore{db: db, log: logger}, nil
}

func (s *DuckStore) PutUpload(ctx context.Context, rec *models.UploadRecord) error {
	payload, err := encode(rec)
	if err != nil {
		return fmt.Errorf("encoding upload %s: %w", rec.ID, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ensureAbsent(ctx, "uploads", rec.ID); err != nil {
		return fmt.Errorf("upload %s: %w", rec.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO uploads (id, seq, created_at, payload) VALUES (?, nextval('catalog_seq'), ?, ?)`,
		rec.ID, rec.UploadedAt.UTC(), payload)
	if err != nil {
		return fmt.Errorf("inserting upload %s: %w", rec.ID, err)
	}
	return nil
}

func (s *DuckStore) GetUpload(ctx context.Context, id string) (*models.UploadRecord, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM uploads WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("upload %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying upload %s: %w", id, err)
	}

	rec := &models.UploadRecord{}
	if err := decode(payload, rec); err != nil {
		return nil, fmt.Errorf("decoding upload %s: %w", id, err)
	}
	return rec, nil
}

func (s *DuckStore) ListUploads(ctx context.Context, limit int) ([]*models.UploadRecord, error) {
	query := `SELECT payload FROM uploads ORDER BY seq DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing uploads: %w", err)
	}
	defer rows.Close()

	out := []*models.UploadRecord{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning upload: %w", err)
		}
		rec := &models.UploadRecord{}
		if err := decode(payload, rec); err != nil {
			return nil, fmt.Errorf("decoding upload: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *DuckStore) PutAnalysis(ctx context.Context, res *models.AnalysisResult) error {
	payload, err := encode(res)
	if err != nil {
		return fmt.Errorf("encoding analysis %s: %w", res.ID, err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.ensureAbsent(ctx, "analyses", res.ID); err != nil {
		return fmt.Errorf("analysis %s: %w", res.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, upload_id, seq, created_at, payload) VALUES (?, ?, nextval('catalog_seq'), ?, ?)`,
		res.ID, res.UploadID, res.AnalyzedAt.UTC(), payload)
	if err != nil {
		return fmt.Errorf("inserting analysis %s: %w", res.ID, err)
	}
	return nil
}

func (s *DuckStore) GetAnalysis(ctx context.Context, id string) (*models.AnalysisResult, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM analyses WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying analysis %s: %w", id, err)
	}

	res := &models.AnalysisResult{}
	if err := decode(payload, res); err != nil {
		return nil, fmt.Errorf("decoding analysis %s: %w", id, err)
	}
	return res, nil
}

func (s *DuckStore) ListAnalyses(ctx context.Context, uploadID string) ([]*models.AnalysisResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM analyses WHERE upload_id = ? ORDER BY seq DESC`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	out := []*models.AnalysisResult{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		res := &models.AnalysisResult{}
		if err := decode(payload, res); err != nil {
			return nil, fmt.Errorf("decoding analysis: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *DuckStore) Close() error {
	s.log.Info("Closing catalog database")
	return s.db.Close()
}

func (s *DuckStore) ensureAbsent(ctx context.Context, tbl, id string) error {
	var n int
	// tbl is one of the two constant table names above.
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tbl+" WHERE id = ?", id).Scan(&n); err != nil {
		return fmt.Errorf("checking existing record: %w", err)
	}
	if n > 0 {
		return ErrExists
	}
	return nil
}
