package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/pixdex/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/pixdex/internal/core/domain"
	"github.com/custodia-labs/pixdex/internal/core/ports/driven"
	"github.com/custodia-labs/pixdex/internal/logger"
)

// Ensure Store implements the interfaces.
var (
	_ driven.EmbeddingStore = (*Store)(nil)
	_ driven.KeywordStore   = (*Store)(nil)
	_ driven.IndexStore     = (*Store)(nil)
)

// Meta keys in store_meta.
const (
	metaStoreGeneration = "store_generation"
	metaIndexGeneration = "index_generation"
	metaIndexBits       = "index_bits"
)

// Store is the SQLite-backed persistent store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens the SQLite store in dataDir, creating and migrating it as needed.
// If dataDir is empty, defaults to ~/.pixdex/data. Opening is idempotent.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("%w: getting home directory: %v", domain.ErrStorageUnavailable, err)
		}
		dataDir = filepath.Join(home, ".pixdex", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating data directory: %v", domain.ErrStorageUnavailable, err)
	}

	dbPath := filepath.Join(dataDir, "pixdex.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", domain.ErrStorageUnavailable, err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %v", domain.ErrStorageUnavailable, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations, each in its own transaction.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// ioError marks err as a storage I/O failure during op.
func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrStorageIO, op, err)
}

// ==================== Embedding Store ====================

// Has reports whether a record exists for uri.
func (s *Store) Has(ctx context.Context, uri string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM images WHERE filepath = ?", uri).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, ioError("checking record", err)
	}
	return true, nil
}

// Put upserts a record and advances the store generation.
// The similarity index is left untouched.
func (s *Store) Put(ctx context.Context, record domain.EmbeddingRecord) error {
	if record.URI == "" {
		return fmt.Errorf("%w: empty uri", domain.ErrInvalidInput)
	}

	keywordsJSON, err := json.Marshal(domain.NormaliseKeywords(record.Keywords))
	if err != nil {
		return fmt.Errorf("marshalling keywords: %w", err)
	}
	embedding := record.Embedding
	if embedding == nil {
		embedding = []float32{}
	}
	embeddingJSON, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("marshalling embedding: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ioError("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO images (filepath, keywords, embeddings)
		VALUES (?, ?, ?)
		ON CONFLICT(filepath) DO UPDATE SET
			keywords = excluded.keywords,
			embeddings = excluded.embeddings
	`, record.URI, string(keywordsJSON), string(embeddingJSON))
	if err != nil {
		return ioError("saving record", err)
	}
	if err := bumpGeneration(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return ioError("committing transaction", err)
	}
	return nil
}

// Get retrieves the record for uri.
func (s *Store) Get(ctx context.Context, uri string) (*domain.EmbeddingRecord, error) {
	var keywordsJSON, embeddingJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT keywords, embeddings FROM images WHERE filepath = ?", uri,
	).Scan(&keywordsJSON, &embeddingJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, ioError("getting record", err)
	}
	return decodeRecord(uri, keywordsJSON, embeddingJSON)
}

// List enumerates all records in URI order. Each call re-queries the table.
func (s *Store) List(ctx context.Context) iter.Seq2[domain.EmbeddingRecord, error] {
	return func(yield func(domain.EmbeddingRecord, error) bool) {
		rows, err := s.db.QueryContext(ctx,
			"SELECT filepath, keywords, embeddings FROM images ORDER BY filepath")
		if err != nil {
			yield(domain.EmbeddingRecord{}, ioError("listing records", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var uri, keywordsJSON, embeddingJSON string
			if err := rows.Scan(&uri, &keywordsJSON, &embeddingJSON); err != nil {
				yield(domain.EmbeddingRecord{}, ioError("scanning record", err))
				return
			}
			record, err := decodeRecord(uri, keywordsJSON, embeddingJSON)
			if err != nil {
				if !yield(domain.EmbeddingRecord{URI: uri}, err) {
					return
				}
				continue
			}
			if !yield(*record, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.EmbeddingRecord{}, ioError("iterating records", err))
		}
	}
}

// Delete removes a record and its index entry in one transaction.
func (s *Store) Delete(ctx context.Context, uri string) error {
	_, err := s.deleteRecords(ctx, []string{uri})
	return err
}

// Reconcile deletes every record whose URI is not in current.
// Either all stale records are removed or none are.
func (s *Store) Reconcile(ctx context.Context, current map[string]struct{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT filepath FROM images ORDER BY filepath")
	if err != nil {
		return nil, ioError("listing records", err)
	}

	var stale []string
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			rows.Close()
			return nil, ioError("scanning record", err)
		}
		if _, ok := current[uri]; !ok {
			stale = append(stale, uri)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, ioError("iterating records", err)
	}
	rows.Close()

	if len(stale) == 0 {
		return nil, nil
	}
	return s.deleteRecords(ctx, stale)
}

// deleteRecords removes uris and their index entries in one transaction and
// returns the URIs that existed. When the index was current before the delete
// it stays current: the cascade removes its entries in the same transaction.
func (s *Store) deleteRecords(ctx context.Context, uris []string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, ioError("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	meta, storeGen, err := readMeta(ctx, tx)
	if err != nil {
		return nil, err
	}
	fresh := meta.Bits > 0 && meta.Generation == storeGen

	stmt, err := tx.PrepareContext(ctx, "DELETE FROM images WHERE filepath = ?")
	if err != nil {
		return nil, ioError("preparing delete", err)
	}
	defer stmt.Close()

	var removed []string
	for _, uri := range uris {
		res, err := stmt.ExecContext(ctx, uri)
		if err != nil {
			return nil, ioError("deleting record", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			removed = append(removed, uri)
		}
	}

	if len(removed) == 0 {
		return nil, nil
	}
	if err := bumpGeneration(ctx, tx); err != nil {
		return nil, err
	}
	if fresh {
		if err := setMeta(ctx, tx, metaIndexGeneration, int64(storeGen+1)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, ioError("committing transaction", err)
	}
	return removed, nil
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM images").Scan(&n); err != nil {
		return 0, ioError("counting records", err)
	}
	return n, nil
}

// Generation returns the store mutation counter.
func (s *Store) Generation(ctx context.Context) (uint64, error) {
	v, err := getMeta(ctx, s.db, metaStoreGeneration)
	if err != nil {
		return 0, err
	}
	return uint64(v), nil
}

func decodeRecord(uri, keywordsJSON, embeddingJSON string) (*domain.EmbeddingRecord, error) {
	record := &domain.EmbeddingRecord{URI: uri}
	if err := json.Unmarshal([]byte(keywordsJSON), &record.Keywords); err != nil {
		return nil, fmt.Errorf("%w: %s: keywords: %v", domain.ErrMalformedRecord, uri, err)
	}
	if err := json.Unmarshal([]byte(embeddingJSON), &record.Embedding); err != nil {
		return nil, fmt.Errorf("%w: %s: embeddings: %v", domain.ErrMalformedRecord, uri, err)
	}
	if record.Keywords == nil {
		record.Keywords = []string{}
	}
	return record, nil
}

// ==================== Keyword Store ====================

// SearchKeyword returns URIs tagged with keyword, sorted.
// Rows whose keywords column is not valid JSON are ignored.
func (s *Store) SearchKeyword(ctx context.Context, keyword string) ([]string, error) {
	normalised := domain.NormaliseKeywords([]string{keyword})
	if len(normalised) == 0 {
		return []string{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT i.filepath
		FROM images i, json_each(CASE WHEN json_valid(i.keywords) THEN i.keywords ELSE '[]' END) k
		WHERE k.value = ?
		ORDER BY i.filepath
	`, normalised[0])
	if err != nil {
		return nil, ioError("searching keywords", err)
	}
	defer rows.Close()

	uris := []string{}
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, ioError("scanning keyword match", err)
		}
		uris = append(uris, uri)
	}
	if err := rows.Err(); err != nil {
		return nil, ioError("iterating keyword matches", err)
	}
	return uris, nil
}

// Keywords returns the tags of one record.
func (s *Store) Keywords(ctx context.Context, uri string) ([]string, error) {
	record, err := s.Get(ctx, uri)
	if err != nil {
		return nil, err
	}
	return record.Keywords, nil
}

// ==================== Index Store ====================

// ReplaceAll swaps the index contents and metadata in one transaction.
func (s *Store) ReplaceAll(ctx context.Context, entries []domain.IndexEntry, meta domain.IndexMeta) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ioError("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM embedding_index"); err != nil {
		return ioError("clearing index", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO embedding_index (filepath, hash, embeddings) VALUES (?, ?, ?)")
	if err != nil {
		return ioError("preparing insert", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.URI, e.Bucket, float32SliceToBytes(e.Embedding)); err != nil {
			return ioError("saving index entry", err)
		}
	}

	if err := setMeta(ctx, tx, metaIndexGeneration, int64(meta.Generation)); err != nil {
		return err
	}
	if err := setMeta(ctx, tx, metaIndexBits, int64(meta.Bits)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return ioError("committing transaction", err)
	}
	return nil
}

// UpsertEntry writes one index entry. The record for entry.URI must exist.
func (s *Store) UpsertEntry(ctx context.Context, entry domain.IndexEntry) error {
	if entry.URI == "" {
		return fmt.Errorf("%w: empty uri", domain.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embedding_index (filepath, hash, embeddings)
		VALUES (?, ?, ?)
		ON CONFLICT(filepath) DO UPDATE SET
			hash = excluded.hash,
			embeddings = excluded.embeddings
	`, entry.URI, entry.Bucket, float32SliceToBytes(entry.Embedding))
	if err != nil {
		return ioError("saving index entry", err)
	}
	return nil
}

// RemoveEntry deletes one index entry.
func (s *Store) RemoveEntry(ctx context.Context, uri string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM embedding_index WHERE filepath = ?", uri); err != nil {
		return ioError("deleting index entry", err)
	}
	return nil
}

// Entry returns one index entry.
func (s *Store) Entry(ctx context.Context, uri string) (*domain.IndexEntry, error) {
	var (
		bucket string
		blob   []byte
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT hash, embeddings FROM embedding_index WHERE filepath = ?", uri,
	).Scan(&bucket, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, ioError("getting index entry", err)
	}
	embedding, err := bytesToFloat32Slice(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrMalformedRecord, uri, err)
	}
	return &domain.IndexEntry{URI: uri, Bucket: bucket, Embedding: embedding}, nil
}

// Bucket returns every entry with bucket code, in URI order.
// Entries with a corrupt embedding blob are skipped.
func (s *Store) Bucket(ctx context.Context, code string) ([]domain.IndexEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT filepath, embeddings FROM embedding_index WHERE hash = ? ORDER BY filepath", code)
	if err != nil {
		return nil, ioError("loading bucket", err)
	}
	defer rows.Close()

	var entries []domain.IndexEntry
	for rows.Next() {
		var (
			uri  string
			blob []byte
		)
		if err := rows.Scan(&uri, &blob); err != nil {
			return nil, ioError("scanning index entry", err)
		}
		embedding, err := bytesToFloat32Slice(blob)
		if err != nil {
			logger.Warn("Skipping index entry %s: %v", uri, err)
			continue
		}
		entries = append(entries, domain.IndexEntry{URI: uri, Bucket: code, Embedding: embedding})
	}
	if err := rows.Err(); err != nil {
		return nil, ioError("iterating bucket", err)
	}
	return entries, nil
}

// URIs returns the set of indexed URIs.
func (s *Store) URIs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT filepath FROM embedding_index")
	if err != nil {
		return nil, ioError("listing index entries", err)
	}
	defer rows.Close()

	uris := make(map[string]struct{})
	for rows.Next() {
		var uri string
		if err := rows.Scan(&uri); err != nil {
			return nil, ioError("scanning index entry", err)
		}
		uris[uri] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, ioError("iterating index entries", err)
	}
	return uris, nil
}

// Meta returns the index generation, bit width and entry count.
func (s *Store) Meta(ctx context.Context) (domain.IndexMeta, error) {
	meta, _, err := readMeta(ctx, s.db)
	return meta, err
}

// SetGeneration records the store generation the index reflects.
func (s *Store) SetGeneration(ctx context.Context, generation uint64) error {
	return setMeta(ctx, s.db, metaIndexGeneration, int64(generation))
}

// ==================== Helpers ====================

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getMeta(ctx context.Context, q querier, key string) (int64, error) {
	var v int64
	err := q.QueryRowContext(ctx, "SELECT value FROM store_meta WHERE key = ?", key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, ioError("reading "+key, err)
	}
	return v, nil
}

func setMeta(ctx context.Context, q querier, key string, value int64) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO store_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return ioError("writing "+key, err)
	}
	return nil
}

func bumpGeneration(ctx context.Context, q querier) error {
	_, err := q.ExecContext(ctx,
		"UPDATE store_meta SET value = value + 1 WHERE key = ?", metaStoreGeneration)
	if err != nil {
		return ioError("advancing generation", err)
	}
	return nil
}

// readMeta returns the index metadata and the current store generation.
func readMeta(ctx context.Context, q querier) (domain.IndexMeta, uint64, error) {
	indexGen, err := getMeta(ctx, q, metaIndexGeneration)
	if err != nil {
		return domain.IndexMeta{}, 0, err
	}
	bits, err := getMeta(ctx, q, metaIndexBits)
	if err != nil {
		return domain.IndexMeta{}, 0, err
	}
	storeGen, err := getMeta(ctx, q, metaStoreGeneration)
	if err != nil {
		return domain.IndexMeta{}, 0, err
	}
	var count int
	if err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM embedding_index").Scan(&count); err != nil {
		return domain.IndexMeta{}, 0, ioError("counting index entries", err)
	}
	return domain.IndexMeta{
		Generation: uint64(indexGen),
		Bits:       int(bits),
		Count:      count,
	}, uint64(storeGen), nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(data))
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats, nil
}
