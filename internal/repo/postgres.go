package repo

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/google/uuid"

	"github.com/fetcharr/fetcharr/internal/data"
)

// PostgresRepo is the durable alternative to the file-snapshot deployment:
// every write lands in its own row, so Persist is a no-op.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(dsn string) (*PostgresRepo, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	r := &PostgresRepo{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// NewPostgresRepoFromEnv constructs a DSN from component env vars.
// Recognized (with defaults): POSTGRES_HOST (postgres), POSTGRES_PORT
// (5432), POSTGRES_DB (fetcharr), POSTGRES_USER (fetcharr),
// POSTGRES_PASSWORD (empty), POSTGRES_SSLMODE (disable).
func NewPostgresRepoFromEnv() (*PostgresRepo, error) {
	host := getenv("POSTGRES_HOST", "postgres")
	port := getenv("POSTGRES_PORT", "5432")
	db := getenv("POSTGRES_DB", "fetcharr")
	user := getenv("POSTGRES_USER", "fetcharr")
	pass := getenv("POSTGRES_PASSWORD", "")
	ssl := getenv("POSTGRES_SSLMODE", "disable")

	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(user, pass),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	q := url.Values{}
	q.Set("sslmode", ssl)
	u.RawQuery = q.Encode()
	return NewPostgresRepo(u.String())
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func (r *PostgresRepo) Close() error { return r.db.Close() }

func (r *PostgresRepo) ensureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS downloads (
    id UUID PRIMARY KEY,
    info_hash TEXT NOT NULL DEFAULT '',
    media_id TEXT NOT NULL DEFAULT '',
    media_type TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL,
    status TEXT NOT NULL,
    progress INT NOT NULL DEFAULT 0,
    download_speed BIGINT NOT NULL DEFAULT 0,
    upload_speed BIGINT NOT NULL DEFAULT 0,
    size BIGINT NOT NULL DEFAULT 0,
    downloaded BIGINT NOT NULL DEFAULT 0,
    eta BIGINT,
    save_path TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ,
    error TEXT NOT NULL DEFAULT ''
);
`)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
CREATE UNIQUE INDEX IF NOT EXISTS downloads_info_hash_idx
    ON downloads (info_hash) WHERE info_hash <> '';
`)
	return err
}

const downloadColumns = `id,info_hash,media_id,media_type,name,status,progress,download_speed,upload_speed,size,downloaded,eta,save_path,created_at,completed_at,error`

func (r *PostgresRepo) List(ctx context.Context) (data.Downloads, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+downloadColumns+` FROM downloads ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out data.Downloads
	for rows.Next() {
		d, err := scanDownload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (*data.Download, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+downloadColumns+` FROM downloads WHERE id=$1`, id)
	d, err := scanDownload(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *PostgresRepo) GetByHash(ctx context.Context, hash string) (*data.Download, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+downloadColumns+` FROM downloads WHERE info_hash=$1`, strings.ToLower(hash))
	d, err := scanDownload(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

func (r *PostgresRepo) Add(ctx context.Context, d *data.Download) (*data.Download, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO downloads (`+downloadColumns+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		d.ID, strings.ToLower(d.InfoHash), d.MediaID, d.MediaType, d.Name, string(d.Status),
		d.Progress, d.DownloadSpeed, d.UploadSpeed, d.Size, d.Downloaded, nullInt64(d.ETA),
		d.SavePath, d.CreatedAt, nullTime(d.CompletedAt), d.Error)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, d.ID)
}

func (r *PostgresRepo) Update(ctx context.Context, id string, mutate func(*data.Download) error) (*data.Download, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+downloadColumns+` FROM downloads WHERE id=$1 FOR UPDATE`, id)
	cur, err := scanDownload(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, data.ErrNotFound
		}
		return nil, err
	}

	next := cur.Clone()
	if mutate != nil {
		if err := mutate(next); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `UPDATE downloads SET info_hash=$1, media_id=$2, media_type=$3, name=$4, status=$5, progress=$6, download_speed=$7, upload_speed=$8, size=$9, downloaded=$10, eta=$11, save_path=$12, completed_at=$13, error=$14 WHERE id=$15`,
		strings.ToLower(next.InfoHash), next.MediaID, next.MediaType, next.Name, string(next.Status),
		next.Progress, next.DownloadSpeed, next.UploadSpeed, next.Size, next.Downloaded,
		nullInt64(next.ETA), next.SavePath, nullTime(next.CompletedAt), next.Error, id); err != nil {
		if isUniqueViolation(err) {
			return nil, data.ErrHashBound
		}
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	next.InfoHash = strings.ToLower(next.InfoHash)
	return next, nil
}

func (r *PostgresRepo) BindHash(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE downloads SET info_hash=$1 WHERE id=$2`, strings.ToLower(hash), id)
	if err != nil {
		if isUniqueViolation(err) {
			return data.ErrHashBound
		}
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return data.ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM downloads WHERE id=$1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return data.ErrNotFound
	}
	return nil
}

// Persist is a no-op: every write above is already durable.
func (r *PostgresRepo) Persist(ctx context.Context) error { return nil }

type rowScanner interface{ Scan(dest ...any) error }

func scanDownload(rs rowScanner) (*data.Download, error) {
	var (
		d         data.Download
		status    string
		eta       sql.NullInt64
		completed sql.NullTime
	)
	if err := rs.Scan(&d.ID, &d.InfoHash, &d.MediaID, &d.MediaType, &d.Name, &status,
		&d.Progress, &d.DownloadSpeed, &d.UploadSpeed, &d.Size, &d.Downloaded, &eta,
		&d.SavePath, &d.CreatedAt, &completed, &d.Error); err != nil {
		return nil, err
	}
	d.Status = data.DownloadStatus(status)
	if eta.Valid {
		d.ETA = &eta.Int64
	}
	if completed.Valid {
		d.CompletedAt = &completed.Time
	}
	return &d, nil
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key value") || strings.Contains(msg, "unique constraint")
}
