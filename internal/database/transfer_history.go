package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/saltyorg/transferlog/internal/schemas"
)

// DateLayout is the layout of the transfer history date column
const DateLayout = "2006-01-02 15:04:05"

// TransferHistory is one logged transfer attempt
type TransferHistory struct {
	ID           int64             `json:"id"`
	Src          string            `json:"src"`
	SrcStorage   string            `json:"src_storage,omitempty"`
	SrcFileItem  *schemas.FileItem `json:"src_fileitem,omitempty"`
	Dest         string            `json:"dest,omitempty"`
	DestStorage  string            `json:"dest_storage,omitempty"`
	DestFileItem *schemas.FileItem `json:"dest_fileitem,omitempty"`
	Mode         string            `json:"mode,omitempty"`
	Type         string            `json:"type,omitempty"`
	Category     string            `json:"category,omitempty"`
	Title        string            `json:"title,omitempty"`
	Year         string            `json:"year,omitempty"`
	TmdbID       *int              `json:"tmdbid,omitempty"`
	ImdbID       string            `json:"imdbid,omitempty"`
	TvdbID       *int              `json:"tvdbid,omitempty"`
	DoubanID     string            `json:"doubanid,omitempty"`
	Seasons      string            `json:"seasons,omitempty"`
	Episodes     string            `json:"episodes,omitempty"`
	EpisodeGroup string            `json:"episode_group,omitempty"`
	Image        string            `json:"image,omitempty"`
	Downloader   string            `json:"downloader,omitempty"`
	DownloadHash string            `json:"download_hash,omitempty"`
	Status       bool              `json:"status"`
	ErrMsg       string            `json:"errmsg,omitempty"`
	Files        []string          `json:"files,omitempty"`
	Date         string            `json:"date"`
}

// DailyCount is one bucket of the transfer statistic
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

const transferHistoryColumns = `id, src, src_storage, src_fileitem, dest, dest_storage, dest_fileitem,
	mode, type, category, title, year, tmdbid, imdbid, tvdbid, doubanid, seasons, episodes,
	episode_group, image, downloader, download_hash, status, errmsg, files, date`

// rowScanner is satisfied by both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransferHistory(scanner rowScanner) (*TransferHistory, error) {
	h := &TransferHistory{}
	var (
		srcStorage, srcItem, dest, destStorage, destItem sql.NullString
		mode, mtype, category, title, year                sql.NullString
		imdbID, doubanID, seasons, episodes               sql.NullString
		episodeGroup, image, downloader, downloadHash     sql.NullString
		errMsg, files                                     sql.NullString
		tmdbID, tvdbID                                    sql.NullInt64
	)

	if err := scanner.Scan(&h.ID, &h.Src, &srcStorage, &srcItem, &dest, &destStorage, &destItem,
		&mode, &mtype, &category, &title, &year, &tmdbID, &imdbID, &tvdbID, &doubanID, &seasons, &episodes,
		&episodeGroup, &image, &downloader, &downloadHash, &h.Status, &errMsg, &files, &h.Date); err != nil {
		return nil, err
	}

	h.SrcStorage = nullStringValue(srcStorage)
	h.Dest = nullStringValue(dest)
	h.DestStorage = nullStringValue(destStorage)
	h.Mode = nullStringValue(mode)
	h.Type = nullStringValue(mtype)
	h.Category = nullStringValue(category)
	h.Title = nullStringValue(title)
	h.Year = nullStringValue(year)
	h.TmdbID = nullInt64ToIntPtr(tmdbID)
	h.ImdbID = nullStringValue(imdbID)
	h.TvdbID = nullInt64ToIntPtr(tvdbID)
	h.DoubanID = nullStringValue(doubanID)
	h.Seasons = nullStringValue(seasons)
	h.Episodes = nullStringValue(episodes)
	h.EpisodeGroup = nullStringValue(episodeGroup)
	h.Image = nullStringValue(image)
	h.Downloader = nullStringValue(downloader)
	h.DownloadHash = nullStringValue(downloadHash)
	h.ErrMsg = nullStringValue(errMsg)

	if err := unmarshalFromNullString(srcItem, &h.SrcFileItem); err != nil {
		return nil, fmt.Errorf("failed to unmarshal src fileitem: %w", err)
	}
	if err := unmarshalFromNullString(destItem, &h.DestFileItem); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dest fileitem: %w", err)
	}
	if err := unmarshalFromNullString(files, &h.Files); err != nil {
		return nil, fmt.Errorf("failed to unmarshal files: %w", err)
	}

	return h, nil
}

// queryTransferHistoryRow runs a single-row query; a missing row yields nil, nil
func (db *DB) queryTransferHistoryRow(ctx context.Context, op, query string, args ...any) (*TransferHistory, error) {
	h, err := scanTransferHistory(db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return h, nil
}

// queryTransferHistoryRows runs a multi-row query and scans every row
func (db *DB) queryTransferHistoryRows(ctx context.Context, op, query string, args ...any) ([]*TransferHistory, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	var histories []*TransferHistory
	for rows.Next() {
		h, err := scanTransferHistory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer history: %w", err)
		}
		histories = append(histories, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	return histories, nil
}

// ========== TransferHistory CRUD ==========

// CreateTransferHistory inserts a transfer history row exactly as given.
// The caller owns the Date value; ID is filled from the insert.
func (db *DB) CreateTransferHistory(ctx context.Context, h *TransferHistory) error {
	srcItem, err := marshalToPtr(h.SrcFileItem)
	if err != nil {
		return fmt.Errorf("failed to marshal src fileitem: %w", err)
	}
	destItem, err := marshalToPtr(h.DestFileItem)
	if err != nil {
		return fmt.Errorf("failed to marshal dest fileitem: %w", err)
	}
	files, err := marshalToPtr(h.Files)
	if err != nil {
		return fmt.Errorf("failed to marshal files: %w", err)
	}

	result, err := db.ExecContext(ctx, `
		INSERT INTO transfer_history (src, src_storage, src_fileitem, dest, dest_storage, dest_fileitem,
			mode, type, category, title, year, tmdbid, imdbid, tvdbid, doubanid, seasons, episodes,
			episode_group, image, downloader, download_hash, status, errmsg, files, date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.Src, nullIfEmpty(h.SrcStorage), srcItem, nullIfEmpty(h.Dest), nullIfEmpty(h.DestStorage), destItem,
		nullIfEmpty(h.Mode), nullIfEmpty(h.Type), nullIfEmpty(h.Category), nullIfEmpty(h.Title), nullIfEmpty(h.Year),
		h.TmdbID, nullIfEmpty(h.ImdbID), h.TvdbID, nullIfEmpty(h.DoubanID), nullIfEmpty(h.Seasons), nullIfEmpty(h.Episodes),
		nullIfEmpty(h.EpisodeGroup), nullIfEmpty(h.Image), nullIfEmpty(h.Downloader), nullIfEmpty(h.DownloadHash),
		h.Status, nullIfEmpty(h.ErrMsg), files, h.Date)
	if err != nil {
		return fmt.Errorf("failed to create transfer history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	h.ID = id

	return nil
}

// GetTransferHistory retrieves a transfer history row by ID
func (db *DB) GetTransferHistory(ctx context.Context, id int64) (*TransferHistory, error) {
	return db.queryTransferHistoryRow(ctx, "get transfer history",
		`SELECT `+transferHistoryColumns+` FROM transfer_history WHERE id = ?`, id)
}

// ListTransferHistoryByTitle returns all rows with the exact title, in insertion order
func (db *DB) ListTransferHistoryByTitle(ctx context.Context, title string) ([]*TransferHistory, error) {
	return db.queryTransferHistoryRows(ctx, "list transfer history by title",
		`SELECT `+transferHistoryColumns+` FROM transfer_history WHERE title = ? ORDER BY id ASC`, title)
}

// GetTransferHistoryBySrc returns the first row for a source path.
// An empty storage leaves the storage backend unconstrained.
func (db *DB) GetTransferHistoryBySrc(ctx context.Context, src, storage string) (*TransferHistory, error) {
	return db.queryTransferHistoryRow(ctx, "get transfer history by src", `
		SELECT `+transferHistoryColumns+` FROM transfer_history
		WHERE src = ? AND (? = '' OR src_storage = ?)
		ORDER BY id ASC LIMIT 1
	`, src, storage, storage)
}

// GetTransferHistoryByDest returns the first row for a destination path
func (db *DB) GetTransferHistoryByDest(ctx context.Context, dest string) (*TransferHistory, error) {
	return db.queryTransferHistoryRow(ctx, "get transfer history by dest",
		`SELECT `+transferHistoryColumns+` FROM transfer_history WHERE dest = ? ORDER BY id ASC LIMIT 1`, dest)
}

// ListTransferHistoryByHash returns all rows produced by one download task
func (db *DB) ListTransferHistoryByHash(ctx context.Context, downloadHash string) ([]*TransferHistory, error) {
	return db.queryTransferHistoryRows(ctx, "list transfer history by hash",
		`SELECT `+transferHistoryColumns+` FROM transfer_history WHERE download_hash = ? ORDER BY id ASC`, downloadHash)
}

// ListTransferHistoryBy returns rows matching every field set on the filter
func (db *DB) ListTransferHistoryBy(ctx context.Context, filter TransferHistoryFilter) ([]*TransferHistory, error) {
	where, args := filter.where()
	return db.queryTransferHistoryRows(ctx, "list transfer history",
		`SELECT `+transferHistoryColumns+` FROM transfer_history`+where+` ORDER BY id ASC`, args...)
}

// GetTransferHistoryByTypeTmdbID returns the first row matching the media type and TMDB id.
// Empty type or nil id leave that column unconstrained.
func (db *DB) GetTransferHistoryByTypeTmdbID(ctx context.Context, mtype string, tmdbID *int) (*TransferHistory, error) {
	where, args := TransferHistoryFilter{Type: mtype, TmdbID: tmdbID}.where()
	return db.queryTransferHistoryRow(ctx, "get transfer history by type and tmdbid",
		`SELECT `+transferHistoryColumns+` FROM transfer_history`+where+` ORDER BY id ASC LIMIT 1`, args...)
}

// ListTransferHistoryByDate returns rows stamped strictly after date
func (db *DB) ListTransferHistoryByDate(ctx context.Context, date string) ([]*TransferHistory, error) {
	return db.queryTransferHistoryRows(ctx, "list transfer history by date",
		`SELECT `+transferHistoryColumns+` FROM transfer_history WHERE date > ? ORDER BY id ASC`, date)
}

// TransferHistoryStatistic counts rows per day for rows stamped at or after since
func (db *DB) TransferHistoryStatistic(ctx context.Context, since string) ([]DailyCount, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT substr(date, 1, 10) AS day, COUNT(id)
		FROM transfer_history
		WHERE date >= ?
		GROUP BY day
		ORDER BY day ASC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer history statistic: %w", err)
	}
	defer rows.Close()

	var stats []DailyCount
	for rows.Next() {
		var c DailyCount
		if err := rows.Scan(&c.Date, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan transfer history statistic: %w", err)
		}
		stats = append(stats, c)
	}

	return stats, rows.Err()
}

// UpdateTransferHistoryDownloadHash sets the download hash of one row
func (db *DB) UpdateTransferHistoryDownloadHash(ctx context.Context, id int64, downloadHash string) error {
	_, err := db.ExecContext(ctx, "UPDATE transfer_history SET download_hash = ? WHERE id = ?", nullIfEmpty(downloadHash), id)
	if err != nil {
		return fmt.Errorf("failed to update transfer history download hash: %w", err)
	}
	return nil
}

// DeleteTransferHistory deletes a row by ID. Missing rows are not an error.
func (db *DB) DeleteTransferHistory(ctx context.Context, id int64) error {
	if _, err := db.ExecContext(ctx, "DELETE FROM transfer_history WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete transfer history: %w", err)
	}
	return nil
}

// TruncateTransferHistory deletes every transfer history row
func (db *DB) TruncateTransferHistory(ctx context.Context) (int64, error) {
	result, err := db.ExecContext(ctx, "DELETE FROM transfer_history")
	if err != nil {
		return 0, fmt.Errorf("failed to truncate transfer history: %w", err)
	}
	return result.RowsAffected()
}
