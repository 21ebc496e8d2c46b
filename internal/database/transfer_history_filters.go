package database

import (
	"context"
	"fmt"
	"strings"
)

// TransferHistoryFilter selects rows by exact column values.
// Zero-valued fields are unconstrained; set fields are ANDed together.
type TransferHistoryFilter struct {
	Title    string
	Year     string
	Type     string
	Seasons  string
	Episodes string
	TmdbID   *int
	Dest     string
}

func (f TransferHistoryFilter) where() (string, []any) {
	var conds []string
	var args []any

	add := func(column string, value any) {
		conds = append(conds, column+" = ?")
		args = append(args, value)
	}

	if f.Title != "" {
		add("title", f.Title)
	}
	if f.Year != "" {
		add("year", f.Year)
	}
	if f.Type != "" {
		add("type", f.Type)
	}
	if f.Seasons != "" {
		add("seasons", f.Seasons)
	}
	if f.Episodes != "" {
		add("episodes", f.Episodes)
	}
	if f.TmdbID != nil {
		add("tmdbid", *f.TmdbID)
	}
	if f.Dest != "" {
		add("dest", f.Dest)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// TransferHistoryQuery drives the paginated history listing
type TransferHistoryQuery struct {
	// Search matches title, src or dest as a substring
	Search string
	// Status restricts to successful (true) or failed (false) rows when set
	Status *bool
	Page   int
	Count  int
}

func (q TransferHistoryQuery) where() (string, []any) {
	var conds []string
	var args []any

	if q.Search != "" {
		like := "%" + q.Search + "%"
		conds = append(conds, "(title LIKE ? OR src LIKE ? OR dest LIKE ?)")
		args = append(args, like, like, like)
	}
	if q.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, *q.Status)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// limitOffset normalizes paging; page is 1-based and count defaults to 30
func (q TransferHistoryQuery) limitOffset() (int, int) {
	count := q.Count
	if count <= 0 {
		count = 30
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	return count, (page - 1) * count
}

// ListTransferHistory lists rows newest first with optional search and status filters
func (db *DB) ListTransferHistory(ctx context.Context, q TransferHistoryQuery) ([]*TransferHistory, error) {
	where, args := q.where()
	limit, offset := q.limitOffset()
	args = append(args, limit, offset)
	return db.queryTransferHistoryRows(ctx, "list transfer history",
		`SELECT `+transferHistoryColumns+` FROM transfer_history`+where+` ORDER BY date DESC, id DESC LIMIT ? OFFSET ?`, args...)
}

// CountTransferHistory counts rows matching the query's filters (paging is ignored)
func (db *DB) CountTransferHistory(ctx context.Context, q TransferHistoryQuery) (int, error) {
	where, args := q.where()
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfer_history`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count transfer history: %w", err)
	}
	return count, nil
}

// ListTransferStorages returns distinct source storage backends present in the history
func (db *DB) ListTransferStorages(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT src_storage FROM transfer_history ORDER BY src_storage`)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfer storages: %w", err)
	}
	defer rows.Close()

	var storages []string
	for rows.Next() {
		var name *string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan storage: %w", err)
		}
		if name != nil && *name != "" {
			storages = append(storages, *name)
		}
	}

	return storages, rows.Err()
}
