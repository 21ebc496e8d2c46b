// Package history records the outcome of media transfers and answers
// queries about them. It wraps the transfer_history table with the
// policies the table itself does not enforce: every row is stamped with
// the local time at insert, and AddForce replaces any earlier row for the
// same source path.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/saltyorg/transferlog/internal/database"
	"github.com/saltyorg/transferlog/internal/schemas"
)

// DefaultStatisticDays is the window used by Statistic when none is given
const DefaultStatisticDays = 7

const (
	// ErrMsgUnknown is recorded when a failed transfer carries no message
	ErrMsgUnknown = "unknown error"
	// ErrMsgMediaNotRecognized is recorded when identification or the transfer result is missing
	ErrMsgMediaNotRecognized = "media info not recognized"
)

// ErrMissingMediaInfo is returned by AddSuccess without media info or a transfer result
var ErrMissingMediaInfo = errors.New("media info and transfer info are required")

// TransferRecord gathers the inputs of one transfer attempt
type TransferRecord struct {
	FileItem     *schemas.FileItem     `json:"fileitem"`
	Mode         string                `json:"mode"`
	Meta         *schemas.MetaInfo     `json:"meta"`
	MediaInfo    *schemas.MediaInfo    `json:"mediainfo,omitempty"`
	TransferInfo *schemas.TransferInfo `json:"transferinfo,omitempty"`
	Downloader   string                `json:"downloader,omitempty"`
	DownloadHash string                `json:"download_hash,omitempty"`
}

// Oper is the transfer history repository
type Oper struct {
	db  *database.DB
	now func() time.Time
}

// New creates a repository over an open database. The caller owns db.
func New(db *database.DB) *Oper {
	return &Oper{db: db, now: time.Now}
}

func (o *Oper) stamp() string {
	return o.now().Local().Format(database.DateLayout)
}

// Get returns the record with the given id, or nil
func (o *Oper) Get(ctx context.Context, id int64) (*database.TransferHistory, error) {
	return o.db.GetTransferHistory(ctx, id)
}

// GetByTitle returns all records with the given title in insertion order
func (o *Oper) GetByTitle(ctx context.Context, title string) ([]*database.TransferHistory, error) {
	return o.db.ListTransferHistoryByTitle(ctx, title)
}

// GetBySrc returns the first record for a source path, optionally restricted to a storage backend
func (o *Oper) GetBySrc(ctx context.Context, src, storage string) (*database.TransferHistory, error) {
	return o.db.GetTransferHistoryBySrc(ctx, src, storage)
}

// GetByDest returns the first record for a destination path
func (o *Oper) GetByDest(ctx context.Context, dest string) (*database.TransferHistory, error) {
	return o.db.GetTransferHistoryByDest(ctx, dest)
}

// ListByHash returns all records produced by one download task
func (o *Oper) ListByHash(ctx context.Context, downloadHash string) ([]*database.TransferHistory, error) {
	return o.db.ListTransferHistoryByHash(ctx, downloadHash)
}

// GetBy returns records matching every field set on the filter
func (o *Oper) GetBy(ctx context.Context, filter database.TransferHistoryFilter) ([]*database.TransferHistory, error) {
	return o.db.ListTransferHistoryBy(ctx, filter)
}

// GetByTypeTmdbID returns the first record for a media type and TMDB id
func (o *Oper) GetByTypeTmdbID(ctx context.Context, mtype string, tmdbID *int) (*database.TransferHistory, error) {
	return o.db.GetTransferHistoryByTypeTmdbID(ctx, mtype, tmdbID)
}

// ListByDate returns records stamped strictly after date ("YYYY-MM-DD HH:MM:SS" or a prefix of it)
func (o *Oper) ListByDate(ctx context.Context, date string) ([]*database.TransferHistory, error) {
	return o.db.ListTransferHistoryByDate(ctx, date)
}

// Statistic counts records per day over the trailing days
func (o *Oper) Statistic(ctx context.Context, days int) ([]database.DailyCount, error) {
	if days <= 0 {
		days = DefaultStatisticDays
	}
	since := o.now().Local().Add(-time.Duration(days) * 24 * time.Hour).Format(database.DateLayout)
	return o.db.TransferHistoryStatistic(ctx, since)
}

// List returns a page of records, newest first
func (o *Oper) List(ctx context.Context, q database.TransferHistoryQuery) ([]*database.TransferHistory, error) {
	return o.db.ListTransferHistory(ctx, q)
}

// Count returns the number of records matching the query filters
func (o *Oper) Count(ctx context.Context, q database.TransferHistoryQuery) (int, error) {
	return o.db.CountTransferHistory(ctx, q)
}

// Storages lists the source storage backends present in the history
func (o *Oper) Storages(ctx context.Context) ([]string, error) {
	return o.db.ListTransferStorages(ctx)
}

// Add inserts a copy of h stamped with the current local time.
// h itself is left untouched; any Date or ID it carries is ignored.
func (o *Oper) Add(ctx context.Context, h *database.TransferHistory) error {
	_, err := o.insert(ctx, h)
	return err
}

func (o *Oper) insert(ctx context.Context, h *database.TransferHistory) (int64, error) {
	row := *h
	row.Date = o.stamp()
	if err := o.db.CreateTransferHistory(ctx, &row); err != nil {
		return 0, err
	}
	return row.ID, nil
}

// replace deletes the first record sharing h's source path, ignoring storage, then inserts h
func (o *Oper) replace(ctx context.Context, h *database.TransferHistory) (int64, error) {
	if h.Src != "" {
		existing, err := o.db.GetTransferHistoryBySrc(ctx, h.Src, "")
		if err != nil {
			return 0, err
		}
		if existing != nil {
			log.Debug().Int64("id", existing.ID).Str("src", h.Src).Msg("Replacing transfer history for source")
			if err := o.db.DeleteTransferHistory(ctx, existing.ID); err != nil {
				return 0, err
			}
		}
	}
	return o.insert(ctx, h)
}

// AddForce inserts a record after deleting the first existing record with the same source path.
// The lookup ignores the storage backend, so only one earlier row is removed even if several
// storages share the path. The result is the first row for the source path, which is an older
// survivor rather than the new row when such duplicates exist. AddSuccess and AddFail return
// the inserted row instead.
func (o *Oper) AddForce(ctx context.Context, h *database.TransferHistory) (*database.TransferHistory, error) {
	id, err := o.replace(ctx, h)
	if err != nil {
		return nil, err
	}
	if h.Src == "" {
		return o.db.GetTransferHistory(ctx, id)
	}
	return o.db.GetTransferHistoryBySrc(ctx, h.Src, "")
}

// AddSuccess records a successful transfer, replacing an earlier record for the same source.
// It returns the inserted row.
func (o *Oper) AddSuccess(ctx context.Context, rec TransferRecord) (*database.TransferHistory, error) {
	if rec.MediaInfo == nil || rec.TransferInfo == nil {
		return nil, ErrMissingMediaInfo
	}

	h := richRecord(rec)
	h.Title = rec.MediaInfo.Title
	h.Year = rec.MediaInfo.Year
	h.Status = true

	id, err := o.replace(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("failed to add transfer success: %w", err)
	}
	return o.db.GetTransferHistory(ctx, id)
}

// AddFail records a failed transfer, replacing an earlier record for the same source,
// and returns the inserted row. Without both media info and a transfer result only the
// parsed metadata is kept.
func (o *Oper) AddFail(ctx context.Context, rec TransferRecord) (*database.TransferHistory, error) {
	var h *database.TransferHistory

	if rec.MediaInfo != nil && rec.TransferInfo != nil {
		h = richRecord(rec)
		h.Title = firstNonEmpty(rec.MediaInfo.Title, metaName(rec.Meta))
		h.Year = firstNonEmpty(rec.MediaInfo.Year, metaYear(rec.Meta))
		h.EpisodeGroup = rec.MediaInfo.EpisodeGroup
		h.ErrMsg = firstNonEmpty(rec.TransferInfo.Message, ErrMsgUnknown)
	} else {
		h = &database.TransferHistory{
			Title:        metaName(rec.Meta),
			Year:         metaYear(rec.Meta),
			Mode:         rec.Mode,
			Seasons:      rec.Meta.Season(),
			Episodes:     rec.Meta.Episode(),
			Downloader:   rec.Downloader,
			DownloadHash: rec.DownloadHash,
			ErrMsg:       ErrMsgMediaNotRecognized,
		}
		setSource(h, rec.FileItem)
	}
	h.Status = false

	id, err := o.replace(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("failed to add transfer failure: %w", err)
	}
	return o.db.GetTransferHistory(ctx, id)
}

// UpdateDownloadHash backfills the download hash of a record
func (o *Oper) UpdateDownloadHash(ctx context.Context, id int64, downloadHash string) error {
	return o.db.UpdateTransferHistoryDownloadHash(ctx, id, downloadHash)
}

// Delete removes a record; deleting a missing id is not an error
func (o *Oper) Delete(ctx context.Context, id int64) error {
	return o.db.DeleteTransferHistory(ctx, id)
}

// Truncate removes every record
func (o *Oper) Truncate(ctx context.Context) error {
	n, err := o.db.TruncateTransferHistory(ctx)
	if err != nil {
		return err
	}
	log.Info().Int64("deleted", n).Msg("Transfer history cleared")

	if n > 0 {
		// A mass delete leaves stale planner stats and a large WAL behind
		if _, err := o.db.Optimize(); err != nil {
			log.Warn().Err(err).Msg("Failed to optimize database after clearing transfer history")
		}
	}
	return nil
}

// richRecord fills the columns shared by identified success and failure rows
func richRecord(rec TransferRecord) *database.TransferHistory {
	mi := rec.MediaInfo
	ti := rec.TransferInfo

	h := &database.TransferHistory{
		Mode:         rec.Mode,
		Type:         string(mi.Type),
		Category:     mi.Category,
		TmdbID:       mi.TmdbID,
		ImdbID:       mi.ImdbID,
		TvdbID:       mi.TvdbID,
		DoubanID:     mi.DoubanID,
		Seasons:      rec.Meta.Season(),
		Episodes:     rec.Meta.Episode(),
		Image:        mi.PosterImage(),
		Downloader:   rec.Downloader,
		DownloadHash: rec.DownloadHash,
		Files:        ti.FileList,
	}
	setSource(h, rec.FileItem)

	if target := ti.TargetItem; target != nil {
		h.Dest = target.Path
		h.DestStorage = target.StorageOrDefault()
		h.DestFileItem = fillFileItem(target)
	}

	return h
}

func setSource(h *database.TransferHistory, item *schemas.FileItem) {
	if item == nil {
		return
	}
	h.Src = item.Path
	h.SrcStorage = item.StorageOrDefault()
	h.SrcFileItem = fillFileItem(item)
}

// fillFileItem derives the name and type fields for items sent with only a path
func fillFileItem(item *schemas.FileItem) *schemas.FileItem {
	if item.Name != "" && item.Type != "" {
		return item
	}
	filled := schemas.NewFileItem(item.Storage, item.Path)
	filled.Size = item.Size
	filled.Modifytime = item.Modifytime
	return filled
}

func metaName(m *schemas.MetaInfo) string {
	if m == nil {
		return ""
	}
	return m.Name
}

func metaYear(m *schemas.MetaInfo) string {
	if m == nil {
		return ""
	}
	return m.Year
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
