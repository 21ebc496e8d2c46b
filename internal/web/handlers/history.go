package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/saltyorg/transferlog/internal/database"
	"github.com/saltyorg/transferlog/internal/history"
	"github.com/saltyorg/transferlog/internal/schemas"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// TransferListResponse is one page of transfer history
type TransferListResponse struct {
	Total int                         `json:"total"`
	Page  int                         `json:"page"`
	Count int                         `json:"count"`
	Items []*database.TransferHistory `json:"items"`
}

// ListTransfers returns a page of transfer history, newest first
func (h *Handlers) ListTransfers(w http.ResponseWriter, r *http.Request) {
	q := database.TransferHistoryQuery{
		Search: r.URL.Query().Get("title"),
		Page:   1,
		Count:  30,
	}
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		q.Page = p
	}
	if c, err := strconv.Atoi(r.URL.Query().Get("count")); err == nil && c > 0 && c <= 500 {
		q.Count = c
	}
	switch r.URL.Query().Get("status") {
	case "1", "true", "success":
		v := true
		q.Status = &v
	case "0", "false", "failed":
		v := false
		q.Status = &v
	}

	items, err := h.history.List(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list transfer history")
		h.jsonError(w, "Failed to load transfer history", http.StatusInternalServerError)
		return
	}
	total, err := h.history.Count(r.Context(), q)
	if err != nil {
		log.Error().Err(err).Msg("Failed to count transfer history")
		h.jsonError(w, "Failed to load transfer history", http.StatusInternalServerError)
		return
	}

	if items == nil {
		items = []*database.TransferHistory{}
	}
	h.jsonResponse(w, http.StatusOK, TransferListResponse{Total: total, Page: q.Page, Count: q.Count, Items: items})
}

// GetTransfer returns one record by id
func (h *Handlers) GetTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.jsonError(w, "Invalid history ID", http.StatusBadRequest)
		return
	}

	record, err := h.history.Get(r.Context(), id)
	h.writeRecord(w, record, err, "Failed to get transfer history")
}

// DeleteTransfer removes one record by id
func (h *Handlers) DeleteTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.jsonError(w, "Invalid history ID", http.StatusBadRequest)
		return
	}

	if err := h.history.Delete(r.Context(), id); err != nil {
		log.Error().Err(err).Int64("id", id).Msg("Failed to delete transfer history")
		h.jsonError(w, "Failed to delete transfer history", http.StatusInternalServerError)
		return
	}
	h.jsonSuccess(w, "Transfer history deleted")
}

// TruncateTransfers removes all records
func (h *Handlers) TruncateTransfers(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Truncate(r.Context()); err != nil {
		log.Error().Err(err).Msg("Failed to clear transfer history")
		h.jsonError(w, "Failed to clear transfer history", http.StatusInternalServerError)
		return
	}
	h.jsonSuccess(w, "Transfer history cleared")
}

// TransferStatistic returns per-day counts over the trailing days
func (h *Handlers) TransferStatistic(w http.ResponseWriter, r *http.Request) {
	days := h.statisticDays
	if d, err := strconv.Atoi(r.URL.Query().Get("days")); err == nil && d > 0 {
		days = d
	}

	stats, err := h.history.Statistic(r.Context(), days)
	if err != nil {
		log.Error().Err(err).Int("days", days).Msg("Failed to get transfer statistic")
		h.jsonError(w, "Failed to get transfer statistic", http.StatusInternalServerError)
		return
	}
	if stats == nil {
		stats = []database.DailyCount{}
	}
	h.jsonResponse(w, http.StatusOK, stats)
}

// ListStorages returns the distinct source storages seen in the history
func (h *Handlers) ListStorages(w http.ResponseWriter, r *http.Request) {
	storages, err := h.history.Storages(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list transfer storages")
		h.jsonError(w, "Failed to list transfer storages", http.StatusInternalServerError)
		return
	}
	if storages == nil {
		storages = []string{}
	}
	h.jsonResponse(w, http.StatusOK, storages)
}

// GetTransferBySrc looks a record up by source path and optional storage
func (h *Handlers) GetTransferBySrc(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")
	if src == "" {
		h.jsonError(w, "src is required", http.StatusBadRequest)
		return
	}

	record, err := h.history.GetBySrc(r.Context(), src, r.URL.Query().Get("storage"))
	h.writeRecord(w, record, err, "Failed to get transfer history by src")
}

// GetTransferByDest looks a record up by destination path
func (h *Handlers) GetTransferByDest(w http.ResponseWriter, r *http.Request) {
	dest := r.URL.Query().Get("dest")
	if dest == "" {
		h.jsonError(w, "dest is required", http.StatusBadRequest)
		return
	}

	record, err := h.history.GetByDest(r.Context(), dest)
	h.writeRecord(w, record, err, "Failed to get transfer history by dest")
}

// ListTransfersByHash returns all records of one download task
func (h *Handlers) ListTransfersByHash(w http.ResponseWriter, r *http.Request) {
	records, err := h.history.ListByHash(r.Context(), chi.URLParam(r, "hash"))
	h.writeRecords(w, records, err, "Failed to list transfer history by hash")
}

// ListTransfersByTitle returns all records with an exact title
func (h *Handlers) ListTransfersByTitle(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		h.jsonError(w, "title is required", http.StatusBadRequest)
		return
	}

	records, err := h.history.GetByTitle(r.Context(), title)
	h.writeRecords(w, records, err, "Failed to list transfer history by title")
}

// ListTransfersSince returns records stamped after the date parameter
func (h *Handlers) ListTransfersSince(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		h.jsonError(w, "date is required", http.StatusBadRequest)
		return
	}

	records, err := h.history.ListByDate(r.Context(), date)
	h.writeRecords(w, records, err, "Failed to list transfer history by date")
}

// QueryTransfers filters records on any combination of title, year, type, season, episode, tmdbid and dest
func (h *Handlers) QueryTransfers(w http.ResponseWriter, r *http.Request) {
	tmdbID, ok := optionalInt(r, "tmdbid")
	if !ok {
		h.jsonError(w, "Invalid tmdbid", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	filter := database.TransferHistoryFilter{
		Title:    query.Get("title"),
		Year:     query.Get("year"),
		Type:     mediaTypeParam(r),
		Seasons:  query.Get("season"),
		Episodes: query.Get("episode"),
		TmdbID:   tmdbID,
		Dest:     query.Get("dest"),
	}

	records, err := h.history.GetBy(r.Context(), filter)
	h.writeRecords(w, records, err, "Failed to query transfer history")
}

// mediaTypeParam normalises the type query parameter ("Movie", "series") to the
// stored media type. Values that are not a known alias are matched as given.
func mediaTypeParam(r *http.Request) string {
	raw := r.URL.Query().Get("type")
	if mt := schemas.ParseMediaType(raw); mt != schemas.MediaTypeUnknown {
		return string(mt)
	}
	return raw
}

// GetTransferByTmdbID looks a record up by media type and TMDB id
func (h *Handlers) GetTransferByTmdbID(w http.ResponseWriter, r *http.Request) {
	tmdbID, ok := optionalInt(r, "tmdbid")
	if !ok {
		h.jsonError(w, "Invalid tmdbid", http.StatusBadRequest)
		return
	}

	record, err := h.history.GetByTypeTmdbID(r.Context(), mediaTypeParam(r), tmdbID)
	h.writeRecord(w, record, err, "Failed to get transfer history by tmdbid")
}

// RecordSuccess stores a successful transfer
func (h *Handlers) RecordSuccess(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}

	record, err := h.history.AddSuccess(r.Context(), rec)
	if err != nil {
		if errors.Is(err, history.ErrMissingMediaInfo) {
			h.jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Error().Err(err).Str("src", rec.FileItem.Path).Msg("Failed to record transfer success")
		h.jsonError(w, "Failed to record transfer", http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, http.StatusCreated, record)
}

// RecordFailure stores a failed transfer
func (h *Handlers) RecordFailure(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.decodeRecord(w, r)
	if !ok {
		return
	}

	record, err := h.history.AddFail(r.Context(), rec)
	if err != nil {
		log.Error().Err(err).Str("src", rec.FileItem.Path).Msg("Failed to record transfer failure")
		h.jsonError(w, "Failed to record transfer", http.StatusInternalServerError)
		return
	}
	h.jsonResponse(w, http.StatusCreated, record)
}

// UpdateDownloadHash backfills the download hash of a record
func (h *Handlers) UpdateDownloadHash(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		h.jsonError(w, "Invalid history ID", http.StatusBadRequest)
		return
	}

	var body struct {
		DownloadHash string `json:"download_hash"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.history.UpdateDownloadHash(r.Context(), id, body.DownloadHash); err != nil {
		log.Error().Err(err).Int64("id", id).Msg("Failed to update download hash")
		h.jsonError(w, "Failed to update download hash", http.StatusInternalServerError)
		return
	}
	h.jsonSuccess(w, "Download hash updated")
}

func (h *Handlers) decodeRecord(w http.ResponseWriter, r *http.Request) (history.TransferRecord, bool) {
	var rec history.TransferRecord
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&rec); err != nil {
		h.jsonError(w, "Invalid request body", http.StatusBadRequest)
		return rec, false
	}
	if rec.FileItem == nil || rec.FileItem.Path == "" {
		h.jsonError(w, "fileitem.path is required", http.StatusBadRequest)
		return rec, false
	}
	return rec, true
}

func (h *Handlers) writeRecord(w http.ResponseWriter, record *database.TransferHistory, err error, failure string) {
	if err != nil {
		log.Error().Err(err).Msg(failure)
		h.jsonError(w, failure, http.StatusInternalServerError)
		return
	}
	if record == nil {
		h.jsonError(w, "Transfer history not found", http.StatusNotFound)
		return
	}
	h.jsonResponse(w, http.StatusOK, record)
}

func (h *Handlers) writeRecords(w http.ResponseWriter, records []*database.TransferHistory, err error, failure string) {
	if err != nil {
		log.Error().Err(err).Msg(failure)
		h.jsonError(w, failure, http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*database.TransferHistory{}
	}
	h.jsonResponse(w, http.StatusOK, records)
}
