package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/saltyorg/transferlog/internal/schemas"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return db
}

func intPtr(v int) *int { return &v }

func TestCreateTransferHistory_RoundTripsAllColumns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	h := &TransferHistory{
		Src:          "/downloads/show.mkv",
		SrcStorage:   "local",
		SrcFileItem:  schemas.NewFileItem("local", "/downloads/show.mkv"),
		Dest:         "/library/Show/Season 1/s01e01.mkv",
		DestStorage:  "local",
		DestFileItem: schemas.NewFileItem("local", "/library/Show/Season 1/s01e01.mkv"),
		Mode:         "link",
		Type:         "tv",
		Category:     "Anime",
		Title:        "Show",
		Year:         "2020",
		TmdbID:       intPtr(123),
		ImdbID:       "tt0000123",
		TvdbID:       intPtr(456),
		DoubanID:     "789",
		Seasons:      "S01",
		Episodes:     "E01",
		EpisodeGroup: "group-1",
		Image:        "https://image.tmdb.org/t/p/w500/poster.jpg",
		Downloader:   "qbittorrent",
		DownloadHash: "abcdef",
		Status:       true,
		Files:        []string{"/downloads/show.mkv", "/downloads/show.srt"},
		Date:         "2024-05-01 10:00:00",
	}

	if err := db.CreateTransferHistory(ctx, h); err != nil {
		t.Fatalf("CreateTransferHistory returned error: %v", err)
	}
	if h.ID == 0 {
		t.Fatal("expected ID to be assigned")
	}

	saved, err := db.GetTransferHistory(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetTransferHistory returned error: %v", err)
	}
	if saved == nil {
		t.Fatal("expected transfer history to be saved")
	}

	if saved.Src != h.Src || saved.Dest != h.Dest || saved.DestStorage != h.DestStorage {
		t.Fatalf("unexpected paths: %+v", saved)
	}
	if saved.TmdbID == nil || *saved.TmdbID != 123 || saved.TvdbID == nil || *saved.TvdbID != 456 {
		t.Fatalf("unexpected ids: tmdb=%v tvdb=%v", saved.TmdbID, saved.TvdbID)
	}
	if saved.SrcFileItem == nil || saved.SrcFileItem.Path != h.Src {
		t.Fatalf("expected src fileitem to round trip, got %+v", saved.SrcFileItem)
	}
	if saved.DestFileItem == nil || saved.DestFileItem.Name != "s01e01.mkv" {
		t.Fatalf("expected dest fileitem to round trip, got %+v", saved.DestFileItem)
	}
	if len(saved.Files) != 2 || saved.Files[1] != "/downloads/show.srt" {
		t.Fatalf("expected files to round trip, got %v", saved.Files)
	}
	if !saved.Status || saved.ErrMsg != "" || saved.EpisodeGroup != "group-1" || saved.Date != h.Date {
		t.Fatalf("unexpected status fields: %+v", saved)
	}
}

func TestCreateTransferHistory_NullableColumns(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	h := &TransferHistory{Src: "/downloads/unknown.mkv", Status: false, ErrMsg: "failed", Date: "2024-05-01 10:00:00"}
	if err := db.CreateTransferHistory(ctx, h); err != nil {
		t.Fatalf("CreateTransferHistory returned error: %v", err)
	}

	var destIsNull, filesIsNull bool
	if err := db.QueryRow(`SELECT dest IS NULL, files IS NULL FROM transfer_history WHERE id = ?`, h.ID).Scan(&destIsNull, &filesIsNull); err != nil {
		t.Fatalf("failed to inspect row: %v", err)
	}
	if !destIsNull || !filesIsNull {
		t.Fatalf("expected NULL dest and files, got dest=%v files=%v", destIsNull, filesIsNull)
	}

	saved, err := db.GetTransferHistory(ctx, h.ID)
	if err != nil {
		t.Fatalf("GetTransferHistory returned error: %v", err)
	}
	if saved.Status || saved.DestFileItem != nil || saved.TmdbID != nil || saved.Files != nil {
		t.Fatalf("unexpected values for nullable columns: %+v", saved)
	}
}

func TestGetTransferHistory_Missing(t *testing.T) {
	db := newTestDB(t)

	h, err := db.GetTransferHistory(context.Background(), 42)
	if err != nil {
		t.Fatalf("GetTransferHistory returned error: %v", err)
	}
	if h != nil {
		t.Fatalf("expected nil for missing row, got %+v", h)
	}
}

func TestTransferHistoryFilterWhere(t *testing.T) {
	tests := []struct {
		name      string
		filter    TransferHistoryFilter
		wantWhere string
		wantArgs  int
	}{
		{name: "empty", filter: TransferHistoryFilter{}, wantWhere: "", wantArgs: 0},
		{name: "title only", filter: TransferHistoryFilter{Title: "Foo"}, wantWhere: " WHERE title = ?", wantArgs: 1},
		{
			name:      "all fields",
			filter:    TransferHistoryFilter{Title: "Foo", Year: "2020", Type: "tv", Seasons: "S01", Episodes: "E01", TmdbID: intPtr(1), Dest: "/d"},
			wantWhere: " WHERE title = ? AND year = ? AND type = ? AND seasons = ? AND episodes = ? AND tmdbid = ? AND dest = ?",
			wantArgs:  7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			where, args := tt.filter.where()
			if where != tt.wantWhere {
				t.Errorf("where = %q, want %q", where, tt.wantWhere)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("len(args) = %d, want %d", len(args), tt.wantArgs)
			}
		})
	}
}

func TestListTransferHistoryBy_Conjunction(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rows := []*TransferHistory{
		{Src: "/a", Title: "Foo", Year: "2020", Date: "2024-01-01 00:00:00", Status: true},
		{Src: "/b", Title: "Foo", Year: "2021", Date: "2024-01-01 00:00:01", Status: true},
		{Src: "/c", Title: "Bar", Year: "2020", Date: "2024-01-01 00:00:02", Status: true},
	}
	for _, h := range rows {
		if err := db.CreateTransferHistory(ctx, h); err != nil {
			t.Fatalf("CreateTransferHistory returned error: %v", err)
		}
	}

	got, err := db.ListTransferHistoryBy(ctx, TransferHistoryFilter{Title: "Foo", Year: "2020"})
	if err != nil {
		t.Fatalf("ListTransferHistoryBy returned error: %v", err)
	}
	if len(got) != 1 || got[0].Src != "/a" {
		t.Fatalf("expected only /a, got %d rows", len(got))
	}

	all, err := db.ListTransferHistoryBy(ctx, TransferHistoryFilter{})
	if err != nil {
		t.Fatalf("ListTransferHistoryBy returned error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected empty filter to match all rows, got %d", len(all))
	}
}

func TestListTransferHistory_SearchAndPaging(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for i, title := range []string{"Alpha", "Beta", "Alphabet", "Gamma"} {
		h := &TransferHistory{
			Src:    "/downloads/" + title + ".mkv",
			Title:  title,
			Status: i%2 == 0,
			Date:   "2024-01-0" + string(rune('1'+i)) + " 00:00:00",
		}
		if err := db.CreateTransferHistory(ctx, h); err != nil {
			t.Fatalf("CreateTransferHistory returned error: %v", err)
		}
	}

	got, err := db.ListTransferHistory(ctx, TransferHistoryQuery{Search: "Alpha"})
	if err != nil {
		t.Fatalf("ListTransferHistory returned error: %v", err)
	}
	if len(got) != 2 || got[0].Title != "Alphabet" {
		t.Fatalf("expected Alphabet then Alpha, got %d rows", len(got))
	}

	failed := false
	count, err := db.CountTransferHistory(ctx, TransferHistoryQuery{Status: &failed})
	if err != nil {
		t.Fatalf("CountTransferHistory returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 failed rows, got %d", count)
	}

	page, err := db.ListTransferHistory(ctx, TransferHistoryQuery{Page: 2, Count: 3})
	if err != nil {
		t.Fatalf("ListTransferHistory returned error: %v", err)
	}
	if len(page) != 1 || page[0].Title != "Alpha" {
		t.Fatalf("expected oldest row on page 2, got %d rows", len(page))
	}
}

func TestTransferHistoryStatistic(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, date := range []string{"2024-01-01 08:00:00", "2024-01-02 09:00:00", "2024-01-02 23:59:59", "2023-12-01 00:00:00"} {
		if err := db.CreateTransferHistory(ctx, &TransferHistory{Src: date, Date: date, Status: true}); err != nil {
			t.Fatalf("CreateTransferHistory returned error: %v", err)
		}
	}

	stats, err := db.TransferHistoryStatistic(ctx, "2024-01-01 00:00:00")
	if err != nil {
		t.Fatalf("TransferHistoryStatistic returned error: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 buckets, got %d", len(stats))
	}
	if stats[0] != (DailyCount{Date: "2024-01-01", Count: 1}) || stats[1] != (DailyCount{Date: "2024-01-02", Count: 2}) {
		t.Fatalf("unexpected buckets: %+v", stats)
	}
}

func TestSplitSQLStatements(t *testing.T) {
	stmts := splitSQLStatements(`
		-- comment
		CREATE TABLE a (id INTEGER);
		CREATE TABLE b (
			id INTEGER
		);
		SELECT 1
	`)
	if len(stmts) != 3 {
		t.Fatalf("expected 3 statements, got %d: %q", len(stmts), stmts)
	}
}

func TestSettings(t *testing.T) {
	db := newTestDB(t)

	if v, err := db.GetSetting("missing"); err != nil || v != "" {
		t.Fatalf("expected empty missing setting, got %q (%v)", v, err)
	}
	if err := db.SetSetting("log.max_backups", "3"); err != nil {
		t.Fatalf("SetSetting returned error: %v", err)
	}
	if err := db.SetSetting("log.max_backups", "4"); err != nil {
		t.Fatalf("SetSetting returned error: %v", err)
	}
	if v, _ := db.GetSetting("log.max_backups"); v != "4" {
		t.Fatalf("expected upserted value 4, got %q", v)
	}
	if err := db.DeleteSetting("log.max_backups"); err != nil {
		t.Fatalf("DeleteSetting returned error: %v", err)
	}
	all, err := db.GetAllSettings()
	if err != nil || len(all) != 0 {
		t.Fatalf("expected no settings, got %v (%v)", all, err)
	}
}

func TestMaintenance(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, src := range []string{"/a", "/b"} {
		if err := db.CreateTransferHistory(ctx, &TransferHistory{Src: src, Date: "2024-01-01 00:00:00"}); err != nil {
			t.Fatalf("CreateTransferHistory returned error: %v", err)
		}
	}

	res, err := db.Optimize()
	if err != nil {
		t.Fatalf("Optimize returned error: %v", err)
	}
	if res.TransferRows != 2 {
		t.Errorf("TransferRows = %d, want 2", res.TransferRows)
	}
	if err := db.Vacuum(); err != nil {
		t.Fatalf("Vacuum returned error: %v", err)
	}
}
