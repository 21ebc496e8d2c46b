package schemas

import "testing"

func intPtr(v int) *int { return &v }

func TestMetaInfoSeasonEpisode(t *testing.T) {
	tests := []struct {
		name        string
		meta        *MetaInfo
		wantSeason  string
		wantEpisode string
	}{
		{
			name: "nil meta",
		},
		{
			name: "movie without season",
			meta: &MetaInfo{Name: "Dune", Year: "2021"},
		},
		{
			name:        "single episode",
			meta:        &MetaInfo{Name: "Show", BeginSeason: intPtr(1), BeginEpisode: intPtr(5)},
			wantSeason:  "S01",
			wantEpisode: "E05",
		},
		{
			name:        "episode range",
			meta:        &MetaInfo{Name: "Show", BeginSeason: intPtr(2), BeginEpisode: intPtr(1), EndEpisode: intPtr(12)},
			wantSeason:  "S02",
			wantEpisode: "E01-E12",
		},
		{
			name:       "season range",
			meta:       &MetaInfo{Name: "Show", BeginSeason: intPtr(1), EndSeason: intPtr(3)},
			wantSeason: "S01-S03",
		},
		{
			name:        "equal bounds collapse",
			meta:        &MetaInfo{Name: "Show", BeginSeason: intPtr(4), EndSeason: intPtr(4), BeginEpisode: intPtr(7), EndEpisode: intPtr(7)},
			wantSeason:  "S04",
			wantEpisode: "E07",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.meta.Season(); got != tt.wantSeason {
				t.Errorf("Season() = %q, want %q", got, tt.wantSeason)
			}
			if got := tt.meta.Episode(); got != tt.wantEpisode {
				t.Errorf("Episode() = %q, want %q", got, tt.wantEpisode)
			}
		})
	}
}

func TestPosterImage(t *testing.T) {
	m := &MediaInfo{PosterPath: "https://image.tmdb.org/t/p/original/abc.jpg"}
	if got := m.PosterImage(); got != "https://image.tmdb.org/t/p/w500/abc.jpg" {
		t.Errorf("PosterImage() = %q", got)
	}

	m = &MediaInfo{PosterPath: "https://img.example.com/poster.jpg"}
	if got := m.PosterImage(); got != "https://img.example.com/poster.jpg" {
		t.Errorf("PosterImage() = %q", got)
	}

	var nilInfo *MediaInfo
	if got := nilInfo.PosterImage(); got != "" {
		t.Errorf("nil PosterImage() = %q, want empty", got)
	}
}

func TestParseMediaType(t *testing.T) {
	tests := map[string]MediaType{
		"Movie":  MediaTypeMovie,
		"tv":     MediaTypeTV,
		"Series": MediaTypeTV,
		"":       MediaTypeUnknown,
		"music":  MediaTypeUnknown,
	}
	for in, want := range tests {
		if got := ParseMediaType(in); got != want {
			t.Errorf("ParseMediaType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewFileItem(t *testing.T) {
	item := NewFileItem("", "/downloads/Show/Show.S01E01.mkv")
	if item.Storage != StorageLocal {
		t.Errorf("Storage = %q, want %q", item.Storage, StorageLocal)
	}
	if item.Name != "Show.S01E01.mkv" {
		t.Errorf("Name = %q", item.Name)
	}
	if item.Basename != "Show.S01E01" {
		t.Errorf("Basename = %q", item.Basename)
	}
	if item.Extension != "mkv" {
		t.Errorf("Extension = %q", item.Extension)
	}
	if item.Type != FileItemTypeFile {
		t.Errorf("Type = %q, want %q", item.Type, FileItemTypeFile)
	}

	dir := NewFileItem("rclone", "/downloads/Show Season 1/")
	if dir.Type != FileItemTypeDir {
		t.Errorf("dir Type = %q, want %q", dir.Type, FileItemTypeDir)
	}
	if dir.Name != "Show Season 1" {
		t.Errorf("dir Name = %q", dir.Name)
	}
	if dir.Extension != "" || dir.Basename != "" {
		t.Errorf("dir Extension = %q, Basename = %q, want empty", dir.Extension, dir.Basename)
	}

	var nilItem *FileItem
	if got := nilItem.StorageOrDefault(); got != StorageLocal {
		t.Errorf("nil StorageOrDefault() = %q", got)
	}
}
