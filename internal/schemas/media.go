package schemas

import (
	"fmt"
	"strings"
)

// MediaType classifies a piece of media
type MediaType string

const (
	MediaTypeMovie   MediaType = "movie"
	MediaTypeTV      MediaType = "tv"
	MediaTypeUnknown MediaType = "unknown"
)

// ParseMediaType maps loose input ("Movie", "series", "tv") onto a MediaType
func ParseMediaType(s string) MediaType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies", "film":
		return MediaTypeMovie
	case "tv", "show", "series", "episode":
		return MediaTypeTV
	default:
		return MediaTypeUnknown
	}
}

// MetaInfo is descriptive data parsed from a file name or path, before identification
type MetaInfo struct {
	Name         string `json:"name"`
	Year         string `json:"year,omitempty"`
	BeginSeason  *int   `json:"begin_season,omitempty"`
	EndSeason    *int   `json:"end_season,omitempty"`
	BeginEpisode *int   `json:"begin_episode,omitempty"`
	EndEpisode   *int   `json:"end_episode,omitempty"`
}

// Season formats the season range, e.g. "S01" or "S01-S03". Empty when no season was parsed.
func (m *MetaInfo) Season() string {
	if m == nil {
		return ""
	}
	return formatRange("S", m.BeginSeason, m.EndSeason)
}

// Episode formats the episode range, e.g. "E05" or "E01-E12". Empty when no episode was parsed.
func (m *MetaInfo) Episode() string {
	if m == nil {
		return ""
	}
	return formatRange("E", m.BeginEpisode, m.EndEpisode)
}

func formatRange(prefix string, begin, end *int) string {
	if begin == nil {
		return ""
	}
	if end == nil || *end == *begin {
		return fmt.Sprintf("%s%02d", prefix, *begin)
	}
	return fmt.Sprintf("%s%02d-%s%02d", prefix, *begin, prefix, *end)
}

// MediaInfo is resolved identification data for a piece of media
type MediaInfo struct {
	Type         MediaType `json:"type"`
	Category     string    `json:"category,omitempty"`
	Title        string    `json:"title"`
	Year         string    `json:"year,omitempty"`
	TmdbID       *int      `json:"tmdb_id,omitempty"`
	ImdbID       string    `json:"imdb_id,omitempty"`
	TvdbID       *int      `json:"tvdb_id,omitempty"`
	DoubanID     string    `json:"douban_id,omitempty"`
	EpisodeGroup string    `json:"episode_group,omitempty"`
	PosterPath   string    `json:"poster_path,omitempty"`
}

// PosterImage returns the poster URL resized for listings.
// TMDB "original" size segments are rewritten to "w500".
func (m *MediaInfo) PosterImage() string {
	if m == nil || m.PosterPath == "" {
		return ""
	}
	return strings.Replace(m.PosterPath, "/original/", "/w500/", 1)
}

// TransferInfo is the outcome of a single transfer attempt
type TransferInfo struct {
	Success    bool      `json:"success"`
	TargetItem *FileItem `json:"target_item,omitempty"`
	FileList   []string  `json:"file_list,omitempty"`
	Message    string    `json:"message,omitempty"`
}
