package services

import (
	"regexp"
	"strings"

	"media-tracker-api/models"
)

// DecomposedTitle is the structured form of one raw title line. It is
// consumed immediately by the resolver and never persisted as its own
// entity.
type DecomposedTitle struct {
	BaseTitle string
	FullTitle string
	Type      string

	SeasonDescriptor  string
	EpisodeDescriptor string
	Subtitle          string

	SeasonNumber  *int
	EpisodeNumber *int
}

// IdentityTitle is the string a catalog entry is keyed by: the series name
// for TV, the full title for movies.
func (d DecomposedTitle) IdentityTitle() string {
	if d.Type == models.MediaTypeTVSeries {
		return d.BaseTitle
	}
	return d.FullTitle
}

var (
	seasonKeywordPattern = regexp.MustCompile(`(?i)\b(?:season|staffel)\s*(\d+)`)
	standaloneDigits     = regexp.MustCompile(`\b(\d+)\b`)

	// Episode keywords in priority order: an explicit "Episode 7" beats a
	// "Part 2" earlier in the same descriptor.
	episodeKeywordPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bepisode\s*\.?\s*(\d+)`),
		regexp.MustCompile(`(?i)\bpart\s*\.?\s*(\d+)`),
		regexp.MustCompile(`(?i)\bkapitel\s*\.?\s*(\d+)`),
		regexp.MustCompile(`(?i)\bteil\s*\.?\s*(\d+)`),
	}
	episodePrefixPattern = regexp.MustCompile(`^\s*(\d+)\s*[.:]`)
)

// DecomposeTitle splits a raw export title such as
// "Show: Season 2: Episode 7" into its series name, season descriptor and
// episode descriptor. It never fails: anything without a recognizable
// structure degrades to a best-effort movie title. Numeric extraction is a
// heuristic; the full episode descriptor is retained because it is the more
// reliable identity key across locales.
func DecomposeTitle(raw string) DecomposedTitle {
	full := strings.TrimSpace(raw)
	parts := strings.Split(full, ":")

	if len(parts) >= 3 {
		seasonDesc := strings.TrimSpace(parts[1])
		episodeDesc := strings.TrimSpace(strings.Join(parts[2:], ":"))
		return DecomposedTitle{
			BaseTitle:         strings.TrimSpace(parts[0]),
			FullTitle:         full,
			Type:              models.MediaTypeTVSeries,
			SeasonDescriptor:  seasonDesc,
			EpisodeDescriptor: episodeDesc,
			SeasonNumber:      extractSeasonNumber(seasonDesc),
			EpisodeNumber:     extractEpisodeNumber(episodeDesc),
		}
	}

	if len(parts) == 2 {
		base := strings.TrimSpace(parts[0])
		subtitle := strings.TrimSpace(parts[1])
		if isSeasonDescriptor(subtitle) {
			return DecomposedTitle{
				BaseTitle:        base,
				FullTitle:        full,
				Type:             models.MediaTypeTVSeries,
				SeasonDescriptor: subtitle,
				SeasonNumber:     extractSeasonNumber(subtitle),
			}
		}
		return DecomposedTitle{
			BaseTitle: base,
			FullTitle: full,
			Type:      models.MediaTypeMovie,
			Subtitle:  subtitle,
		}
	}

	return DecomposedTitle{
		BaseTitle: full,
		FullTitle: full,
		Type:      models.MediaTypeMovie,
	}
}

// isSeasonDescriptor reports whether a two-segment subtitle marks a series
// ("Season 2", "Staffel 1", "Limited Series") rather than a movie subtitle.
func isSeasonDescriptor(s string) bool {
	lower := strings.ToLower(s)
	return strings.Contains(lower, "season") ||
		strings.Contains(lower, "staffel") ||
		strings.Contains(lower, "limited series")
}

// extractSeasonNumber matches a season keyword followed by a digit, falling
// back to the first standalone number in the descriptor ("Vol. 2").
func extractSeasonNumber(desc string) *int {
	if m := seasonKeywordPattern.FindStringSubmatch(desc); m != nil {
		return parseSmallInt(m[1])
	}
	if m := standaloneDigits.FindStringSubmatch(desc); m != nil {
		return parseSmallInt(m[1])
	}
	return nil
}

// extractEpisodeNumber matches an episode keyword followed by a digit, or a
// leading "7." / "7:" prefix common in some exports.
func extractEpisodeNumber(desc string) *int {
	for _, pattern := range episodeKeywordPatterns {
		if m := pattern.FindStringSubmatch(desc); m != nil {
			return parseSmallInt(m[1])
		}
	}
	if m := episodePrefixPattern.FindStringSubmatch(desc); m != nil {
		return parseSmallInt(m[1])
	}
	return nil
}

func parseSmallInt(s string) *int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
		if n > 100000 {
			return nil
		}
	}
	return &n
}
