package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"media-tracker-api/models"

	"github.com/google/uuid"
)

// MediaResolver finds or creates the canonical catalog entry for a
// decomposed title. Resolution is idempotent within a job: each row runs in
// its own transaction, so a media row created by an earlier row of the same
// job is already visible when the next row looks it up.
type MediaResolver struct {
	// base store used for out-of-transaction writes (enrichment results).
	store    Store
	enricher EpisodeTotalsProvider
	timeout  time.Duration
	source   string
	platform string
}

func NewMediaResolver(store Store, enricher EpisodeTotalsProvider, source, platform string, enrichTimeout time.Duration) *MediaResolver {
	if enrichTimeout <= 0 {
		enrichTimeout = 10 * time.Second
	}
	return &MediaResolver{
		store:    store,
		enricher: enricher,
		timeout:  enrichTimeout,
		source:   source,
		platform: platform,
	}
}

// NormalizeIdentityTitle lowercases and trims a title for case-insensitive
// catalog identity.
func NormalizeIdentityTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// Resolve looks up the catalog entry for the decomposed title within the
// given (usually transactional) store, creating it on first sighting. Repeat
// sightings get a provenance entry appended and the type backfilled if it
// was previously unknown. A concurrent create by another job is treated as
// "resolved concurrently": the unique-key conflict triggers a re-fetch.
func (r *MediaResolver) Resolve(ctx context.Context, store Store, dec DecomposedTitle) (*models.Media, error) {
	identity := dec.IdentityTitle()
	if identity == "" {
		return nil, fmt.Errorf("cannot resolve media for empty title")
	}
	normalized := NormalizeIdentityTitle(identity)

	media, err := store.MediaByNormalizedTitle(ctx, normalized)
	if err != nil {
		return nil, err
	}

	entry := models.ProvenanceEntry{
		Source:     r.source,
		ImportedAt: time.Now().UTC().Format(time.RFC3339),
		Season:     dec.SeasonDescriptor,
		Episode:    dec.EpisodeDescriptor,
		FullTitle:  dec.FullTitle,
	}

	if media != nil {
		merged := models.MergeProvenance(media.Metadata, entry)
		updates := map[string]interface{}{"media_metadata": merged}
		if (media.Type == "" || media.Type == models.MediaTypeUnknown) && dec.Type != models.MediaTypeUnknown {
			updates["type"] = dec.Type
			media.Type = dec.Type
		}
		if err := store.UpdateMedia(ctx, media.ID, updates); err != nil {
			return nil, err
		}
		media.Metadata = merged
		r.maybeEnrich(media)
		return media, nil
	}

	media = r.newMedia(identity, normalized, dec, entry)
	if err := store.CreateMedia(ctx, media); err != nil {
		if errors.Is(err, ErrDuplicateMedia) {
			// Another job created it between lookup and insert. The re-fetch
			// goes through the base store, not the row's transaction: under
			// REPEATABLE READ the transaction's snapshot predates the rival's
			// commit and would still see nothing.
			existing, ferr := r.store.MediaByNormalizedTitle(ctx, normalized)
			if ferr != nil {
				return nil, ferr
			}
			if existing == nil {
				return nil, fmt.Errorf("media %q vanished after duplicate-key conflict", identity)
			}
			return existing, nil
		}
		return nil, err
	}

	r.maybeEnrich(media)
	return media, nil
}

func (r *MediaResolver) newMedia(identity, normalized string, dec DecomposedTitle, entry models.ProvenanceEntry) *models.Media {
	meta := models.MergeProvenance(models.JSONMap{"source": r.source}, entry)
	if dec.Subtitle != "" {
		meta["subtitle"] = dec.Subtitle
	}

	media := &models.Media{
		ID:              uuid.New(),
		Title:           identity,
		TitleNormalized: normalized,
		Type:            dec.Type,
		PlatformIDs:     models.JSONMap{r.platform: true},
		Metadata:        meta,
	}
	if dec.Type == models.MediaTypeTVSeries {
		base := dec.BaseTitle
		media.BaseTitle = &base
	}
	return media
}

// maybeEnrich kicks off a best-effort external lookup of season/episode
// totals for series that do not have them yet. Failures are logged and never
// affect the row or the job; the lookup is bounded so a slow provider cannot
// stall the import loop.
func (r *MediaResolver) maybeEnrich(media *models.Media) {
	if r.enricher == nil || media.Type != models.MediaTypeTVSeries || media.HasEpisodeTotals() {
		return
	}

	id := media.ID
	title := media.Title
	meta := media.Metadata

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		totals, err := r.enricher.LookupEpisodeTotals(ctx, title)
		if err != nil {
			if !errors.Is(err, ErrSeriesNotFound) {
				log.Printf("episode totals lookup failed for %q: %v", title, err)
			}
			return
		}

		merged := models.MergeEpisodeTotals(meta, totals.TotalSeasons, totals.TotalEpisodes, totals.ExternalID)
		if err := r.store.UpdateMedia(ctx, id, map[string]interface{}{"media_metadata": merged}); err != nil {
			log.Printf("failed to store episode totals for %q: %v", title, err)
		}
	}()
}
