package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/eantrace/eantrace/ean"
	"github.com/eantrace/eantrace/fetch"
	"github.com/eantrace/eantrace/models"
)

const defaultSnapshotBase = "https://archive.org"

// SnapshotArchive asks the Wayback Machine for the closest archived snapshot
// of a search-results page for the code.
type SnapshotArchive struct {
	client *fetch.Client
	base   string
}

// NewSnapshotArchive builds the snapshot archive source.
func NewSnapshotArchive(client *fetch.Client) *SnapshotArchive {
	return &SnapshotArchive{client: client, base: defaultSnapshotBase}
}

// Name identifies the source in logs.
func (s *SnapshotArchive) Name() string { return "snapshot" }

type snapshotPayload struct {
	ArchivedSnapshots struct {
		Closest struct {
			URL       string `json:"url"`
			Timestamp string `json:"timestamp"`
		} `json:"closest"`
	} `json:"archived_snapshots"`
}

// Lookup returns the closest snapshot as a single finding, or nothing when
// no snapshot exists.
func (s *SnapshotArchive) Lookup(ctx context.Context, code ean.Code) (*models.SourceResult, error) {
	query := fmt.Sprintf("https://www.google.com/search?q=%s", code)
	apiURL := fmt.Sprintf("%s/wayback/available?url=%s", s.base, url.QueryEscape(query))

	body, err := s.client.FetchBytes(ctx, apiURL)
	if err != nil {
		return nil, err
	}

	var payload snapshotPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode snapshot record: %w", err)
	}
	closest := payload.ArchivedSnapshots.Closest
	if closest.URL == "" {
		return nil, nil
	}

	clue := closest.Timestamp
	if clue == "" {
		clue = models.UnknownClue
	}
	return &models.SourceResult{
		SourceURL: closest.URL,
		Findings: []models.Finding{{
			ProductName: "Wayback snapshot",
			DateClue:    clue,
			Assessment:  models.Snapshot,
			Snippet:     fmt.Sprintf("archived search snapshot for EAN %s", code),
			SourceURL:   closest.URL,
		}},
	}, nil
}
