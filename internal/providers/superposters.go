package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jmoiron/sqlx"

	"github.com/feedstudy/rankfeed/internal/rankerrors"
)

// SuperposterSource distinguishes a locally cached batch artifact from
// a warehouse query, reproducing
// original_source/services/calculate_superposters's LOCAL/REMOTE
// distinction (spec §6).
type SuperposterSource string

const (
	SuperposterSourceLocal  SuperposterSource = "LOCAL"
	SuperposterSourceRemote SuperposterSource = "REMOTE"
)

// SuperposterProvider serves the current set of superposter author DIDs
// (spec §6).
type SuperposterProvider struct {
	db      *sqlx.DB
	timeout time.Duration
	http    *resty.Client
	baseURL string
}

// NewSuperposterProvider constructs a SuperposterProvider. http/baseURL
// are only used by LoadLatest(SuperposterSourceRemote, ...).
func NewSuperposterProvider(db *sqlx.DB, timeout time.Duration, http *resty.Client, baseURL string) *SuperposterProvider {
	return &SuperposterProvider{db: db, timeout: timeout, http: http, baseURL: baseURL}
}

// LoadLatest returns the current superposter DID set. LOCAL reads the
// most recent batch artifact from Postgres; REMOTE queries a warehouse
// HTTP endpoint (spec §6).
func (p *SuperposterProvider) LoadLatest(ctx context.Context, source SuperposterSource, lookback *time.Time) (map[string]struct{}, error) {
	switch source {
	case SuperposterSourceRemote:
		return p.loadRemote(ctx, lookback)
	default:
		return p.loadLocal(ctx, lookback)
	}
}

func (p *SuperposterProvider) loadLocal(ctx context.Context, lookback *time.Time) (map[string]struct{}, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	query := `SELECT author_did FROM superposter_batches WHERE ($1::timestamptz IS NULL OR batch_timestamp >= $1) ORDER BY batch_timestamp DESC`
	rows, err := p.db.QueryxContext(ctx, query, lookback)
	if err != nil {
		return nil, rankerrors.NewStorageError("superposters.local", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var did string
		if err := rows.Scan(&did); err != nil {
			return nil, rankerrors.NewStorageError("superposters.local.scan", err)
		}
		out[did] = struct{}{}
	}
	return out, nil
}

type remoteSuperposterResponse struct {
	AuthorDIDs []string `json:"author_dids"`
}

func (p *SuperposterProvider) loadRemote(ctx context.Context, lookback *time.Time) (map[string]struct{}, error) {
	req := p.http.R().SetContext(ctx)
	if lookback != nil {
		req.SetQueryParam("since", lookback.Format(time.RFC3339))
	}

	var body remoteSuperposterResponse
	resp, err := req.SetResult(&body).Get(p.baseURL + "/superposters")
	if err != nil {
		return nil, rankerrors.NewStorageError("superposters.remote", err)
	}
	if resp.IsError() {
		return nil, rankerrors.NewStorageError("superposters.remote", fmt.Errorf("warehouse responded %s", resp.Status()))
	}

	out := make(map[string]struct{}, len(body.AuthorDIDs))
	for _, did := range body.AuthorDIDs {
		out[did] = struct{}{}
	}
	return out, nil
}
