// Package thread reconstructs multi-post same-author threads behind a
// single short-form post. Two recovery strategies run in order: an
// unroll-aggregator lookup, then a reply-chain walk over a lightweight
// mirror API. First success wins.
package thread

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"LinkVault/internal/domain"
	"LinkVault/internal/pacing"
	"LinkVault/internal/sanitize"
)

const (
	defaultMaxDepth = 10
	defaultHopDelay = 300 * time.Millisecond
)

// Config points the reconstructor at its upstream services.
type Config struct {
	// UnrollBaseURL serves GET {base}/thread/{id} with the aggregated
	// thread segments.
	UnrollBaseURL string
	// MirrorBaseURL serves GET {base}/status/{id} with single-post data.
	MirrorBaseURL string
	MaxDepth      int
	HopDelay      time.Duration
}

// Reconstructor recovers threads sequentially with fixed inter-request
// pacing; it never fans out in parallel.
type Reconstructor struct {
	cfg    Config
	client *http.Client
	pacer  *pacing.Pacer
	logger *slog.Logger
}

// New wires the reconstructor. A nil client gets a bounded default; a nil
// pacer gets one at the fixed hop delay.
func New(cfg Config, client *http.Client, pacer *pacing.Pacer, logger *slog.Logger) *Reconstructor {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = defaultMaxDepth
	}
	if cfg.HopDelay <= 0 {
		cfg.HopDelay = defaultHopDelay
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if pacer == nil {
		pacer = pacing.New(cfg.HopDelay)
	}
	return &Reconstructor{cfg: cfg, client: client, pacer: pacer, logger: logger}
}

// Reconstruct recovers the thread containing postURL. Provenance is
// "none" exactly when both strategies yield one post or fewer, in which
// case any available single-post data is returned as-is.
func (r *Reconstructor) Reconstruct(ctx context.Context, postURL string) (domain.ThreadBundle, error) {
	postID, err := extractPostID(postURL)
	if err != nil {
		return domain.ThreadBundle{Provenance: domain.ProvenanceNone}, err
	}

	if bundle, ok := r.tryUnroll(ctx, postID); ok {
		return bundle, nil
	}

	bundle, single := r.tryReplyChain(ctx, postID)
	if bundle.PostCount > 1 {
		return bundle, nil
	}

	// Neither strategy recovered a thread; degrade to whatever single
	// post the mirror produced, possibly nothing.
	fallback := domain.ThreadBundle{Provenance: domain.ProvenanceNone}
	if single != nil {
		fallback.PostCount = 1
		fallback.Texts = []string{single.Text}
		fallback.FullText = single.Text
		fallback.Links = ExtractLinks([]string{single.Text})
		fallback.AuthorName = single.Author.Name
		fallback.AuthorHandle = single.Author.Handle
	}
	return fallback, nil
}

// unrollResponse is the aggregator's segment list for one thread.
type unrollResponse struct {
	Author struct {
		Name   string `json:"name"`
		Handle string `json:"handle"`
	} `json:"author"`
	Segments []struct {
		Text string `json:"text"`
	} `json:"segments"`
}

func (r *Reconstructor) tryUnroll(ctx context.Context, postID string) (domain.ThreadBundle, bool) {
	if r.cfg.UnrollBaseURL == "" {
		return domain.ThreadBundle{}, false
	}

	endpoint := strings.TrimSuffix(r.cfg.UnrollBaseURL, "/") + "/thread/" + url.PathEscape(postID)
	var parsed unrollResponse
	if err := r.getJSON(ctx, endpoint, &parsed); err != nil {
		r.debug("unroll lookup failed", "post_id", postID, "error", err)
		return domain.ThreadBundle{}, false
	}

	// A single segment means the aggregator never saw a thread here.
	if len(parsed.Segments) <= 1 {
		return domain.ThreadBundle{}, false
	}

	texts := make([]string, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		texts = append(texts, sanitize.Clean(seg.Text))
	}

	return domain.ThreadBundle{
		PostCount:    len(texts),
		Texts:        texts,
		Links:        ExtractLinks(texts),
		FullText:     strings.Join(texts, "\n\n"),
		Provenance:   domain.ProvenanceUnroll,
		AuthorName:   parsed.Author.Name,
		AuthorHandle: parsed.Author.Handle,
	}, true
}

// mirrorPost is the lightweight single-post shape served by the mirror.
type mirrorPost struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Author struct {
		Name   string `json:"name"`
		Handle string `json:"screen_name"`
	} `json:"author"`
	ReplyingTo struct {
		PostID string `json:"post_id"`
		Handle string `json:"screen_name"`
	} `json:"replying_to"`
}

// tryReplyChain walks parents from the target post, prepending every hop
// authored by the same account. It stops on author mismatch, missing
// parent, fetch failure, or the depth cap, pausing between hops.
func (r *Reconstructor) tryReplyChain(ctx context.Context, postID string) (domain.ThreadBundle, *mirrorPost) {
	if r.cfg.MirrorBaseURL == "" {
		return domain.ThreadBundle{Provenance: domain.ProvenanceNone}, nil
	}

	r.pacer.Reset()

	// The origin fetch consumes the chain's free first wait, so every
	// consecutive pair of mirror requests is spaced by the hop delay.
	if err := r.pacer.Wait(ctx); err != nil {
		return domain.ThreadBundle{Provenance: domain.ProvenanceNone}, nil
	}

	origin, err := r.fetchMirrorPost(ctx, postID)
	if err != nil {
		r.debug("mirror fetch failed", "post_id", postID, "error", err)
		return domain.ThreadBundle{Provenance: domain.ProvenanceNone}, nil
	}

	posts := []*mirrorPost{origin}
	current := origin
	for depth := 0; depth < r.cfg.MaxDepth; depth++ {
		if current.ReplyingTo.PostID == "" {
			break
		}
		if !strings.EqualFold(current.ReplyingTo.Handle, origin.Author.Handle) {
			break
		}
		if err := r.pacer.Wait(ctx); err != nil {
			break
		}

		parent, err := r.fetchMirrorPost(ctx, current.ReplyingTo.PostID)
		if err != nil {
			r.debug("reply-chain hop failed", "post_id", current.ReplyingTo.PostID, "error", err)
			break
		}
		posts = append([]*mirrorPost{parent}, posts...)
		current = parent
	}

	if len(posts) <= 1 {
		return domain.ThreadBundle{Provenance: domain.ProvenanceNone}, origin
	}

	texts := make([]string, 0, len(posts))
	for _, p := range posts {
		texts = append(texts, sanitize.Clean(p.Text))
	}

	return domain.ThreadBundle{
		PostCount:    len(texts),
		Texts:        texts,
		Links:        ExtractLinks(texts),
		FullText:     strings.Join(texts, "\n\n"),
		Provenance:   domain.ProvenanceReplyChain,
		AuthorName:   origin.Author.Name,
		AuthorHandle: origin.Author.Handle,
	}, origin
}

func (r *Reconstructor) fetchMirrorPost(ctx context.Context, postID string) (*mirrorPost, error) {
	endpoint := strings.TrimSuffix(r.cfg.MirrorBaseURL, "/") + "/status/" + url.PathEscape(postID)
	var post mirrorPost
	if err := r.getJSON(ctx, endpoint, &post); err != nil {
		return nil, err
	}
	if post.Text == "" && post.ID == "" {
		return nil, fmt.Errorf("mirror returned empty post for %s", postID)
	}
	return &post, nil
}

func (r *Reconstructor) getJSON(ctx context.Context, endpoint string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s returned %s", endpoint, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractPostID pulls the numeric/string post id from the final path
// segment of a status URL.
func extractPostID(postURL string) (string, error) {
	u, err := url.Parse(postURL)
	if err != nil {
		return "", fmt.Errorf("parse post url: %w", err)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			return segments[i], nil
		}
	}
	return "", fmt.Errorf("no post id in %s", postURL)
}

func (r *Reconstructor) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
