package collector

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"log"
	"net/url"
	"strings"

	"github.com/mohammad-safakhou/deepscout/config"
	"github.com/mohammad-safakhou/deepscout/internal/llm"
	"github.com/mohammad-safakhou/deepscout/internal/research"
)

// Endpoints are vars so tests can substitute httptest servers.
var (
	youtubeAPIBase       = "https://www.googleapis.com/youtube/v3"
	youtubeTimedTextBase = "https://www.youtube.com/api/timedtext"
)

// VideoCollector searches YouTube and enriches hits with timed-text
// transcripts.
type VideoCollector struct {
	cfg    config.YouTubeConfig
	llm    llm.Client
	http   *HTTPClient
	cache  Cache
	logger *log.Logger
}

// NewVideoCollector creates the YouTube collector. cache may be nil.
func NewVideoCollector(cfg config.YouTubeConfig, llmClient llm.Client, httpc *HTTPClient, cache Cache) *VideoCollector {
	return &VideoCollector{
		cfg:    cfg,
		llm:    llmClient,
		http:   httpc,
		cache:  cache,
		logger: log.New(log.Writer(), "[YOUTUBE] ", log.LstdFlags),
	}
}

func (v *VideoCollector) Type() research.SourceType { return research.SourceTypeVideo }

// DeriveQuery asks the model to reduce the question to a concise search
// query. The orchestrator falls back to keyword extraction when this fails.
func (v *VideoCollector) DeriveQuery(ctx context.Context, question string, opts research.CollectorOptions) (string, error) {
	prompt := fmt.Sprintf(`Transform the user's question into a concise search query.
Focus on the most critical technical terms and concepts.

User Question: "%s"

Return ONLY the search query string, no explanations.`, question)

	reply, err := v.llm.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("derive youtube query: %w", err)
	}
	query := trimQueryReply(reply)
	v.logger.Printf("derived query %q", query)
	return query, nil
}

// Search queries the Data API v3 search endpoint for videos.
func (v *VideoCollector) Search(ctx context.Context, query string, opts research.CollectorOptions) ([]research.Source, error) {
	if v.cfg.APIKey == "" {
		return nil, fmt.Errorf("youtube API key not configured")
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = v.cfg.MaxResults
	}

	cacheKey := fmt.Sprintf("youtube:%s:%d", query, maxResults)
	if v.cache != nil {
		if cached, ok := v.cache.Get(ctx, cacheKey); ok {
			v.logger.Printf("cache hit for query %q", query)
			return cached, nil
		}
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", fmt.Sprintf("%d", maxResults))
	params.Set("safeSearch", "none")
	params.Set("key", v.cfg.APIKey)

	var resp struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := v.http.DoJSON(ctx, "GET", youtubeAPIBase+"/search?"+params.Encode(), nil, nil, &resp); err != nil {
		return nil, fmt.Errorf("youtube search: %w", err)
	}

	var sources []research.Source
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		sources = append(sources, research.Source{
			Type:    research.SourceTypeVideo,
			Title:   cleanText(item.Snippet.Title),
			Channel: cleanText(item.Snippet.ChannelTitle),
			URL:     "https://www.youtube.com/watch?v=" + item.ID.VideoID,
		})
	}

	if v.cache != nil && len(sources) > 0 {
		v.cache.Set(ctx, cacheKey, sources)
	}
	v.logger.Printf("found %d videos for query %q", len(sources), query)
	return sources, nil
}

// Enrich fetches an English transcript for each video and truncates it to
// the transcript limit. A video without captions keeps an empty transcript;
// it is never dropped here.
func (v *VideoCollector) Enrich(ctx context.Context, sources []research.Source, opts research.CollectorOptions) []research.Source {
	limit := opts.TranscriptLimit
	if limit <= 0 {
		limit = 3000
	}
	for i := range sources {
		videoID := videoIDFromURL(sources[i].URL)
		if videoID == "" {
			continue
		}
		transcript, err := v.fetchTranscript(ctx, videoID)
		if err != nil {
			v.logger.Printf("no transcript for %s: %v", videoID, err)
			continue
		}
		if len(transcript) > limit {
			transcript = transcript[:limit] + "..."
		}
		sources[i].Transcript = transcript
	}
	return sources
}

// timedtext XML structures.
type timedTextTrackList struct {
	Tracks []timedTextTrack `xml:"track"`
}

type timedTextTrack struct {
	LangCode string `xml:"lang_code,attr"`
	Name     string `xml:"name,attr"`
}

type timedTextTranscript struct {
	Texts []string `xml:"text"`
}

// fetchTranscript pulls the caption track list for a video, prefers the
// English track, and joins the caption lines into one string.
func (v *VideoCollector) fetchTranscript(ctx context.Context, videoID string) (string, error) {
	listParams := url.Values{}
	listParams.Set("type", "list")
	listParams.Set("v", videoID)

	body, err := v.http.GetBytes(ctx, youtubeTimedTextBase+"?"+listParams.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("track list: %w", err)
	}

	var list timedTextTrackList
	if err := xml.Unmarshal(body, &list); err != nil {
		return "", fmt.Errorf("parse track list: %w", err)
	}
	if len(list.Tracks) == 0 {
		return "", fmt.Errorf("captions disabled")
	}

	track := list.Tracks[0]
	for _, t := range list.Tracks {
		if t.LangCode == "en" {
			track = t
			break
		}
	}

	trackParams := url.Values{}
	trackParams.Set("lang", track.LangCode)
	trackParams.Set("v", videoID)
	if track.Name != "" {
		trackParams.Set("name", track.Name)
	}

	body, err = v.http.GetBytes(ctx, youtubeTimedTextBase+"?"+trackParams.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("track fetch: %w", err)
	}

	var transcript timedTextTranscript
	if err := xml.Unmarshal(body, &transcript); err != nil {
		return "", fmt.Errorf("parse track: %w", err)
	}

	var parts []string
	for _, t := range transcript.Texts {
		t = strings.TrimSpace(html.UnescapeString(t))
		if t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("empty transcript")
	}
	return strings.Join(parts, " "), nil
}

func videoIDFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("v")
}
