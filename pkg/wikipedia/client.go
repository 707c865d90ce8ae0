package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"
	"unicode"

	"geoguidego/pkg/request"
)

// Client fetches article extracts used to enrich POI descriptions.
type Client struct {
	request     *request.Client
	backoff     *request.ProviderBackoff
	APIEndpoint string // Optional override for testing
}

// NewClient creates a new Wikipedia client.
func NewClient(r *request.Client) *Client {
	return &Client{
		request: r,
		backoff: request.NewProviderBackoff(2*time.Second, 2*time.Minute),
	}
}

func (c *Client) endpoint(lang string) string {
	if c.APIEndpoint != "" {
		return c.APIEndpoint
	}
	return fmt.Sprintf("https://%s.wikipedia.org/w/api.php", lang)
}

// GetExtract fetches the plain-text intro extract for an article title.
// Returns empty string (no error) when the article does not exist.
func (c *Client) GetExtract(ctx context.Context, title, lang string) (string, error) {
	if lang == "" {
		lang = "en"
	}

	if err := c.backoff.Wait(ctx, "wikipedia"); err != nil {
		return "", err
	}

	u, _ := url.Parse(c.endpoint(lang))
	q := u.Query()
	q.Add("action", "query")
	q.Add("prop", "extracts")
	q.Add("exintro", "1")
	q.Add("explaintext", "1")
	q.Add("titles", title)
	q.Add("format", "json")
	q.Add("redirects", "1")
	u.RawQuery = q.Encode()

	cacheKey := "wikipedia:" + lang + ":" + title
	body, err := c.request.Get(ctx, u.String(), cacheKey)
	if err != nil {
		c.backoff.RecordFailure("wikipedia")
		return "", err
	}
	c.backoff.RecordSuccess("wikipedia")

	var apiResp struct {
		Query struct {
			Pages map[string]struct {
				Extract string `json:"extract"`
				Missing string `json:"missing,omitempty"`
			} `json:"pages"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to decode json: %w", err)
	}

	for _, page := range apiResp.Query.Pages {
		if page.Missing != "" {
			return "", nil
		}
		return page.Extract, nil
	}
	return "", nil
}

// Summarize returns the first maxSentences sentences of an extract,
// trimmed for announcement.
func Summarize(extract string, maxSentences int) string {
	extract = strings.TrimSpace(extract)
	if extract == "" || maxSentences <= 0 {
		return ""
	}

	count := 0
	for i, r := range extract {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Skip decimals and abbreviations like "гг." mid-word
		next := i + 1
		if next < len(extract) {
			nr := []rune(extract[next:])[0]
			if unicode.IsDigit(nr) || unicode.IsLetter(nr) {
				continue
			}
		}
		count++
		if count >= maxSentences {
			return strings.TrimSpace(extract[:i+1])
		}
	}
	return extract
}

// EnrichDescription returns a richer description for the POI title when
// an article exists, falling back to the current description. Failures
// degrade silently: enrichment is best effort.
func (c *Client) EnrichDescription(ctx context.Context, title, current, lang string) string {
	extract, err := c.GetExtract(ctx, title, lang)
	if err != nil {
		slog.Debug("Wikipedia enrichment skipped", "title", title, "error", err)
		return current
	}
	if s := Summarize(extract, 2); s != "" {
		return s
	}
	return current
}
