// Package wikipedia talks to the MediaWiki action API of the language
// editions of Wikipedia.
package wikipedia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	apperrors "wikishelf/internal/errors"
)

const (
	// DefaultEndpoint is the API URL template; {lang} is replaced per request.
	DefaultEndpoint = "https://{lang}.wikipedia.org/w/api.php"
	// DefaultLang is used when a request names no language.
	DefaultLang = "en"

	userAgent      = "wikishelf/1.0 (personal article library)"
	maxBodyBytes   = 32 << 20
	defaultTimeout = 10 * time.Second
)

var langPattern = regexp.MustCompile(`^[a-z]{2,3}(-[a-z]+)*$`)

// SearchResult is one hit of a full-text search.
type SearchResult struct {
	NS        int       `json:"ns"`
	Title     string    `json:"title"`
	PageID    int64     `json:"pageid"`
	Size      int       `json:"size"`
	WordCount int       `json:"wordcount"`
	Snippet   string    `json:"snippet"`
	Timestamp time.Time `json:"timestamp"`
}

// Page is a rendered article with internal links already rewritten.
type Page struct {
	Title   string
	Content string
}

// Source is the content source the article service depends on.
type Source interface {
	Search(ctx context.Context, query, lang string) ([]SearchResult, error)
	FetchArticle(ctx context.Context, title, lang string) (*Page, error)
}

// Client is an HTTP Source backed by the MediaWiki API.
type Client struct {
	endpoint string
	linkBase string
	timeout  time.Duration
	http     *http.Client
}

// NewClient creates a client. endpoint may contain {lang}; linkBase prefixes
// rewritten internal links.
func NewClient(endpoint, linkBase string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		linkBase: linkBase,
		timeout:  timeout,
		http:     &http.Client{},
	}
}

// NormalizeLang returns lang or the default language, rejecting anything that
// is not a language code.
func NormalizeLang(lang string) (string, error) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return DefaultLang, nil
	}
	if !langPattern.MatchString(lang) {
		return "", fmt.Errorf("%w: unsupported language %q", apperrors.ErrInvalidInput, lang)
	}
	return lang, nil
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type searchResponse struct {
	Error *apiError `json:"error"`
	Query struct {
		Search []SearchResult `json:"search"`
	} `json:"query"`
}

type parseResponse struct {
	Error *apiError `json:"error"`
	Parse *struct {
		Title string `json:"title"`
		Text  struct {
			HTML string `json:"*"`
		} `json:"text"`
	} `json:"parse"`
}

// Search runs a full-text search in the given language edition.
func (c *Client) Search(ctx context.Context, query, lang string) ([]SearchResult, error) {
	lang, err := NormalizeLang(lang)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("format", "json")

	var resp searchResponse
	if err := c.get(ctx, lang, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", apperrors.ErrUpstream, resp.Error.Code, resp.Error.Info)
	}
	if resp.Query.Search == nil {
		return []SearchResult{}, nil
	}
	return resp.Query.Search, nil
}

// FetchArticle downloads the rendered HTML of title. The returned title is
// the canonical one reported by Wikipedia.
func (c *Client) FetchArticle(ctx context.Context, title, lang string) (*Page, error) {
	lang, err := NormalizeLang(lang)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("action", "parse")
	params.Set("page", title)
	params.Set("prop", "text")
	params.Set("redirects", "1")
	params.Set("format", "json")

	var resp parseResponse
	if err := c.get(ctx, lang, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		switch resp.Error.Code {
		case "missingtitle", "invalidtitle":
			return nil, fmt.Errorf("%w: %q", apperrors.ErrUpstreamNotFound, title)
		default:
			return nil, fmt.Errorf("%w: %s: %s", apperrors.ErrUpstream, resp.Error.Code, resp.Error.Info)
		}
	}
	if resp.Parse == nil {
		return nil, fmt.Errorf("%w: empty parse response", apperrors.ErrUpstream)
	}

	content, err := RewriteLinks(resp.Parse.Text.HTML, c.linkBase, lang)
	if err != nil {
		return nil, fmt.Errorf("%w: rewrite links: %v", apperrors.ErrUpstream, err)
	}
	return &Page{Title: resp.Parse.Title, Content: content}, nil
}

func (c *Client) get(ctx context.Context, lang string, params url.Values, dst interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	endpoint := strings.ReplaceAll(c.endpoint, "{lang}", lang)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", apperrors.ErrUpstream, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %s", apperrors.ErrUpstream, resp.Status)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode response: %v", apperrors.ErrUpstream, err)
	}
	return nil
}
