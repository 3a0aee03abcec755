package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ihabbishara/RAGIncidentApp/internal/domain"
	"github.com/ihabbishara/RAGIncidentApp/internal/mail"
)

const (
	contentPath     = "/rest/api/content"
	defaultPageSize = 25
	defaultTimeout  = 30 * time.Second
)

// ConfluenceConfig holds connection settings for a Confluence instance.
type ConfluenceConfig struct {
	BaseURL  string
	Username string
	APIToken string
	PageSize int
	Timeout  time.Duration
}

// ConfluenceClient fetches wiki pages and converts them into documents.
type ConfluenceClient struct {
	cfg        ConfluenceConfig
	httpClient *http.Client
}

func NewConfluenceClient(cfg ConfluenceConfig) *ConfluenceClient {
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &ConfluenceClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type confluencePage struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
	Space struct {
		Key string `json:"key"`
	} `json:"space"`
	Metadata struct {
		Labels struct {
			Results []struct {
				Name string `json:"name"`
			} `json:"results"`
		} `json:"labels"`
	} `json:"metadata"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
}

type contentResponse struct {
	Results []confluencePage `json:"results"`
}

func (c *ConfluenceClient) fetchContent(ctx context.Context, params url.Values) ([]confluencePage, error) {
	reqURL := c.cfg.BaseURL + contentPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.APIToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("confluence API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed contentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return parsed.Results, nil
}

func (c *ConfluenceClient) fetchPaged(ctx context.Context, base url.Values) ([]confluencePage, error) {
	var all []confluencePage
	start := 0

	for {
		params := url.Values{}
		for k, v := range base {
			params[k] = v
		}
		params.Set("start", strconv.Itoa(start))
		params.Set("limit", strconv.Itoa(c.cfg.PageSize))
		params.Set("expand", "body.storage,metadata.labels")

		pages, err := c.fetchContent(ctx, params)
		if err != nil {
			return all, err
		}
		if len(pages) == 0 {
			break
		}

		all = append(all, pages...)
		start += len(pages)

		if len(pages) < c.cfg.PageSize {
			break
		}
	}

	return all, nil
}

// FetchPagesBySpace fetches every page in a space, following pagination.
func (c *ConfluenceClient) FetchPagesBySpace(ctx context.Context, spaceKey string) ([]domain.Document, error) {
	pages, err := c.fetchPaged(ctx, url.Values{"spaceKey": {spaceKey}})
	if err != nil {
		return nil, fmt.Errorf("fetch pages for space %s: %w", spaceKey, err)
	}
	return c.toDocuments(pages), nil
}

// FetchPagesByLabel fetches every page carrying a label, following pagination.
func (c *ConfluenceClient) FetchPagesByLabel(ctx context.Context, label string) ([]domain.Document, error) {
	pages, err := c.fetchPaged(ctx, url.Values{"label": {label}})
	if err != nil {
		return nil, fmt.Errorf("fetch pages for label %s: %w", label, err)
	}
	return c.toDocuments(pages), nil
}

// FetchAll fetches pages for the configured spaces and labels, deduplicating
// by page ID. When labels are given, pages without any of them are dropped.
func (c *ConfluenceClient) FetchAll(ctx context.Context, spaces, labels []string) ([]domain.Document, error) {
	var all []confluencePage
	seen := make(map[string]bool)

	add := func(pages []confluencePage) {
		for _, p := range pages {
			if p.ID == "" || seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			all = append(all, p)
		}
	}

	for _, space := range spaces {
		pages, err := c.fetchPaged(ctx, url.Values{"spaceKey": {space}})
		if err != nil {
			log.Printf("confluence: space %s fetch failed: %v", space, err)
			continue
		}
		add(pages)
	}

	for _, label := range labels {
		pages, err := c.fetchPaged(ctx, url.Values{"label": {label}})
		if err != nil {
			log.Printf("confluence: label %s fetch failed: %v", label, err)
			continue
		}
		add(pages)
	}

	if len(labels) > 0 {
		all = filterByLabels(all, labels)
	}

	return c.toDocuments(all), nil
}

func filterByLabels(pages []confluencePage, labels []string) []confluencePage {
	want := make(map[string]bool, len(labels))
	for _, l := range labels {
		want[strings.ToLower(l)] = true
	}

	var filtered []confluencePage
	for _, p := range pages {
		for _, l := range p.Metadata.Labels.Results {
			if want[strings.ToLower(l.Name)] {
				filtered = append(filtered, p)
				break
			}
		}
	}
	return filtered
}

func (c *ConfluenceClient) toDocuments(pages []confluencePage) []domain.Document {
	docs := make([]domain.Document, 0, len(pages))
	for _, p := range pages {
		title := p.Title
		if title == "" {
			title = "Untitled"
		}

		labels := make([]string, 0, len(p.Metadata.Labels.Results))
		for _, l := range p.Metadata.Labels.Results {
			labels = append(labels, l.Name)
		}

		docs = append(docs, domain.Document{
			ID:       p.ID,
			Title:    title,
			Body:     mail.StripHTML(p.Body.Storage.Value),
			SpaceKey: p.Space.Key,
			Labels:   labels,
			Version:  p.Version.Number,
			URL:      fmt.Sprintf("%s/pages/viewpage.action?pageId=%s", c.cfg.BaseURL, p.ID),
		})
	}
	return docs
}
