// Package services holds the thin external integrations that feed
// enrichment cards. Each one degrades to "no data" on failure — the engine
// never blocks on these.
package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"github.com/nikhil/unapp/internal/cards"
	"github.com/nikhil/unapp/internal/category"
)

// CricketClient looks up live matches from the cricket API and turns them
// into an enrichment card.
type CricketClient struct {
	url    string
	apiKey string
	http   *http.Client
}

func NewCricketClient(url, apiKey string) *CricketClient {
	return &CricketClient{
		url:    url,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 5 * time.Second},
	}
}

// LiveMatches returns the number of matches in progress and a headline for
// the most interesting one: an India match if one is on, else the first
// live match.
func (c *CricketClient) LiveMatches(ctx context.Context) (count int, headline string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s?apikey=%s&offset=0", c.url, c.apiKey), nil)
	if err != nil {
		return 0, "", fmt.Errorf("building cricket request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("fetching matches: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, "", fmt.Errorf("cricket api returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, "", fmt.Errorf("reading matches: %w", err)
	}

	matches := gjson.GetBytes(body, "data")
	if !matches.IsArray() {
		return 0, "", fmt.Errorf("unexpected cricket api response shape")
	}

	var firstLive, india string
	matches.ForEach(func(_, m gjson.Result) bool {
		live := m.Get("matchStarted").Bool() && !m.Get("matchEnded").Bool()
		if !live {
			return true
		}
		count++
		name := m.Get("name").String()
		if firstLive == "" {
			firstLive = name
		}
		if india == "" {
			m.Get("teams").ForEach(func(_, team gjson.Result) bool {
				if team.String() == "India" {
					india = name
					return false
				}
				return true
			})
		}
		return true
	})

	if india != "" {
		headline = india
	} else {
		headline = firstLive
	}
	return count, headline, nil
}

// Cards implements cards.Enricher: one cricket card when matches are live.
func (c *CricketClient) Cards(ctx context.Context, now time.Time) ([]cards.Card, error) {
	count, headline, err := c.LiveMatches(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	title := fmt.Sprintf("%d live match", count)
	if count > 1 {
		title = fmt.Sprintf("%d live matches", count)
	}
	return []cards.Card{{
		ID:       "cricket-live",
		Emoji:    category.Lookup(category.Cricket).Emoji,
		Title:    title,
		Subtitle: headline,
		Action:   category.Action(category.Cricket, true),
		Category: category.Cricket,
	}}, nil
}
