// Package mandates scrapes the Google Scholar top mandates leaderboard, which
// SerpApi does not cover, with a headless browser.
package mandates

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Sternrassler/scholar-serp/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var rowsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "scholar_mandates_rows_total",
	Help: "Total leaderboard rows parsed",
})

// LeaderboardURL is the Scholar page listing funder mandates.
const LeaderboardURL = "https://scholar.google.com/citations?view_op=mandates_leaderboard"

// Scraper loads and parses the leaderboard.
type Scraper struct {
	browser Browser
	baseURL string
	logger  zerolog.Logger
}

// NewScraper creates a scraper using browser.
func NewScraper(browser Browser) *Scraper {
	return &Scraper{
		browser: browser,
		baseURL: LeaderboardURL,
		logger:  logging.NewLogger(logging.ComponentMandates),
	}
}

// SetBaseURL points the scraper at another leaderboard location.
func (s *Scraper) SetBaseURL(u string) {
	s.baseURL = u
}

// PageURL returns the leaderboard URL for lang.
func (s *Scraper) PageURL(lang string) string {
	sep := "?"
	if strings.Contains(s.baseURL, "?") {
		sep = "&"
	}
	return s.baseURL + sep + "hl=" + url.QueryEscape(lang)
}

// Scrape renders the leaderboard in lang and returns its rows.
// The browser session is released on every path.
func (s *Scraper) Scrape(ctx context.Context, lang string) ([]Row, error) {
	if lang == "" {
		lang = "en"
	}
	start := time.Now()

	sess, err := s.browser.NewSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("open browser session: %w", err)
	}
	defer sess.Close()

	pageURL := s.PageURL(lang)
	s.logger.Debug().Str("url", pageURL).Msg("Rendering leaderboard")

	html, err := sess.Render(pageURL, lang)
	if err != nil {
		s.logger.Error().Err(err).Str("url", pageURL).Msg("Leaderboard render failed")
		return nil, err
	}

	rows, err := ParseHTML(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	rowsTotal.Add(float64(len(rows)))
	s.logger.Info().
		Int("rows", len(rows)).
		Str("lang", lang).
		Dur("duration", time.Since(start)).
		Msg("Leaderboard scraped")

	return rows, nil
}
