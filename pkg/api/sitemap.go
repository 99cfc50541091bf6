package api

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
}

// HandleSitemap lists the board front page, the search page and every
// thread, most recently updated first.
func (s *Server) HandleSitemap(w http.ResponseWriter, r *http.Request) {
	base := s.baseURL(r)

	entries, err := s.store.SitemapEntries(r.Context())
	if err != nil {
		logger.Errorf("building sitemap: %v", err)
		http.Error(w, "Failed to build sitemap", http.StatusInternalServerError)
		return
	}

	set := sitemapURLSet{Xmlns: sitemapNS}
	set.URLs = append(set.URLs,
		sitemapURL{Loc: base + "/", ChangeFreq: "hourly", Priority: "1.0"},
		sitemapURL{Loc: base + "/search", ChangeFreq: "weekly", Priority: "0.5"},
	)
	for _, e := range entries {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        fmt.Sprintf("%s/thread/%d", base, e.ThreadID),
			LastMod:    e.LastModified.UTC().Format(time.RFC3339),
			ChangeFreq: "daily",
			Priority:   "0.8",
		})
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(xml.Header)); err != nil {
		return
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		logger.Warnf("error encoding sitemap: %v", err)
	}
}

// baseURL is the configured base URL, or one derived from the request.
func (s *Server) baseURL(r *http.Request) string {
	if base := s.currentSettings().BaseURL; base != "" {
		return strings.TrimRight(base, "/")
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
