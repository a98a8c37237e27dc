package photoblog

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5/util"

	"github.com/eringen/photoblog/validate"
)

// Feed output files, relative to the site root.
const (
	FeedFile    = "feed.xml"
	SitemapFile = "sitemap.xml"
)

type rssXML struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Link        string        `xml:"link"`
	Description string        `xml:"description"`
	PubDate     string        `xml:"pubDate,omitempty"`
	GUID        string        `xml:"guid"`
	Enclosure   *rssEnclosure `xml:"enclosure,omitempty"`
}

type rssEnclosure struct {
	URL  string `xml:"url,attr"`
	Type string `xml:"type,attr"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// WriteFeeds renders feed.xml and sitemap.xml at the site root from the
// posts in the store and returns the number of posts included.
func (s *Site) WriteFeeds() (int, error) {
	doc, err := s.store.Load()
	if err != nil {
		return 0, err
	}
	if err := s.writeXML(FeedFile, s.rss(doc.Posts)); err != nil {
		return 0, err
	}
	if err := s.writeXML(SitemapFile, s.sitemap(doc.Posts)); err != nil {
		return 0, err
	}
	return len(doc.Posts), nil
}

func (s *Site) rss(posts []Post) rssXML {
	base := s.Config.URL
	items := make([]rssItem, 0, len(posts))
	for _, p := range posts {
		pubDate := ""
		if t, err := time.Parse(PublishedLayout, p.Published); err == nil {
			pubDate = t.Format(time.RFC1123Z)
		}
		postURL := BuildURL(base, p.Link)
		item := rssItem{
			Title:       p.Title,
			Link:        postURL,
			Description: p.Title,
			PubDate:     pubDate,
			GUID:        postURL,
		}
		if img := p.Hero; img != "" && !validate.IsExternal(img) {
			item.Enclosure = &rssEnclosure{URL: BuildURL(base, validate.ResolveRef(img)), Type: "image/jpeg"}
		}
		items = append(items, item)
	}
	return rssXML{
		Version: "2.0",
		Channel: rssChannel{
			Title:       s.Config.Name,
			Link:        base,
			Description: s.Config.Description,
			Items:       items,
		},
	}
}

func (s *Site) sitemap(posts []Post) sitemapURLSet {
	base := s.Config.URL
	urls := []sitemapURL{
		{Loc: BuildURL(base)},
	}
	for _, p := range posts {
		lastMod := ""
		if t, err := time.Parse(PublishedLayout, p.Published); err == nil {
			lastMod = t.Format("2006-01-02")
		}
		urls = append(urls, sitemapURL{
			Loc:     BuildURL(base, p.Link),
			LastMod: lastMod,
		})
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}

func (s *Site) writeXML(name string, v any) error {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	buf.WriteByte('\n')
	return util.WriteFile(s.fs, name, buf.Bytes(), 0o644)
}
