// Package catalog extracts downloadable resources from open-data dataset
// pages. The pages follow the CKAN resource-list markup: every downloadable
// file is announced by a download icon inside ul.resource-list, with the
// link and format on the enclosing anchor and the display name on a sibling
// heading anchor.
package catalog

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"opendata/internal/fetchjob"

	"github.com/PuerkitoBio/goquery"
)

// Resource is one downloadable file announced on a dataset page.
type Resource struct {
	Name   string // display name as shown on the page
	Format string // lowercased data-format attribute ("csv", "xls", ...)
	URL    string // absolute download URL
}

// FileName derives the on-disk name for the resource: spaces become
// underscores, the format is appended as an extension unless the name
// already ends with it, and unsafe characters are removed.
func (r Resource) FileName() string {
	name := strings.ReplaceAll(strings.TrimSpace(r.Name), " ", "_")
	if r.Format != "" && !strings.HasSuffix(strings.ToLower(name), "."+r.Format) {
		name += "." + r.Format
	}
	return fetchjob.Sanitize(name)
}

// Page is a parsed dataset page.
type Page struct {
	Title     string
	Resources []Resource
}

// Filter returns the resources whose display or derived file name contains
// the given fragment. An empty fragment returns all resources.
func (p *Page) Filter(fragment string) []Resource {
	if fragment == "" {
		return p.Resources
	}
	var out []Resource
	for _, r := range p.Resources {
		if strings.Contains(r.Name, fragment) || strings.Contains(r.FileName(), fragment) {
			out = append(out, r)
		}
	}
	return out
}

// Parse reads a dataset page and extracts its title and resource list.
//
// Pages that parse but do not contain the expected markup yield an empty
// resource list, not an error; dead or partial catalog pages are an
// expected input. A missing title falls back to the last path segment of
// pageURL.
func Parse(r io.Reader, pageURL string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse dataset page: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		base = nil
	}

	p := &Page{Title: pageTitle(doc, pageURL)}

	doc.Find("ul.resource-list i.icon-download-alt").Each(func(_ int, icon *goquery.Selection) {
		anchor := icon.Parent()
		href := strings.TrimSpace(anchor.AttrOr("href", ""))
		if href == "" {
			return
		}

		format := strings.ToLower(strings.TrimSpace(anchor.AttrOr("data-format", "")))

		heading := icon.Closest("li").Find("a.heading").First()
		name := strings.TrimSpace(heading.AttrOr("title", ""))
		if name == "" {
			name = urlBasename(href)
		}

		p.Resources = append(p.Resources, Resource{
			Name:   name,
			Format: format,
			URL:    resolveURL(base, href),
		})
	})

	return p, nil
}

func pageTitle(doc *goquery.Document, pageURL string) string {
	if t := strings.TrimSpace(doc.Find("h1[itemprop=name]").First().Text()); t != "" {
		return t
	}
	return urlBasename(pageURL)
}

// resolveURL makes href absolute against the page URL. Unparseable inputs
// pass through unchanged; the download layer reports them properly.
func resolveURL(base *url.URL, href string) string {
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func urlBasename(raw string) string {
	if raw == "" {
		return ""
	}
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		raw = u.Path
	}
	return path.Base(strings.TrimSuffix(raw, "/"))
}
