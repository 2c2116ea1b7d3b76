package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/samirrijal/geogate/internal/core/domain"
	"github.com/samirrijal/geogate/internal/pkg/logging"
	"github.com/samirrijal/geogate/internal/pkg/metrics"
)

// pageDoc is one page of a paginated collection: its features plus every
// continuation convention a provider may use.
type pageDoc struct {
	Features []domain.RawFeature `json:"features"`
	Links    lenient[[]pageLink] `json:"links"`
	HAL      lenient[halLinks]   `json:"_links"`
	Next     lenient[string]     `json:"next"`
}

type pageLink struct {
	Rel  lenient[string] `json:"rel"`
	Href lenient[string] `json:"href"`
}

type halLinks struct {
	Next lenient[struct {
		Href lenient[string] `json:"href"`
	}] `json:"next"`
}

// lenient decodes T and falls back to the zero value when the JSON has
// another shape, so an odd link field never fails a page.
type lenient[T any] struct {
	v T
}

func (l *lenient[T]) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &l.v); err != nil {
		var zero T
		l.v = zero
	}
	return nil
}

// nextLink finds the continuation URL of one page, if any.
type nextLink func(doc *pageDoc, header http.Header) (string, bool)

// nextLinks are tried in order; the first hit wins.
var nextLinks = []nextLink{
	linksArrayNext,
	halNext,
	bareNext,
	linkHeaderNext,
}

// FetchAll follows continuation links from req.URL, accumulating every page's
// features in order. Pagination stops at MaxPages without error. A failed page
// aborts the whole fetch.
func (c *Client) FetchAll(ctx context.Context, req domain.UpstreamRequest) ([]domain.RawFeature, error) {
	var all []domain.RawFeature
	next := req.URL
	seen := make(map[string]struct{})

	for page := 1; next != "" && page <= c.cfg.MaxPages; page++ {
		seen[next] = struct{}{}

		body, header, err := c.get(ctx, next, req.UseAPIKey)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		metrics.UpstreamPages.Inc()

		var doc pageDoc
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("page %d: decode %s: %w", page, redact(next), err)
		}
		all = append(all, doc.Features...)

		link, ok := findNext(&doc, header)
		if !ok {
			break
		}
		resolved, err := resolveLink(next, link)
		if err != nil {
			return nil, fmt.Errorf("page %d: next link %q: %w", page, link, err)
		}
		if _, loop := seen[resolved]; loop {
			logging.FromContext(ctx).Warn("pagination loop detected", "url", redact(resolved), "page", page)
			break
		}
		next = resolved

		if page == c.cfg.MaxPages {
			logging.FromContext(ctx).Warn("pagination cap reached", "pages", page, "url", redact(req.URL))
		}
	}
	return all, nil
}

func findNext(doc *pageDoc, header http.Header) (string, bool) {
	for _, fn := range nextLinks {
		if link, ok := fn(doc, header); ok {
			return link, true
		}
	}
	return "", false
}

// linksArrayNext handles {"links":[{"rel":"next","href":...}]}.
func linksArrayNext(doc *pageDoc, _ http.Header) (string, bool) {
	for _, l := range doc.Links.v {
		if !strings.EqualFold(l.Rel.v, "next") {
			continue
		}
		if href, ok := nonEmpty(l.Href.v); ok {
			return href, true
		}
	}
	return "", false
}

// halNext handles {"_links":{"next":{"href":...}}}.
func halNext(doc *pageDoc, _ http.Header) (string, bool) {
	return nonEmpty(doc.HAL.v.Next.v.Href.v)
}

// bareNext handles {"next":"..."}.
func bareNext(doc *pageDoc, _ http.Header) (string, bool) {
	return nonEmpty(doc.Next.v)
}

// linkHeaderNext handles an RFC 8288 Link: <...>; rel="next" header.
func linkHeaderNext(_ *pageDoc, header http.Header) (string, bool) {
	for _, value := range header.Values("Link") {
		for _, part := range strings.Split(value, ",") {
			segs := strings.Split(part, ";")
			target := strings.TrimSpace(segs[0])
			if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
				continue
			}
			for _, param := range segs[1:] {
				k, v, ok := strings.Cut(strings.TrimSpace(param), "=")
				if !ok || !strings.EqualFold(strings.TrimSpace(k), "rel") {
					continue
				}
				for _, rel := range strings.Fields(strings.Trim(v, `"`)) {
					if strings.EqualFold(rel, "next") {
						return target[1 : len(target)-1], true
					}
				}
			}
		}
	}
	return "", false
}

func nonEmpty(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

// resolveLink resolves a possibly relative continuation link against the page URL.
func resolveLink(base, link string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(link)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}
