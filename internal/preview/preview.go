// Package preview scrapes the title, description and favicon of a bookmarked
// page.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxBody        = 1 << 20
	maxDescription = 1000
)

// ErrBlockedURL is returned for non-http URLs and, unless allowed, URLs
// pointing into private networks.
var ErrBlockedURL = errors.New("preview: url not allowed")

// Preview is what a page says about itself.
type Preview struct {
	Title       string
	Description string
	Favicon     string
}

// Fetcher downloads pages for previews.
type Fetcher struct {
	client       *http.Client
	allowPrivate bool
	lookup       func(ctx context.Context, host string) ([]net.IPAddr, error)
}

// NewFetcher returns a Fetcher using client, or a 5s-timeout client when nil.
// With allowPrivate false, loopback, link-local and private hosts are refused
// for the submitted URL, for every redirect hop and, on the default client,
// for the address actually dialed.
func NewFetcher(client *http.Client, allowPrivate bool) *Fetcher {
	f := &Fetcher{allowPrivate: allowPrivate, lookup: net.DefaultResolver.LookupIPAddr}
	if client == nil {
		dialer := &net.Dialer{Timeout: 5 * time.Second}
		if !allowPrivate {
			dialer.Control = dialControl
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = dialer.DialContext
		client = &http.Client{Timeout: 5 * time.Second, Transport: transport}
	}
	c := *client
	c.CheckRedirect = f.checkRedirect
	f.client = &c
	return f
}

func (f *Fetcher) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= 10 {
		return errors.New("preview: stopped after 10 redirects")
	}
	_, err := f.check(req.Context(), req.URL.String())
	return err
}

// dialControl refuses connections to blocked addresses after DNS resolution.
func dialControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip == nil || blocked(ip) {
		return fmt.Errorf("%w: dial %s", ErrBlockedURL, address)
	}
	return nil
}

func blocked(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified() || ip.IsMulticast()
}

// Fetch downloads rawURL and extracts its preview. Non-HTML responses are errors.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Preview, error) {
	u, err := f.check(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("User-Agent", "Mozilla/5.0 (LinkVault Bot)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("preview: %s returned %d", rawURL, resp.StatusCode)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/html" {
		return nil, fmt.Errorf("preview: %s is %q, not html", rawURL, mt)
	}
	p, err := Parse(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, err
	}
	p.Favicon = resolve(resp.Request.URL, p.Favicon)
	return p, nil
}

func (f *Fetcher) check(ctx context.Context, rawURL string) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlockedURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme %q", ErrBlockedURL, u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrBlockedURL)
	}
	if f.allowPrivate {
		return u, nil
	}

	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".local") {
		return nil, fmt.Errorf("%w: %s", ErrBlockedURL, host)
	}
	if ip := net.ParseIP(host); ip != nil {
		if blocked(ip) {
			return nil, fmt.Errorf("%w: %s", ErrBlockedURL, host)
		}
		return u, nil
	}
	addrs, err := f.lookup(ctx, host)
	if err != nil {
		return nil, err
	}
	for _, a := range addrs {
		if blocked(a.IP) {
			return nil, fmt.Errorf("%w: %s resolves to %s", ErrBlockedURL, host, a.IP)
		}
	}
	return u, nil
}

// Parse reads an HTML document. Open Graph tags win over <title> and the
// plain description meta. Favicon is the raw href of the icon link.
func Parse(r io.Reader) (*Preview, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("preview: parse: %w", err)
	}

	p := &Preview{}
	var plainDescription string
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		key := s.AttrOr("property", s.AttrOr("name", ""))
		switch strings.ToLower(key) {
		case "og:title":
			p.Title = content
		case "og:description":
			p.Description = content
		case "description":
			plainDescription = content
		}
	})
	if p.Title == "" {
		p.Title = strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
	}
	if p.Description == "" {
		p.Description = plainDescription
	}
	if r := []rune(p.Description); len(r) > maxDescription {
		p.Description = string(r[:maxDescription])
	}

	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, rel := range strings.Fields(strings.ToLower(s.AttrOr("rel", ""))) {
			if rel == "icon" {
				p.Favicon = s.AttrOr("href", "")
				return false
			}
		}
		return true
	})
	return p, nil
}

// Fill completes empty title, description and favicon fields from the page at
// rawURL. The fields are always usable afterwards: when the page cannot be
// read the title becomes the URL host and the favicon the host's
// /favicon.ico. The returned error only reports why the page was skipped.
func (f *Fetcher) Fill(ctx context.Context, rawURL string, title, description, favicon *string) error {
	var p *Preview
	var err error
	if *title == "" || *description == "" || *favicon == "" {
		p, err = f.Fetch(ctx, rawURL)
	}
	if p == nil {
		p = &Preview{}
	}

	u, _ := url.Parse(rawURL)
	if *title == "" {
		*title = p.Title
	}
	if *title == "" {
		*title = rawURL
		if u != nil && u.Host != "" {
			*title = u.Host
		}
	}
	if *description == "" {
		*description = p.Description
	}
	if *favicon == "" {
		*favicon = p.Favicon
	}
	if *favicon == "" && u != nil && u.Host != "" {
		*favicon = u.Scheme + "://" + u.Host + "/favicon.ico"
	}
	return err
}

func resolve(base *url.URL, href string) string {
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
