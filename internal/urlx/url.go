// Package urlx parses and normalizes crawled URLs into the (domain, path)
// pairs the rest of sentropy keys entities on.
package urlx

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/purell"
	"golang.org/x/net/publicsuffix"
)

// URL wraps the standard library's *url.URL, giving us a place to hang
// normalization and domain/path extraction.
type URL struct {
	*url.URL
}

// ParseURL is the sentropy equivalent of url.Parse; all URLs pulled from
// RawArticle rows should be passed through this so normalization is
// consistent.
func ParseURL(ref string) (*URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, err
	}
	return &URL{URL: u}, nil
}

// Normalize applies purell's safe normalization rules in place, stripping
// the fragment (the query string is preserved).
func (u *URL) Normalize() {
	purell.NormalizeURL(u.URL, purell.FlagsSafe|purell.FlagRemoveFragment)
}

// domainKeyPattern matches a lower-cased host with at least one dot and a
// plausible TLD.
var domainKeyPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)+$`)

// ValidDomainKey reports whether key is an acceptable Domain.key value.
func ValidDomainKey(key string) bool {
	if key == "" || len(key) > 255 {
		return false
	}
	return domainKeyPattern.MatchString(key)
}

// DomainOf extracts the lower-cased host from ref.
func DomainOf(ref string) (string, error) {
	u, err := ParseURL(ref)
	if err != nil {
		return "", fmt.Errorf("urlx: parse %q: %w", ref, err)
	}
	return strings.ToLower(u.Hostname()), nil
}

// PathOf extracts the path plus query, with the fragment stripped:
// "http://host/rest?x#y" -> "/rest?x".
func PathOf(ref string) (string, error) {
	u, err := ParseURL(ref)
	if err != nil {
		return "", fmt.Errorf("urlx: parse %q: %w", ref, err)
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path, nil
}

// Split is a convenience combining DomainOf and PathOf for one URL string.
func Split(ref string) (domain, path string, err error) {
	domain, err = DomainOf(ref)
	if err != nil {
		return "", "", err
	}
	path, err = PathOf(ref)
	if err != nil {
		return "", "", err
	}
	return domain, path, nil
}

// Join reconstructs a URL from a (domain, path) pair; joining the two
// halves of Split re-parses to the same (domain, path).
func Join(domain, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "http://" + domain + path
}

// ToplevelDomainPlusOne returns the registrable domain (eTLD+1) of host, per
// https://publicsuffix.org/, so "www.bbc.co.uk" and "bbc.co.uk" both give
// "bbc.co.uk". Nothing in sentropy calls it: Domain.key is the full
// lowercased host, and DomainByPattern does its own "%.host" globbing.
func ToplevelDomainPlusOne(host string) (string, error) {
	return publicsuffix.EffectiveTLDPlusOne(strings.ToLower(host))
}
