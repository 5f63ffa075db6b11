// Package media classifies content URLs into a playable source kind.
package media

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

type Kind string

const (
	KindEmbeddable Kind = "embeddable"
	KindDirectFile Kind = "direct_file"
	KindExternal   Kind = "external"
)

type Platform string

const (
	PlatformYouTube Platform = "youtube"
	PlatformVimeo   Platform = "vimeo"
)

// Source is the tagged result of classification. Platform, ID and EmbedURL
// are only set for KindEmbeddable.
type Source struct {
	Kind     Kind     `json:"kind"`
	Platform Platform `json:"platform,omitempty"`
	ID       string   `json:"id,omitempty"`
	EmbedURL string   `json:"embedUrl,omitempty"`
	URL      string   `json:"url"`
}

func (s Source) Playable() bool { return s.Kind != KindExternal }

// Recognizer inspects a raw URL and claims it or passes.
type Recognizer func(raw string) (Source, bool)

// Chain tries recognizers in order; anything unclaimed is an external link.
type Chain []Recognizer

// DefaultChain is YouTube, then Vimeo, then direct media files.
var DefaultChain = Chain{YouTube, Vimeo, DirectFile}

func (c Chain) Classify(raw string) Source {
	raw = strings.TrimSpace(raw)
	for _, rec := range c {
		if src, ok := rec(raw); ok {
			return src
		}
	}
	return Source{Kind: KindExternal, URL: raw}
}

// Classify runs DefaultChain.
func Classify(raw string) Source { return DefaultChain.Classify(raw) }

var (
	youTubeRe   = regexp.MustCompile(`^.*(youtu\.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*).*`)
	youTubeIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

	vimeoRe   = regexp.MustCompile(`vimeo\.com/(?:channels/(?:\w+/)?|groups/(?:[^/]*)/videos/|album/(?:\d+)/video/|video/|)(\d+)(?:$|/|\?)`)
	vimeoIDRe = regexp.MustCompile(`^[0-9]{6,12}$`)
)

var youTubeHosts = []string{"youtube.com", "youtu.be", "youtube-nocookie.com"}

// YouTube accepts watch, short and embed links whose id is exactly 11
// URL-safe characters.
func YouTube(raw string) (Source, bool) {
	if !hostIn(raw, youTubeHosts...) {
		return Source{}, false
	}
	m := youTubeRe.FindStringSubmatch(raw)
	if m == nil || !youTubeIDRe.MatchString(m[2]) {
		return Source{}, false
	}
	id := m[2]
	return Source{
		Kind:     KindEmbeddable,
		Platform: PlatformYouTube,
		ID:       id,
		EmbedURL: "https://www.youtube.com/embed/" + id,
		URL:      raw,
	}, true
}

// Vimeo accepts numeric video ids of 6-12 digits, including channel, group
// and album forms.
func Vimeo(raw string) (Source, bool) {
	if !hostIn(raw, "vimeo.com") {
		return Source{}, false
	}
	m := vimeoRe.FindStringSubmatch(raw)
	if m == nil || !vimeoIDRe.MatchString(m[1]) {
		return Source{}, false
	}
	id := m[1]
	return Source{
		Kind:     KindEmbeddable,
		Platform: PlatformVimeo,
		ID:       id,
		EmbedURL: "https://player.vimeo.com/video/" + id,
		URL:      raw,
	}, true
}

var directExtensions = map[string]struct{}{
	".mp4":  {},
	".webm": {},
	".ogg":  {},
}

// DirectFile claims URLs whose path ends in a natively playable extension.
// Query strings and fragments are ignored.
func DirectFile(raw string) (Source, bool) {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	if _, ok := directExtensions[strings.ToLower(path.Ext(p))]; !ok {
		return Source{}, false
	}
	return Source{Kind: KindDirectFile, URL: raw}, true
}

func hostIn(raw string, domains ...string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
