package thread

import (
	"net/url"
	"regexp"
	"strings"
)

var linkExpr = regexp.MustCompile(`https?://[^\s<>"')\]]+`)

// Hosts whose links are platform plumbing rather than referenced content.
var excludedLinkHosts = []string{
	"twitter.com", "x.com", "t.co",
	"pbs.twimg.com", "video.twimg.com", "abs.twimg.com",
	"bsky.app", "cdn.bsky.app",
	"threads.net", "threads.com",
	"mastodon.social",
	"cdninstagram.com", "fbcdn.net",
}

var excludedLinkExtensions = []string{
	".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg",
	".mp4", ".m3u8", ".webm", ".mov",
}

// ExtractLinks collects outbound URLs from every post text, filtering
// known social/CDN hosts and media files, de-duplicating by exact match
// while preserving first-seen order.
func ExtractLinks(texts []string) []string {
	seen := map[string]struct{}{}
	var links []string
	for _, text := range texts {
		for _, match := range linkExpr.FindAllString(text, -1) {
			link := strings.TrimRight(match, ".,;:!?")
			if !keepLink(link) {
				continue
			}
			if _, dup := seen[link]; dup {
				continue
			}
			seen[link] = struct{}{}
			links = append(links, link)
		}
	}
	return links
}

func keepLink(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}

	host := strings.ToLower(u.Hostname())
	for _, excluded := range excludedLinkHosts {
		if host == excluded || strings.HasSuffix(host, "."+excluded) {
			return false
		}
	}

	p := strings.ToLower(u.Path)
	for _, ext := range excludedLinkExtensions {
		if strings.HasSuffix(p, ext) {
			return false
		}
	}

	return true
}
