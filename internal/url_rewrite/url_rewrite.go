package urlrewrite

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrUnresolvableImage = errors.New("source URL does not match am2_<digits>.html")

	reQuestionPage = regexp.MustCompile(`(?i)am2_\d+\.html`)
)

func NormalizeURL(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}

	parsed.Fragment = ""

	parsed.Host = strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")

	if parsed.Scheme == "" {
		parsed.Scheme = "https"
	}

	return parsed.String()
}

// SameHost compares hosts after NormalizeURL, so www. and case are ignored.
func SameHost(a, b string) bool {
	ua, err := url.Parse(NormalizeURL(a))
	if err != nil {
		return false
	}
	ub, err := url.Parse(NormalizeURL(b))
	if err != nil {
		return false
	}
	return ua.Host != "" && ua.Host == ub.Host
}

func ResolveLink(base, href string) (string, error) {
	if strings.TrimSpace(href) == "" {
		return "", fmt.Errorf("empty link")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(ref).String(), nil
}

// ResolveImage puts src in place of the question page's file name:
// http://host/dir/am2_12.html + img/a.png -> http://host/dir/img/a.png.
func ResolveImage(sourceURL, src string) (string, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", fmt.Errorf("%w: empty image src", ErrUnresolvableImage)
	}
	loc := reQuestionPage.FindStringIndex(sourceURL)
	if loc == nil {
		return "", fmt.Errorf("%w: %s", ErrUnresolvableImage, sourceURL)
	}
	return sourceURL[:loc[0]] + src + sourceURL[loc[1]:], nil
}

// ProxyURL wraps an image URL through the bot's /image endpoint.
func ProxyURL(proxyBase, imageURL string) string {
	return strings.TrimSuffix(proxyBase, "/") + "/image?url=" + url.QueryEscape(imageURL)
}
