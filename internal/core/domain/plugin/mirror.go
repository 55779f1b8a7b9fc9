package plugindomain

import "regexp"

// MirrorRule rewrites a download URL to a mirror host
type MirrorRule struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// DefaultMirrorRules cover raw content hosts, code-hosting raw links and release assets.
var DefaultMirrorRules = []MirrorRule{
	{
		Pattern:     regexp.MustCompile(`^https://raw\.githubusercontent\.com`),
		Replacement: "https://raw.fastgit.org",
	},
	{
		Pattern:     regexp.MustCompile(`^https://(?:gitee|github)\.com/([^/]+)/([^/]+)/raw`),
		Replacement: "https://raw.fastgit.org/$1/$2",
	},
	{
		Pattern:     regexp.MustCompile(`^https://github\.com/([^/]+)/([^/]+)/releases/download`),
		Replacement: "https://download.fastgit.org/$1/$2/releases/download",
	},
}

// MirrorURL applies every rule in order
func MirrorURL(url string, rules []MirrorRule) string {
	for _, r := range rules {
		url = r.Pattern.ReplaceAllString(url, r.Replacement)
	}
	return url
}
