package ecommerce

import (
	"net/url"
	"strings"
)

// parseNextLink returns the target of the rel="next" entry of an RFC 8288
// Link header, e.g.
//
//	<https://shop/admin/api/2024-01/products.json?page_info=abc>; rel="next"
func parseNextLink(header string) (string, bool) {
	rest := header
	for {
		start := strings.IndexByte(rest, '<')
		if start < 0 {
			return "", false
		}
		end := strings.IndexByte(rest[start:], '>')
		if end < 0 {
			return "", false
		}
		target := strings.TrimSpace(rest[start+1 : start+end])
		rest = rest[start+end+1:]

		params := rest
		if next := strings.IndexByte(rest, '<'); next >= 0 {
			params = rest[:next]
		}
		if target != "" && hasRel(params, "next") {
			return target, true
		}
	}
}

// hasRel reports whether a link-param list contains rel=<want>. rel may hold
// several space-separated relation types.
func hasRel(params, want string) bool {
	for _, p := range strings.Split(params, ";") {
		p = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(p), ","))
		key, value, ok := strings.Cut(p, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "rel") {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		for _, rel := range strings.Fields(value) {
			if strings.EqualFold(rel, want) {
				return true
			}
		}
	}
	return false
}

// resolveNextPage validates a pagination cursor against the API base. It
// refuses cursors that leave the store's host or scheme, that are malformed,
// or that were already fetched.
func resolveNextPage(base *url.URL, header string, visited map[string]struct{}) (string, string) {
	if header == "" {
		return "", "no next link"
	}
	target, ok := parseNextLink(header)
	if !ok {
		return "", "no next link"
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", "malformed next link"
	}
	u = base.ResolveReference(u)
	if !strings.EqualFold(u.Host, base.Host) || !strings.EqualFold(u.Scheme, base.Scheme) {
		return "", "next link leaves store host"
	}

	next := u.String()
	if _, seen := visited[next]; seen {
		return "", "next link already visited"
	}
	return next, ""
}
