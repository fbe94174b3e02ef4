package chaininfo

import (
	"regexp"
	"slices"
	"strings"

	"github.com/m3rciful/chainregbot/internal/registry"
)

var (
	urlPrefixRe     = regexp.MustCompile(`^(?i:https?://)?(?i:www\.)?`)
	providerJunkRe  = regexp.MustCompile(`[^\w\s.-]`)
	explorerLetters = []byte{'c', 'm'}
)

// PreferredExplorer picks the explorer shown in the chain summary. Hosts
// starting with "c" win, then "m", then the rest; ties break alphabetically
// on the host without scheme or "www.".
func PreferredExplorer(explorers []registry.Explorer) (registry.Explorer, bool) {
	if len(explorers) == 0 {
		return registry.Explorer{}, false
	}
	sorted := slices.Clone(explorers)
	slices.SortStableFunc(sorted, func(a, b registry.Explorer) int {
		ka, kb := explorerKey(a.URL), explorerKey(b.URL)
		if ra, rb := explorerRank(ka), explorerRank(kb); ra != rb {
			return ra - rb
		}
		return strings.Compare(ka, kb)
	})
	return sorted[0], true
}

func explorerKey(url string) string {
	return strings.ToLower(urlPrefixRe.ReplaceAllString(url, ""))
}

func explorerRank(key string) int {
	if key == "" {
		return len(explorerLetters)
	}
	if i := slices.Index(explorerLetters, key[0]); i >= 0 {
		return i
	}
	return len(explorerLetters)
}

// SanitizeProvider drops characters outside word, space, dot and dash, then
// turns dots into underscores.
func SanitizeProvider(provider string) string {
	return strings.ReplaceAll(providerJunkRe.ReplaceAllString(provider, ""), ".", "_")
}
