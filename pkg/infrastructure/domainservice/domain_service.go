package domainservice

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/WangYihang/storefront-detector/pkg/domain/service"
	"golang.org/x/net/idna"
)

// DefaultSchemes are the URL schemes whose pages can be classified
var DefaultSchemes = []string{"http", "https"}

// Extractor implements service.DomainExtractor
type Extractor struct {
	schemes map[string]bool
}

// NewExtractor creates a new domain extractor. With no schemes given it
// accepts DefaultSchemes.
func NewExtractor(schemes ...string) service.DomainExtractor {
	if len(schemes) == 0 {
		schemes = DefaultSchemes
	}
	allowed := make(map[string]bool, len(schemes))
	for _, s := range schemes {
		allowed[strings.ToLower(strings.TrimSpace(s))] = true
	}
	return &Extractor{schemes: allowed}
}

// Extract implements service.DomainExtractor
func (e *Extractor) Extract(rawURL string) (entity.Domain, bool) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	// chrome://, about:, chrome-extension://, file:// ... never reach the network
	if !e.schemes[strings.ToLower(u.Scheme)] {
		return "", false
	}

	host := strings.TrimSuffix(u.Hostname(), ".")
	if host == "" {
		return "", false
	}

	return canonicalHost(host)
}

// canonicalHost lower-cases a host and converts internationalized names to punycode
func canonicalHost(host string) (entity.Domain, bool) {
	if isASCII(host) {
		return entity.Domain(strings.ToLower(host)), true
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil || ascii == "" {
		return "", false
	}
	return entity.Domain(strings.ToLower(ascii)), true
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
