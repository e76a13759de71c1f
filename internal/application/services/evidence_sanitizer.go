package services

import "github.com/rssnews/orchestrator/internal/domain/models"

// DomainLists carries the configured whitelist/blacklist domain suffixes
// and their trust multipliers.
type DomainLists struct {
	Whitelist map[string]bool
	Blacklist map[string]bool
}

// DefaultDomainLists returns the defaults named in §4.6.1. Configuration
// overrides these via blacklist_domains/whitelist_domains.
func DefaultDomainLists() DomainLists {
	whitelist := []string{
		"reuters.com", "apnews.com", "bbc.com", "bloomberg.com", "nytimes.com",
		"wsj.com", "ft.com", "theguardian.com", "npr.org", "economist.com",
		"washingtonpost.com", "techcrunch.com", "wired.com", "arstechnica.com",
	}
	blacklist := []string{
		"example-fake-news.com", "clickbait-daily.com", "unverified-leaks.net", "rumor-mill.info",
	}
	dl := DomainLists{Whitelist: map[string]bool{}, Blacklist: map[string]bool{}}
	for _, d := range whitelist {
		dl.Whitelist[d] = true
	}
	for _, d := range blacklist {
		dl.Blacklist[d] = true
	}
	return dl
}

// TrustScore returns the trust multiplier for a URL's host suffix:
// 1.0 whitelisted, 0.0 blacklisted, 0.7 otherwise.
func (dl DomainLists) TrustScore(url string) float64 {
	host := hostOf(url)
	for d := range dl.Blacklist {
		if hasDomainSuffix(host, d) {
			return 0.0
		}
	}
	for d := range dl.Whitelist {
		if hasDomainSuffix(host, d) {
			return 1.0
		}
	}
	return 0.7
}

// IsBlacklisted reports whether the URL's host falls under a blacklisted suffix.
func (dl DomainLists) IsBlacklisted(url string) bool {
	host := hostOf(url)
	for d := range dl.Blacklist {
		if hasDomainSuffix(host, d) {
			return true
		}
	}
	return false
}

func hasDomainSuffix(host, suffix string) bool {
	if host == suffix {
		return true
	}
	if len(host) > len(suffix) && host[len(host)-len(suffix)-1] == '.' {
		return host[len(host)-len(suffix):] == suffix
	}
	return false
}

func hostOf(url string) string {
	s := url
	for _, prefix := range []string{"https://", "http://"} {
		if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
			s = s[len(prefix):]
			break
		}
	}
	for i, c := range s {
		if c == '/' || c == ':' || c == '?' {
			return s[:i]
		}
	}
	return s
}

// EvidenceSanitizer drops blacklisted evidence, masks PII in surviving
// entries, and computes the confidence trust multiplier.
type EvidenceSanitizer struct {
	domains DomainLists
}

// NewEvidenceSanitizer constructs a sanitizer over the given domain lists.
func NewEvidenceSanitizer(domains DomainLists) *EvidenceSanitizer {
	return &EvidenceSanitizer{domains: domains}
}

// SanitizeResult is the sanitizer's output.
type SanitizeResult struct {
	Evidence             []models.Evidence
	ConfidenceMultiplier float64
}

// Sanitize drops blacklisted-URL entries, masks PII in title/snippet of the
// remainder, and computes the average trust score across surviving URLs
// (0.5 when evidence ends up empty).
func (s *EvidenceSanitizer) Sanitize(evidence []models.Evidence) SanitizeResult {
	kept := make([]models.Evidence, 0, len(evidence))
	var trustSum float64
	var trustCount int

	for _, e := range evidence {
		if e.URL != "" && s.domains.IsBlacklisted(e.URL) {
			continue
		}
		e.Title = MaskPII(e.Title)
		e.Snippet = MaskPII(e.Snippet)
		kept = append(kept, e)

		if e.URL != "" {
			trustSum += s.domains.TrustScore(e.URL)
			trustCount++
		}
	}

	multiplier := 0.5
	if trustCount > 0 {
		multiplier = trustSum / float64(trustCount)
	} else if len(kept) > 0 {
		// Evidence with no URLs at all still gets the neutral multiplier.
		multiplier = 0.7
	}
	if multiplier < 0 {
		multiplier = 0
	}
	if multiplier > 1 {
		multiplier = 1
	}

	return SanitizeResult{Evidence: kept, ConfidenceMultiplier: multiplier}
}
