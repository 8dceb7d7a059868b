// Package linkcheck extracts URL candidates from notice text and decides
// whether each points at a legitimate third-party counterpart site.
package linkcheck

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/lanceiro/radar-cli/internal/model"
)

// candidateRe matches scheme URLs and bare www hosts in prose.
var candidateRe = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"')]+|\bwww\.[^\s<>"')]+`)

// maxCandidates bounds how many matches a single text is allowed to offer.
const maxCandidates = 50

// Validator holds the host denylists. Email providers are never sites, and
// government hosts are the publication source, not the counterpart.
type Validator struct {
	emailHosts  map[string]bool
	govSuffixes []string
}

// New builds a Validator. Hosts and suffixes match lowercased.
func New(emailHosts, govSuffixes []string) *Validator {
	v := &Validator{emailHosts: make(map[string]bool, len(emailHosts))}
	for _, h := range emailHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			v.emailHosts[h] = true
		}
	}
	for _, s := range govSuffixes {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			if !strings.HasPrefix(s, ".") {
				s = "." + s
			}
			v.govSuffixes = append(v.govSuffixes, s)
		}
	}
	return v
}

// Outcome is the link decision for one notice.
type Outcome struct {
	Link   string
	Domain string
	Found  bool
	Valid  bool
}

// Evaluate tries the structured candidate first, then scans the free text.
// An in-person notice with no link is a valid outcome, not a missing field.
func (v *Validator) Evaluate(modality model.Modality, structured, text string) Outcome {
	if link, domain, ok := v.Acceptable(structured); ok {
		return Outcome{Link: link, Domain: domain, Found: true, Valid: true}
	}
	if link, domain, ok := v.FindCounterpart(text); ok {
		return Outcome{Link: link, Domain: domain, Found: true, Valid: true}
	}
	return Outcome{Valid: modality == model.ModalityInPerson}
}

// FindCounterpart returns the first acceptable candidate in the text.
func (v *Validator) FindCounterpart(text string) (link, domain string, ok bool) {
	for _, raw := range candidateRe.FindAllString(text, maxCandidates) {
		if link, domain, ok = v.Acceptable(raw); ok {
			return link, domain, true
		}
	}
	return "", "", false
}

// Acceptable normalizes one candidate and applies the denylists. Bare hosts
// (www forms, structured origin links without a scheme) normalize to https.
func (v *Validator) Acceptable(raw string) (link, domain string, ok bool) {
	raw = strings.TrimRight(strings.TrimSpace(raw), ".,;:!?")
	if raw == "" {
		return "", "", false
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		u, err = url.Parse("https://" + raw)
		if err != nil || u.Host == "" {
			return "", "", false
		}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", false
	}

	host := strings.ToLower(u.Hostname())
	if !strings.Contains(host, ".") {
		return "", "", false
	}

	bare := strings.TrimPrefix(host, "www.")
	if v.emailHosts[host] || v.emailHosts[bare] {
		return "", "", false
	}
	for _, suffix := range v.govSuffixes {
		if strings.HasSuffix(host, suffix) || host == strings.TrimPrefix(suffix, ".") {
			return "", "", false
		}
	}

	return u.String(), bare, true
}
