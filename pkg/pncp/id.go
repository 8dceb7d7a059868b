package pncp

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// portalURL is the public-facing notice page, distinct from the API hosts.
const portalURL = "https://pncp.gov.br/app/editais"

// controlNumberRe matches PNCP control numbers: CNPJ-1-SEQ/YEAR.
var controlNumberRe = regexp.MustCompile(`^(\d{14})-1-(\d+)/(\d{4})$`)

// ExternalID normalizes a stub's control number into the stable
// <cnpj>-<seq>-<year> identity used across the pipeline. Falls back to the
// stub's structured fields when the control number is malformed.
func ExternalID(s Stub) (string, error) {
	if m := controlNumberRe.FindStringSubmatch(strings.TrimSpace(s.ControlNumber)); m != nil {
		seq, err := strconv.Atoi(m[2])
		if err == nil && seq > 0 {
			return fmt.Sprintf("%s-%d-%s", m[1], seq, m[3]), nil
		}
	}

	if len(s.Authority.CNPJ) == 14 && s.PurchaseSeq > 0 && s.PurchaseYear > 0 {
		return fmt.Sprintf("%s-%d-%d", s.Authority.CNPJ, s.PurchaseSeq, s.PurchaseYear), nil
	}

	return "", eris.Errorf("pncp: malformed control number %q", s.ControlNumber)
}

// ParseExternalID splits a normalized external ID back into the parts the
// detail and attachment endpoints want.
func ParseExternalID(id string) (cnpj string, year, seq int, err error) {
	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		return "", 0, 0, eris.Errorf("pncp: malformed external id %q", id)
	}

	cnpj = parts[0]
	if len(cnpj) != 14 {
		return "", 0, 0, eris.Errorf("pncp: malformed cnpj in external id %q", id)
	}
	for _, r := range cnpj {
		if r < '0' || r > '9' {
			return "", 0, 0, eris.Errorf("pncp: malformed cnpj in external id %q", id)
		}
	}

	seq, err = strconv.Atoi(parts[1])
	if err != nil || seq <= 0 {
		return "", 0, 0, eris.Errorf("pncp: malformed sequence in external id %q", id)
	}

	year, err = strconv.Atoi(parts[2])
	if err != nil || len(parts[2]) != 4 {
		return "", 0, 0, eris.Errorf("pncp: malformed year in external id %q", id)
	}

	return cnpj, year, seq, nil
}

// SourceLink derives the portal's public listing URL for a stub. Returns
// empty when no stable identity can be derived.
func SourceLink(s Stub) string {
	id, err := ExternalID(s)
	if err != nil {
		return ""
	}
	cnpj, year, seq, err := ParseExternalID(id)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s/%s/%d/%d", portalURL, cnpj, year, seq)
}
