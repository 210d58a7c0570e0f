package drivers

import (
	"fmt"
	"strings"
)

// GitHub Pages anycast addresses for apex domains.
var githubPagesIPs = []string{
	"185.199.108.153",
	"185.199.109.153",
	"185.199.110.153",
	"185.199.111.153",
}

// githubDNSInstructions computes the records a user must create to
// point customDomain at their GitHub Pages site. Apex domains need A
// records; subdomains a CNAME to <owner>.github.io.
func githubDNSInstructions(owner, customDomain string) *DNSInstructions {
	domain := strings.TrimSpace(strings.ToLower(customDomain))
	if domain == "" {
		return nil
	}

	target := owner + ".github.io"
	if isApexDomain(domain) {
		records := make([]DNSRecord, 0, len(githubPagesIPs))
		for _, ip := range githubPagesIPs {
			records = append(records, DNSRecord{Type: "A", Host: "@", Value: ip})
		}
		return &DNSInstructions{
			Type:    "apex",
			Records: records,
			Instructions: fmt.Sprintf(
				"Create A records for %s pointing at each listed GitHub Pages address. DNS changes can take up to 24 hours to propagate.",
				domain),
		}
	}

	host := strings.TrimSuffix(domain, "."+apexOf(domain))
	return &DNSInstructions{
		Type:    "subdomain",
		Records: []DNSRecord{{Type: "CNAME", Host: host, Value: target}},
		Instructions: fmt.Sprintf(
			"Create a CNAME record for %s pointing at %s. DNS changes can take up to 24 hours to propagate.",
			domain, target),
	}
}

// isApexDomain treats two-label names as apex (example.com) and
// anything deeper as a subdomain. Multi-part public suffixes are rare
// enough for portfolio domains that this heuristic matches observed
// user input.
func isApexDomain(domain string) bool {
	return strings.Count(domain, ".") == 1
}

func apexOf(domain string) string {
	parts := strings.Split(domain, ".")
	if len(parts) < 2 {
		return domain
	}
	return strings.Join(parts[len(parts)-2:], ".")
}
