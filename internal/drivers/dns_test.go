package drivers

import "testing"

func TestGithubDNSInstructionsApex(t *testing.T) {
	dns := githubDNSInstructions("octocat", "example.com")
	if dns == nil {
		t.Fatal("expected instructions")
	}
	if dns.Type != "apex" {
		t.Fatalf("expected apex, got %s", dns.Type)
	}
	if len(dns.Records) != 4 {
		t.Fatalf("expected 4 A records, got %d", len(dns.Records))
	}
	for _, rec := range dns.Records {
		if rec.Type != "A" || rec.Host != "@" {
			t.Fatalf("unexpected record: %+v", rec)
		}
	}
}

func TestGithubDNSInstructionsSubdomain(t *testing.T) {
	dns := githubDNSInstructions("octocat", "www.example.com")
	if dns == nil {
		t.Fatal("expected instructions")
	}
	if dns.Type != "subdomain" {
		t.Fatalf("expected subdomain, got %s", dns.Type)
	}
	if len(dns.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(dns.Records))
	}
	rec := dns.Records[0]
	if rec.Type != "CNAME" || rec.Host != "www" || rec.Value != "octocat.github.io" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestGithubDNSInstructionsEmptyDomain(t *testing.T) {
	if dns := githubDNSInstructions("octocat", "  "); dns != nil {
		t.Fatalf("expected nil for empty domain, got %+v", dns)
	}
}

func TestGithubDNSInstructionsNormalizesCase(t *testing.T) {
	dns := githubDNSInstructions("octocat", "WWW.Example.COM")
	if dns == nil || dns.Type != "subdomain" {
		t.Fatalf("expected subdomain instructions, got %+v", dns)
	}
	if dns.Records[0].Host != "www" {
		t.Fatalf("expected lowercased host, got %s", dns.Records[0].Host)
	}
}
