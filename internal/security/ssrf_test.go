package security_test

import (
	"testing"

	"github.com/flowkit/engine/internal/config"
	"github.com/flowkit/engine/internal/security"
)

func TestValidateURL_DeniedByDefault(t *testing.T) {
	g := security.NewSSRFGuard(config.Default())
	if err := g.ValidateURL("https://example.com"); err == nil {
		t.Fatalf("expected outbound HTTP to be denied when AllowHTTP=false")
	}
}

func allowHTTP() *config.Config {
	cfg := config.Default()
	cfg.AllowHTTP = true
	return cfg
}

func TestValidateURL_RejectsNonHTTPScheme(t *testing.T) {
	g := security.NewSSRFGuard(allowHTTP())
	if err := g.ValidateURL("file:///etc/passwd"); err == nil {
		t.Fatalf("expected a non-http(s) scheme to be rejected")
	}
}

func TestValidateURL_BlocksLoopbackByDefault(t *testing.T) {
	g := security.NewSSRFGuard(allowHTTP())
	if err := g.ValidateURL("http://127.0.0.1/"); err == nil {
		t.Fatalf("expected loopback address to be blocked")
	}
}

func TestValidateURL_BlocksLocalhostHostnameByDefault(t *testing.T) {
	g := security.NewSSRFGuard(allowHTTP())
	if err := g.ValidateURL("http://localhost/"); err == nil {
		t.Fatalf("expected localhost hostname to be blocked")
	}
}

func TestValidateURL_BlocksPrivateIPByDefault(t *testing.T) {
	g := security.NewSSRFGuard(allowHTTP())
	for _, ip := range []string{"10.0.0.1", "172.16.0.1", "192.168.1.1"} {
		if err := g.ValidateURL("http://" + ip + "/"); err == nil {
			t.Fatalf("expected private IP %s to be blocked", ip)
		}
	}
}

func TestValidateURL_BlocksCloudMetadataByDefault(t *testing.T) {
	g := security.NewSSRFGuard(allowHTTP())
	if err := g.ValidateURL("http://169.254.169.254/latest/meta-data/"); err == nil {
		t.Fatalf("expected cloud metadata endpoint to be blocked")
	}
}

func TestValidateURL_AllowsPublicIPWhenHTTPEnabled(t *testing.T) {
	g := security.NewSSRFGuard(allowHTTP())
	if err := g.ValidateURL("http://8.8.8.8/"); err != nil {
		t.Fatalf("expected a public IP to be allowed, got %v", err)
	}
}

func TestValidateURL_AllowedDomainsRestrictsHostname(t *testing.T) {
	cfg := allowHTTP()
	cfg.AllowedDomains = []string{"example.com"}
	g := security.NewSSRFGuard(cfg)

	if err := g.ValidateURL("https://example.com/path"); err != nil {
		t.Fatalf("expected allowlisted domain to pass, got %v", err)
	}
	if err := g.ValidateURL("https://evil.com/path"); err == nil {
		t.Fatalf("expected a non-allowlisted domain to be rejected")
	}
}

func TestValidateURL_DevelopmentConfigRelaxesPrivateAndLocalhost(t *testing.T) {
	g := security.NewSSRFGuard(config.Development())
	if err := g.ValidateURL("http://127.0.0.1:8080/"); err != nil {
		t.Fatalf("expected Development() config to allow localhost, got %v", err)
	}
	if err := g.ValidateURL("http://192.168.1.1/"); err != nil {
		t.Fatalf("expected Development() config to allow private IPs, got %v", err)
	}
}
