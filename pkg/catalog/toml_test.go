package catalog

import (
	"context"
	"strings"
	"testing"
)

const sampleCatalog = `
[[service]]
type = "auth"
provider = "clerk"
version = "5.2.0"
requires = ["database/postgresql@^16.0.0"]
optional = ["email/resend"]
frameworks = ["nextjs"]
priority = 8

[[service]]
type = "database"
provider = "postgresql"
version = "16.3.0"

[[service]]
type = "email"
provider = "resend"
version = "2.0.0"

[[bundle]]
id = "starter"
name = "Starter"
required = ["auth/clerk"]
optional = ["email/resend"]
`

func TestLoad(t *testing.T) {
	m, err := Load(strings.NewReader(sampleCatalog))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	svc, err := m.GetService(context.Background(), "auth", "clerk", "")
	if err != nil {
		t.Fatalf("GetService: %v", err)
	}
	if len(svc.Requires) != 1 || svc.Requires[0].String() != "database/postgresql@^16.0.0" {
		t.Errorf("requires = %v, want the constrained postgres ref", svc.Requires)
	}
	if svc.Priority != 8 {
		t.Errorf("priority = %d, want 8", svc.Priority)
	}

	bundle, err := m.GetBundle(context.Background(), "starter")
	if err != nil {
		t.Fatalf("GetBundle: %v", err)
	}
	if len(bundle.Required) != 1 || bundle.Required[0].ID() != "auth/clerk" {
		t.Errorf("bundle required = %v", bundle.Required)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	in := `
[[service]]
type = "auth"
provider = "clerk"
version = "1.0.0"
prioriti = 3
`
	if _, err := Load(strings.NewReader(in)); err == nil {
		t.Error("misspelled key should be rejected")
	}
}

func TestLoadRejectsBadRef(t *testing.T) {
	in := `
[[service]]
type = "auth"
provider = "clerk"
version = "1.0.0"
requires = ["no-slash-here"]
`
	if _, err := Load(strings.NewReader(in)); err == nil {
		t.Error("malformed dependency ref should be rejected")
	}
}

func TestLoadRejectsInvalidTOML(t *testing.T) {
	if _, err := Load(strings.NewReader("[[service")); err == nil {
		t.Error("syntax error should be rejected")
	}
}
