package catalog

import (
	"testing"
)

func TestServiceDocToService(t *testing.T) {
	doc := serviceDoc{
		Type:       "auth",
		Provider:   "clerk",
		Version:    "5.2.0",
		Requires:   []string{"database/postgresql@^16.0.0"},
		Optional:   []string{"email/resend"},
		Conflicts:  []string{"auth/lucia"},
		Frameworks: []string{"nextjs"},
		Priority:   8,
		Config:     map[string]any{"cost": 25},
	}

	svc, err := doc.toService()
	if err != nil {
		t.Fatalf("toService: %v", err)
	}
	if svc.ID() != "auth/clerk" {
		t.Errorf("id = %s", svc.ID())
	}
	if len(svc.Requires) != 1 || svc.Requires[0].Constraint != "^16.0.0" {
		t.Errorf("requires = %v", svc.Requires)
	}
	if len(svc.Optional) != 1 || svc.Optional[0].ID() != "email/resend" {
		t.Errorf("optional = %v", svc.Optional)
	}
	if len(svc.ConflictsWith) != 1 || svc.ConflictsWith[0].ID() != "auth/lucia" {
		t.Errorf("conflicts = %v", svc.ConflictsWith)
	}
	if svc.Priority != 8 || svc.Config["cost"] != 25 {
		t.Errorf("metadata lost: priority=%d config=%v", svc.Priority, svc.Config)
	}
}

func TestServiceDocToServiceRejectsBadDocs(t *testing.T) {
	bad := serviceDoc{Type: "auth", Provider: "clerk", Version: "5.2.0",
		Requires: []string{"no-slash"}}
	if _, err := bad.toService(); err == nil {
		t.Error("malformed ref string should be rejected")
	}

	unversioned := serviceDoc{Type: "auth", Provider: "clerk", Version: "latest"}
	if _, err := unversioned.toService(); err == nil {
		t.Error("non-semver version should be rejected")
	}
}

func TestBundleDocToBundle(t *testing.T) {
	doc := bundleDoc{
		ID:       "saas-starter",
		Name:     "SaaS Starter",
		Required: []string{"auth/clerk", "database/postgresql"},
		Optional: []string{"email/resend"},
	}

	b, err := doc.toBundle()
	if err != nil {
		t.Fatalf("toBundle: %v", err)
	}
	if b.ID != "saas-starter" || b.Name != "SaaS Starter" {
		t.Errorf("bundle = %+v", b)
	}
	if len(b.Required) != 2 || b.Required[0].ID() != "auth/clerk" {
		t.Errorf("required = %v", b.Required)
	}
	if len(b.Optional) != 1 {
		t.Errorf("optional = %v", b.Optional)
	}
}

func TestBundleDocToBundleRejectsBadDocs(t *testing.T) {
	empty := bundleDoc{ID: "empty"}
	if _, err := empty.toBundle(); err == nil {
		t.Error("bundle without required services should be rejected")
	}

	bad := bundleDoc{ID: "bad", Required: []string{"auth/clerk@not-a-constraint@x"}}
	if _, err := bad.toBundle(); err == nil {
		t.Error("malformed required ref should be rejected")
	}
}
