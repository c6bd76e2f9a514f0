package identity_test

import (
	"testing"
	"time"

	"github.com/jakaria-jihad/certchain/internal/identity"
	"github.com/jakaria-jihad/certchain/internal/registrar/model"
)

func newIssuer(t *testing.T) *identity.SessionIssuer {
	t.Helper()
	iss, err := identity.NewSessionIssuer("test-secret", "http://localhost:8080", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return iss
}

func TestIssueAndVerify(t *testing.T) {
	iss := newIssuer(t)

	tok, err := iss.Issue("C1", model.RoleChief)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := iss.Verify(tok)
	if err != nil {
		t.Fatal(err)
	}
	if claims.AdminID != "C1" || claims.Role != model.RoleChief {
		t.Errorf("claims: got %s/%s, want C1/chief", claims.AdminID, claims.Role)
	}
}

func TestVerify_rejectsWrongSecret(t *testing.T) {
	iss := newIssuer(t)
	other, err := identity.NewSessionIssuer("other-secret", "http://localhost:8080", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tok, err := iss.Issue("C1", model.RoleChief)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Verify(tok); err == nil {
		t.Error("token verified under a different secret")
	}
}

func TestVerify_rejectsGarbage(t *testing.T) {
	iss := newIssuer(t)
	if _, err := iss.Verify("not-a-token"); err == nil {
		t.Error("garbage token verified")
	}
}

func TestVerify_rejectsUnknownRole(t *testing.T) {
	iss := newIssuer(t)
	tok, err := iss.Issue("X1", model.Role("superuser"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := iss.Verify(tok); err == nil {
		t.Error("token with unknown role verified")
	}
}

func TestNewSessionIssuer_requiresSecret(t *testing.T) {
	if _, err := identity.NewSessionIssuer("", "http://localhost:8080", 0); err == nil {
		t.Error("empty secret accepted")
	}
}
