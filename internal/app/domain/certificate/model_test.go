package certificate

import "testing"

func TestIssue(t *testing.T) {
	cert, err := Issue("asset-1", "fp-old", "fp-new", "org-2")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if cert.CertificateID == "" || cert.Payload == "" {
		t.Fatalf("certificate incomplete: %+v", cert)
	}
	if cert.PreviousOwnerFingerprint != "fp-old" || cert.NewOwnerFingerprint != "fp-new" {
		t.Fatalf("owner fingerprints wrong: %+v", cert)
	}
	if cert.IssuedAt.IsZero() {
		t.Fatalf("issued_at not set")
	}

	again, err := Issue("asset-1", "fp-old", "fp-new", "org-2")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if again.CertificateID == cert.CertificateID || again.Payload == cert.Payload {
		t.Fatalf("certificates must be unique per issuance")
	}
}
