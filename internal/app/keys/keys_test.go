package keys

import (
	"strings"
	"sync"
	"testing"

	"github.com/xrf-labs/asset-registry/internal/app/fault"
)

func TestNewIDUniqueAcrossGoroutines(t *testing.T) {
	const workers = 10
	const perWorker = 1000

	var mu sync.Mutex
	seen := make(map[string]bool, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				id := NewID()
				mu.Lock()
				if seen[id] {
					mu.Unlock()
					t.Errorf("duplicate id %s", id)
					return
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != workers*perWorker {
		t.Fatalf("expected %d ids, got %d", workers*perWorker, len(seen))
	}
}

func TestCertificatePayload(t *testing.T) {
	a, err := CertificatePayload("asset-1")
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	b, err := CertificatePayload("asset-1")
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if a == b {
		t.Fatalf("payloads must differ per issuance")
	}
	if strings.ContainsAny(a, "+/=") {
		t.Fatalf("payload must be url-safe: %s", a)
	}
}

func TestValidateFingerprint(t *testing.T) {
	good := strings.Repeat("f", MinFingerprintLen)
	if err := ValidateFingerprint(good); err != nil {
		t.Fatalf("valid fingerprint rejected: %v", err)
	}

	cases := []string{
		"",
		"short",
		strings.Repeat("f", MinFingerprintLen-1),
		strings.Repeat("f", MinFingerprintLen-1) + " ",
		strings.Repeat("f", MinFingerprintLen) + "\n",
	}
	for _, fp := range cases {
		err := ValidateFingerprint(fp)
		if err == nil {
			t.Fatalf("fingerprint %q should be rejected", fp)
		}
		if !fault.IsCode(err, fault.InvalidArgument) {
			t.Fatalf("fingerprint %q: expected InvalidArgument, got %v", fp, err)
		}
	}
}
