package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/xrf-labs/asset-registry/internal/app/domain/asset"
	"github.com/xrf-labs/asset-registry/internal/app/domain/certificate"
	"github.com/xrf-labs/asset-registry/internal/app/domain/contract"
	"github.com/xrf-labs/asset-registry/internal/app/fault"
	"github.com/xrf-labs/asset-registry/internal/app/storage"
)

const testFP = "fp-0123456789abcdef0123456789abcdef"

func mustAsset(t *testing.T, s *Store, name, symbol, org string) asset.Asset {
	t.Helper()
	a, err := asset.New(name, symbol, "", org, testFP)
	if err != nil {
		t.Fatalf("domain asset: %v", err)
	}
	created, err := s.CreateAsset(context.Background(), a)
	if err != nil {
		t.Fatalf("create asset: %v", err)
	}
	return created
}

func TestCreateAndGetAsset(t *testing.T) {
	s := New()
	a := mustAsset(t, s, "Gold Coin", "GLD", "org-1")

	if a.Version != 1 {
		t.Fatalf("new records start at version 1, got %d", a.Version)
	}

	got, err := s.GetAsset(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Gold Coin" || got.Organization != "org-1" {
		t.Fatalf("stored record wrong: %+v", got)
	}

	if _, err := s.GetAsset(context.Background(), "missing"); !fault.IsCode(err, fault.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestPutAssetVersioning(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustAsset(t, s, "Gold Coin", "GLD", "org-1")

	a.Description = "one ounce"
	updated, err := s.PutAsset(ctx, a, a.Version)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if updated.Version != 2 {
		t.Fatalf("version must bump to 2, got %d", updated.Version)
	}
	if !updated.UpdatedAt.After(a.UpdatedAt) && !updated.UpdatedAt.Equal(a.UpdatedAt) {
		t.Fatalf("updated_at must not go backwards")
	}

	// Stale token loses.
	a.Description = "stale write"
	if _, err := s.PutAsset(ctx, a, 1); !fault.IsCode(err, fault.Conflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestConcurrentPutExactlyOneWinner(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustAsset(t, s, "Gold Coin", "GLD", "org-1")

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := a
			c.Description = fmt.Sprintf("racer %d", i)
			_, err := s.PutAsset(ctx, c, a.Version)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case fault.IsCode(err, fault.Conflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != racers-1 {
		t.Fatalf("expected exactly one winner, got %d wins %d conflicts", wins, conflicts)
	}
}

func TestDeleteAsset(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustAsset(t, s, "Gold Coin", "GLD", "org-1")

	if err := s.DeleteAsset(ctx, a.ID, "org-9"); !fault.IsCode(err, fault.PermissionDenied) {
		t.Fatalf("delete by a non-holder must be PermissionDenied, got %v", err)
	}
	if err := s.DeleteAsset(ctx, a.ID, "org-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetAsset(ctx, a.ID); !fault.IsCode(err, fault.NotFound) {
		t.Fatalf("deleted asset must not satisfy lookups, got %v", err)
	}
	if err := s.DeleteAsset(ctx, a.ID, "org-1"); !fault.IsCode(err, fault.NotFound) {
		t.Fatalf("double delete must be NotFound, got %v", err)
	}

	page, err := s.ListAssets(ctx, storage.AssetFilter{}, storage.Window{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("deleted assets must not be listed")
	}
}

func TestListAssetsFilterSortAndTotal(t *testing.T) {
	s := New()
	ctx := context.Background()
	mustAsset(t, s, "Copper Bar", "CPR", "org-1")
	mustAsset(t, s, "Gold Coin", "GLD", "org-1")
	mustAsset(t, s, "Gold Ingot", "GLD", "org-2")
	mustAsset(t, s, "Silver Coin", "SLV", "org-1")

	page, err := s.ListAssets(ctx, storage.AssetFilter{}, storage.Window{Limit: 2, Sort: storage.Sort{Field: storage.SortByName, Dir: storage.Asc}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 4 {
		t.Fatalf("total must count the full match set, got %d", page.Total)
	}
	if len(page.Assets) != 2 || page.Assets[0].Name != "Copper Bar" || page.Assets[1].Name != "Gold Coin" {
		t.Fatalf("unexpected first page: %+v", page.Assets)
	}

	bySymbol, err := s.ListAssets(ctx, storage.AssetFilter{Symbol: "GLD"}, storage.Window{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if bySymbol.Total != 2 {
		t.Fatalf("symbol filter wrong, total=%d", bySymbol.Total)
	}

	byName, err := s.ListAssets(ctx, storage.AssetFilter{NameLike: "gold"}, storage.Window{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if byName.Total != 2 {
		t.Fatalf("name substring match wrong, total=%d", byName.Total)
	}

	desc, err := s.ListAssets(ctx, storage.AssetFilter{}, storage.Window{Limit: 4, Sort: storage.Sort{Field: storage.SortByName, Dir: storage.Desc}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if desc.Assets[0].Name != "Silver Coin" {
		t.Fatalf("descending order wrong: %+v", desc.Assets)
	}
}

func TestPaginationNoGapsNoDuplicates(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		mustAsset(t, s, fmt.Sprintf("Asset %02d", i), "SYM", "org-1")
	}

	seen := make(map[string]bool)
	var sequence []string
	for offset := 0; offset < 30; offset += 10 {
		page, err := s.ListAssets(ctx, storage.AssetFilter{}, storage.Window{Offset: offset, Limit: 10, Sort: storage.Sort{Field: storage.SortByName, Dir: storage.Asc}})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		for _, a := range page.Assets {
			if seen[a.ID] {
				t.Fatalf("duplicate across pages: %s", a.ID)
			}
			seen[a.ID] = true
			sequence = append(sequence, a.Name)
		}
	}
	if len(sequence) != 25 {
		t.Fatalf("pages must cover every record once, got %d", len(sequence))
	}
	for i := 1; i < len(sequence); i++ {
		if sequence[i-1] >= sequence[i] {
			t.Fatalf("sequence out of order at %d: %q >= %q", i, sequence[i-1], sequence[i])
		}
	}
}

func TestTransferAssetAtomicity(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustAsset(t, s, "Gold Coin", "GLD", "org-1")

	cert, err := certificate.Issue(a.ID, a.OwnerFingerprint, "fp-new", "org-2")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Wrong current org: no certificate may appear.
	if _, err := s.TransferAsset(ctx, a.ID, "org-9", "org-2", "fp-new", cert); !fault.IsCode(err, fault.PermissionDenied) {
		t.Fatalf("expected PermissionDenied, got %v", err)
	}
	if _, err := s.GetCertificate(ctx, cert.CertificateID); !fault.IsCode(err, fault.NotFound) {
		t.Fatalf("failed transfer must not leave a certificate behind")
	}

	moved, err := s.TransferAsset(ctx, a.ID, "org-1", "org-2", "fp-new", cert)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if moved.Organization != "org-2" || moved.UpdatedBy != "fp-new" {
		t.Fatalf("ownership not reassigned: %+v", moved)
	}
	if _, err := s.GetCertificate(ctx, cert.CertificateID); err != nil {
		t.Fatalf("certificate missing after transfer: %v", err)
	}
}

func TestConcurrentTransfersSingleWinner(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustAsset(t, s, "Gold Coin", "GLD", "org-1")

	const racers = 10
	var wg sync.WaitGroup
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			newOrg := fmt.Sprintf("org-%d", i+2)
			cert, err := certificate.Issue(a.ID, a.OwnerFingerprint, "fp-new", newOrg)
			if err != nil {
				errs <- err
				return
			}
			_, err = s.TransferAsset(ctx, a.ID, "org-1", newOrg, "fp-new", cert)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		} else if !fault.IsCode(err, fault.PermissionDenied) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("exactly one concurrent transfer may win, got %d", wins)
	}

	certs, err := s.ListCertificatesByAsset(ctx, a.ID)
	if err != nil {
		t.Fatalf("list certificates: %v", err)
	}
	if len(certs) != 1 {
		t.Fatalf("exactly one certificate may exist, got %d", len(certs))
	}

	final, err := s.GetAsset(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if final.Organization != certs[0].NewOwnerOrganization {
		t.Fatalf("certificate and ownership disagree: %s vs %s", final.Organization, certs[0].NewOwnerOrganization)
	}
}

func TestContractLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustAsset(t, s, "Gold Coin", "GLD", "org-1")

	c, err := contract.New(a.ID, "terms", "details", 10, false, testFP, nil, nil, []contract.Currency{contract.USD})
	if err != nil {
		t.Fatalf("domain contract: %v", err)
	}
	created, err := s.CreateContract(ctx, c)
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}

	got, err := s.GetContractByAsset(ctx, a.ID)
	if err != nil {
		t.Fatalf("get by asset: %v", err)
	}
	if got.ContractID != created.ContractID {
		t.Fatalf("wrong contract returned")
	}

	// Newest revision wins the lookup.
	updated, err := (contract.Update{Details: ptr("revised")}).Apply(created, testFP)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := s.PutContract(ctx, updated, created.UpdateCount); err != nil {
		t.Fatalf("put contract: %v", err)
	}

	second, err := contract.New(a.ID, "terms-2", "details-2", 5, true, testFP, nil, nil, []contract.Currency{contract.EUR})
	if err != nil {
		t.Fatalf("second contract: %v", err)
	}
	if _, err := s.CreateContract(ctx, second); err != nil {
		t.Fatalf("create second: %v", err)
	}

	latest, err := s.GetContractByAsset(ctx, a.ID)
	if err != nil {
		t.Fatalf("get by asset: %v", err)
	}
	if latest.ContractID != second.ContractID {
		t.Fatalf("most recently updated contract must win, got %s", latest.ContractID)
	}

	// Stale token.
	stale, err := (contract.Update{Summary: ptr("stale")}).Apply(created, testFP)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := s.PutContract(ctx, stale, 0); !fault.IsCode(err, fault.Conflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestCreateContractRequiresLiveAsset(t *testing.T) {
	s := New()
	ctx := context.Background()
	a := mustAsset(t, s, "Gold Coin", "GLD", "org-1")
	if err := s.DeleteAsset(ctx, a.ID, "org-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	c, err := contract.New(a.ID, "terms", "details", 1, false, testFP, nil, nil, []contract.Currency{contract.USD})
	if err != nil {
		t.Fatalf("domain contract: %v", err)
	}
	if _, err := s.CreateContract(ctx, c); !fault.IsCode(err, fault.NotFound) {
		t.Fatalf("contracts must not bind to deleted assets, got %v", err)
	}
}

func ptr[T any](v T) *T { return &v }
