package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
	"github.com/99minutos/restaurant-directory/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// seedDirectory creates 25 accounts; 3 of them hold "admin".
func seedDirectory(repo *stubAccountRepo) {
	for i := 1; i <= 25; i++ {
		roles := []string{domain.RoleUser}
		switch i {
		case 4, 11, 19:
			roles = []string{domain.RoleAdmin}
		case 7:
			roles = []string{domain.RoleManager}
		}
		repo.seed(fmt.Sprintf("Member %02d", i), fmt.Sprintf("member%02d@example.com", i), roles...)
	}
}

func newDirectory(repo *stubAccountRepo, filters *stubFilterStore) *DirectoryService {
	return NewDirectoryService(repo, repo, filters, domain.RoleMatchAny, discardLogger)
}

func search(t *testing.T, svc *DirectoryService, in ports.SearchDirectoryInput) *ports.SearchDirectoryResult {
	t.Helper()
	res, err := svc.SearchDirectory(context.Background(), in)
	if err != nil {
		t.Fatalf("SearchDirectory: %v", err)
	}
	return res
}

func ids(items []ports.AccountSummary) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

// ---------------------------------------------------------------------------
// SearchDirectory tests
// ---------------------------------------------------------------------------

func TestDirectory_RoleFilterAcrossPages(t *testing.T) {
	repo := newStubAccountRepo()
	seedDirectory(repo)
	svc := newDirectory(repo, newStubFilterStore())

	res := search(t, svc, ports.SearchDirectoryInput{
		SessionID: "s1",
		Filter:    domain.FilterInput{Roles: []string{domain.RoleAdmin}},
	})

	if res.Total != 3 {
		t.Fatalf("expected 3 admins, got %d", res.Total)
	}
	if len(res.Items) != 3 || res.TotalPages != 1 {
		t.Fatalf("expected a single page of 3, got %d items over %d pages", len(res.Items), res.TotalPages)
	}
}

func TestDirectory_UnfilteredIsPaginated(t *testing.T) {
	repo := newStubAccountRepo()
	seedDirectory(repo)
	svc := newDirectory(repo, newStubFilterStore())

	res := search(t, svc, ports.SearchDirectoryInput{SessionID: "s1"})
	if res.Total != 25 || len(res.Items) != domain.DirectoryPageSize || res.TotalPages != 3 {
		t.Fatalf("unexpected page: total=%d items=%d pages=%d", res.Total, len(res.Items), res.TotalPages)
	}
	if res.Items[0].Name != "Member 01" {
		t.Errorf("expected insertion order, first item %q", res.Items[0].Name)
	}

	last := search(t, svc, ports.SearchDirectoryInput{SessionID: "s1", Page: 3})
	if len(last.Items) != 5 {
		t.Errorf("expected 5 items on the last page, got %d", len(last.Items))
	}

	beyond := search(t, svc, ports.SearchDirectoryInput{SessionID: "s1", Page: 9})
	if len(beyond.Items) != 0 || beyond.Total != 25 {
		t.Errorf("page beyond the end: items=%d total=%d", len(beyond.Items), beyond.Total)
	}
}

func TestDirectory_StoredFilterFillsInBareRequest(t *testing.T) {
	repo := newStubAccountRepo()
	seedDirectory(repo)
	repo.seed("Food Critic", "foo@example.com", domain.RoleAdmin)
	filters := newStubFilterStore()
	svc := newDirectory(repo, filters)

	first := search(t, svc, ports.SearchDirectoryInput{
		SessionID: "s1",
		Filter:    domain.FilterInput{Search: "foo", Roles: []string{domain.RoleAdmin}},
	})
	if first.Transition != domain.FilterReplaced {
		t.Fatalf("expected replaced, got %s", first.Transition)
	}

	second := search(t, svc, ports.SearchDirectoryInput{SessionID: "s1"})
	if second.Transition != domain.FilterKept {
		t.Fatalf("expected kept, got %s", second.Transition)
	}
	if !reflect.DeepEqual(ids(first.Items), ids(second.Items)) || first.Total != second.Total {
		t.Fatalf("bare request should replay the stored filter: %v vs %v", ids(first.Items), ids(second.Items))
	}
	if second.Total != 1 {
		t.Errorf("expected 1 match, got %d", second.Total)
	}
	if filters.saves != 1 {
		t.Errorf("kept transition must not write the store, saves=%d", filters.saves)
	}
}

func TestDirectory_ClearThenBareRequestListsEverything(t *testing.T) {
	repo := newStubAccountRepo()
	seedDirectory(repo)
	filters := newStubFilterStore()
	svc := newDirectory(repo, filters)

	search(t, svc, ports.SearchDirectoryInput{SessionID: "s1", Filter: domain.FilterInput{Roles: []string{domain.RoleAdmin}}})

	cleared := search(t, svc, ports.SearchDirectoryInput{SessionID: "s1", Filter: domain.FilterInput{Clear: true}})
	if cleared.Transition != domain.FilterCleared {
		t.Fatalf("expected cleared, got %s", cleared.Transition)
	}
	if _, ok := filters.states["s1"]; ok {
		t.Fatal("stored filter should be erased")
	}

	res := search(t, svc, ports.SearchDirectoryInput{SessionID: "s1"})
	if res.Total != 25 || res.Page != 1 || len(res.Items) != 10 {
		t.Fatalf("expected the full first page, got total=%d page=%d items=%d", res.Total, res.Page, len(res.Items))
	}
}

func TestDirectory_ClearOnEmptySessionIsNoop(t *testing.T) {
	repo := newStubAccountRepo()
	seedDirectory(repo)
	svc := newDirectory(repo, newStubFilterStore())

	if _, err := svc.SearchDirectory(context.Background(), ports.SearchDirectoryInput{
		SessionID: "fresh",
		Filter:    domain.FilterInput{Clear: true},
	}); err != nil {
		t.Fatalf("clearing an empty session must not fail: %v", err)
	}
}

func TestDirectory_Idempotent(t *testing.T) {
	repo := newStubAccountRepo()
	seedDirectory(repo)
	svc := newDirectory(repo, newStubFilterStore())
	in := ports.SearchDirectoryInput{SessionID: "s1", Filter: domain.FilterInput{Search: "member 1", Roles: []string{domain.RoleUser}}}

	a := search(t, svc, in)
	b := search(t, svc, in)
	if a.Total != b.Total || !reflect.DeepEqual(ids(a.Items), ids(b.Items)) {
		t.Fatalf("same filter twice must give the same result")
	}
}

func TestDirectory_SearchIsCaseInsensitive(t *testing.T) {
	repo := newStubAccountRepo()
	seedDirectory(repo)
	repo.seed("John SMITH", "john@example.com", domain.RoleUser)
	svc := newDirectory(repo, newStubFilterStore())

	res := search(t, svc, ports.SearchDirectoryInput{SessionID: "s1", Filter: domain.FilterInput{Search: "smith"}})
	if res.Total != 1 || res.Items[0].Name != "John SMITH" {
		t.Fatalf("expected John SMITH, got %+v", res.Items)
	}
}

func TestDirectory_RoleFilterUsesOrSemantics(t *testing.T) {
	repo := newStubAccountRepo()
	admin := repo.seed("Only Admin", "a@example.com", domain.RoleAdmin)
	manager := repo.seed("Only Manager", "m@example.com", domain.RoleManager)
	repo.seed("Only User", "u@example.com", domain.RoleUser)
	svc := newDirectory(repo, newStubFilterStore())

	res := search(t, svc, ports.SearchDirectoryInput{
		SessionID: "s1",
		Filter:    domain.FilterInput{Roles: []string{domain.RoleAdmin, domain.RoleManager}},
	})
	if got, want := ids(res.Items), []string{admin.ID, manager.ID}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if repo.lastQuery.RoleMatch != domain.RoleMatchAny {
		t.Errorf("expected any policy, got %q", repo.lastQuery.RoleMatch)
	}
}

func TestDirectory_RoleMatchAllPolicy(t *testing.T) {
	repo := newStubAccountRepo()
	both := repo.seed("Both", "b@example.com", domain.RoleAdmin, domain.RoleManager)
	repo.seed("Only Admin", "a@example.com", domain.RoleAdmin)
	svc := NewDirectoryService(repo, repo, newStubFilterStore(), domain.RoleMatchAll, discardLogger)

	res := search(t, svc, ports.SearchDirectoryInput{
		SessionID: "s1",
		Filter:    domain.FilterInput{Roles: []string{domain.RoleAdmin, domain.RoleManager}},
	})
	if res.Total != 1 || res.Items[0].ID != both.ID {
		t.Fatalf("expected only the account holding both roles, got %v", ids(res.Items))
	}
}

func TestDirectory_UnknownRoleMatchesNothing(t *testing.T) {
	repo := newStubAccountRepo()
	seedDirectory(repo)
	svc := newDirectory(repo, newStubFilterStore())

	res := search(t, svc, ports.SearchDirectoryInput{SessionID: "s1", Filter: domain.FilterInput{Roles: []string{"ghost"}}})
	if res.Total != 0 || len(res.Items) != 0 {
		t.Fatalf("expected no matches, got %d", res.Total)
	}
}

func TestDirectory_SessionsAreIndependent(t *testing.T) {
	repo := newStubAccountRepo()
	seedDirectory(repo)
	svc := newDirectory(repo, newStubFilterStore())

	search(t, svc, ports.SearchDirectoryInput{SessionID: "alice", Filter: domain.FilterInput{Roles: []string{domain.RoleAdmin}}})
	res := search(t, svc, ports.SearchDirectoryInput{SessionID: "bob"})
	if res.Total != 25 {
		t.Fatalf("another session's filter leaked: total=%d", res.Total)
	}
}

func TestDirectory_FilterStoreFailuresDoNotFailListing(t *testing.T) {
	repo := newStubAccountRepo()
	seedDirectory(repo)
	filters := newStubFilterStore()
	filters.loadErr = errStoreDown
	filters.saveErr = errStoreDown
	svc := newDirectory(repo, filters)

	res := search(t, svc, ports.SearchDirectoryInput{SessionID: "s1", Filter: domain.FilterInput{Roles: []string{domain.RoleAdmin}}})
	if res.Total != 3 {
		t.Fatalf("effective filter should still apply, got %d", res.Total)
	}
}

func TestDirectory_RepositoryErrorIsWrapped(t *testing.T) {
	repo := newStubAccountRepo()
	repo.searchErr = errStoreDown
	svc := newDirectory(repo, newStubFilterStore())

	_, err := svc.SearchDirectory(context.Background(), ports.SearchDirectoryInput{SessionID: "s1"})
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Account management tests
// ---------------------------------------------------------------------------

func TestDirectory_UpdateAccountSyncsRoles(t *testing.T) {
	repo := newStubAccountRepo()
	a := repo.seed("Ann", "ann@example.com", domain.RoleAdmin)
	svc := newDirectory(repo, newStubFilterStore())

	updated, err := svc.UpdateAccount(context.Background(), ports.UpdateAccountInput{
		ID:    a.ID,
		Name:  " Ann B ",
		Email: "annb@example.com",
		Roles: []string{domain.RoleUser, domain.RoleManager, domain.RoleUser},
	})
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if updated.Name != "Ann B" || updated.Email != "annb@example.com" {
		t.Errorf("profile not updated: %+v", updated)
	}
	if got := updated.RoleNames(); !reflect.DeepEqual(got, []string{domain.RoleManager, domain.RoleUser}) {
		t.Errorf("unexpected roles after sync: %v", got)
	}
}

func TestDirectory_UpdateAccountRequiresARole(t *testing.T) {
	repo := newStubAccountRepo()
	a := repo.seed("Ann", "ann@example.com", domain.RoleAdmin)
	svc := newDirectory(repo, newStubFilterStore())

	_, err := svc.UpdateAccount(context.Background(), ports.UpdateAccountInput{ID: a.ID, Name: "Ann", Email: "ann@example.com"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDirectory_UpdateAccountUnknownRole(t *testing.T) {
	repo := newStubAccountRepo()
	a := repo.seed("Ann", "ann@example.com", domain.RoleAdmin)
	svc := newDirectory(repo, newStubFilterStore())

	_, err := svc.UpdateAccount(context.Background(), ports.UpdateAccountInput{ID: a.ID, Name: "Ann", Email: "ann@example.com", Roles: []string{"ghost"}})
	if !errors.Is(err, domain.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
}

func TestDirectory_DeleteAccount(t *testing.T) {
	repo := newStubAccountRepo()
	a := repo.seed("Ann", "ann@example.com", domain.RoleAdmin)
	svc := newDirectory(repo, newStubFilterStore())

	if err := svc.DeleteAccount(context.Background(), a.ID); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := svc.GetAccount(context.Background(), a.ID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound after delete, got %v", err)
	}
	if err := svc.DeleteAccount(context.Background(), a.ID); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound on second delete, got %v", err)
	}
}
