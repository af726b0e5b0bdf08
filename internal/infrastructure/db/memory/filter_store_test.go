package memory

import (
	"context"
	"testing"

	"github.com/99minutos/restaurant-directory/internal/core/domain"
)

func TestFilterStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewFilterStore()

	if st, err := s.Load(ctx, "s1"); err != nil || !st.IsEmpty() {
		t.Fatalf("expected empty state for unknown session, got %+v (%v)", st, err)
	}

	roles := []string{"admin"}
	if err := s.Save(ctx, "s1", domain.FilterState{Search: "foo", Roles: roles}); err != nil {
		t.Fatalf("save: %v", err)
	}
	roles[0] = "mutated"

	st, _ := s.Load(ctx, "s1")
	if st.Search != "foo" || len(st.Roles) != 1 || st.Roles[0] != "admin" {
		t.Fatalf("unexpected state: %+v", st)
	}

	if other, _ := s.Load(ctx, "s2"); !other.IsEmpty() {
		t.Fatalf("sessions must be isolated, got %+v", other)
	}

	if err := s.Clear(ctx, "s1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := s.Clear(ctx, "s1"); err != nil {
		t.Fatalf("clearing twice must be a no-op: %v", err)
	}
	if st, _ := s.Load(ctx, "s1"); !st.IsEmpty() {
		t.Fatalf("expected empty state after clear, got %+v", st)
	}
}
