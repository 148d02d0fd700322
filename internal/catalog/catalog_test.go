package catalog

import "testing"

func TestMaskAssignmentStableAcrossInputOrder(t *testing.T) {
	a, err := New([]Model{{Name: "gemini-2.5-pro"}, {Name: "gemini-2.5-flash"}, {Name: "gpt-5.2"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b, err := New([]Model{{Name: "gpt-5.2"}, {Name: "gemini-2.5-flash"}, {Name: "gemini-2.5-pro"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for _, name := range []string{"gemini-2.5-pro", "gemini-2.5-flash", "gpt-5.2"} {
		ma, _ := a.Mask(name)
		mb, _ := b.Mask(name)
		if ma != mb {
			t.Fatalf("mask for %q differs by input order: %d vs %d", name, ma, mb)
		}
	}
}

func TestMaskIsOneHot(t *testing.T) {
	c, err := New([]Model{{Name: "a"}, {Name: "b"}, {Name: "c"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seen := map[uint64]bool{}
	for _, name := range []string{"a", "b", "c"} {
		mask, ok := c.Mask(name)
		if !ok {
			t.Fatalf("missing mask for %q", name)
		}
		if mask == 0 || mask&(mask-1) != 0 {
			t.Fatalf("mask %d for %q is not one-hot", mask, name)
		}
		if seen[mask] {
			t.Fatalf("duplicate mask %d", mask)
		}
		seen[mask] = true
	}
}

func TestNamesForRoundTrips(t *testing.T) {
	c, err := New([]Model{{Name: "a"}, {Name: "b"}, {Name: "c"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ma, _ := c.Mask("a")
	mc, _ := c.Mask("c")
	names := c.NamesFor(ma | mc)
	if len(names) != 2 {
		t.Fatalf("NamesFor returned %v, want 2 entries", names)
	}
}

func TestMaxModelsEnforced(t *testing.T) {
	models := make([]Model, MaxModels+1)
	for i := range models {
		models[i] = Model{Name: string(rune('a' + i))}
	}
	if _, err := New(models); err == nil {
		t.Fatalf("expected error exceeding MaxModels")
	}
}

func TestUnknownModelMiss(t *testing.T) {
	c, err := New([]Model{{Name: "a"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := c.Mask("nope"); ok {
		t.Fatalf("expected miss for unknown model")
	}
}
