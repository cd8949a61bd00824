package tasktree

import (
	"sort"
	"testing"
)

func TestDescendants(t *testing.T) {
	gormDB := openTestDB(t)

	root := mustCreate(t, gormDB, CreateOpts{Title: "Root"})
	c1 := mustCreate(t, gormDB, CreateOpts{Title: "Child 1", ParentID: root.ID})
	c2 := mustCreate(t, gormDB, CreateOpts{Title: "Child 2", ParentID: root.ID})
	gc := mustCreate(t, gormDB, CreateOpts{Title: "Grandchild", ParentID: c1.ID})
	mustCreate(t, gormDB, CreateOpts{Title: "Unrelated"})

	got, err := Descendants(gormDB, root.ID)
	if err != nil {
		t.Fatalf("Descendants: %v", err)
	}

	want := []string{c1.ID, c2.ID, gc.ID}
	sort.Strings(got)
	sort.Strings(want)
	if len(got) != len(want) {
		t.Fatalf("Descendants: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Descendants[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDescendants_Leaf(t *testing.T) {
	gormDB := openTestDB(t)

	leaf := mustCreate(t, gormDB, CreateOpts{Title: "Leaf"})
	got, err := Descendants(gormDB, leaf.ID)
	if err != nil {
		t.Fatalf("Descendants: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Descendants of a leaf = %v, want empty", got)
	}
}
