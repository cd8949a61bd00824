package directory

import "testing"

func TestStatic(t *testing.T) {
	dir := NewStatic()
	dir.Active["bob"] = true
	dir.CoreTask["bob"] = []string{"ct-1", "ct-2"}
	dir.HRHolders = []string{"hr-head"}

	if !dir.HasActiveAssignment("bob") {
		t.Error("HasActiveAssignment(bob) = false")
	}
	if dir.HasActiveAssignment("ghost") {
		t.Error("HasActiveAssignment(ghost) = true")
	}
	if got := dir.CoreTasks("bob"); len(got) != 2 {
		t.Errorf("CoreTasks(bob) = %v, want 2 entries", got)
	}
	if got := dir.CoreTasks("ghost"); len(got) != 0 {
		t.Errorf("CoreTasks(ghost) = %v, want empty", got)
	}
	if got := dir.HRRecipients(); len(got) != 1 || got[0] != "hr-head" {
		t.Errorf("HRRecipients() = %v, want [hr-head]", got)
	}
}
