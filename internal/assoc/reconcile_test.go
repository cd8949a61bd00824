package assoc

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/openhrms/taskcycle/internal/config"
	"github.com/openhrms/taskcycle/internal/db"
	"github.com/openhrms/taskcycle/internal/directory"
	"github.com/openhrms/taskcycle/internal/faults"
	"github.com/openhrms/taskcycle/internal/models"
	"github.com/openhrms/taskcycle/internal/notify"
	"github.com/openhrms/taskcycle/internal/tasktree"
	"gorm.io/gorm"
)

// recordSink captures notifications for assertions.
type recordSink struct {
	events []notify.Event
	org    []notify.Event
}

func (r *recordSink) Notify(ev notify.Event)             { r.events = append(r.events, ev) }
func (r *recordSink) NotifyOrganization(ev notify.Event) { r.org = append(r.org, ev) }

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.Connect(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		t.Fatalf("AutoMigrate: %v", err)
	}
	return gormDB
}

func testDirectory() *directory.Static {
	dir := directory.NewStatic()
	for _, user := range []string{"bob", "carol", "dave"} {
		dir.Active[user] = true
		dir.CoreTask[user] = []string{"ct-1", "ct-2"}
	}
	return dir
}

func testDeps(sink notify.Sink) Deps {
	return Deps{Directory: testDirectory(), Notifier: sink}
}

func mustCreateTask(t *testing.T, gormDB *gorm.DB, opts tasktree.CreateOpts) *models.Task {
	t.Helper()
	if opts.Deadline.IsZero() {
		opts.Deadline = time.Now().AddDate(0, 0, 7)
	}
	if opts.CreatedBy == "" {
		opts.CreatedBy = "alice"
	}
	task, err := tasktree.Create(gormDB, opts)
	if err != nil {
		t.Fatalf("create task %q: %v", opts.Title, err)
	}
	return task
}

func loadAssoc(t *testing.T, gormDB *gorm.DB, taskID, userID string) *models.TaskAssociation {
	t.Helper()
	var a models.TaskAssociation
	if err := gormDB.Where("task_id = ? AND user_id = ?", taskID, userID).First(&a).Error; err != nil {
		t.Fatalf("load association %s/%s: %v", taskID, userID, err)
	}
	return &a
}

func TestSetResponsible(t *testing.T) {
	gormDB := openTestDB(t)
	sink := &recordSink{}

	task := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Assign target"})

	err := SetResponsible(gormDB, testDeps(sink), task.ID, []Assignment{
		{UserID: "bob", CoreTasks: []string{"ct-1"}},
	})
	if err != nil {
		t.Fatalf("SetResponsible: %v", err)
	}

	a := loadAssoc(t, gormDB, task.ID, "bob")
	if a.Role != models.RoleResponsible {
		t.Errorf("Role = %q, want %q", a.Role, models.RoleResponsible)
	}
	if a.CycleStatus != models.CycleApprovalPending {
		t.Errorf("CycleStatus = %q, want %q", a.CycleStatus, models.CycleApprovalPending)
	}
	if !strings.Contains(a.CoreTasks, "ct-1") {
		t.Errorf("CoreTasks = %q, want to contain ct-1", a.CoreTasks)
	}

	if len(sink.events) != 1 {
		t.Fatalf("got %d notifications, want 1", len(sink.events))
	}
	if sink.events[0].Recipients[0] != "bob" {
		t.Errorf("notification recipient = %v, want bob", sink.events[0].Recipients)
	}
}

func TestSetResponsible_PropagatesObserverToDescendants(t *testing.T) {
	gormDB := openTestDB(t)

	root := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Root"})
	child := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Child", ParentID: root.ID})
	grandchild := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Grandchild", ParentID: child.ID})

	err := SetResponsible(gormDB, testDeps(nil), root.ID, []Assignment{
		{UserID: "bob", CoreTasks: []string{"ct-1"}},
	})
	if err != nil {
		t.Fatalf("SetResponsible: %v", err)
	}

	for _, taskID := range []string{child.ID, grandchild.ID} {
		a := loadAssoc(t, gormDB, taskID, "bob")
		if a.Role != models.RoleObserver {
			t.Errorf("propagated Role on %s = %q, want %q", taskID, a.Role, models.RoleObserver)
		}
		if !a.ReadOnly {
			t.Errorf("propagated association on %s should be read-only", taskID)
		}
	}
}

func TestSetResponsible_PropagationSkipsExisting(t *testing.T) {
	gormDB := openTestDB(t)

	root := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Root"})
	child := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Child", ParentID: root.ID})

	// bob already holds a direct responsibility on the child.
	if err := SetResponsible(gormDB, testDeps(nil), child.ID, []Assignment{
		{UserID: "bob", CoreTasks: []string{"ct-1"}},
	}); err != nil {
		t.Fatalf("SetResponsible child: %v", err)
	}

	if err := SetResponsible(gormDB, testDeps(nil), root.ID, []Assignment{
		{UserID: "bob", CoreTasks: []string{"ct-2"}},
	}); err != nil {
		t.Fatalf("SetResponsible root: %v", err)
	}

	a := loadAssoc(t, gormDB, child.ID, "bob")
	if a.Role != models.RoleResponsible {
		t.Errorf("child Role = %q, want %q (existing association preserved)", a.Role, models.RoleResponsible)
	}
	if a.ReadOnly {
		t.Error("existing direct association must not be downgraded to read-only")
	}
}

func TestSetResponsible_RemoveDeletesDescendantVisibility(t *testing.T) {
	gormDB := openTestDB(t)

	root := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Root"})
	child := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Child", ParentID: root.ID})

	deps := testDeps(nil)
	if err := SetResponsible(gormDB, deps, root.ID, []Assignment{
		{UserID: "bob", CoreTasks: []string{"ct-1"}},
	}); err != nil {
		t.Fatalf("SetResponsible: %v", err)
	}

	// Reconcile to an empty set removes bob everywhere below.
	if err := SetResponsible(gormDB, deps, root.ID, nil); err != nil {
		t.Fatalf("SetResponsible empty: %v", err)
	}

	var count int64
	gormDB.Model(&models.TaskAssociation{}).
		Where("task_id IN ? AND user_id = ?", []string{root.ID, child.ID}, "bob").Count(&count)
	if count != 0 {
		t.Errorf("bob still holds %d associations after removal", count)
	}
}

func TestSetResponsible_RemoveSparesDirectDescendantResponsibility(t *testing.T) {
	gormDB := openTestDB(t)

	root := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Root"})
	child := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Child", ParentID: root.ID})

	deps := testDeps(nil)
	if err := SetResponsible(gormDB, deps, child.ID, []Assignment{
		{UserID: "bob", CoreTasks: []string{"ct-1"}},
	}); err != nil {
		t.Fatalf("SetResponsible child: %v", err)
	}
	if err := SetObservers(gormDB, deps, root.ID, []Assignment{{UserID: "bob"}}); err != nil {
		t.Fatalf("SetObservers root: %v", err)
	}

	if err := SetObservers(gormDB, deps, root.ID, nil); err != nil {
		t.Fatalf("SetObservers empty: %v", err)
	}

	a := loadAssoc(t, gormDB, child.ID, "bob")
	if a.Role != models.RoleResponsible {
		t.Errorf("child Role = %q, want %q (direct responsibility spared)", a.Role, models.RoleResponsible)
	}
}

func TestSetResponsible_DemotesInheritedInsteadOfDeleting(t *testing.T) {
	gormDB := openTestDB(t)

	root := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Root"})
	child := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Child", ParentID: root.ID})

	// Seed an inherited responsible association on the child directly.
	inherited := models.TaskAssociation{
		TaskID:      child.ID,
		UserID:      "carol",
		Role:        models.RoleResponsible,
		ReadOnly:    true,
		CycleStatus: models.CycleApprovalPending,
	}
	if err := gormDB.Create(&inherited).Error; err != nil {
		t.Fatalf("seed inherited association: %v", err)
	}

	// Reconciling carol out at the child level demotes, never deletes.
	if err := SetResponsible(gormDB, testDeps(nil), child.ID, nil); err != nil {
		t.Fatalf("SetResponsible: %v", err)
	}

	a := loadAssoc(t, gormDB, child.ID, "carol")
	if a.Role != models.RoleObserver {
		t.Errorf("Role = %q, want %q after demotion", a.Role, models.RoleObserver)
	}
	if !a.ReadOnly {
		t.Error("demoted association should stay read-only")
	}
}

func TestSetResponsible_ValidationErrors(t *testing.T) {
	gormDB := openTestDB(t)
	task := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Validation", CreatedBy: "alice"})

	tests := []struct {
		name    string
		desired []Assignment
		wantErr string
	}{
		{
			name:    "empty user",
			desired: []Assignment{{CoreTasks: []string{"ct-1"}}},
			wantErr: "user",
		},
		{
			name: "duplicate user",
			desired: []Assignment{
				{UserID: "bob", CoreTasks: []string{"ct-1"}},
				{UserID: "bob", CoreTasks: []string{"ct-2"}},
			},
			wantErr: "duplicate",
		},
		{
			name:    "creator as responsible",
			desired: []Assignment{{UserID: "alice", CoreTasks: []string{"ct-1"}}},
			wantErr: "creator",
		},
		{
			name:    "missing core tasks",
			desired: []Assignment{{UserID: "bob"}},
			wantErr: "core_tasks",
		},
		{
			name:    "foreign core task",
			desired: []Assignment{{UserID: "bob", CoreTasks: []string{"ct-other"}}},
			wantErr: "work experience",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SetResponsible(gormDB, testDeps(nil), task.ID, tt.desired)
			if err == nil {
				t.Fatal("expected error")
			}
			if !faults.IsValidation(err) {
				t.Errorf("error %v is not a validation error", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestSetObservers_NoCoreTasksRequired(t *testing.T) {
	gormDB := openTestDB(t)
	task := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Observers"})

	err := SetObservers(gormDB, testDeps(nil), task.ID, []Assignment{{UserID: "carol"}})
	if err != nil {
		t.Fatalf("SetObservers: %v", err)
	}

	a := loadAssoc(t, gormDB, task.ID, "carol")
	if a.Role != models.RoleObserver {
		t.Errorf("Role = %q, want %q", a.Role, models.RoleObserver)
	}
}

func TestReconcile_TemplateSkipsNotifications(t *testing.T) {
	gormDB := openTestDB(t)
	sink := &recordSink{}

	template := mustCreateTask(t, gormDB, tasktree.CreateOpts{
		Title:             "Template",
		RecurringRule:     "FREQ=DAILY",
		RecurringFirstRun: time.Now(),
	})

	err := SetResponsible(gormDB, testDeps(sink), template.ID, []Assignment{
		{UserID: "bob", CoreTasks: []string{"ct-1"}},
	})
	if err != nil {
		t.Fatalf("SetResponsible: %v", err)
	}
	if len(sink.events) != 0 {
		t.Errorf("got %d notifications for a template, want 0", len(sink.events))
	}
}

func TestReconcile_LeasedTaskRejected(t *testing.T) {
	gormDB := openTestDB(t)
	task := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Leased"})

	if err := tasktree.AcquireLease(gormDB, task.ID, "worker-1", time.Minute); err != nil {
		t.Fatalf("AcquireLease: %v", err)
	}

	err := SetObservers(gormDB, testDeps(nil), task.ID, []Assignment{{UserID: "carol"}})
	if err == nil {
		t.Fatal("expected conflict while lease is held")
	}
	if !faults.IsConflict(err) {
		t.Errorf("error %v is not a state conflict", err)
	}
}

func TestReconcile_RoleSwitch(t *testing.T) {
	gormDB := openTestDB(t)
	task := mustCreateTask(t, gormDB, tasktree.CreateOpts{Title: "Switch"})

	deps := testDeps(nil)
	if err := SetObservers(gormDB, deps, task.ID, []Assignment{{UserID: "bob"}}); err != nil {
		t.Fatalf("SetObservers: %v", err)
	}
	if err := SetResponsible(gormDB, deps, task.ID, []Assignment{
		{UserID: "bob", CoreTasks: []string{"ct-1"}},
	}); err != nil {
		t.Fatalf("SetResponsible: %v", err)
	}

	a := loadAssoc(t, gormDB, task.ID, "bob")
	if a.Role != models.RoleResponsible {
		t.Errorf("Role = %q, want %q after promotion", a.Role, models.RoleResponsible)
	}
}
