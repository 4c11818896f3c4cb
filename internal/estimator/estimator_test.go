package estimator

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/model"
)

var (
	testNow  = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	testBase = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func ptr(t time.Time) *time.Time {
	return &t
}

func completedTask(project string, created, completed time.Time) model.Task {
	return model.Task{
		Project:     project,
		Status:      model.StatusCompleted,
		CreatedAt:   ptr(created),
		CompletedAt: ptr(completed),
	}
}

func openTask(project string, created time.Time) model.Task {
	return model.Task{
		Project:   project,
		Status:    model.StatusInProgress,
		CreatedAt: ptr(created),
	}
}

// buildProject gera completed tarefas concluídas em [testBase, testBase+spanDays] e open abertas
func buildProject(project string, completed, open int, spanDays float64) []model.Task {
	tasks := make([]model.Task, 0, completed+open)
	end := testBase.Add(time.Duration(spanDays * float64(24*time.Hour)))
	for i := 0; i < completed; i++ {
		tasks = append(tasks, completedTask(project, testBase, end))
	}
	for i := 0; i < open; i++ {
		tasks = append(tasks, openTask(project, testBase))
	}
	return tasks
}

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestEstimateAll_EmptyInput(t *testing.T) {
	e := NewDefault()

	got := e.EstimateAll(context.Background(), nil, testNow)
	if got == nil {
		t.Fatal("Expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Errorf("Expected 0 estimates, got %d", len(got))
	}
}

func TestEstimate_Counts(t *testing.T) {
	e := NewDefault()

	tests := []struct {
		name       string
		completed  int
		open       int
		wantPct    float64
		wantRemain int
	}{
		{"half done", 5, 5, 50, 5},
		{"all open", 0, 4, 0, 4},
		{"all done", 3, 0, 100, 0},
		{"one of three", 1, 2, 100.0 / 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := e.Estimate("P", buildProject("P", tt.completed, tt.open, 10), testNow)
			if est.TotalTasks != tt.completed+tt.open {
				t.Errorf("TotalTasks = %d, want %d", est.TotalTasks, tt.completed+tt.open)
			}
			if est.CompletedTasks != tt.completed {
				t.Errorf("CompletedTasks = %d, want %d", est.CompletedTasks, tt.completed)
			}
			if est.RemainingTasks != tt.wantRemain {
				t.Errorf("RemainingTasks = %d, want %d", est.RemainingTasks, tt.wantRemain)
			}
			if !approx(est.CompletionPercentage, tt.wantPct) {
				t.Errorf("CompletionPercentage = %f, want %f", est.CompletionPercentage, tt.wantPct)
			}
		})
	}
}

func TestEstimate_NoTasks(t *testing.T) {
	est := NewDefault().Estimate("Empty", nil, testNow)

	if est.CompletionPercentage != 0 {
		t.Errorf("CompletionPercentage = %f, want 0", est.CompletionPercentage)
	}
	if est.Velocity != nil {
		t.Errorf("Velocity should be nil, got %f", *est.Velocity)
	}
	if est.Status != model.StatusOnTrack {
		t.Errorf("Status = %s, want On Track", est.Status)
	}
}

func TestEstimate_NoCompletedTasksFallback(t *testing.T) {
	e := NewDefault()

	tests := []struct {
		total    int
		wantDays float64
	}{
		{3, 15},
		{5, 25},
		{6, 42},
		{15, 105},
		{16, 160},
	}

	for _, tt := range tests {
		est := e.Estimate("P", buildProject("P", 0, tt.total, 0), testNow)
		if est.EstimatedCompletionDays != tt.wantDays {
			t.Errorf("total=%d: EstimatedCompletionDays = %f, want %f", tt.total, est.EstimatedCompletionDays, tt.wantDays)
		}
		if est.Velocity != nil {
			t.Errorf("total=%d: Velocity should be nil", tt.total)
		}
		want := testNow.AddDate(0, 0, int(tt.wantDays))
		if est.EstimatedCompletionDate == nil || !est.EstimatedCompletionDate.Equal(want) {
			t.Errorf("total=%d: EstimatedCompletionDate = %v, want %v", tt.total, est.EstimatedCompletionDate, want)
		}
	}

	est := e.Estimate("P", buildProject("P", 0, 3, 0), testNow)
	if est.EstimatedCompletionDays != 15 {
		t.Errorf("EstimatedCompletionDays = %v, want 15", est.EstimatedCompletionDays)
	}
}

func TestEstimate_SmallTailFloor(t *testing.T) {
	// 9 concluídas em 1 dia, 90% => velocidade 9 * 1.2, 1 restante
	est := NewDefault().Estimate("P", buildProject("P", 9, 1, 1), testNow)

	if est.DaysToCompletion == nil {
		t.Fatal("DaysToCompletion should be set")
	}
	if *est.DaysToCompletion != 3 {
		t.Errorf("DaysToCompletion = %f, want 3", *est.DaysToCompletion)
	}
	if !approx(*est.Velocity, 10.8) {
		t.Errorf("Velocity = %f, want 10.8", *est.Velocity)
	}
}

func TestEstimate_LargeBacklogCap(t *testing.T) {
	// 25 tarefas, 2 concluídas (8%), 23 restantes
	est := NewDefault().Estimate("P", buildProject("P", 2, 23, 100), testNow)

	if est.RemainingTasks != 23 {
		t.Fatalf("RemainingTasks = %d, want 23", est.RemainingTasks)
	}
	if !approx(est.CompletionPercentage, 8) {
		t.Fatalf("CompletionPercentage = %f, want 8", est.CompletionPercentage)
	}
	if *est.Velocity != 0.1 {
		t.Errorf("Velocity = %f, want floor 0.1", *est.Velocity)
	}
	if est.EstimatedCompletionDays != 180 {
		t.Errorf("EstimatedCompletionDays = %f, want 180", est.EstimatedCompletionDays)
	}
}

func TestEstimate_NearCompleteCap(t *testing.T) {
	// 100 de 110 concluídas (90.9%), velocidade no piso => 100 dias antes do limite
	est := NewDefault().Estimate("P", buildProject("P", 100, 10, 2000), testNow)

	if est.EstimatedCompletionDays != 30 {
		t.Errorf("EstimatedCompletionDays = %f, want 30", est.EstimatedCompletionDays)
	}
}

func TestEstimate_ClampsAreNotCombined(t *testing.T) {
	params := DefaultParams()
	params.MinVelocity = 0.01
	e := New(params)

	// 1 restante e 95% concluído: vale só o piso de cauda curta, sem o teto de 30 dias
	est := e.Estimate("P", buildProject("P", 19, 1, 1000), testNow)

	want := 1 / (19.0 / 1000 * 1.2)
	if !approx(est.EstimatedCompletionDays, want) {
		t.Errorf("EstimatedCompletionDays = %f, want %f", est.EstimatedCompletionDays, want)
	}
	if est.EstimatedCompletionDays <= 30 {
		t.Errorf("near-complete cap should not apply, got %f", est.EstimatedCompletionDays)
	}
}

func TestEstimate_ZeroDurationUsesFallbackVelocity(t *testing.T) {
	// 2 concluídas no mesmo instante, 50% => ajuste 0.8
	est := NewDefault().Estimate("P", buildProject("P", 2, 2, 0), testNow)

	if est.RawVelocity == nil || *est.RawVelocity != 0.5 {
		t.Fatalf("RawVelocity = %v, want 0.5", est.RawVelocity)
	}
	if !approx(*est.Velocity, 0.4) {
		t.Errorf("Velocity = %f, want 0.4", *est.Velocity)
	}
	// 2 / 0.4 = 5 dias, piso de 3 dias por tarefa => 6
	if est.EstimatedCompletionDays != 6 {
		t.Errorf("EstimatedCompletionDays = %f, want 6", est.EstimatedCompletionDays)
	}
	if est.AvgTaskCompletionDays == nil || *est.AvgTaskCompletionDays != 2 {
		t.Errorf("AvgTaskCompletionDays = %v, want 2", est.AvgTaskCompletionDays)
	}
}

func TestEstimate_FinishedProjectUsesLatestCompletion(t *testing.T) {
	latest := testBase.AddDate(0, 0, 5)
	tasks := []model.Task{
		completedTask("Done", testBase, testBase.AddDate(0, 0, 1)),
		completedTask("Done", testBase, latest),
		completedTask("Done", testBase, testBase.AddDate(0, 0, 3)),
	}

	est := NewDefault().Estimate("Done", tasks, testNow)

	if est.EstimatedCompletionDate == nil || !est.EstimatedCompletionDate.Equal(latest) {
		t.Errorf("EstimatedCompletionDate = %v, want %v", est.EstimatedCompletionDate, latest)
	}
}

func TestEstimate_ScheduleDelta(t *testing.T) {
	latest := testBase.AddDate(0, 0, 5)
	e := NewDefault()

	tests := []struct {
		name       string
		due        time.Time
		wantDiff   int
		wantStatus model.ProjectStatus
	}{
		{"10 days behind", latest.AddDate(0, 0, -10), 10, model.StatusAtRisk},
		{"10 days ahead", latest.AddDate(0, 0, 10), -10, model.StatusOnTrack},
		{"45 days behind", latest.AddDate(0, 0, -45), 45, model.StatusBehind},
		{"same day", latest, 0, model.StatusOnTrack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks := []model.Task{completedTask("P", testBase, latest)}
			tasks[0].ProjectDueDate = ptr(tt.due)

			est := e.Estimate("P", tasks, testNow)
			if est.DaysDifference == nil {
				t.Fatal("DaysDifference should be set")
			}
			if *est.DaysDifference != tt.wantDiff {
				t.Errorf("DaysDifference = %d, want %d", *est.DaysDifference, tt.wantDiff)
			}
			if est.Status != tt.wantStatus {
				t.Errorf("Status = %s, want %s", est.Status, tt.wantStatus)
			}
		})
	}
}

func TestEstimate_ScheduleDeltaFromProjection(t *testing.T) {
	tasks := buildProject("P", 0, 3, 0)
	tasks[1].ProjectDueDate = ptr(testNow.AddDate(0, 0, 5))

	est := NewDefault().Estimate("P", tasks, testNow)

	if est.DaysDifference == nil || *est.DaysDifference != 10 {
		t.Errorf("DaysDifference = %v, want 10", est.DaysDifference)
	}
	if est.ProjectDueDate == nil || !est.ProjectDueDate.Equal(testNow.AddDate(0, 0, 5)) {
		t.Errorf("ProjectDueDate = %v, want first non-nil due date", est.ProjectDueDate)
	}
}

func TestEstimate_NoDueDate(t *testing.T) {
	est := NewDefault().Estimate("P", buildProject("P", 2, 5, 10), testNow)

	if est.DaysDifference != nil {
		t.Errorf("DaysDifference should be nil, got %d", *est.DaysDifference)
	}
	if est.Status != model.StatusOnTrack {
		t.Errorf("Status = %s, want On Track", est.Status)
	}
}

func TestEstimate_MissingTimestampsDegradeToFallback(t *testing.T) {
	tasks := []model.Task{
		{Project: "P", Status: model.StatusCompleted, CompletedAt: ptr(testBase)},
		openTask("P", testBase),
		openTask("P", testBase),
	}

	est := NewDefault().Estimate("P", tasks, testNow)

	if est.CompletedTasks != 1 {
		t.Errorf("CompletedTasks = %d, want 1", est.CompletedTasks)
	}
	if est.Velocity != nil {
		t.Errorf("Velocity should be nil without a usable window")
	}
	if est.EstimatedCompletionDays != 15 {
		t.Errorf("EstimatedCompletionDays = %f, want 15", est.EstimatedCompletionDays)
	}
}

func TestEstimate_MissingCreatedAtExcludedFromWindow(t *testing.T) {
	tasks := buildProject("P", 4, 6, 8)
	// Tarefa concluída sem created_at não entra no min, mas conta como concluída
	tasks = append(tasks, model.Task{Project: "P", Status: model.StatusCompleted, CompletedAt: ptr(testBase.AddDate(0, 0, 8))})

	est := NewDefault().Estimate("P", tasks, testNow)

	if est.CompletedTasks != 5 {
		t.Fatalf("CompletedTasks = %d, want 5", est.CompletedTasks)
	}
	// 5 concluídas / 8 dias
	if est.RawVelocity == nil || !approx(*est.RawVelocity, 5.0/8) {
		t.Errorf("RawVelocity = %v, want %f", est.RawVelocity, 5.0/8)
	}
}

func TestClassify(t *testing.T) {
	intPtr := func(i int) *int { return &i }

	tests := []struct {
		name string
		diff *int
		want model.ProjectStatus
	}{
		{"nil", nil, model.StatusOnTrack},
		{"ahead", intPtr(-5), model.StatusOnTrack},
		{"zero", intPtr(0), model.StatusOnTrack},
		{"one", intPtr(1), model.StatusAtRisk},
		{"thirty", intPtr(30), model.StatusAtRisk},
		{"thirty one", intPtr(31), model.StatusBehind},
	}

	params := DefaultParams()
	for _, tt := range tests {
		if got := params.Classify(tt.diff); got != tt.want {
			t.Errorf("%s: Classify = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestDaysBetween(t *testing.T) {
	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"exact days", testBase.AddDate(0, 0, 10), testBase, 10},
		{"negative exact", testBase, testBase.AddDate(0, 0, 10), -10},
		{"partial positive", testBase.Add(36 * time.Hour), testBase, 1},
		{"partial negative floors", testBase.Add(-12 * time.Hour), testBase, -1},
		{"sub-second negative", testBase.Add(-time.Millisecond), testBase, -1},
		{"far future", testBase.AddDate(400, 0, 0), testBase, 146097},
	}

	for _, tt := range tests {
		if got := DaysBetween(tt.a, tt.b); got != tt.want {
			t.Errorf("%s: DaysBetween = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestAggregate_PreservesFirstSeenOrder(t *testing.T) {
	tasks := []model.Task{
		openTask("Zeta", testBase),
		openTask("Alpha", testBase),
		openTask("Zeta", testBase),
		openTask("Mid", testBase),
	}

	groups := Aggregate(tasks)

	wantOrder := []string{"Zeta", "Alpha", "Mid"}
	if len(groups) != len(wantOrder) {
		t.Fatalf("Expected %d groups, got %d", len(wantOrder), len(groups))
	}
	for i, name := range wantOrder {
		if groups[i].Project != name {
			t.Errorf("groups[%d] = %s, want %s", i, groups[i].Project, name)
		}
	}
	if len(groups[0].Tasks) != 2 {
		t.Errorf("Zeta should have 2 tasks, got %d", len(groups[0].Tasks))
	}
}

func TestEstimateAll_SortedAndIndependentOfWorkers(t *testing.T) {
	var tasks []model.Task
	for _, name := range []string{"Zeta", "Alpha", "Mid", "Beta", "Omega"} {
		tasks = append(tasks, buildProject(name, len(name), 3, float64(len(name)))...)
	}

	sequential := NewDefault().EstimateAll(context.Background(), tasks, testNow)

	params := DefaultParams()
	params.Workers = 8
	parallel := New(params).EstimateAll(context.Background(), tasks, testNow)

	for i := 1; i < len(sequential); i++ {
		if sequential[i-1].Project > sequential[i].Project {
			t.Errorf("estimates not sorted: %s before %s", sequential[i-1].Project, sequential[i].Project)
		}
	}
	if !reflect.DeepEqual(sequential, parallel) {
		t.Error("parallel estimation should match sequential estimation")
	}
}

func TestEstimateAll_FailureIsolatedPerProject(t *testing.T) {
	e := NewDefault()
	e.estimate = func(project string, tasks []model.Task, now time.Time) model.ProjectEstimate {
		if project == "Broken" {
			panic("boom")
		}
		return e.Estimate(project, tasks, now)
	}

	tasks := append(buildProject("Broken", 1, 1, 2), buildProject("Healthy", 2, 2, 4)...)
	got := e.EstimateAll(context.Background(), tasks, testNow)

	if len(got) != 2 {
		t.Fatalf("Expected 2 estimates, got %d", len(got))
	}
	broken, healthy := got[0], got[1]
	if !broken.Degraded || broken.TotalTasks != 2 || broken.CompletedTasks != 1 {
		t.Errorf("Broken should be degraded with counts, got %+v", broken)
	}
	if healthy.Degraded || healthy.EstimatedCompletionDate == nil {
		t.Errorf("Healthy should have a full estimate, got %+v", healthy)
	}
}
