package workflows

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vinoplan-backend/internal/data/repos/testutil"
	types "github.com/yungbote/vinoplan-backend/internal/domain"
	"github.com/yungbote/vinoplan-backend/internal/domain/workflows"
	"github.com/yungbote/vinoplan-backend/internal/platform/dbctx"
	"github.com/yungbote/vinoplan-backend/internal/platform/jsoncol"
)

func TestWorkflowRunRepoLease(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewWorkflowRunRepo(db, testutil.Logger(t))

	run, err := repo.Create(dbc, &types.WorkflowRun{Kind: "plan_warmup", Stage: "enumerate"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if run.Status != workflows.RunStatusQueued {
		t.Fatalf("Create: status=%q", run.Status)
	}

	now := time.Now().UTC()
	ok, err := repo.ClaimLease(dbc, run.ID, "worker-a", now, time.Minute)
	if err != nil || !ok {
		t.Fatalf("ClaimLease(a): ok=%v err=%v", ok, err)
	}
	if ok, _ := repo.ClaimLease(dbc, run.ID, "worker-b", now.Add(10*time.Second), time.Minute); ok {
		t.Fatalf("ClaimLease(b): claimed a live lease")
	}
	if ok, _ := repo.ClaimLease(dbc, run.ID, "worker-a", now.Add(10*time.Second), time.Minute); !ok {
		t.Fatalf("ClaimLease(a renew): expected renewal")
	}
	runnable, err := repo.ListRunnable(dbc, "plan_warmup", now.Add(20*time.Second), 10)
	if err != nil || len(runnable) != 0 {
		t.Fatalf("ListRunnable(leased): len=%d err=%v", len(runnable), err)
	}
	if ok, _ := repo.ClaimLease(dbc, run.ID, "worker-b", now.Add(2*time.Minute), time.Minute); !ok {
		t.Fatalf("ClaimLease(b after expiry): expected takeover")
	}
	if err := repo.ReleaseLease(dbc, run.ID, "worker-b"); err != nil {
		t.Fatalf("ReleaseLease: %v", err)
	}

	resume := now.Add(time.Hour)
	if err := repo.UpdateFields(dbc, run.ID, map[string]interface{}{"resume_after": resume, "status": workflows.RunStatusRunning}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if rows, _ := repo.ListRunnable(dbc, "plan_warmup", now, 10); len(rows) != 0 {
		t.Fatalf("ListRunnable(before resume_after): len=%d", len(rows))
	}
	if rows, _ := repo.ListRunnable(dbc, "plan_warmup", resume, 10); len(rows) != 1 {
		t.Fatalf("ListRunnable(at resume_after): len=%d", len(rows))
	}

	if err := repo.UpdateFields(dbc, run.ID, map[string]interface{}{"status": workflows.RunStatusSucceeded}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	if ok, _ := repo.ClaimLease(dbc, run.ID, "worker-a", resume.Add(time.Hour), time.Minute); ok {
		t.Fatalf("ClaimLease(terminal): expected refusal")
	}
	got, err := repo.GetByID(dbc, run.ID)
	if err != nil || got == nil || !got.Terminal() {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
}

func TestWorkflowRunRepoUpdateLeased(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewWorkflowRunRepo(db, testutil.Logger(t))

	run, err := repo.Create(dbc, &types.WorkflowRun{Kind: "plan_warmup", Stage: "enumerate"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ok, err := repo.UpdateLeased(dbc, run.ID, "worker-a", map[string]interface{}{"stage": "x"}); err != nil || ok {
		t.Fatalf("UpdateLeased(unleased): ok=%v err=%v", ok, err)
	}

	now := time.Now().UTC()
	if ok, _ := repo.ClaimLease(dbc, run.ID, "worker-a", now, time.Minute); !ok {
		t.Fatalf("ClaimLease(a): expected claim")
	}
	if ok, err := repo.UpdateLeased(dbc, run.ID, "worker-a", map[string]interface{}{"stage": "generate-dinner_party-0"}); err != nil || !ok {
		t.Fatalf("UpdateLeased(owner): ok=%v err=%v", ok, err)
	}

	// b takes over an expired lease; a's late write must not land.
	if ok, _ := repo.ClaimLease(dbc, run.ID, "worker-b", now.Add(2*time.Minute), time.Minute); !ok {
		t.Fatalf("ClaimLease(b after expiry): expected takeover")
	}
	if ok, _ := repo.UpdateLeased(dbc, run.ID, "worker-a", map[string]interface{}{"stage": "stale"}); ok {
		t.Fatalf("UpdateLeased(previous owner): write landed")
	}
	if ok, _ := repo.UpdateLeased(dbc, run.ID, "worker-b", map[string]interface{}{"status": workflows.RunStatusSucceeded}); !ok {
		t.Fatalf("UpdateLeased(b): expected write")
	}
	if ok, _ := repo.UpdateLeased(dbc, run.ID, "worker-b", map[string]interface{}{"status": workflows.RunStatusRunning}); ok {
		t.Fatalf("UpdateLeased(terminal): reopened a finished run")
	}

	got, err := repo.GetByID(dbc, run.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: got=%v err=%v", got, err)
	}
	if got.Status != workflows.RunStatusSucceeded || got.Stage != "generate-dinner_party-0" {
		t.Fatalf("GetByID: status=%s stage=%s", got.Status, got.Stage)
	}
}

func TestWorkflowRunRepoKeepsScalarResult(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewWorkflowRunRepo(db, testutil.Logger(t))

	run, err := repo.Create(dbc, &types.WorkflowRun{Kind: "plan_warmup", Stage: "done", Payload: jsoncol.JSON(`true`)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.UpdateFields(dbc, run.ID, map[string]interface{}{"result": jsoncol.JSON(`2`)}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := repo.GetByID(dbc, run.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if string(got.Result) != "2" || string(got.Payload) != "true" {
		t.Fatalf("GetByID: result=%s payload=%s", got.Result, got.Payload)
	}

	events := NewWorkflowStepEventRepo(db, testutil.Logger(t))
	if _, err := events.Append(dbc, &types.WorkflowStepEvent{RunID: run.ID, StepName: "count", Attempt: 1, Status: workflows.StepStatusSucceeded, Result: jsoncol.JSON(`36`)}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	evs, err := events.ListByRun(dbc, run.ID)
	if err != nil || len(evs) != 1 {
		t.Fatalf("ListByRun: len=%d err=%v", len(evs), err)
	}
	if string(evs[0].Result) != "36" {
		t.Fatalf("event result: got %s", evs[0].Result)
	}
}

func TestWorkflowStepEventRepoAppendAssignsSeq(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewWorkflowStepEventRepo(db, testutil.Logger(t))

	runID := uuid.New()
	for i, name := range []string{"enumerate", "generate-dinner_party-0", "generate-dinner_party-0"} {
		ev, err := repo.Append(dbc, &types.WorkflowStepEvent{RunID: runID, StepName: name, StepIndex: i, Attempt: 1, Status: workflows.StepStatusSucceeded})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
		if ev.Seq != i+1 {
			t.Fatalf("Append: seq=%d want %d", ev.Seq, i+1)
		}
	}
	if _, err := repo.Append(dbc, &types.WorkflowStepEvent{RunID: uuid.New(), StepName: "enumerate", Status: workflows.StepStatusSucceeded}); err != nil {
		t.Fatalf("Append(other run): %v", err)
	}

	events, err := repo.ListByRun(dbc, runID)
	if err != nil {
		t.Fatalf("ListByRun: %v", err)
	}
	if len(events) != 3 || events[0].StepName != "enumerate" || events[2].Seq != 3 {
		t.Fatalf("ListByRun: %+v", events)
	}
}
