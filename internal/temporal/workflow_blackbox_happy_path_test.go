package temporal

import (
	"context"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/converter"
	"go.temporal.io/sdk/testsuite"

	"passport-portal/internal/domain"
)

type activityTrace struct {
	mu sync.Mutex

	startedOrder []string
	applyIns     []ApplyStatusChangeInput
	applyOuts    []ApplyStatusChangeOutput
	refusedIns   []RecordRefusedTransitionInput
}

func (t *activityTrace) recordStarted(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.startedOrder = append(t.startedOrder, name)
}

var happyPath = []StatusChangeSignal{
	{To: "payment_pending", Actor: "system"},
	{To: "payment_verified", Actor: "finance"},
	{To: "counter_verification", Actor: "counter"},
	{To: "biometrics_pending", Actor: "counter"},
	{To: "biometrics_completed", Actor: "biometrics"},
	{To: "controller_review", Actor: "controller"},
	{To: "senior_officer_review", Actor: "controller"},
	{To: "data_entry", Actor: "senior_officer"},
	{To: "printing_pending", Actor: "data_entry"},
	{To: "printing", Actor: "printer"},
	{To: "quality_assurance", Actor: "printer"},
	{To: "ready_for_collection", Actor: "qa"},
	{To: "collected", Actor: "counter"},
}

var _ = Describe("ApplicationLifecycleWorkflow blackbox happy path", func() {
	It("walks a passport application from submission to collection", func() {
		var suite testsuite.WorkflowTestSuite
		env := suite.NewTestWorkflowEnvironment()

		store := newFakeStore()
		applicationID := "app-happy-blackbox-1"
		store.setStatus(applicationID, string(domain.StatusSubmitted))
		acts := &Activities{Store: store}

		trace := &activityTrace{}
		env.SetOnActivityStartedListener(func(info *activity.Info, _ context.Context, args converter.EncodedValues) {
			trace.recordStarted(info.ActivityType.Name)
			switch info.ActivityType.Name {
			case "ApplyStatusChangeActivity":
				var in ApplyStatusChangeInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.applyIns = append(trace.applyIns, in)
				trace.mu.Unlock()
			case "RecordRefusedTransitionActivity":
				var in RecordRefusedTransitionInput
				_ = args.Get(&in)
				trace.mu.Lock()
				trace.refusedIns = append(trace.refusedIns, in)
				trace.mu.Unlock()
			}
		})
		env.SetOnActivityCompletedListener(func(info *activity.Info, result converter.EncodedValue, _ error) {
			if info.ActivityType.Name != "ApplyStatusChangeActivity" {
				return
			}
			var out ApplyStatusChangeOutput
			_ = result.Get(&out)
			trace.mu.Lock()
			trace.applyOuts = append(trace.applyOuts, out)
			trace.mu.Unlock()
		})

		env.RegisterWorkflow(ApplicationLifecycleWorkflow)
		env.RegisterActivity(acts.ApplyStatusChangeActivity)
		env.RegisterActivity(acts.RecordRefusedTransitionActivity)

		By("scheduling one officer signal per stage")
		for i, sig := range happyPath {
			signalAt(env, time.Duration(i+1)*time.Hour, sig)
		}

		By("starting the workflow at submission")
		env.ExecuteWorkflow(ApplicationLifecycleWorkflow, WorkflowInput{
			ApplicationID: applicationID,
			Kind:          domain.KindPassportApplication,
		})

		By("validating the workflow completes at collection")
		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).ToNot(HaveOccurred())

		var wfResult WorkflowResult
		Expect(env.GetWorkflowResult(&wfResult)).To(Succeed())
		Expect(wfResult.ApplicationID).To(Equal(applicationID))
		Expect(wfResult.Status).To(Equal(string(domain.StatusCollected)))
		Expect(wfResult.Applied).To(Equal(len(happyPath)))
		Expect(wfResult.Refused).To(BeZero())

		By("validating every activity input follows the table")
		Expect(trace.refusedIns).To(BeEmpty())
		Expect(trace.applyIns).To(HaveLen(len(happyPath)))
		from := string(domain.StatusSubmitted)
		for i, in := range trace.applyIns {
			Expect(in.ApplicationID).To(Equal(applicationID))
			Expect(in.Kind).To(Equal(domain.KindPassportApplication))
			Expect(in.From).To(Equal(from))
			Expect(in.To).To(Equal(happyPath[i].To))
			Expect(in.Actor).To(Equal(happyPath[i].Actor))
			Expect(in.RecordReason).To(BeFalse())
			Expect(domain.PassportApplication.IsValidTransition(domain.ApplicationStatus(in.From), domain.ApplicationStatus(in.To))).To(BeTrue())
			Expect(trace.applyOuts[i].Status).To(Equal(in.To))
			from = in.To
		}

		By("validating persisted side effects")
		Expect(store.statusOf(applicationID)).To(Equal(string(domain.StatusCollected)))
		Expect(store.historyOf(applicationID)).To(HaveLen(len(happyPath)))
		audit := store.auditOf(applicationID)
		Expect(audit).To(HaveLen(len(happyPath)))
		Expect(audit).To(HaveEach(domain.AuditStatusChanged))
	})

	It("audits a refused rejection once printing has begun and keeps going", func() {
		var suite testsuite.WorkflowTestSuite
		env := suite.NewTestWorkflowEnvironment()

		store := newFakeStore()
		applicationID := "app-refused-blackbox-1"
		store.setStatus(applicationID, string(domain.StatusPrinting))
		acts := &Activities{Store: store}

		env.RegisterWorkflow(ApplicationLifecycleWorkflow)
		env.RegisterActivity(acts.ApplyStatusChangeActivity)
		env.RegisterActivity(acts.RecordRefusedTransitionActivity)

		signalAt(env, time.Hour, StatusChangeSignal{To: "rejected", Actor: "controller", Reason: "duplicate"})
		signalAt(env, 2*time.Hour, StatusChangeSignal{To: "submitted", Actor: "controller"})
		for i, sig := range happyPath[10:] {
			signalAt(env, time.Duration(i+3)*time.Hour, sig)
		}

		env.ExecuteWorkflow(ApplicationLifecycleWorkflow, WorkflowInput{
			ApplicationID: applicationID,
			Kind:          domain.KindPassportApplication,
			Status:        string(domain.StatusPrinting),
		})

		Expect(env.IsWorkflowCompleted()).To(BeTrue())
		Expect(env.GetWorkflowError()).ToNot(HaveOccurred())

		var wfResult WorkflowResult
		Expect(env.GetWorkflowResult(&wfResult)).To(Succeed())
		Expect(wfResult.Status).To(Equal(string(domain.StatusCollected)))
		Expect(wfResult.Refused).To(Equal(2))
		Expect(store.auditOf(applicationID)[:2]).To(Equal([]domain.AuditState{
			domain.AuditTransitionRefused,
			domain.AuditTransitionRefused,
		}))
	})
})
