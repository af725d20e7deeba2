package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

type mockEvents struct {
	putRuleFn       func(context.Context, *eventbridge.PutRuleInput) (*eventbridge.PutRuleOutput, error)
	putTargetsFn    func(context.Context, *eventbridge.PutTargetsInput) (*eventbridge.PutTargetsOutput, error)
	removeTargetsFn func(context.Context, *eventbridge.RemoveTargetsInput) (*eventbridge.RemoveTargetsOutput, error)
	deleteRuleFn    func(context.Context, *eventbridge.DeleteRuleInput) (*eventbridge.DeleteRuleOutput, error)
}

func (m *mockEvents) PutRule(ctx context.Context, in *eventbridge.PutRuleInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutRuleOutput, error) {
	if m.putRuleFn != nil {
		return m.putRuleFn(ctx, in)
	}
	return &eventbridge.PutRuleOutput{}, nil
}

func (m *mockEvents) PutTargets(ctx context.Context, in *eventbridge.PutTargetsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutTargetsOutput, error) {
	if m.putTargetsFn != nil {
		return m.putTargetsFn(ctx, in)
	}
	return &eventbridge.PutTargetsOutput{}, nil
}

func (m *mockEvents) RemoveTargets(ctx context.Context, in *eventbridge.RemoveTargetsInput, _ ...func(*eventbridge.Options)) (*eventbridge.RemoveTargetsOutput, error) {
	if m.removeTargetsFn != nil {
		return m.removeTargetsFn(ctx, in)
	}
	return &eventbridge.RemoveTargetsOutput{}, nil
}

func (m *mockEvents) DeleteRule(ctx context.Context, in *eventbridge.DeleteRuleInput, _ ...func(*eventbridge.Options)) (*eventbridge.DeleteRuleOutput, error) {
	if m.deleteRuleFn != nil {
		return m.deleteRuleFn(ctx, in)
	}
	return &eventbridge.DeleteRuleOutput{}, nil
}

type mockPermissions struct {
	addPermissionFn    func(context.Context, *lambda.AddPermissionInput) (*lambda.AddPermissionOutput, error)
	removePermissionFn func(context.Context, *lambda.RemovePermissionInput) (*lambda.RemovePermissionOutput, error)
}

func (m *mockPermissions) AddPermission(ctx context.Context, in *lambda.AddPermissionInput, _ ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error) {
	if m.addPermissionFn != nil {
		return m.addPermissionFn(ctx, in)
	}
	return &lambda.AddPermissionOutput{}, nil
}

func (m *mockPermissions) RemovePermission(ctx context.Context, in *lambda.RemovePermissionInput, _ ...func(*lambda.Options)) (*lambda.RemovePermissionOutput, error) {
	if m.removePermissionFn != nil {
		return m.removePermissionFn(ctx, in)
	}
	return &lambda.RemovePermissionOutput{}, nil
}

const testFunctionARN = "arn:aws:lambda:us-east-1:123456789012:function:charge-expiry"

func newTestRegistry(t *testing.T, events EventsAPI, permissions PermissionsAPI) *AWSRegistry {
	t.Helper()
	reg, err := NewAWSRegistry(events, permissions, AWSRegistryOptions{
		Region:      "us-east-1",
		AccountID:   "123456789012",
		FunctionARN: testFunctionARN,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return reg
}

func TestAWSRegistry_RegisterCreatesRuleTargetAndGrant(t *testing.T) {
	fireAt := time.Date(2026, 3, 14, 9, 56, 53, 0, time.UTC)

	var gotRule *eventbridge.PutRuleInput
	var gotTargets *eventbridge.PutTargetsInput
	var gotPermission *lambda.AddPermissionInput
	events := &mockEvents{
		putRuleFn: func(_ context.Context, in *eventbridge.PutRuleInput) (*eventbridge.PutRuleOutput, error) {
			gotRule = in
			return &eventbridge.PutRuleOutput{}, nil
		},
		putTargetsFn: func(_ context.Context, in *eventbridge.PutTargetsInput) (*eventbridge.PutTargetsOutput, error) {
			gotTargets = in
			return &eventbridge.PutTargetsOutput{}, nil
		},
	}
	permissions := &mockPermissions{
		addPermissionFn: func(_ context.Context, in *lambda.AddPermissionInput) (*lambda.AddPermissionOutput, error) {
			gotPermission = in
			return &lambda.AddPermissionOutput{}, nil
		},
	}

	reg := newTestRegistry(t, events, permissions)
	outcome, err := reg.Register(context.Background(), RegisterRequest{
		ChargerID: "c1",
		FireAt:    fireAt,
		Payload:   TargetPayload{ChargerID: "c1", TargetStatus: "idle"},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if outcome != OutcomeCreated {
		t.Fatalf("expected created, got %s", outcome)
	}

	if aws.ToString(gotRule.Name) != "charger-timeout-rule-c1" {
		t.Fatalf("unexpected rule name: %s", aws.ToString(gotRule.Name))
	}
	if aws.ToString(gotRule.ScheduleExpression) != "cron(56 9 14 3 ? 2026)" {
		t.Fatalf("unexpected schedule expression: %s", aws.ToString(gotRule.ScheduleExpression))
	}

	if aws.ToString(gotTargets.Rule) != "charger-timeout-rule-c1" {
		t.Fatalf("targets bound to wrong rule: %s", aws.ToString(gotTargets.Rule))
	}
	if len(gotTargets.Targets) != 1 {
		t.Fatalf("expected 1 target, got %d", len(gotTargets.Targets))
	}
	target := gotTargets.Targets[0]
	if aws.ToString(target.Id) != "charger-target-c1" {
		t.Fatalf("unexpected target id: %s", aws.ToString(target.Id))
	}
	if aws.ToString(target.Arn) != testFunctionARN {
		t.Fatalf("unexpected target arn: %s", aws.ToString(target.Arn))
	}
	if aws.ToString(target.Input) != `{"charger_id":"c1","target_status":"idle"}` {
		t.Fatalf("unexpected target input: %s", aws.ToString(target.Input))
	}

	if aws.ToString(gotPermission.FunctionName) != "charge-expiry" {
		t.Fatalf("unexpected function name: %s", aws.ToString(gotPermission.FunctionName))
	}
	if aws.ToString(gotPermission.StatementId) != "allow-cloudwatch-charger-timeout-rule-c1" {
		t.Fatalf("unexpected statement id: %s", aws.ToString(gotPermission.StatementId))
	}
	if aws.ToString(gotPermission.Principal) != "events.amazonaws.com" {
		t.Fatalf("unexpected principal: %s", aws.ToString(gotPermission.Principal))
	}
	if aws.ToString(gotPermission.SourceArn) != "arn:aws:events:us-east-1:123456789012:rule/charger-timeout-rule-c1" {
		t.Fatalf("unexpected source arn: %s", aws.ToString(gotPermission.SourceArn))
	}
}

func TestAWSRegistry_RegisterPermissionConflictMeansReplaced(t *testing.T) {
	permissions := &mockPermissions{
		addPermissionFn: func(_ context.Context, _ *lambda.AddPermissionInput) (*lambda.AddPermissionOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "ResourceConflictException", Message: "statement exists"}
		},
	}

	reg := newTestRegistry(t, &mockEvents{}, permissions)
	outcome, err := reg.Register(context.Background(), RegisterRequest{
		ChargerID: "c1",
		FireAt:    time.Now().UTC().Add(30 * time.Minute),
		Payload:   TargetPayload{ChargerID: "c1", TargetStatus: "idle"},
	})
	if err != nil {
		t.Fatalf("conflict should not fail registration, got %v", err)
	}
	if outcome != OutcomeReplaced {
		t.Fatalf("expected replaced, got %s", outcome)
	}
}

func TestAWSRegistry_RegisterRuleFailurePropagates(t *testing.T) {
	events := &mockEvents{
		putRuleFn: func(_ context.Context, _ *eventbridge.PutRuleInput) (*eventbridge.PutRuleOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "ValidationException", Message: "bad expression"}
		},
	}

	reg := newTestRegistry(t, events, &mockPermissions{})
	if _, err := reg.Register(context.Background(), RegisterRequest{
		ChargerID: "c1",
		FireAt:    time.Now().UTC(),
		Payload:   TargetPayload{ChargerID: "c1", TargetStatus: "idle"},
	}); err == nil {
		t.Fatal("expected error")
	}
}

func TestAWSRegistry_RegisterFailedTargetEntriesAreAnError(t *testing.T) {
	events := &mockEvents{
		putTargetsFn: func(_ context.Context, _ *eventbridge.PutTargetsInput) (*eventbridge.PutTargetsOutput, error) {
			return &eventbridge.PutTargetsOutput{FailedEntryCount: 1}, nil
		},
	}

	reg := newTestRegistry(t, events, &mockPermissions{})
	if _, err := reg.Register(context.Background(), RegisterRequest{
		ChargerID: "c1",
		FireAt:    time.Now().UTC(),
		Payload:   TargetPayload{ChargerID: "c1", TargetStatus: "idle"},
	}); err == nil {
		t.Fatal("expected error for failed target entry")
	}
}

func TestAWSRegistry_DeregisterRemovesTargetsBeforeRule(t *testing.T) {
	var order []string
	events := &mockEvents{
		removeTargetsFn: func(_ context.Context, in *eventbridge.RemoveTargetsInput) (*eventbridge.RemoveTargetsOutput, error) {
			order = append(order, "remove_targets")
			if aws.ToString(in.Rule) != "charger-timeout-rule-c1" || len(in.Ids) != 1 || in.Ids[0] != "charger-target-c1" {
				t.Fatalf("unexpected remove targets input: %+v", in)
			}
			return &eventbridge.RemoveTargetsOutput{}, nil
		},
		deleteRuleFn: func(_ context.Context, in *eventbridge.DeleteRuleInput) (*eventbridge.DeleteRuleOutput, error) {
			order = append(order, "delete_rule")
			return &eventbridge.DeleteRuleOutput{}, nil
		},
	}
	permissions := &mockPermissions{
		removePermissionFn: func(_ context.Context, in *lambda.RemovePermissionInput) (*lambda.RemovePermissionOutput, error) {
			order = append(order, "remove_permission")
			if aws.ToString(in.StatementId) != "allow-cloudwatch-charger-timeout-rule-c1" {
				t.Fatalf("unexpected statement id: %s", aws.ToString(in.StatementId))
			}
			return &lambda.RemovePermissionOutput{}, nil
		},
	}

	reg := newTestRegistry(t, events, permissions)
	if err := reg.Deregister(context.Background(), "c1"); err != nil {
		t.Fatalf("deregister: %v", err)
	}
	want := []string{"remove_targets", "delete_rule", "remove_permission"}
	if len(order) != len(want) {
		t.Fatalf("expected %d calls, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("unexpected call order: %v", order)
		}
	}
}

func TestAWSRegistry_DeregisterToleratesMissingEntry(t *testing.T) {
	notFound := &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "no such rule"}
	events := &mockEvents{
		removeTargetsFn: func(_ context.Context, _ *eventbridge.RemoveTargetsInput) (*eventbridge.RemoveTargetsOutput, error) {
			return nil, notFound
		},
		deleteRuleFn: func(_ context.Context, _ *eventbridge.DeleteRuleInput) (*eventbridge.DeleteRuleOutput, error) {
			return nil, notFound
		},
	}
	permissions := &mockPermissions{
		removePermissionFn: func(_ context.Context, _ *lambda.RemovePermissionInput) (*lambda.RemovePermissionOutput, error) {
			return nil, notFound
		},
	}

	reg := newTestRegistry(t, events, permissions)
	if err := reg.Deregister(context.Background(), "c1"); err != nil {
		t.Fatalf("already-removed entry should deregister cleanly, got %v", err)
	}
}

func TestAWSRegistry_DeregisterRevocationFailureIsNotEscalated(t *testing.T) {
	permissions := &mockPermissions{
		removePermissionFn: func(_ context.Context, _ *lambda.RemovePermissionInput) (*lambda.RemovePermissionOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "nope"}
		},
	}

	reg := newTestRegistry(t, &mockEvents{}, permissions)
	if err := reg.Deregister(context.Background(), "c1"); err != nil {
		t.Fatalf("revocation failure should be logged only, got %v", err)
	}
}

func TestAWSRegistry_DeregisterRuleDeletionFailurePropagates(t *testing.T) {
	events := &mockEvents{
		deleteRuleFn: func(_ context.Context, _ *eventbridge.DeleteRuleInput) (*eventbridge.DeleteRuleOutput, error) {
			return nil, &smithy.GenericAPIError{Code: "InternalFailure", Message: "boom"}
		},
	}

	reg := newTestRegistry(t, events, &mockPermissions{})
	if err := reg.Deregister(context.Background(), "c1"); err == nil {
		t.Fatal("expected error")
	}
}
