package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	ebtypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"go.uber.org/zap"

	"github.com/voltflow/charge-orchestrator/internal/awsx"
	"github.com/voltflow/charge-orchestrator/internal/metrics"
)

// EventsAPI is the slice of the EventBridge client the registry needs.
type EventsAPI interface {
	PutRule(ctx context.Context, in *eventbridge.PutRuleInput, opts ...func(*eventbridge.Options)) (*eventbridge.PutRuleOutput, error)
	PutTargets(ctx context.Context, in *eventbridge.PutTargetsInput, opts ...func(*eventbridge.Options)) (*eventbridge.PutTargetsOutput, error)
	RemoveTargets(ctx context.Context, in *eventbridge.RemoveTargetsInput, opts ...func(*eventbridge.Options)) (*eventbridge.RemoveTargetsOutput, error)
	DeleteRule(ctx context.Context, in *eventbridge.DeleteRuleInput, opts ...func(*eventbridge.Options)) (*eventbridge.DeleteRuleOutput, error)
}

// PermissionsAPI is the slice of the Lambda client used for invoke grants.
type PermissionsAPI interface {
	AddPermission(ctx context.Context, in *lambda.AddPermissionInput, opts ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error)
	RemovePermission(ctx context.Context, in *lambda.RemovePermissionInput, opts ...func(*lambda.Options)) (*lambda.RemovePermissionOutput, error)
}

type AWSRegistryOptions struct {
	Region      string
	AccountID   string
	FunctionARN string
}

// AWSRegistry stores timeout entries as EventBridge rules targeting the
// expiry function, with a per-rule invoke grant on that function.
type AWSRegistry struct {
	events      EventsAPI
	permissions PermissionsAPI
	region      string
	accountID   string
	functionARN string
	logger      *zap.Logger
}

func NewAWSRegistry(events EventsAPI, permissions PermissionsAPI, opts AWSRegistryOptions, logger *zap.Logger) (*AWSRegistry, error) {
	if strings.TrimSpace(opts.FunctionARN) == "" {
		return nil, fmt.Errorf("FunctionARN is required")
	}
	if strings.TrimSpace(opts.AccountID) == "" {
		return nil, fmt.Errorf("AccountID is required")
	}
	return &AWSRegistry{
		events:      events,
		permissions: permissions,
		region:      strings.TrimSpace(opts.Region),
		accountID:   strings.TrimSpace(opts.AccountID),
		functionARN: strings.TrimSpace(opts.FunctionARN),
		logger:      logger,
	}, nil
}

func (r *AWSRegistry) Register(ctx context.Context, req RegisterRequest) (Outcome, error) {
	ruleName := RuleName(req.ChargerID)
	expr := CronExpression(req.FireAt)

	err := awsx.Do(ctx, "put_rule", r.logger, func(callCtx context.Context) error {
		_, putErr := r.events.PutRule(callCtx, &eventbridge.PutRuleInput{
			Name:               aws.String(ruleName),
			ScheduleExpression: aws.String(expr),
			State:              ebtypes.RuleStateEnabled,
			Description:        aws.String(fmt.Sprintf("Order %s timeout check (auto-delete after execution)", req.ChargerID)),
		})
		return putErr
	})
	if err != nil {
		metrics.ScheduleRegisterTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("put rule %s: %w", ruleName, err)
	}

	input, err := json.Marshal(req.Payload)
	if err != nil {
		metrics.ScheduleRegisterTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("marshal target input: %w", err)
	}
	err = awsx.Do(ctx, "put_targets", r.logger, func(callCtx context.Context) error {
		out, putErr := r.events.PutTargets(callCtx, &eventbridge.PutTargetsInput{
			Rule: aws.String(ruleName),
			Targets: []ebtypes.Target{
				{
					Id:    aws.String(TargetID(req.ChargerID)),
					Arn:   aws.String(r.functionARN),
					Input: aws.String(string(input)),
				},
			},
		})
		if putErr != nil {
			return putErr
		}
		if out.FailedEntryCount > 0 {
			return fmt.Errorf("put targets: %d entries failed", out.FailedEntryCount)
		}
		return nil
	})
	if err != nil {
		metrics.ScheduleRegisterTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("put targets for rule %s: %w", ruleName, err)
	}

	// The grant is keyed by statement id, so re-registering the same charger
	// conflicts here. A conflict means the prior entry's grant is still in
	// place and the rule was replaced above.
	outcome := OutcomeCreated
	err = awsx.Do(ctx, "add_permission", r.logger, func(callCtx context.Context) error {
		_, addErr := r.permissions.AddPermission(callCtx, &lambda.AddPermissionInput{
			FunctionName: aws.String(functionNameFromARN(r.functionARN)),
			StatementId:  aws.String(StatementID(ruleName)),
			Action:       aws.String("lambda:InvokeFunction"),
			Principal:    aws.String("events.amazonaws.com"),
			SourceArn:    aws.String(RuleSourceARN(r.region, r.accountID, ruleName)),
		})
		return addErr
	})
	if err != nil {
		if !awsx.IsConflict(err) {
			metrics.ScheduleRegisterTotal.WithLabelValues("error").Inc()
			return "", fmt.Errorf("add invoke permission for rule %s: %w", ruleName, err)
		}
		outcome = OutcomeReplaced
	}

	metrics.ScheduleRegisterTotal.WithLabelValues(string(outcome)).Inc()
	r.logger.Info("registered timeout rule",
		zap.String("rule", ruleName),
		zap.String("schedule", expr),
		zap.String("outcome", string(outcome)))
	return outcome, nil
}

func (r *AWSRegistry) Deregister(ctx context.Context, chargerID string) error {
	ruleName := RuleName(chargerID)

	// Targets must go before the rule: EventBridge refuses to delete a rule
	// that still has targets attached.
	err := awsx.Do(ctx, "remove_targets", r.logger, func(callCtx context.Context) error {
		_, rmErr := r.events.RemoveTargets(callCtx, &eventbridge.RemoveTargetsInput{
			Rule: aws.String(ruleName),
			Ids:  []string{TargetID(chargerID)},
		})
		return rmErr
	})
	if err != nil && !awsx.IsNotFound(err) {
		return fmt.Errorf("remove targets for rule %s: %w", ruleName, err)
	}

	err = awsx.Do(ctx, "delete_rule", r.logger, func(callCtx context.Context) error {
		_, delErr := r.events.DeleteRule(callCtx, &eventbridge.DeleteRuleInput{
			Name: aws.String(ruleName),
		})
		return delErr
	})
	if err != nil && !awsx.IsNotFound(err) {
		return fmt.Errorf("delete rule %s: %w", ruleName, err)
	}

	// A stray grant for a deleted rule cannot be exercised, so revocation
	// failures are logged rather than returned.
	err = awsx.Do(ctx, "remove_permission", r.logger, func(callCtx context.Context) error {
		_, rmErr := r.permissions.RemovePermission(callCtx, &lambda.RemovePermissionInput{
			FunctionName: aws.String(functionNameFromARN(r.functionARN)),
			StatementId:  aws.String(StatementID(ruleName)),
		})
		return rmErr
	})
	if err != nil && !awsx.IsNotFound(err) {
		r.logger.Warn("revoke invoke permission failed",
			zap.String("rule", ruleName),
			zap.Error(err))
	}

	r.logger.Info("deregistered timeout rule", zap.String("rule", ruleName))
	return nil
}

func functionNameFromARN(arn string) string {
	parts := strings.Split(arn, ":")
	return parts[len(parts)-1]
}
