package portal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/yairfalse/vmportal/internal/batch"
	"github.com/yairfalse/vmportal/pkg/resource"
)

// Action is a power-state transition request.
type Action string

const (
	ActionStart   Action = "start"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
)

// ParseAction accepts start, stop or restart.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(s)); a {
	case ActionStart, ActionStop, ActionRestart:
		return a, nil
	}
	return "", Invalid("unknown action %q", s)
}

func (a Action) pastTense() string {
	switch a {
	case ActionStart:
		return "started"
	case ActionStop:
		return "stopped"
	default:
		return "restarted"
	}
}

func (a Action) title() string {
	return capitalize(string(a))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// VMList is the inventory of the managed resource group.
type VMList struct {
	VMs            []resource.VM                 `json:"vms"`
	Count          int                           `json:"count"`
	ResourceGroup  string                        `json:"resourceGroup"`
	SubscriptionID string                        `json:"subscriptionId"`
	Groups         []resource.Group[resource.VM] `json:"groups"`
}

// ActionResult is the response to a single-resource action.
type ActionResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Name          string `json:"name"`
	ResourceGroup string `json:"resourceGroup,omitempty"`
}

// BatchResult is the response to a batch action.
type BatchResult struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	Results       []batch.Outcome `json:"results"`
	ResourceGroup string          `json:"resourceGroup"`

	// Status is the HTTP status derived from the outcome counts.
	Status int `json:"-"`
}

func (p *Portal) vmClient() (VMClient, error) {
	if err := p.cfg.Azure.CheckVMTarget(); err != nil {
		return nil, misconfigured(err)
	}
	if p.clients.VMs == nil {
		return nil, misconfigured(errClientUnavailable)
	}
	return p.clients.VMs, nil
}

// ListVMs returns every VM in the configured resource group sorted by name.
func (p *Portal) ListVMs(ctx context.Context) (_ *VMList, err error) {
	ctx, done := p.observe(ctx, "ListVMs")
	defer done(&err)

	client, err := p.vmClient()
	if err != nil {
		return nil, err
	}

	az := p.cfg.Azure
	vms, err := client.List(ctx, az.VMSubscriptionID, az.VMResourceGroup)
	if err != nil {
		return nil, remote("Failed to list VMs", err)
	}
	if vms == nil {
		vms = []resource.VM{}
	}

	sort.SliceStable(vms, func(i, j int) bool { return vms[i].Name < vms[j].Name })

	p.logger.Info().Ctx(ctx).Int("count", len(vms)).Str("resource_group", az.VMResourceGroup).Msg("listed vms")

	return &VMList{
		VMs:            vms,
		Count:          len(vms),
		ResourceGroup:  az.VMResourceGroup,
		SubscriptionID: az.VMSubscriptionID,
		Groups:         resource.GroupByResourceGroup(vms, func(v resource.VM) string { return v.ID }),
	}, nil
}

// VMAction starts, deallocates or restarts one VM and waits for completion.
func (p *Portal) VMAction(ctx context.Context, action Action, name string, who Principal) (_ *ActionResult, err error) {
	ctx, done := p.observe(ctx, action.title()+"VM", attribute.String("vm.name", name))
	defer done(&err)

	if !resource.ValidName(name, resource.KindVM) {
		p.logger.Warn().Ctx(ctx).Str("vm", name).Msg("invalid vm name")
		return nil, Invalid("Invalid VM name")
	}

	client, err := p.vmClient()
	if err != nil {
		return nil, err
	}

	rg := p.cfg.Azure.VMResourceGroup
	p.audit(ctx, action.title()+"VM", who, map[string]any{
		"vmName":        name,
		"resourceGroup": rg,
	})

	if err := p.vmOp(action)(ctx, client, name); err != nil {
		return nil, remote(fmt.Sprintf("Failed to %s VM", action), err)
	}

	p.logger.Info().Ctx(ctx).Str("vm", name).Str("user", who.UserDetails).Msgf("vm %s", action.pastTense())

	return &ActionResult{
		Success:       true,
		Message:       fmt.Sprintf("VM %s %s successfully", name, action.pastTense()),
		Name:          name,
		ResourceGroup: rg,
	}, nil
}

func (p *Portal) vmOp(action Action) func(context.Context, VMClient, string) error {
	sub, rg := p.cfg.Azure.VMSubscriptionID, p.cfg.Azure.VMResourceGroup
	switch action {
	case ActionStart:
		return func(ctx context.Context, c VMClient, name string) error { return c.Start(ctx, sub, rg, name) }
	case ActionStop:
		return func(ctx context.Context, c VMClient, name string) error { return c.Deallocate(ctx, sub, rg, name) }
	default:
		return func(ctx context.Context, c VMClient, name string) error { return c.Restart(ctx, sub, rg, name) }
	}
}

// BatchVMs applies action to every named VM concurrently. Cardinality and
// names are validated before anything is dispatched; per-VM failures are
// reported in the results and never fail the whole call.
func (p *Portal) BatchVMs(ctx context.Context, action Action, names []string, who Principal) (_ *BatchResult, err error) {
	op := "Batch" + action.title() + "VMs"
	ctx, done := p.observe(ctx, op, attribute.Int("batch.size", len(names)))
	defer done(&err)

	if action == ActionRestart {
		return nil, Invalid("batch restart is not supported")
	}
	if err := batch.Check(names, p.batchMax()); err != nil {
		if errors.Is(err, batch.ErrEmpty) {
			return nil, Invalid("names must be a non-empty array")
		}
		return nil, Invalid("Maximum %d VMs per batch operation", p.batchMax())
	}
	if invalid := resource.InvalidNames(names, resource.KindVM); len(invalid) > 0 {
		return nil, Invalid("Invalid VM names: %s", strings.Join(invalid, ", "))
	}

	client, err := p.vmClient()
	if err != nil {
		return nil, err
	}

	rg := p.cfg.Azure.VMResourceGroup
	p.audit(ctx, op, who, map[string]any{
		"vmNames":       names,
		"vmCount":       len(names),
		"resourceGroup": rg,
	})

	p.logger.Info().Ctx(ctx).Strs("vms", names).Msgf("%s %d vms in parallel", action, len(names))

	vmOp := p.vmOp(action)
	res := batch.Execute(ctx, names, func(ctx context.Context, name string) (string, error) {
		if err := vmOp(ctx, client, name); err != nil {
			p.logger.Error().Ctx(ctx).Err(err).Str("vm", name).Msgf("failed to %s vm", action)
			return "", err
		}
		return fmt.Sprintf("VM %s %s successfully", name, action.pastTense()), nil
	})

	p.recorder.RecordBatchItems(ctx, string(action), res.Succeeded, res.Failed)
	p.logger.Info().Ctx(ctx).
		Int("succeeded", res.Succeeded).
		Int("failed", res.Failed).
		Msgf("%s completed", op)

	status, success := batch.Classify(res, len(names))
	return &BatchResult{
		Success:       success,
		Message:       fmt.Sprintf("%s %d/%d VMs", capitalize(action.pastTense()), res.Succeeded, len(names)),
		Results:       res.Outcomes,
		ResourceGroup: rg,
		Status:        status,
	}, nil
}
