package azure

import (
	"context"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v6"

	"github.com/yairfalse/vmportal/pkg/resource"
)

const (
	powerStatePrefix        = "PowerState/"
	provisioningStatePrefix = "ProvisioningState/"
)

// VMs implements portal.VMClient on armcompute.
type VMs struct {
	clients *clientCache[*armcompute.VirtualMachinesClient]
}

func newVMs(cred azcore.TokenCredential, opts *arm.ClientOptions) *VMs {
	return &VMs{clients: newClientCache("compute", cred, opts, armcompute.NewVirtualMachinesClient)}
}

// List returns the VMs of a resource group with their instance view.
func (v *VMs) List(ctx context.Context, subscriptionID, resourceGroup string) ([]resource.VM, error) {
	client, err := v.clients.get(subscriptionID)
	if err != nil {
		return nil, err
	}

	pager := client.NewListPager(resourceGroup, listOptions())

	var vms []resource.VM
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, wrap("list virtual machines", err)
		}
		for _, vm := range page.Value {
			if vm == nil || vm.Name == nil {
				continue
			}
			vms = append(vms, vmFromSDK(vm))
		}
	}
	return vms, nil
}

// listOptions expands the instance view so power state comes back with the
// list instead of one call per VM.
func listOptions() *armcompute.VirtualMachinesClientListOptions {
	return &armcompute.VirtualMachinesClientListOptions{
		Expand: to.Ptr(armcompute.ExpandTypeForListVMsInstanceView),
	}
}

// Start powers on a VM and waits for the operation to finish.
func (v *VMs) Start(ctx context.Context, subscriptionID, resourceGroup, name string) error {
	client, err := v.clients.get(subscriptionID)
	if err != nil {
		return err
	}
	poller, err := client.BeginStart(ctx, resourceGroup, name, nil)
	if err != nil {
		return wrap("start virtual machine", err)
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return wrap("start virtual machine", err)
}

// Deallocate stops a VM and releases its compute resources.
func (v *VMs) Deallocate(ctx context.Context, subscriptionID, resourceGroup, name string) error {
	client, err := v.clients.get(subscriptionID)
	if err != nil {
		return err
	}
	poller, err := client.BeginDeallocate(ctx, resourceGroup, name, nil)
	if err != nil {
		return wrap("deallocate virtual machine", err)
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return wrap("deallocate virtual machine", err)
}

// Restart reboots a running VM.
func (v *VMs) Restart(ctx context.Context, subscriptionID, resourceGroup, name string) error {
	client, err := v.clients.get(subscriptionID)
	if err != nil {
		return err
	}
	poller, err := client.BeginRestart(ctx, resourceGroup, name, nil)
	if err != nil {
		return wrap("restart virtual machine", err)
	}
	_, err = poller.PollUntilDone(ctx, nil)
	return wrap("restart virtual machine", err)
}

func vmFromSDK(vm *armcompute.VirtualMachine) resource.VM {
	out := resource.VM{
		Name:              deref(vm.Name),
		ID:                deref(vm.ID),
		Location:          deref(vm.Location),
		VMSize:            "unknown",
		PowerState:        resource.StateUnknown,
		OSType:            "unknown",
		ProvisioningState: "unknown",
	}
	out.ResourceGroup = resource.GroupKey(out.ID)

	props := vm.Properties
	if props == nil {
		return out
	}
	if hw := props.HardwareProfile; hw != nil && hw.VMSize != nil {
		out.VMSize = string(*hw.VMSize)
	}
	if sp := props.StorageProfile; sp != nil && sp.OSDisk != nil && sp.OSDisk.OSType != nil {
		out.OSType = string(*sp.OSDisk.OSType)
	}
	if props.ProvisioningState != nil {
		out.ProvisioningState = *props.ProvisioningState
	}
	if iv := props.InstanceView; iv != nil {
		power, provisioning := instanceStates(iv.Statuses)
		out.PowerState = resource.NormalizePowerState(power)
		if provisioning != "" {
			out.ProvisioningState = provisioning
		}
	}
	return out
}

// instanceStates extracts the PowerState/ and ProvisioningState/ codes.
func instanceStates(statuses []*armcompute.InstanceViewStatus) (power, provisioning string) {
	for _, s := range statuses {
		if s == nil || s.Code == nil {
			continue
		}
		code := *s.Code
		switch {
		case strings.HasPrefix(code, powerStatePrefix):
			power = code
		case strings.HasPrefix(code, provisioningStatePrefix):
			provisioning = strings.TrimPrefix(code, provisioningStatePrefix)
		}
	}
	return power, provisioning
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
