package vkutil

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/vulkan-go/vulkan"
)

func writeProperties(w io.Writer, props vulkan.PhysicalDeviceProperties, memProps vulkan.PhysicalDeviceMemoryProperties, family uint32) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Property", "Value"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	table.Append([]string{"Physical Device Name", vulkan.ToString(props.DeviceName[:])})
	table.Append([]string{"Physical Device Type", deviceTypeName(props.DeviceType)})
	table.Append([]string{"Physical Device Vendor", fmt.Sprintf("%x", props.VendorID)})
	table.Append([]string{"API Version", fmt.Sprintf("%v", vulkan.Version(props.ApiVersion))})
	table.Append([]string{"Driver Version", fmt.Sprintf("%v", vulkan.Version(props.DriverVersion))})
	table.Append([]string{"Queue Family", fmt.Sprintf("%d", family)})
	for h := uint32(0); h < memProps.MemoryHeapCount; h++ {
		heap := memProps.MemoryHeaps[h]
		heap.Deref()
		local := ""
		if heap.Flags&vulkan.MemoryHeapFlags(vulkan.MemoryHeapDeviceLocalBit) != 0 {
			local = " (device local)"
		}
		table.Append([]string{fmt.Sprintf("Memory Heap %d", h), fmt.Sprintf("%d MiB%s", uint64(heap.Size)>>20, local)})
	}
	table.Render()
}
