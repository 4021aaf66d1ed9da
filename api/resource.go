package api

import "fmt"

// Resource identifies the physical or logical entity a measurement was
// taken on (a CPU package, a GPU, the local machine, ...).
type Resource struct {
	Kind string
	ID   string
}

func (r Resource) String() string {
	if r.ID == "" {
		return r.Kind
	}
	return fmt.Sprintf("%s(%s)", r.Kind, r.ID)
}

// Well-known resource kinds. Plugins may use any other Kind string; these
// are the ones the core ships constructors for.
const (
	ResourceLocalMachine = "LocalMachine"
	ResourceCPUPackage   = "CpuPackage"
	ResourceDram         = "Dram"
	ResourceGPU          = "Gpu"
)

func LocalMachine() Resource { return Resource{Kind: ResourceLocalMachine} }

func CPUPackage(id string) Resource { return Resource{Kind: ResourceCPUPackage, ID: id} }

func Dram(pkgID string) Resource { return Resource{Kind: ResourceDram, ID: pkgID} }

func GPU(busID string) Resource { return Resource{Kind: ResourceGPU, ID: busID} }

// ResourceConsumer identifies what, within a Resource, consumed or produced
// the measured quantity: a process, a control group, or the resource as a
// whole (LocalMachine).
type ResourceConsumer struct {
	Kind string
	ID   string
}

const (
	ConsumerLocalMachine = "LocalMachine"
	ConsumerProcess      = "Process"
	ConsumerControlGroup = "ControlGroup"
)

func (c ResourceConsumer) String() string {
	if c.ID == "" {
		return c.Kind
	}
	return fmt.Sprintf("%s(%s)", c.Kind, c.ID)
}

func ConsumerLocal() ResourceConsumer { return ResourceConsumer{Kind: ConsumerLocalMachine} }

func Process(pid string) ResourceConsumer { return ResourceConsumer{Kind: ConsumerProcess, ID: pid} }

func ControlGroup(path string) ResourceConsumer {
	return ResourceConsumer{Kind: ConsumerControlGroup, ID: path}
}
