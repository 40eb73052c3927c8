// Package composite pkg/composite/types.go
package composite

// Composite is one named computation, keyed by its id. The id doubles
// as the RPC method name the worker registers for it.
type Composite struct {
	ID          string
	Description string
	Instances   map[string]*Instance
	Inputs      []Input
}

// Instance is the per-hostType block of a composite. Requests in this
// worker always select the "default" instance.
type Instance struct {
	HostType string
	Scans    []Scan
	Vals     []Val
}

// Scan describes one index-discovery pass. OID carries exactly one
// wildcard position whose captured values are named by Var.
type Scan struct {
	ID          string
	OID         string
	Var         string
	ExcludeOnly bool
}

// Val describes one output value. Exactly one of Var and OID is set.
type Val struct {
	ID    string
	Var   string
	OID   string
	Type  string
	Fctns []Fctn
}

// Fctn is one transform in a val's function chain. Attrs holds the
// function-specific attributes beyond name/value (e.g. "with").
type Fctn struct {
	Name  string
	Value string
	Attrs map[string]string
}

// With returns the replacement text of a replace function.
func (f *Fctn) With() string {
	return f.Attrs["with"]
}

// Input is a declared request parameter beyond the fixed node, period
// and exclude_regexp parameters.
type Input struct {
	ID       string
	Required bool
}

// DefaultInstance returns the instance block requests run against, or
// nil if the composite does not declare one.
func (c *Composite) DefaultInstance() *Instance {
	return c.Instances["default"]
}

// FindScan returns the scan with the given id, or nil.
func (i *Instance) FindScan(id string) *Scan {
	for idx := range i.Scans {
		if i.Scans[idx].ID == id {
			return &i.Scans[idx]
		}
	}

	return nil
}
