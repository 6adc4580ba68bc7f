package hcl

// manifestFile is the top-level structure of a manifest file.
type manifestFile struct {
	Units []*unitBlock `hcl:"unit,block"`
}

// unitBlock represents a `unit` block.
type unitBlock struct {
	Name  string       `hcl:"name,label"`
	Kind  string       `hcl:"kind,optional"`
	Wsdep []string     `hcl:"wsdep,optional"`
	Parts []*partBlock `hcl:"part,block"`
}

// partBlock represents a `part` block inside a unit.
type partBlock struct {
	Name   string   `hcl:"name,label"`
	Kind   string   `hcl:"kind,optional"`
	Inputs []string `hcl:"inputs,optional"`
}
