package types

// RecordSignatures is the extras/record_signatures.json payload. Signatures
// maps a class name to its generic signature; Fields maps a class name to
// field name to signature.
type RecordSignatures struct {
	Version    int                          `json:"version"`
	Namespace  string                       `json:"namespace,omitempty"`
	Signatures map[string]string            `json:"signatures"`
	Fields     map[string]map[string]string `json:"fields,omitempty"`
}

// ParchmentData is the parchment.json overlay format.
type ParchmentData struct {
	Version string           `json:"version"`
	Classes []ParchmentClass `json:"classes,omitempty"`
}

type ParchmentClass struct {
	Name    string            `json:"name"`
	Javadoc []string          `json:"javadoc,omitempty"`
	Fields  []ParchmentField  `json:"fields,omitempty"`
	Methods []ParchmentMethod `json:"methods,omitempty"`
}

type ParchmentField struct {
	Name       string   `json:"name"`
	Descriptor string   `json:"descriptor"`
	Javadoc    []string `json:"javadoc,omitempty"`
}

type ParchmentMethod struct {
	Name       string               `json:"name"`
	Descriptor string               `json:"descriptor"`
	Javadoc    []string             `json:"javadoc,omitempty"`
	Parameters []ParchmentParameter `json:"parameters,omitempty"`
}

type ParchmentParameter struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Javadoc string `json:"javadoc,omitempty"`
}
