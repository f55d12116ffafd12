package api

// Role is a reusable definition of files to generate and the default
// configuration they are rendered with. Roles are read from YAML and never
// mutated after loading.
type Role struct {
	// TemplateDir is the directory, relative to the template roots, that
	// holds the templates referenced by Files. Defaults to the role name.
	TemplateDir string         `yaml:"templateDir,omitempty" json:"templateDir,omitempty"`
	Inherits    []RoleInherit  `yaml:"inherits,omitempty" json:"inherits,omitempty"`
	Variants    []RoleVariant  `yaml:"variants,omitempty" json:"variants,omitempty"`
	Config      map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
	Files       []RoleFile     `yaml:"files,omitempty" json:"files,omitempty"`
}

// RoleInherit references a parent role by name.
type RoleInherit struct {
	Role string `yaml:"role" json:"role"`
}

// RoleVariant is a named flavor of a role with config overrides.
type RoleVariant struct {
	Variant string         `yaml:"variant" json:"variant"`
	Config  map[string]any `yaml:"config,omitempty" json:"config,omitempty"`
}

// LineEndings selects the line separator written to generated files.
type LineEndings string

const (
	LineEndingsUnix    LineEndings = "unix"
	LineEndingsWindows LineEndings = "windows"
	LineEndingsMacOS   LineEndings = "macos"
)

// Separator returns the byte sequence for the line ending style.
// Unknown or empty values fall back to unix.
func (l LineEndings) Separator() string {
	switch l {
	case LineEndingsWindows:
		return "\r\n"
	case LineEndingsMacOS:
		return "\r"
	default:
		return "\n"
	}
}

// MultiplyTenant generates one copy of a file per environment tenant.
const MultiplyTenant = "tenant"

// RoleFile describes one output file of a role. Exactly one of Template or
// URL must be set when the file is generated.
type RoleFile struct {
	File     string `yaml:"file,omitempty" json:"file,omitempty"`
	Dir      string `yaml:"dir,omitempty" json:"dir,omitempty"`
	Template string `yaml:"template,omitempty" json:"template,omitempty"`
	URL      string `yaml:"url,omitempty" json:"url,omitempty"`

	// Variants restricts the file to nodes having at least one of the listed
	// variants. Empty means all variants.
	Variants  []string `yaml:"variants,omitempty" json:"variants,omitempty"`
	Condition string   `yaml:"condition,omitempty" json:"condition,omitempty"`
	Multiply  string   `yaml:"multiply,omitempty" json:"multiply,omitempty"`

	Charset     string      `yaml:"charset,omitempty" json:"charset,omitempty"`
	LineEndings LineEndings `yaml:"lineEndings,omitempty" json:"lineEndings,omitempty"`

	FileHeader           string         `yaml:"fileHeader,omitempty" json:"fileHeader,omitempty"`
	Validators           []string       `yaml:"validators,omitempty" json:"validators,omitempty"`
	ValidatorOptions     map[string]any `yaml:"validatorOptions,omitempty" json:"validatorOptions,omitempty"`
	PostProcessors       []string       `yaml:"postProcessors,omitempty" json:"postProcessors,omitempty"`
	PostProcessorOptions map[string]any `yaml:"postProcessorOptions,omitempty" json:"postProcessorOptions,omitempty"`
	ModelOptions         map[string]any `yaml:"modelOptions,omitempty" json:"modelOptions,omitempty"`
}

// Identity returns the key used to detect that a derived role redefines a
// file of one of its ancestors.
func (f RoleFile) Identity() string {
	if f.URL != "" {
		return "url:" + f.URL
	}
	return "file:" + f.Dir + "|" + f.File + "|" + f.Template
}

// HasVariant reports whether the file applies to a node with the given
// variants.
func (f RoleFile) HasVariant(variants []string) bool {
	if len(f.Variants) == 0 {
		return true
	}
	for _, want := range f.Variants {
		for _, have := range variants {
			if want == have {
				return true
			}
		}
	}
	return false
}
