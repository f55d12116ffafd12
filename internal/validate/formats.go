package validate

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/ohler55/ojg/oj"
	"gopkg.in/yaml.v3"

	"github.com/agentic-research/roleforge/internal/plugin"
)

// JSON validates .json files with the ojg parser.
func JSON() plugin.Validator {
	return &byExtension{name: "json", exts: []string{".json"}, check: checkJSON}
}

// YAML validates every document of .yaml and .yml files.
func YAML() plugin.Validator {
	return &byExtension{name: "yaml", exts: []string{".yaml", ".yml"}, check: checkYAML}
}

// HCL validates native syntax HCL and Terraform files.
func HCL() plugin.Validator {
	return &byExtension{name: "hcl", exts: []string{".hcl", ".tf"}, check: checkHCL}
}

// XML checks that .xml files are well-formed.
func XML() plugin.Validator {
	return &byExtension{name: "xml", exts: []string{".xml", ".xhtml", ".svg"}, check: checkXML}
}

func checkJSON(_ context.Context, content []byte, _ string) error {
	_, err := oj.Parse(content)
	return err
}

func checkYAML(_ context.Context, content []byte, _ string) error {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func checkHCL(_ context.Context, content []byte, path string) error {
	_, diags := hclparse.NewParser().ParseHCL(content, path)
	if !diags.HasErrors() {
		return nil
	}
	for _, d := range diags {
		if d.Subject == nil {
			continue
		}
		return &ValidationError{
			Validator: "hcl",
			FilePath:  path,
			Line:      uint32(max(d.Subject.Start.Line-1, 0)),
			Column:    uint32(max(d.Subject.Start.Column-1, 0)),
			Message:   d.Summary + ": " + d.Detail,
		}
	}
	return diags
}

func checkXML(_ context.Context, content []byte, path string) error {
	dec := xml.NewDecoder(bytes.NewReader(content))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var se *xml.SyntaxError
		if errors.As(err, &se) {
			return &ValidationError{Validator: "xml", FilePath: path, Line: uint32(max(se.Line-1, 0)), Message: se.Msg}
		}
		if err != nil {
			return err
		}
	}
}
