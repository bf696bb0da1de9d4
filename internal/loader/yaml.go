package loader

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/sorlineage/pkg/core"
)

// YAMLSource reads a workbook from one YAML file:
//
//	inputs:
//	  customers: [id, name]
//	outputs:
//	  orders:
//	    - Output_columns: cust_name
//	      Sor_id: 1
//	      Input_table_col_name: |
//	        customers.name
//	      Tranformation_rule: direct copy
//
// Mapping order is preserved, so tables and sheets keep the order in which
// they are written.
type YAMLSource struct {
	Path string
}

// Paths implements Source.
func (s *YAMLSource) Paths() []string {
	return []string{s.Path}
}

// Load implements Source.
func (s *YAMLSource) Load(_ context.Context) (*Workbook, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook: %w", err)
	}
	wb, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Path, err)
	}
	return wb, nil
}

// ParseYAML parses workbook YAML content.
func ParseYAML(data []byte) (*Workbook, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse workbook: %w", err)
	}

	wb := &Workbook{}
	if len(doc.Content) == 0 {
		return wb, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: workbook must be a mapping", root.Line)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		switch key.Value {
		case "inputs":
			if err := parseInputs(wb, val); err != nil {
				return nil, err
			}
		case "outputs":
			if err := parseOutputs(wb, val); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("line %d: unknown workbook key %q", key.Line, key.Value)
		}
	}
	return wb, nil
}

func parseInputs(wb *Workbook, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: inputs must map table names to column lists", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, cols := node.Content[i], node.Content[i+1]
		rec := core.CatalogRecord{TableName: name.Value}
		switch cols.Kind {
		case yaml.SequenceNode:
			for _, c := range cols.Content {
				if c.Kind != yaml.ScalarNode {
					return fmt.Errorf("line %d: column of table %q must be a scalar", c.Line, name.Value)
				}
				if isNull(c) {
					continue
				}
				rec.InputColumns = append(rec.InputColumns, c.Value)
			}
		case yaml.ScalarNode:
			if !isNull(cols) {
				return fmt.Errorf("line %d: columns of table %q must be a list", cols.Line, name.Value)
			}
		default:
			return fmt.Errorf("line %d: columns of table %q must be a list", cols.Line, name.Value)
		}
		wb.Catalog = append(wb.Catalog, rec)
	}
	return nil
}

func parseOutputs(wb *Workbook, node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: outputs must map sheet names to row lists", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name, rows := node.Content[i], node.Content[i+1]
		sheet := name.Value
		wb.addSheet(sheet)

		if rows.Kind == yaml.ScalarNode && isNull(rows) {
			continue
		}
		if rows.Kind != yaml.SequenceNode {
			return fmt.Errorf("line %d: sheet %q must be a list of rows", rows.Line, sheet)
		}
		for _, r := range rows.Content {
			row, ok := scalarMap(r)
			if !ok {
				// Keyless, so the index builder counts and logs it as skipped.
				wb.Records = append(wb.Records, core.LineageRecord{Sheet: sheet})
				continue
			}
			wb.Records = append(wb.Records, recordFromRow(sheet, row))
		}
	}
	return nil
}

// scalarMap flattens a mapping of scalars. Null values become empty strings.
// It reports false for anything else, such as a row holding a nested list.
func scalarMap(node *yaml.Node) (map[string]string, bool) {
	if node.Kind != yaml.MappingNode {
		return nil, false
	}
	out := make(map[string]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return nil, false
		}
		if isNull(v) {
			continue
		}
		out[k.Value] = v.Value
	}
	return out, true
}

func isNull(n *yaml.Node) bool {
	return n.Tag == "!!null"
}
