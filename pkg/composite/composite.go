// Package composite pkg/composite/composite.go
package composite

import (
	"fmt"
	"log"

	"github.com/beevik/etree"
)

// Load reads a composite definitions document from path and returns
// the composites keyed by id. Malformed scan/val/fctn/input elements
// are logged and skipped; the rest of the document still loads.
func Load(path string) (map[string]*Composite, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, fmt.Errorf("failed to read composite config '%s': %w", path, err)
	}

	return Parse(doc)
}

// LoadString parses a composite definitions document held in memory.
func LoadString(data string) (map[string]*Composite, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromString(data); err != nil {
		return nil, fmt.Errorf("failed to parse composite config: %w", err)
	}

	return Parse(doc)
}

// Parse walks an already-loaded document tree.
func Parse(doc *etree.Document) (map[string]*Composite, error) {
	root := doc.SelectElement("config")
	if root == nil {
		return nil, errMissingConfigRoot
	}

	composites := make(map[string]*Composite)

	for _, el := range root.SelectElements("composite") {
		comp, err := parseComposite(el)
		if err != nil {
			log.Printf("Skipping composite: %v", err)
			continue
		}

		if _, ok := composites[comp.ID]; ok {
			log.Printf("Skipping composite %s: %v", comp.ID, errDuplicateID)
			continue
		}

		composites[comp.ID] = comp
	}

	if len(composites) == 0 {
		return nil, ErrNoComposites
	}

	return composites, nil
}

func parseComposite(el *etree.Element) (*Composite, error) {
	id := el.SelectAttrValue("id", "")
	if id == "" {
		return nil, errCompositeNoID
	}

	comp := &Composite{
		ID:          id,
		Description: el.SelectAttrValue("description", ""),
		Instances:   make(map[string]*Instance),
	}

	for _, inst := range el.SelectElements("instance") {
		hostType := inst.SelectAttrValue("hostType", "")
		if hostType == "" {
			log.Printf("Composite %s: %v", id, errInstanceNoType)
			continue
		}

		comp.Instances[hostType] = parseInstance(id, hostType, inst)
	}

	for _, in := range el.SelectElements("input") {
		inputID := in.SelectAttrValue("id", "")
		if inputID == "" {
			log.Printf("Composite %s: %v", id, errInputNoID)
			continue
		}

		comp.Inputs = append(comp.Inputs, Input{
			ID:       inputID,
			Required: isTruthyAttr(in.SelectAttrValue("required", "")),
		})
	}

	return comp, nil
}

func parseInstance(compID, hostType string, el *etree.Element) *Instance {
	inst := &Instance{HostType: hostType}

	for _, sc := range el.SelectElements("scan") {
		scan := Scan{
			ID:          sc.SelectAttrValue("id", ""),
			OID:         sc.SelectAttrValue("oid", ""),
			Var:         sc.SelectAttrValue("var", ""),
			ExcludeOnly: isTruthyAttr(sc.SelectAttrValue("exclude-only", "")),
		}

		if scan.ID == "" || scan.OID == "" || scan.Var == "" {
			log.Printf("Composite %s: %v", compID, errScanIncomplete)
			continue
		}

		inst.Scans = append(inst.Scans, scan)
	}

	if result := el.SelectElement("result"); result != nil {
		for _, v := range result.SelectElements("val") {
			val, err := parseVal(v)
			if err != nil {
				log.Printf("Composite %s: %v", compID, err)
				continue
			}

			inst.Vals = append(inst.Vals, *val)
		}
	}

	return inst
}

func parseVal(el *etree.Element) (*Val, error) {
	val := &Val{
		ID:   el.SelectAttrValue("id", ""),
		Var:  el.SelectAttrValue("var", ""),
		OID:  el.SelectAttrValue("oid", ""),
		Type: el.SelectAttrValue("type", ""),
	}

	switch {
	case val.ID == "":
		return nil, errValNoID
	case val.Var == "" && val.OID == "":
		return nil, fmt.Errorf("val %s: %w", val.ID, errValNoSource)
	case val.Var != "" && val.OID != "":
		return nil, fmt.Errorf("val %s: %w", val.ID, errValBothSources)
	}

	for _, f := range el.SelectElements("fctn") {
		name := f.SelectAttrValue("name", "")
		if name == "" {
			log.Printf("val %s: %v", val.ID, errFctnNoName)
			continue
		}

		fctn := Fctn{
			Name:  name,
			Value: f.SelectAttrValue("value", ""),
			Attrs: make(map[string]string),
		}

		for _, attr := range f.Attr {
			fctn.Attrs[attr.Key] = attr.Value
		}

		val.Fctns = append(val.Fctns, fctn)
	}

	return val, nil
}

func isTruthyAttr(v string) bool {
	switch v {
	case "", "0", "false", "no":
		return false
	default:
		return true
	}
}
