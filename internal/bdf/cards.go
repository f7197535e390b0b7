package bdf

import (
	"github.com/roach88/deckbridge/internal/fem"
)

type cardHandler func(p *parser, c *card) error

// elementSpec describes the connectivity of an element card.
type elementSpec struct {
	firstNode  int   // field index of G1
	counts     []int // accepted node counts, corner count first
	defaultPID bool  // blank PID defaults to EID
}

var elementSpecs = map[string]elementSpec{
	"CROD":   {firstNode: 2, counts: []int{2}, defaultPID: true},
	"CBAR":   {firstNode: 2, counts: []int{2}, defaultPID: true},
	"CBEAM":  {firstNode: 2, counts: []int{2}, defaultPID: true},
	"CTRIA3": {firstNode: 2, counts: []int{3}, defaultPID: true},
	"CQUAD4": {firstNode: 2, counts: []int{4}, defaultPID: true},
	"CTETRA": {firstNode: 2, counts: []int{4, 10}},
	"CPENTA": {firstNode: 2, counts: []int{6, 15}},
	"CHEXA":  {firstNode: 2, counts: []int{8, 20}},
	// Recognized for the census; the target mapping has no entry for them.
	"CQUAD8": {firstNode: 2, counts: []int{4, 8}, defaultPID: true},
	"CTRIA6": {firstNode: 2, counts: []int{3, 6}, defaultPID: true},
	"CSHEAR": {firstNode: 2, counts: []int{4}, defaultPID: true},
}

var handlers map[string]cardHandler

func init() {
	handlers = map[string]cardHandler{
		"GRID":   (*parser).grid,
		"CONROD": (*parser).conrod,
		"MAT1":   (*parser).mat1,
		"MAT8":   (*parser).mat8,
		"PSHELL": (*parser).pshell,
		"PROD":   sectionHandler(2),
		"PBAR":   sectionHandler(2),
		"PBEAM":  sectionHandler(2),
		"PSOLID": sectionHandler(-1),
		"FORCE":  setHandler(func(p *parser) map[int]bool { return p.loads }),
		"MOMENT": setHandler(func(p *parser) map[int]bool { return p.loads }),
		"PLOAD":  setHandler(func(p *parser) map[int]bool { return p.loads }),
		"PLOAD2": setHandler(func(p *parser) map[int]bool { return p.loads }),
		"PLOAD4": setHandler(func(p *parser) map[int]bool { return p.loads }),
		"GRAV":   setHandler(func(p *parser) map[int]bool { return p.loads }),
		"SPC":    setHandler(func(p *parser) map[int]bool { return p.spcs }),
		"SPC1":   setHandler(func(p *parser) map[int]bool { return p.spcs }),
		"MPC":    setHandler(func(p *parser) map[int]bool { return p.mpcs }),
		"CORD1R": (*parser).cord1,
		"CORD2R": setHandler(func(p *parser) map[int]bool { return p.coords }),
		"CORD2C": setHandler(func(p *parser) map[int]bool { return p.coords }),
		"CORD2S": setHandler(func(p *parser) map[int]bool { return p.coords }),
		// Combination cards reference other sets and add none of their own.
		"LOAD":   recognized,
		"SPCADD": recognized,
		"MPCADD": recognized,
	}
	for name := range elementSpecs {
		handlers[name] = (*parser).element
	}
}

func recognized(*parser, *card) error { return nil }

// apply dispatches a card to its handler, or counts it as skipped.
func (p *parser) apply(c *card) error {
	h, ok := handlers[c.name]
	if !ok {
		p.skipped[c.name]++
		return nil
	}
	return h(p, c)
}

func (p *parser) grid(c *card) error {
	id, err := p.requireInt(c, 0, "ID")
	if err != nil {
		return err
	}
	cp, err := p.optionalInt(c, 1, "CP")
	if err != nil {
		return err
	}
	var xyz [3]float64
	for i := range xyz {
		v, err := p.optionalReal(c, 2+i, "X")
		if err != nil {
			return err
		}
		if v != nil {
			xyz[i] = *v
		}
	}
	if _, dup := p.model.Nodes[id]; dup {
		return p.fail(c, "duplicate GRID id %d", id)
	}
	if cp != nil && *cp != 0 {
		p.nonBasic++
	}
	p.model.Nodes[id] = fem.Node{ID: id, X: xyz[0], Y: xyz[1], Z: xyz[2]}
	return nil
}

func (p *parser) element(c *card) error {
	spec := elementSpecs[c.name]
	eid, err := p.requireInt(c, 0, "EID")
	if err != nil {
		return err
	}
	pid, err := p.optionalInt(c, 1, "PID")
	if err != nil {
		return err
	}
	propertyID := 0
	switch {
	case pid != nil:
		propertyID = *pid
	case spec.defaultPID:
		propertyID = eid
	default:
		return p.fail(c, "missing PID")
	}

	nodes, err := p.connectivity(c, spec)
	if err != nil {
		return err
	}
	return p.addElement(c, fem.Element{ID: eid, Type: c.name, Nodes: nodes, PropertyID: propertyID})
}

// connectivity reads node ids. Corner nodes are required; mid-side nodes
// are all present or all blank.
func (p *parser) connectivity(c *card, spec elementSpec) ([]int, error) {
	corners := spec.counts[0]
	full := spec.counts[len(spec.counts)-1]

	nodes := make([]int, 0, full)
	blank := 0
	for i := 0; i < full; i++ {
		g, err := p.optionalInt(c, spec.firstNode+i, "G")
		if err != nil {
			return nil, err
		}
		if g == nil {
			if i < corners {
				return nil, p.fail(c, "missing corner node G%d", i+1)
			}
			blank++
			continue
		}
		nodes = append(nodes, *g)
	}
	if blank != 0 && blank != full-corners {
		e := fem.Unsupported(p.path, "%s: partial mid-side nodes are not supported", c.name)
		e.Line = c.line
		return nil, e
	}
	return nodes, nil
}

func (p *parser) conrod(c *card) error {
	eid, err := p.requireInt(c, 0, "EID")
	if err != nil {
		return err
	}
	var nodes []int
	for i := 1; i <= 2; i++ {
		g, err := p.requireInt(c, i, "G")
		if err != nil {
			return err
		}
		nodes = append(nodes, g)
	}
	mid, err := p.optionalInt(c, 3, "MID")
	if err != nil {
		return err
	}
	area, err := p.optionalReal(c, 4, "A")
	if err != nil {
		return err
	}
	inline := &fem.Property{ID: 0, Type: "CONROD", MaterialID: mid, Area: area}
	return p.addElement(c, fem.Element{ID: eid, Type: c.name, Nodes: nodes, Inline: inline})
}

func (p *parser) addElement(c *card, e fem.Element) error {
	if _, dup := p.model.Elements[e.ID]; dup {
		return p.fail(c, "duplicate element id %d", e.ID)
	}
	p.model.Elements[e.ID] = e
	return nil
}

// mat1 reads an isotropic material. When exactly two of E, G and NU are
// given the third follows from G = E / (2 (1 + NU)).
func (p *parser) mat1(c *card) error {
	mid, err := p.requireInt(c, 0, "MID")
	if err != nil {
		return err
	}
	e, err := p.optionalReal(c, 1, "E")
	if err != nil {
		return err
	}
	g, err := p.optionalReal(c, 2, "G")
	if err != nil {
		return err
	}
	nu, err := p.optionalReal(c, 3, "NU")
	if err != nil {
		return err
	}
	rho, err := p.optionalReal(c, 4, "RHO")
	if err != nil {
		return err
	}

	switch {
	case e != nil && nu != nil && g == nil:
		v := *e / (2 * (1 + *nu))
		g = &v
	case e != nil && g != nil && nu == nil && *g != 0:
		v := *e/(2 * *g) - 1
		nu = &v
	case g != nil && nu != nil && e == nil:
		v := 2 * (1 + *nu) * *g
		e = &v
	}
	return p.addMaterial(c, fem.Material{ID: mid, Card: c.name, Modulus: e, Shear: g, Poisson: nu, Density: rho})
}

// mat8 reads an orthotropic shell material. Only its density maps onto the
// isotropic canonical fields.
func (p *parser) mat8(c *card) error {
	mid, err := p.requireInt(c, 0, "MID")
	if err != nil {
		return err
	}
	rho, err := p.optionalReal(c, 7, "RHO")
	if err != nil {
		return err
	}
	return p.addMaterial(c, fem.Material{ID: mid, Card: c.name, Density: rho})
}

func (p *parser) addMaterial(c *card, m fem.Material) error {
	if _, dup := p.model.Materials[m.ID]; dup {
		return p.fail(c, "duplicate material id %d", m.ID)
	}
	p.model.Materials[m.ID] = m
	return nil
}

func (p *parser) pshell(c *card) error {
	pid, err := p.requireInt(c, 0, "PID")
	if err != nil {
		return err
	}
	mid, err := p.optionalInt(c, 1, "MID1")
	if err != nil {
		return err
	}
	t, err := p.optionalReal(c, 2, "T")
	if err != nil {
		return err
	}
	return p.addProperty(c, fem.Property{ID: pid, Type: c.name, MaterialID: mid, Thickness: t})
}

// sectionHandler reads PID, MID and, when areaField >= 0, a cross-section
// area.
func sectionHandler(areaField int) cardHandler {
	return func(p *parser, c *card) error {
		pid, err := p.requireInt(c, 0, "PID")
		if err != nil {
			return err
		}
		mid, err := p.optionalInt(c, 1, "MID")
		if err != nil {
			return err
		}
		prop := fem.Property{ID: pid, Type: c.name, MaterialID: mid}
		if areaField >= 0 {
			if prop.Area, err = p.optionalReal(c, areaField, "A"); err != nil {
				return err
			}
		}
		return p.addProperty(c, prop)
	}
}

func (p *parser) addProperty(c *card, prop fem.Property) error {
	if _, dup := p.model.Properties[prop.ID]; dup {
		return p.fail(c, "duplicate property id %d", prop.ID)
	}
	p.model.Properties[prop.ID] = prop
	return nil
}

// setHandler records the set id in field 0 of a tallied card.
func setHandler(target func(*parser) map[int]bool) cardHandler {
	return func(p *parser, c *card) error {
		sid, err := p.requireInt(c, 0, "SID")
		if err != nil {
			return err
		}
		target(p)[sid] = true
		return nil
	}
}

// cord1 records the one or two systems a CORD1R card defines.
func (p *parser) cord1(c *card) error {
	for _, field := range []int{0, 4} {
		cid, err := p.optionalInt(c, field, "CID")
		if err != nil {
			return err
		}
		if cid != nil {
			p.coords[*cid] = true
		}
	}
	return nil
}
