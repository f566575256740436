package codegen

import (
	"strconv"

	llvm "github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"github.com/roach88/tensorgen/internal/ir"
)

// propertyKey identifies one descriptor read. Mode is zero for properties
// that are not per-mode so that the key does not depend on an unused field.
type propertyKey struct {
	tensor string
	prop   ir.TensorProperty
	mode   int
}

// propertyCache holds descriptor loads for one function.
//
// Scalar fields are loaded in the entry block, where they dominate every
// use. Per-mode elements may be out of bounds on paths that do not read
// them, so they load at the first use and are reused only inside the
// structured region that use dominates. Keys the function assigns to are
// never cached: every read of them loads at the point of use.
type propertyCache struct {
	hoisted map[propertyKey]value.Value
	regions []map[propertyKey]value.Value
	written map[propertyKey]bool
}

func newPropertyCache() *propertyCache {
	return &propertyCache{
		hoisted: make(map[propertyKey]value.Value),
		regions: []map[propertyKey]value.Value{make(map[propertyKey]value.Value)},
		written: make(map[propertyKey]bool),
	}
}

// Len is the number of cached loads.
func (c *propertyCache) Len() int {
	n := len(c.hoisted)
	for _, r := range c.regions {
		n += len(r)
	}
	return n
}

// enter opens a region whose code runs only on some paths: a branch arm,
// a switch case or a loop body.
func (c *propertyCache) enter() {
	c.regions = append(c.regions, make(map[propertyKey]value.Value))
}

// leave drops the loads made in the innermost region.
func (c *propertyCache) leave() {
	if len(c.regions) > 1 {
		c.regions = c.regions[:len(c.regions)-1]
	}
}

func (c *propertyCache) lookup(key propertyKey) (value.Value, bool) {
	if v, ok := c.hoisted[key]; ok {
		return v, true
	}
	for i := len(c.regions) - 1; i >= 0; i-- {
		if v, ok := c.regions[i][key]; ok {
			return v, true
		}
	}
	return nil, false
}

func (c *propertyCache) forget(key propertyKey) {
	delete(c.hoisted, key)
	for _, r := range c.regions {
		delete(r, key)
	}
}

// markWritten records every property s assigns to, before any code is
// emitted, so a read that precedes a write in program order is not cached.
func (c *propertyCache) markWritten(s ir.Stmt) {
	switch s := s.(type) {
	case *ir.Block:
		for _, inner := range s.Contents {
			c.markWritten(inner)
		}
	case *ir.IfThenElse:
		c.markWritten(s.Then)
		c.markWritten(s.Otherwise)
	case *ir.While:
		c.markWritten(s.Contents)
	case *ir.For:
		c.markWritten(s.Contents)
	case *ir.Switch:
		for _, sc := range s.Cases {
			c.markWritten(sc.Body)
		}
	case *ir.Case:
		for _, cl := range s.Clauses {
			c.markWritten(cl.Body)
		}
	case *ir.Scope:
		c.markWritten(s.Body)
	case *ir.VarAssign:
		p, ok := s.LHS.(*ir.GetProperty)
		if !ok {
			return
		}
		tv, ok := p.Tensor.(*ir.Var)
		if !ok {
			return
		}
		key := propertyKey{tensor: tv.Name, prop: p.Property}
		if p.Property.PerMode() {
			key.mode = p.Mode
		}
		c.written[key] = true
	}
}

func (g *generator) property(p *ir.GetProperty) (value.Value, error) {
	key, param, err := g.propertyTarget(p)
	if err != nil {
		return nil, err
	}

	if g.props.written[key] {
		addr, elem := g.propertyAddress(g.block, param, key)
		return g.block.NewLoad(elem, addr), nil
	}
	if v, ok := g.props.lookup(key); ok {
		return v, nil
	}

	if key.prop.PerMode() {
		addr, elem := g.propertyAddress(g.block, param, key)
		load := g.block.NewLoad(elem, addr)
		load.SetName(g.uniqueName(propertyValueName(key)))
		g.props.regions[len(g.props.regions)-1][key] = load
		return load, nil
	}

	addr, elem := g.propertyAddress(g.entry, param, key)
	load := g.entry.NewLoad(elem, addr)
	load.SetName(g.uniqueName(propertyValueName(key)))
	g.props.hoisted[key] = load
	return load, nil
}

func (g *generator) storeProperty(p *ir.GetProperty, v value.Value) error {
	key, param, err := g.propertyTarget(p)
	if err != nil {
		return err
	}
	addr, elem := g.propertyAddress(g.block, param, key)
	if !v.Type().Equal(elem) {
		return internalf(ErrCodeTypeMismatch, "cannot store %s into %s.%s of type %s", v.Type(), key.tensor, key.prop, elem)
	}
	g.block.NewStore(v, addr)
	g.props.written[key] = true
	g.props.forget(key)
	return nil
}

// propertyTarget resolves the tensor parameter a property reads from.
func (g *generator) propertyTarget(p *ir.GetProperty) (propertyKey, *llvm.Param, error) {
	tv, ok := p.Tensor.(*ir.Var)
	if !ok {
		return propertyKey{}, nil, internalf(ErrCodeMalformedIR, "property %s of %s, want tensor var", p.Property, p.Tensor.Op())
	}
	if _, ok := tensorFieldIndex(p.Property); !ok {
		return propertyKey{}, nil, internalf(ErrCodeMalformedIR, "unknown tensor property %s", p.Property)
	}
	bound, err := g.syms.Lookup(tv.Name)
	if err != nil {
		return propertyKey{}, nil, err
	}
	param, ok := bound.(*llvm.Param)
	if !ok {
		return propertyKey{}, nil, internalf(ErrCodeMalformedIR, "%q is not a tensor parameter", tv.Name)
	}

	key := propertyKey{tensor: tv.Name, prop: p.Property}
	if p.Property.PerMode() {
		if p.Mode < 0 {
			return propertyKey{}, nil, internalf(ErrCodeMalformedIR, "negative mode %d for %s.%s", p.Mode, tv.Name, p.Property)
		}
		key.mode = p.Mode
	}
	return key, param, nil
}

// propertyAddress emits the address computation for key into blk and
// returns the address with the type stored there.
func (g *generator) propertyAddress(blk *llvm.Block, param *llvm.Param, key propertyKey) (value.Value, types.Type) {
	idx, _ := tensorFieldIndex(key.prop)
	fieldType := tensorFieldType(key.prop)
	field := blk.NewGetElementPtr(g.unit.tensorType, param, i32(0), i32(int64(idx)))
	if !key.prop.PerMode() {
		return field, fieldType
	}

	elem := fieldType.(*types.PointerType).ElemType
	array := blk.NewLoad(fieldType, field)
	return blk.NewGetElementPtr(elem, array, i32(int64(key.mode))), elem
}

func propertyValueName(key propertyKey) string {
	if key.prop.PerMode() {
		return key.tensor + "." + key.prop.String() + "." + strconv.Itoa(key.mode)
	}
	return key.tensor + "." + key.prop.String()
}
