package signature

import (
	"fmt"
	"strings"

	"github.com/arloliu/clrmeta/format"
)

// TypeReference is a node of a decoded type tree.
type TypeReference interface {
	// ElementType returns the signature tag the node was decoded from.
	ElementType() format.ElementType
	// IsValueType reports whether the referenced type has value semantics.
	IsValueType() bool
	// FullName returns a human readable name, e.g. "System.Int32[]".
	FullName() string
}

// PrimitiveType is a built-in type. Instances are owned by a TypeSystem and
// shared by every signature decoded against it.
type PrimitiveType struct {
	elem      format.ElementType
	namespace string
	name      string
	valueType bool
}

func (p *PrimitiveType) ElementType() format.ElementType { return p.elem }
func (p *PrimitiveType) IsValueType() bool               { return p.valueType }
func (p *PrimitiveType) Namespace() string               { return p.namespace }
func (p *PrimitiveType) Name() string                    { return p.name }
func (p *PrimitiveType) FullName() string                { return p.namespace + "." + p.name }

// DefOrRefType references a row of the TypeDef, TypeRef or TypeSpec table.
//
// It is a non-owning lookup key: the row is identified by table and 1-based
// row number and its name is looked up through the Resolver on demand.
type DefOrRefType struct {
	Table format.TableType
	RID   uint32

	valueType bool
	resolver  Resolver
}

// NewDefOrRefType creates a lookup key for the given row.
func NewDefOrRefType(table format.TableType, rid uint32, valueType bool, resolver Resolver) *DefOrRefType {
	return &DefOrRefType{Table: table, RID: rid, valueType: valueType, resolver: resolver}
}

func (d *DefOrRefType) ElementType() format.ElementType {
	if d.valueType {
		return format.ElementValueType
	}

	return format.ElementClass
}

func (d *DefOrRefType) IsValueType() bool { return d.valueType }

// Token returns the metadata token of the referenced row.
func (d *DefOrRefType) Token() uint32 {
	return d.Table.Token(d.RID)
}

// AsValueType returns a copy of d with the value type flag set. d itself is
// never modified.
func (d *DefOrRefType) AsValueType() *DefOrRefType {
	cp := *d
	cp.valueType = true

	return &cp
}

// Name resolves the namespace and name of the referenced row.
func (d *DefOrRefType) Name() (string, string, error) {
	if d.resolver == nil {
		return "", "", fmt.Errorf("no resolver for %s row %d", d.Table, d.RID)
	}

	return d.resolver.TypeName(d.Table, d.RID)
}

func (d *DefOrRefType) FullName() string {
	ns, name, err := d.Name()
	if err != nil {
		return fmt.Sprintf("%s[%d]", d.Table, d.RID)
	}
	if ns == "" {
		return name
	}

	return ns + "." + name
}

// PointerType is an unmanaged pointer (Ptr).
type PointerType struct{ Element TypeReference }

func (p *PointerType) ElementType() format.ElementType { return format.ElementPtr }
func (p *PointerType) IsValueType() bool               { return false }
func (p *PointerType) FullName() string                { return p.Element.FullName() + "*" }

// ByRefType is a managed reference (ByRef).
type ByRefType struct{ Element TypeReference }

func (p *ByRefType) ElementType() format.ElementType { return format.ElementByRef }
func (p *ByRefType) IsValueType() bool               { return false }
func (p *ByRefType) FullName() string                { return p.Element.FullName() + "&" }

// PinnedType marks a pinned local variable.
type PinnedType struct{ Element TypeReference }

func (p *PinnedType) ElementType() format.ElementType { return format.ElementPinned }
func (p *PinnedType) IsValueType() bool               { return p.Element.IsValueType() }
func (p *PinnedType) FullName() string                { return p.Element.FullName() + " pinned" }

// SzArrayType is a single-dimensional zero-based array (vector).
type SzArrayType struct{ Element TypeReference }

func (p *SzArrayType) ElementType() format.ElementType { return format.ElementSzArray }
func (p *SzArrayType) IsValueType() bool               { return false }
func (p *SzArrayType) FullName() string                { return p.Element.FullName() + "[]" }

// ArrayDimension holds the optional inclusive bounds of one array dimension.
type ArrayDimension struct {
	LowerBound *int32
	UpperBound *int32
}

func (d ArrayDimension) String() string {
	switch {
	case d.LowerBound != nil && d.UpperBound != nil:
		return fmt.Sprintf("%d...%d", *d.LowerBound, *d.UpperBound)
	case d.LowerBound != nil:
		return fmt.Sprintf("%d...", *d.LowerBound)
	default:
		return ""
	}
}

// ArrayType is a general array. Rank always equals len(Dimensions).
type ArrayType struct {
	Element    TypeReference
	Rank       int
	Dimensions []ArrayDimension
}

func (a *ArrayType) ElementType() format.ElementType { return format.ElementArray }
func (a *ArrayType) IsValueType() bool               { return false }

func (a *ArrayType) FullName() string {
	parts := make([]string, len(a.Dimensions))
	for i, d := range a.Dimensions {
		parts[i] = d.String()
	}

	return a.Element.FullName() + "[" + strings.Join(parts, ",") + "]"
}

// GenericInstanceType is a generic type instantiated with type arguments.
type GenericInstanceType struct {
	Base      TypeReference
	Arguments []TypeReference

	valueType bool
}

func (g *GenericInstanceType) ElementType() format.ElementType { return format.ElementGenericInst }
func (g *GenericInstanceType) IsValueType() bool               { return g.valueType }

func (g *GenericInstanceType) FullName() string {
	args := make([]string, len(g.Arguments))
	for i, a := range g.Arguments {
		args[i] = a.FullName()
	}

	return g.Base.FullName() + "<" + strings.Join(args, ",") + ">"
}

// TypeParameters implements GenericContext so nested signatures can resolve
// Var against the instantiation arguments.
func (g *GenericInstanceType) TypeParameters() []TypeReference { return g.Arguments }

// MethodParameters implements GenericContext.
func (g *GenericInstanceType) MethodParameters() []TypeReference { return nil }

// GenericParamType is a generic parameter: Var for type parameters, MVar for
// method parameters.
//
// Resolved is false for placeholders produced when no generic context could
// supply the parameter; callers must treat those as provisional.
type GenericParamType struct {
	Kind     format.ElementType
	Index    uint32
	Name     string
	Resolved bool
}

func (g *GenericParamType) ElementType() format.ElementType { return g.Kind }
func (g *GenericParamType) IsValueType() bool               { return false }

func (g *GenericParamType) FullName() string {
	if g.Name != "" {
		return g.Name
	}
	if g.Kind == format.ElementMVar {
		return fmt.Sprintf("!!%d", g.Index)
	}

	return fmt.Sprintf("!%d", g.Index)
}

// ModifierType is a custom modifier (cmod_reqd or cmod_opt) applied to Element.
type ModifierType struct {
	Required bool
	Modifier TypeReference
	Element  TypeReference
}

func (m *ModifierType) ElementType() format.ElementType {
	if m.Required {
		return format.ElementCModReqd
	}

	return format.ElementCModOpt
}

func (m *ModifierType) IsValueType() bool { return m.Element.IsValueType() }

func (m *ModifierType) FullName() string {
	kind := "modopt"
	if m.Required {
		kind = "modreq"
	}

	return fmt.Sprintf("%s %s(%s)", m.Element.FullName(), kind, m.Modifier.FullName())
}

// FunctionPointerType is a pointer to a method with the given signature.
type FunctionPointerType struct{ Signature *MethodSignature }

func (f *FunctionPointerType) ElementType() format.ElementType { return format.ElementFnPtr }
func (f *FunctionPointerType) IsValueType() bool               { return false }
func (f *FunctionPointerType) FullName() string                { return "method " + f.Signature.String() }
