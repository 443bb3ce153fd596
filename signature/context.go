package signature

import "github.com/arloliu/clrmeta/format"

// GenericContext supplies the generic parameters visible to a signature.
//
// TypeParameters resolves Var (the declaring type's parameters) and
// MethodParameters resolves MVar (the method's own parameters). Either list
// may be nil.
type GenericContext interface {
	TypeParameters() []TypeReference
	MethodParameters() []TypeReference
}

// StaticContext is a GenericContext backed by two fixed lists.
type StaticContext struct {
	Type   []TypeReference
	Method []TypeReference
}

func (c *StaticContext) TypeParameters() []TypeReference   { return c.Type }
func (c *StaticContext) MethodParameters() []TypeReference { return c.Method }

func resolveGenericParam(ctx GenericContext, kind format.ElementType, index uint32) TypeReference {
	if ctx != nil {
		var params []TypeReference
		if kind == format.ElementMVar {
			params = ctx.MethodParameters()
		} else {
			params = ctx.TypeParameters()
		}
		if uint64(index) < uint64(len(params)) && params[index] != nil {
			return params[index]
		}
	}

	return &GenericParamType{Kind: kind, Index: index}
}

// Resolver looks up table rows referenced from signatures.
type Resolver interface {
	// TypeName returns the namespace and name of a TypeDef or TypeRef row, or
	// a display name for a TypeSpec row. A missing row is ErrUnresolvedReference.
	TypeName(table format.TableType, rid uint32) (string, string, error)
}
