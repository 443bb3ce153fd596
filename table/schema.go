package table

import (
	"github.com/arloliu/clrmeta/format"
)

// ColumnKind is the storage class of a table column.
type ColumnKind uint8

const (
	ColumnFixed1 ColumnKind = iota + 1
	ColumnFixed2
	ColumnFixed4
	ColumnString
	ColumnGuid
	ColumnBlob
	// ColumnIndex is a row number of Column.Target.
	ColumnIndex
	// ColumnList is the first row of a run in Column.Target. The run ends where
	// the next row's run starts. Stored as a raw row number.
	ColumnList
	// ColumnCoded is a coded index of group Column.Coded.
	ColumnCoded
)

var columnKindNames = map[ColumnKind]string{
	ColumnFixed1: "Fixed1",
	ColumnFixed2: "Fixed2",
	ColumnFixed4: "Fixed4",
	ColumnString: "String",
	ColumnGuid:   "Guid",
	ColumnBlob:   "Blob",
	ColumnIndex:  "Index",
	ColumnList:   "List",
	ColumnCoded:  "Coded",
}

func (k ColumnKind) String() string {
	if n, ok := columnKindNames[k]; ok {
		return n
	}

	return "Unknown"
}

// Column describes one column of a table.
type Column struct {
	Name   string
	Kind   ColumnKind
	Target format.TableType
	Coded  format.CodedIndexKind
	// Optional columns may hold a null reference.
	Optional bool
}

// IsReference reports whether the column holds a row reference.
func (c Column) IsReference() bool {
	return c.Kind == ColumnIndex || c.Kind == ColumnCoded
}

// Schema is the ordered column list of one table.
type Schema struct {
	Table   format.TableType
	Columns []Column
	// SortKey lists the columns, most significant first, that order the rows
	// of a table flagged in MaskSorted. Empty for unsorted tables.
	SortKey []int
}

// ColumnIndex returns the position of the named column, or -1.
func (s *Schema) ColumnIndex(name string) int {
	for i, c := range s.Columns {
		if c.Name == name {
			return i
		}
	}

	return -1
}

func fixed1(name string) Column { return Column{Name: name, Kind: ColumnFixed1} }
func fixed2(name string) Column { return Column{Name: name, Kind: ColumnFixed2} }
func fixed4(name string) Column { return Column{Name: name, Kind: ColumnFixed4} }
func str(name string) Column    { return Column{Name: name, Kind: ColumnString} }
func guid(name string) Column   { return Column{Name: name, Kind: ColumnGuid} }
func blob(name string) Column   { return Column{Name: name, Kind: ColumnBlob} }

func index(name string, target format.TableType) Column {
	return Column{Name: name, Kind: ColumnIndex, Target: target}
}

func list(name string, target format.TableType) Column {
	return Column{Name: name, Kind: ColumnList, Target: target}
}

func coded(name string, kind format.CodedIndexKind) Column {
	return Column{Name: name, Kind: ColumnCoded, Coded: kind}
}

func optional(c Column) Column {
	c.Optional = true
	return c
}

var schemas = buildSchemas()

func buildSchemas() [format.TableCount]*Schema {
	defs := map[format.TableType][]Column{
		format.TableModule: {fixed2("Generation"), str("Name"), guid("Mvid"), guid("EncId"), guid("EncBaseId")},
		format.TableTypeRef: {
			optional(coded("ResolutionScope", format.ResolutionScope)), str("TypeName"), str("TypeNamespace"),
		},
		format.TableTypeDef: {
			fixed4("Flags"), str("TypeName"), str("TypeNamespace"),
			optional(coded("Extends", format.TypeDefOrRef)),
			list("FieldList", format.TableField), list("MethodList", format.TableMethod),
		},
		format.TableFieldPtr:  {index("Field", format.TableField)},
		format.TableField:     {fixed2("Flags"), str("Name"), blob("Signature")},
		format.TableMethodPtr: {index("Method", format.TableMethod)},
		format.TableMethod: {
			fixed4("RVA"), fixed2("ImplFlags"), fixed2("Flags"), str("Name"), blob("Signature"),
			list("ParamList", format.TableParam),
		},
		format.TableParamPtr:      {index("Param", format.TableParam)},
		format.TableParam:         {fixed2("Flags"), fixed2("Sequence"), str("Name")},
		format.TableInterfaceImpl: {index("Class", format.TableTypeDef), coded("Interface", format.TypeDefOrRef)},
		format.TableMemberRef:     {coded("Class", format.MemberRefParent), str("Name"), blob("Signature")},
		format.TableConstant:      {fixed1("Type"), fixed1("Padding"), coded("Parent", format.HasConstant), blob("Value")},
		format.TableCustomAttribute: {
			coded("Parent", format.HasCustomAttribute), coded("Type", format.CustomAttributeType), blob("Value"),
		},
		format.TableFieldMarshal:  {coded("Parent", format.HasFieldMarshal), blob("NativeType")},
		format.TableDeclSecurity:  {fixed2("Action"), coded("Parent", format.HasDeclSecurity), blob("PermissionSet")},
		format.TableClassLayout:   {fixed2("PackingSize"), fixed4("ClassSize"), index("Parent", format.TableTypeDef)},
		format.TableFieldLayout:   {fixed4("Offset"), index("Field", format.TableField)},
		format.TableStandAloneSig: {blob("Signature")},
		format.TableEventMap:      {index("Parent", format.TableTypeDef), list("EventList", format.TableEvent)},
		format.TableEventPtr:      {index("Event", format.TableEvent)},
		format.TableEvent:         {fixed2("EventFlags"), str("Name"), coded("EventType", format.TypeDefOrRef)},
		format.TablePropertyMap:   {index("Parent", format.TableTypeDef), list("PropertyList", format.TableProperty)},
		format.TablePropertyPtr:   {index("Property", format.TableProperty)},
		format.TableProperty:      {fixed2("Flags"), str("Name"), blob("Type")},
		format.TableMethodSemantics: {
			fixed2("Semantics"), index("Method", format.TableMethod), coded("Association", format.HasSemantics),
		},
		format.TableMethodImpl: {
			index("Class", format.TableTypeDef),
			coded("MethodBody", format.MethodDefOrRef), coded("MethodDeclaration", format.MethodDefOrRef),
		},
		format.TableModuleRef: {str("Name")},
		format.TableTypeSpec:  {blob("Signature")},
		format.TableImplMap: {
			fixed2("MappingFlags"), coded("MemberForwarded", format.MemberForwarded), str("ImportName"),
			index("ImportScope", format.TableModuleRef),
		},
		format.TableFieldRVA: {fixed4("RVA"), index("Field", format.TableField)},
		format.TableEncLog:   {fixed4("Token"), fixed4("FuncCode")},
		format.TableEncMap:   {fixed4("Token")},
		format.TableAssembly: {
			fixed4("HashAlgId"), fixed2("MajorVersion"), fixed2("MinorVersion"), fixed2("BuildNumber"),
			fixed2("RevisionNumber"), fixed4("Flags"), blob("PublicKey"), str("Name"), str("Culture"),
		},
		format.TableAssemblyProcessor: {fixed4("Processor")},
		format.TableAssemblyOS:        {fixed4("OSPlatformID"), fixed4("OSMajorVersion"), fixed4("OSMinorVersion")},
		format.TableAssemblyRef: {
			fixed2("MajorVersion"), fixed2("MinorVersion"), fixed2("BuildNumber"), fixed2("RevisionNumber"),
			fixed4("Flags"), blob("PublicKeyOrToken"), str("Name"), str("Culture"), blob("HashValue"),
		},
		format.TableAssemblyRefProcessor: {fixed4("Processor"), index("AssemblyRef", format.TableAssemblyRef)},
		format.TableAssemblyRefOS: {
			fixed4("OSPlatformID"), fixed4("OSMajorVersion"), fixed4("OSMinorVersion"),
			index("AssemblyRef", format.TableAssemblyRef),
		},
		format.TableFile: {fixed4("Flags"), str("Name"), blob("HashValue")},
		format.TableExportedType: {
			fixed4("Flags"), fixed4("TypeDefId"), str("TypeName"), str("TypeNamespace"),
			coded("Implementation", format.Implementation),
		},
		format.TableManifestResource: {
			fixed4("Offset"), fixed4("Flags"), str("Name"), optional(coded("Implementation", format.Implementation)),
		},
		format.TableNestedClass: {index("NestedClass", format.TableTypeDef), index("EnclosingClass", format.TableTypeDef)},
		format.TableGenericParam: {
			fixed2("Number"), fixed2("Flags"), coded("Owner", format.TypeOrMethodDef), str("Name"),
		},
		format.TableMethodSpec: {coded("Method", format.MethodDefOrRef), blob("Instantiation")},
		format.TableGenericParamConstraint: {
			index("Owner", format.TableGenericParam), coded("Constraint", format.TypeDefOrRef),
		},
	}

	keys := map[format.TableType][]int{
		format.TableInterfaceImpl:          {0, 1},
		format.TableConstant:               {2},
		format.TableCustomAttribute:        {0},
		format.TableFieldMarshal:           {0},
		format.TableDeclSecurity:           {1},
		format.TableClassLayout:            {2},
		format.TableFieldLayout:            {1},
		format.TableMethodSemantics:        {2},
		format.TableMethodImpl:             {0},
		format.TableImplMap:                {1},
		format.TableFieldRVA:               {1},
		format.TableNestedClass:            {0},
		format.TableGenericParam:           {2, 0},
		format.TableGenericParamConstraint: {0},
	}

	var out [format.TableCount]*Schema
	for t, cols := range defs {
		out[t] = &Schema{Table: t, Columns: cols, SortKey: keys[t]}
	}

	return out
}

// SchemaOf returns the schema of table t.
func SchemaOf(t format.TableType) (*Schema, bool) {
	if !t.IsValid() || schemas[t] == nil {
		return nil, false
	}

	return schemas[t], true
}
