// Package clrmeta implements a bounded ECMA-335 metadata reader: just
// enough of the "#~" logical tables stream to recover the handful of facts
// the managed inspector needs (module/assembly identity, AssemblyRef
// targets, ModuleRef/ImplMap platform-invoke targets, and the
// TargetFrameworkAttribute custom attribute value). It is not a general
// CLR metadata library — full decoding of the format is explicitly out of
// scope per spec §1, which treats "any specific binary-format decoding
// library" as an external collaborator and asks only for a boundary
// contract. This is the boundary's default implementation.
package clrmeta

// tableID identifies one of the 45 ECMA-335 metadata tables (IDs 0x00
// through 0x2C, including the "pointer" and edit-and-continue tables), by
// their fixed numeric ID (ECMA-335 II.22).
type tableID int

const (
	tblModule                tableID = 0x00
	tblTypeRef               tableID = 0x01
	tblTypeDef               tableID = 0x02
	tblFieldPtr              tableID = 0x03
	tblField                 tableID = 0x04
	tblMethodPtr             tableID = 0x05
	tblMethodDef             tableID = 0x06
	tblParamPtr              tableID = 0x07
	tblParam                 tableID = 0x08
	tblInterfaceImpl         tableID = 0x09
	tblMemberRef             tableID = 0x0A
	tblConstant              tableID = 0x0B
	tblCustomAttribute       tableID = 0x0C
	tblFieldMarshal          tableID = 0x0D
	tblDeclSecurity          tableID = 0x0E
	tblClassLayout           tableID = 0x0F
	tblFieldLayout           tableID = 0x10
	tblStandAloneSig         tableID = 0x11
	tblEventMap              tableID = 0x12
	tblEventPtr              tableID = 0x13
	tblEvent                 tableID = 0x14
	tblPropertyMap           tableID = 0x15
	tblPropertyPtr           tableID = 0x16
	tblProperty              tableID = 0x17
	tblMethodSemantics       tableID = 0x18
	tblMethodImpl            tableID = 0x19
	tblModuleRef             tableID = 0x1A
	tblTypeSpec              tableID = 0x1B
	tblImplMap               tableID = 0x1C
	tblFieldRVA              tableID = 0x1D
	tblENCLog                tableID = 0x1E
	tblENCMap                tableID = 0x1F
	tblAssembly              tableID = 0x20
	tblAssemblyProcessor     tableID = 0x21
	tblAssemblyOS            tableID = 0x22
	tblAssemblyRef           tableID = 0x23
	tblAssemblyRefProcessor  tableID = 0x24
	tblAssemblyRefOS         tableID = 0x25
	tblFile                  tableID = 0x26
	tblExportedType          tableID = 0x27
	tblManifestResource      tableID = 0x28
	tblNestedClass           tableID = 0x29
	tblGenericParam          tableID = 0x2A
	tblMethodSpec            tableID = 0x2B
	tblGenericParamConstraint tableID = 0x2C

	maxTableID = 0x2C
)

// colKind is the shape of one column in a table row.
type colKind int

const (
	colU2 colKind = iota
	colU4
	colStrHeap
	colGuidHeap
	colBlobHeap
	colSimple  // index into a single specific table
	colCoded   // tagged union index into one of several tables
)

type column struct {
	kind    colKind
	target  tableID   // for colSimple
	coded   codedKind // for colCoded
}

// codedKind identifies one of the coded-index tag schemes of ECMA-335
// II.24.2.6, each with its own tag-bit width and target-table list.
type codedKind int

const (
	codedTypeDefOrRef codedKind = iota
	codedHasConstant
	codedHasCustomAttribute
	codedHasFieldMarshal
	codedHasDeclSecurity
	codedMemberRefParent
	codedHasSemantics
	codedMethodDefOrRef
	codedMemberForwarded
	codedImplementation
	codedCustomAttributeType
	codedResolutionScope
	codedTypeOrMethodDef
)

var codedTargets = map[codedKind][]tableID{
	codedTypeDefOrRef:        {tblTypeDef, tblTypeRef, tblTypeSpec},
	codedHasConstant:         {tblField, tblParam, tblProperty},
	codedHasCustomAttribute: {
		tblMethodDef, tblField, tblTypeRef, tblTypeDef, tblParam, tblInterfaceImpl, tblMemberRef,
		tblModule, tblDeclSecurity, tblProperty, tblEvent, tblStandAloneSig, tblModuleRef, tblTypeSpec,
		tblAssembly, tblAssemblyRef, tblFile, tblExportedType, tblManifestResource, tblGenericParam,
		tblGenericParamConstraint, tblMethodSpec,
	},
	codedHasFieldMarshal:      {tblField, tblParam},
	codedHasDeclSecurity:      {tblTypeDef, tblMethodDef, tblAssembly},
	codedMemberRefParent:      {tblTypeDef, tblTypeRef, tblModuleRef, tblMethodDef, tblTypeSpec},
	codedHasSemantics:         {tblEvent, tblProperty},
	codedMethodDefOrRef:       {tblMethodDef, tblMemberRef},
	codedMemberForwarded:      {tblField, tblMethodDef},
	codedImplementation:       {tblFile, tblAssemblyRef, tblExportedType},
	codedCustomAttributeType:  {tblModule /* unused=0 */, tblModule /* unused=1 */, tblMethodDef, tblMemberRef, tblModule /* unused=4 */},
	codedResolutionScope:      {tblModule, tblModuleRef, tblAssemblyRef, tblTypeRef},
	codedTypeOrMethodDef:      {tblTypeDef, tblMethodDef},
}

func codedTagBits(k codedKind) uint {
	n := len(codedTargets[k])
	bits := uint(0)
	for (1 << bits) < n {
		bits++
	}
	if bits == 0 {
		bits = 1
	}
	return bits
}

// tableSchema declares the tables this reader knows the shape of, in column
// order, sufficient to compute row size for every table so unneeded tables
// can be skipped byte-accurately.
var tableSchema = map[tableID][]column{
	tblModule:          {{kind: colU2}, {kind: colStrHeap}, {kind: colGuidHeap}, {kind: colGuidHeap}, {kind: colGuidHeap}},
	tblTypeRef:         {{kind: colCoded, coded: codedResolutionScope}, {kind: colStrHeap}, {kind: colStrHeap}},
	tblTypeDef:         {{kind: colU4}, {kind: colStrHeap}, {kind: colStrHeap}, {kind: colCoded, coded: codedTypeDefOrRef}, {kind: colSimple, target: tblField}, {kind: colSimple, target: tblMethodDef}},
	tblFieldPtr:        {{kind: colSimple, target: tblField}},
	tblField:           {{kind: colU2}, {kind: colStrHeap}, {kind: colBlobHeap}},
	tblMethodPtr:       {{kind: colSimple, target: tblMethodDef}},
	tblMethodDef:       {{kind: colU4}, {kind: colU2}, {kind: colU2}, {kind: colStrHeap}, {kind: colBlobHeap}, {kind: colSimple, target: tblParam}},
	tblParamPtr:        {{kind: colSimple, target: tblParam}},
	tblParam:           {{kind: colU2}, {kind: colU2}, {kind: colStrHeap}},
	tblInterfaceImpl:   {{kind: colSimple, target: tblTypeDef}, {kind: colCoded, coded: codedTypeDefOrRef}},
	tblMemberRef:       {{kind: colCoded, coded: codedMemberRefParent}, {kind: colStrHeap}, {kind: colBlobHeap}},
	tblConstant:        {{kind: colU2}, {kind: colCoded, coded: codedHasConstant}, {kind: colBlobHeap}},
	tblCustomAttribute: {{kind: colCoded, coded: codedHasCustomAttribute}, {kind: colCoded, coded: codedCustomAttributeType}, {kind: colBlobHeap}},
	tblFieldMarshal:    {{kind: colCoded, coded: codedHasFieldMarshal}, {kind: colBlobHeap}},
	tblDeclSecurity:    {{kind: colU2}, {kind: colCoded, coded: codedHasDeclSecurity}, {kind: colBlobHeap}},
	tblClassLayout:     {{kind: colU2}, {kind: colU4}, {kind: colSimple, target: tblTypeDef}},
	tblFieldLayout:     {{kind: colU4}, {kind: colSimple, target: tblField}},
	tblStandAloneSig:   {{kind: colBlobHeap}},
	tblEventMap:        {{kind: colSimple, target: tblTypeDef}, {kind: colSimple, target: tblEvent}},
	tblEventPtr:        {{kind: colSimple, target: tblEvent}},
	tblEvent:           {{kind: colU2}, {kind: colStrHeap}, {kind: colCoded, coded: codedTypeDefOrRef}},
	tblPropertyMap:     {{kind: colSimple, target: tblTypeDef}, {kind: colSimple, target: tblProperty}},
	tblPropertyPtr:     {{kind: colSimple, target: tblProperty}},
	tblProperty:        {{kind: colU2}, {kind: colStrHeap}, {kind: colBlobHeap}},
	tblMethodSemantics: {{kind: colU2}, {kind: colSimple, target: tblMethodDef}, {kind: colCoded, coded: codedHasSemantics}},
	tblMethodImpl:      {{kind: colSimple, target: tblTypeDef}, {kind: colCoded, coded: codedMethodDefOrRef}, {kind: colCoded, coded: codedMethodDefOrRef}},
	tblModuleRef:       {{kind: colStrHeap}},
	tblTypeSpec:        {{kind: colBlobHeap}},
	tblImplMap:         {{kind: colU2}, {kind: colCoded, coded: codedMemberForwarded}, {kind: colStrHeap}, {kind: colSimple, target: tblModuleRef}},
	tblFieldRVA:        {{kind: colU4}, {kind: colSimple, target: tblField}},
	tblENCLog:          {{kind: colU4}, {kind: colU4}},
	tblENCMap:          {{kind: colU4}},
	tblAssembly:        {{kind: colU4}, {kind: colU2}, {kind: colU2}, {kind: colU2}, {kind: colU2}, {kind: colU4}, {kind: colBlobHeap}, {kind: colStrHeap}, {kind: colStrHeap}},
	tblAssemblyProcessor: {{kind: colU4}},
	tblAssemblyOS:      {{kind: colU4}, {kind: colU4}, {kind: colU4}},
	tblAssemblyRef:     {{kind: colU2}, {kind: colU2}, {kind: colU2}, {kind: colU2}, {kind: colU4}, {kind: colBlobHeap}, {kind: colStrHeap}, {kind: colStrHeap}, {kind: colBlobHeap}},
	tblAssemblyRefProcessor: {{kind: colU4}, {kind: colSimple, target: tblAssemblyRef}},
	tblAssemblyRefOS:   {{kind: colU4}, {kind: colU4}, {kind: colU4}, {kind: colSimple, target: tblAssemblyRef}},
	tblFile:            {{kind: colU4}, {kind: colStrHeap}, {kind: colBlobHeap}},
	tblExportedType:    {{kind: colU4}, {kind: colU4}, {kind: colStrHeap}, {kind: colStrHeap}, {kind: colCoded, coded: codedImplementation}},
	tblManifestResource: {{kind: colU4}, {kind: colU4}, {kind: colStrHeap}, {kind: colCoded, coded: codedImplementation}},
	tblNestedClass:     {{kind: colSimple, target: tblTypeDef}, {kind: colSimple, target: tblTypeDef}},
	tblGenericParam:    {{kind: colU2}, {kind: colU2}, {kind: colCoded, coded: codedTypeOrMethodDef}, {kind: colStrHeap}},
	tblMethodSpec:      {{kind: colCoded, coded: codedMethodDefOrRef}, {kind: colBlobHeap}},
	tblGenericParamConstraint: {{kind: colSimple, target: tblGenericParam}, {kind: colCoded, coded: codedTypeDefOrRef}},
}
