package clrmeta

import "github.com/smith-xyz/bindgraph/pkg/moduleversion"

// extractInfo walks the tables of interest and assembles an Info. Tables
// this reader has no use for (TypeDef, MethodDef bodies, Param, and so on)
// were still parsed structurally by parseTables so row offsets stay
// correct, but are not visited here.
func extractInfo(t *rawTables) *Info {
	info := &Info{}

	if rows := t.rows[tblModule]; len(rows) > 0 {
		row := rows[0]
		info.ModuleName = stringAt(t.strings, row[1])
		info.Mvid = guidAt(t.guids, row[2])
	}

	if rows := t.rows[tblAssembly]; len(rows) > 0 {
		row := rows[0]
		info.AssemblyName = stringAt(t.strings, row[7])
		info.AssemblyVersion = moduleversion.Version{
			Major:    int(row[1]),
			Minor:    int(row[2]),
			Build:    int(row[3]),
			Revision: int(row[4]),
		}
	}

	for _, row := range t.rows[tblAssemblyRef] {
		info.AssemblyRefs = append(info.AssemblyRefs, AssemblyRef{
			Name: stringAt(t.strings, row[6]),
			Version: moduleversion.Version{
				Major:    int(row[0]),
				Minor:    int(row[1]),
				Build:    int(row[2]),
				Revision: int(row[3]),
			},
		})
	}

	for _, row := range t.rows[tblModuleRef] {
		info.ModuleRefs = append(info.ModuleRefs, stringAt(t.strings, row[0]))
	}

	moduleRefRows := t.rows[tblModuleRef]
	methodDefRows := t.rows[tblMethodDef]
	fieldRows := t.rows[tblField]
	for _, row := range t.rows[tblImplMap] {
		importName := stringAt(t.strings, row[2])
		scopeIdx := row[3]
		moduleName := ""
		if scopeIdx > 0 && int(scopeIdx-1) < len(moduleRefRows) {
			moduleName = stringAt(t.strings, moduleRefRows[scopeIdx-1][0])
		}
		methodName := importName
		targetTable, targetIdx := decodeCoded(codedMemberForwarded, row[1])
		if targetIdx > 0 {
			switch targetTable {
			case tblMethodDef:
				if int(targetIdx-1) < len(methodDefRows) {
					methodName = stringAt(t.strings, methodDefRows[targetIdx-1][3])
				}
			case tblField:
				if int(targetIdx-1) < len(fieldRows) {
					methodName = stringAt(t.strings, fieldRows[targetIdx-1][1])
				}
			}
		}
		info.PInvokes = append(info.PInvokes, PInvoke{
			MethodName: methodName,
			ModuleName: moduleName,
		})
	}

	info.TargetFramework = findTargetFrameworkAttribute(t)

	return info
}

// findTargetFrameworkAttribute scans CustomAttribute rows for one whose
// constructor is TargetFrameworkAttribute(string) and decodes its single
// fixed string argument out of the attribute's blob.
func findTargetFrameworkAttribute(t *rawTables) string {
	memberRefRows := t.rows[tblMemberRef]
	typeRefRows := t.rows[tblTypeRef]

	for _, row := range t.rows[tblCustomAttribute] {
		ctorTable, ctorIdx := decodeCoded(codedCustomAttributeType, row[1])
		if ctorTable != tblMemberRef || ctorIdx == 0 || int(ctorIdx-1) >= len(memberRefRows) {
			continue
		}
		memberRef := memberRefRows[ctorIdx-1]
		classTable, classIdx := decodeCoded(codedMemberRefParent, memberRef[0])
		if classTable != tblTypeRef || classIdx == 0 || int(classIdx-1) >= len(typeRefRows) {
			continue
		}
		typeName := stringAt(t.strings, typeRefRows[classIdx-1][1])
		if typeName != "TargetFrameworkAttribute" {
			continue
		}
		value := blobAt(t.blobs, row[2])
		if s, ok := decodeFixedStringArg(value); ok {
			return s
		}
	}
	return ""
}

// decodeFixedStringArg decodes a CustomAttribute blob (ECMA-335 II.23.3)
// consisting of a 2-byte prolog followed by a single compressed-length
// UTF-8 string fixed argument, as emitted for
// TargetFrameworkAttribute(string).
func decodeFixedStringArg(blob []byte) (string, bool) {
	if len(blob) < 3 {
		return "", false
	}
	// prolog: 0x0001
	if blob[0] != 0x01 || blob[1] != 0x00 {
		return "", false
	}
	rest := blob[2:]
	length, headerLen, ok := decodeCompressedLength(rest)
	if !ok {
		return "", false
	}
	start := headerLen
	end := start + length
	if end > len(rest) {
		return "", false
	}
	return string(rest[start:end]), true
}

func decodeCompressedLength(b []byte) (length, headerLen int, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	if b[0] == 0xFF {
		return 0, 1, true // null string sentinel
	}
	switch {
	case b[0]&0x80 == 0:
		return int(b[0]), 1, true
	case b[0]&0xC0 == 0x80:
		if len(b) < 2 {
			return 0, 0, false
		}
		return int(b[0]&0x3F)<<8 | int(b[1]), 2, true
	case b[0]&0xE0 == 0xC0:
		if len(b) < 4 {
			return 0, 0, false
		}
		return int(b[0]&0x1F)<<24 | int(b[1])<<16 | int(b[2])<<8 | int(b[3]), 4, true
	default:
		return 0, 0, false
	}
}
