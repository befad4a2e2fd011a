package moduledata

// Equal reports value equality over all declared fields of two ModuleData
// records, per spec §8's deserialize(serialize(m)) == m round-trip law.
func Equal(a, b *ModuleData) bool {
	if a == nil || b == nil {
		return a == b
	}
	if !optStringEqual(a.FilePath, b.FilePath) ||
		a.BinaryName != b.BinaryName ||
		!optStringEqual(a.FullName, b.FullName) ||
		!optStringEqual(a.Version, b.Version) ||
		a.FrameworkID != b.FrameworkID ||
		a.FrameworkVer != b.FrameworkVer ||
		a.Platform != b.Platform ||
		a.Kind != b.Kind ||
		a.ContentHash != b.ContentHash ||
		a.LoaderError != b.LoaderError {
		return false
	}

	if len(a.References) != len(b.References) {
		return false
	}
	for i := range a.References {
		if !referenceEqual(a.References[i], b.References[i]) {
			return false
		}
	}

	if len(a.SourcePackages) != len(b.SourcePackages) {
		return false
	}
	for i := range a.SourcePackages {
		if a.SourcePackages[i] != b.SourcePackages[i] {
			return false
		}
	}

	return true
}

func referenceEqual(a, b Reference) bool {
	return a.BinaryName == b.BinaryName &&
		optStringEqual(a.DeclaredVersion, b.DeclaredVersion) &&
		optStringEqual(a.EffectiveVersion, b.EffectiveVersion) &&
		optStringEqual(a.FullName, b.FullName) &&
		optStringEqual(a.CodebaseHint, b.CodebaseHint) &&
		a.Kind == b.Kind
}

func optStringEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
