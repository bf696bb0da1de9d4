//go:build governance

package core_test

import (
	"go/types"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

const (
	modulePath = "github.com/leapstack-labs/sorlineage"
	corePath   = modulePath + "/pkg/core"
)

func loadModule(t *testing.T, mode packages.LoadMode) []*packages.Package {
	t.Helper()
	pkgs, err := packages.Load(&packages.Config{Mode: mode}, modulePath+"/...")
	if err != nil {
		t.Fatalf("Failed to load packages: %v", err)
	}
	return pkgs
}

// TestGovernance_CoreCohesion verifies that exported core identifiers are
// used by at least two packages. Anything with a single consumer belongs in
// that consumer.
func TestGovernance_CoreCohesion(t *testing.T) {
	pkgs := loadModule(t, packages.NeedName|packages.NeedImports|packages.NeedTypes|
		packages.NeedTypesInfo|packages.NeedDeps)

	exported := make(map[types.Object]string)
	for _, p := range pkgs {
		if p.PkgPath != corePath {
			continue
		}
		scope := p.Types.Scope()
		for _, name := range scope.Names() {
			if obj := scope.Lookup(name); obj.Exported() {
				exported[obj] = name
			}
		}
	}
	if len(exported) == 0 {
		t.Fatal("Could not find pkg/core")
	}

	users := make(map[string]map[string]bool)
	for _, p := range pkgs {
		if p.PkgPath == corePath || p.TypesInfo == nil {
			continue
		}
		for _, obj := range p.TypesInfo.Uses {
			name, ok := exported[obj]
			if !ok {
				continue
			}
			if users[name] == nil {
				users[name] = make(map[string]bool)
			}
			users[name][strings.TrimPrefix(p.PkgPath, modulePath+"/")] = true
		}
	}

	for _, name := range exported {
		if cohesionAllowlist[name] {
			continue
		}
		switch importers := users[name]; len(importers) {
		case 0:
			t.Logf("WARNING: core.%s is unused (consider deleting)", name)
		case 1:
			var only []string
			for k := range importers {
				only = append(only, k)
			}
			sort.Strings(only)
			t.Errorf("COHESION VIOLATION: core.%s is used only by %s; move it there", name, only[0])
		}
	}
}

// cohesionAllowlist names core identifiers allowed a single consumer.
var cohesionAllowlist = map[string]bool{
	"ErrSheetNotFound":  true, // matched with errors.Is by callers
	"ErrRecordNotFound": true,
	"NormalizeTable":    true,
}

// TestGovernance_NoTypeAliasReexports ensures packages don't re-export core
// types as aliases. Consumers use core.X directly.
func TestGovernance_NoTypeAliasReexports(t *testing.T) {
	for _, pkg := range loadModule(t, packages.NeedName|packages.NeedImports|packages.NeedTypes) {
		if len(pkg.Errors) > 0 || pkg.PkgPath == corePath {
			continue
		}

		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			typeName, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || !typeName.Exported() || !typeName.IsAlias() {
				continue
			}
			named, ok := types.Unalias(typeName.Type()).(*types.Named)
			if !ok || named.Obj().Pkg() == nil || named.Obj().Pkg().Path() != corePath {
				continue
			}
			t.Errorf("PURITY VIOLATION: %s re-exports core.%s as %s; use core.%s directly",
				strings.TrimPrefix(pkg.PkgPath, modulePath+"/"), named.Obj().Name(), name, named.Obj().Name())
		}
	}
}
