// Package daogen generates static entity definitions.
//
// For every struct type carrying the schema.Table marker, daogen reads the
// `db` struct tags at build time and emits a DescribeEntity method:
//
//	func (Account) DescribeEntity() schema.Definition {
//		return schema.Definition{
//			Table:   "ACCOUNTS",
//			Columns: []schema.ColumnDef{...},
//		}
//	}
//
// The registry prefers such definitions over reading struct tags at run
// time. The generated file is written next to the package sources.
package daogen

import (
	"context"
	"errors"
	"fmt"
	"go/types"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"

	"github.com/syssam/sqldao/schema"
)

// DefaultOutput is the name of the generated file in each package.
const DefaultOutput = "dao_describe.go"

const (
	schemaPkg = "github.com/syssam/sqldao/schema"
	fieldPkg  = "github.com/syssam/sqldao/schema/field"
)

// Config configures a generator run.
type Config struct {
	// Dir is the working directory used to resolve patterns.
	Dir string
	// Output is the generated file name. Defaults to DefaultOutput.
	Output string
	// Types restricts generation to the named types. Empty means all
	// types embedding schema.Table.
	Types []string
	// Workers bounds the number of files formatted in parallel.
	Workers int
	// BuildTags are passed to the package loader.
	BuildTags []string
}

// Package is a loaded package with its entity types.
type Package struct {
	Name     string
	Path     string
	Dir      string
	Entities []*Entity
}

// Entity is one entity type and its definition.
type Entity struct {
	Name string
	Def  schema.Definition
}

// Load loads the packages matching patterns and extracts their entities.
// Packages without entities are omitted.
func Load(ctx context.Context, cfg Config, patterns ...string) ([]*Package, error) {
	lc := &packages.Config{
		Context: ctx,
		Dir:     cfg.Dir,
		Mode:    packages.NeedName | packages.NeedFiles | packages.NeedTypes | packages.NeedImports,
	}
	if len(cfg.BuildTags) > 0 {
		lc.BuildFlags = []string{"-tags=" + strings.Join(cfg.BuildTags, ",")}
	}
	pkgs, err := packages.Load(lc, patterns...)
	if err != nil {
		return nil, fmt.Errorf("daogen: load packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("daogen: no packages matched %s", strings.Join(patterns, " "))
	}
	var (
		errs []error
		out  []*Package
	)
	for _, p := range pkgs {
		for _, e := range p.Errors {
			errs = append(errs, e)
		}
		switch {
		case len(p.Errors) > 0:
			continue
		case p.Types == nil || len(p.GoFiles) == 0:
			errs = append(errs, fmt.Errorf("%s: no Go files", p.PkgPath))
			continue
		}
		ents, err := entities(p.Types, cfg.Types)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p.PkgPath, err))
			continue
		}
		if len(ents) == 0 {
			continue
		}
		out = append(out, &Package{
			Name:     p.Name,
			Path:     p.PkgPath,
			Dir:      filepath.Dir(p.GoFiles[0]),
			Entities: ents,
		})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("daogen: %w", err)
	}
	return out, nil
}

// Generate loads the packages matching patterns and writes a definition
// file into each package that has entities. It returns the written paths.
func Generate(ctx context.Context, cfg Config, patterns ...string) ([]string, error) {
	pkgs, err := Load(ctx, cfg, patterns...)
	if err != nil {
		return nil, err
	}
	return NewWriter(cfg).WriteAll(ctx, pkgs)
}

func (c Config) output() string {
	if c.Output == "" {
		return DefaultOutput
	}
	return c.Output
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// entities returns the entity types declared in pkg, sorted by name.
func entities(pkg *types.Package, only []string) ([]*Entity, error) {
	var ents []*Entity
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		tn, ok := scope.Lookup(name).(*types.TypeName)
		if !ok || tn.IsAlias() {
			continue
		}
		st, ok := tn.Type().Underlying().(*types.Struct)
		if !ok {
			continue
		}
		switch {
		case len(only) > 0:
			if !slices.Contains(only, name) {
				continue
			}
		case tableField(st) == nil:
			continue
		}
		def, err := definition(st)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", name, err)
		}
		ents = append(ents, &Entity{Name: name, Def: def})
	}
	return ents, nil
}
