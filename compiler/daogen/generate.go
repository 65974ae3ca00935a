package daogen

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/sqldao/schema"
	"github.com/syssam/sqldao/schema/field"
)

// File returns the definition file of a package.
func File(p *Package) *jen.File {
	f := jen.NewFilePathName(p.Path, p.Name)
	f.HeaderComment("Code generated by daogen. DO NOT EDIT.")
	f.ImportName(schemaPkg, "schema")
	f.ImportName(fieldPkg, "field")
	for _, e := range p.Entities {
		describe(f, e)
	}
	return f
}

func describe(f *jen.File, e *Entity) {
	f.Commentf("DescribeEntity returns the static mapping definition of %s.", e.Name)
	f.Func().Params(jen.Id(e.Name)).Id("DescribeEntity").Params().Qual(schemaPkg, "Definition").Block(
		jen.Return(definitionLit(e.Def)),
	)
}

func definitionLit(def schema.Definition) jen.Code {
	d := jen.Dict{}
	if def.Table != "" {
		d[jen.Id("Table")] = jen.Lit(def.Table)
	}
	if def.Schema != "" {
		d[jen.Id("Schema")] = jen.Lit(def.Schema)
	}
	if def.Access != schema.AccessField {
		d[jen.Id("Access")] = jen.Qual(schemaPkg, def.Access.ConstName())
	}
	cols := make([]jen.Code, 0, len(def.Columns))
	for _, c := range def.Columns {
		cols = append(cols, columnLit(c))
	}
	d[jen.Id("Columns")] = jen.Index().Qual(schemaPkg, "ColumnDef").Custom(jen.Options{
		Open:      "{",
		Close:     "}",
		Separator: ",",
		Multi:     true,
	}, cols...)
	return jen.Qual(schemaPkg, "Definition").Values(d)
}

func columnLit(c schema.ColumnDef) jen.Code {
	d := jen.Dict{jen.Id("Property"): jen.Lit(c.Property)}
	if c.Name != "" {
		d[jen.Id("Name")] = jen.Lit(c.Name)
	}
	if c.ID {
		d[jen.Id("ID")] = jen.True()
	}
	if c.IDOrdinal > 0 {
		d[jen.Id("IDOrdinal")] = jen.Lit(c.IDOrdinal)
	}
	if c.Version {
		d[jen.Id("Version")] = jen.True()
	}
	if c.Strategy != schema.StrategyNone {
		d[jen.Id("Strategy")] = jen.Qual(schemaPkg, c.Strategy.ConstName())
	}
	if c.Generator != "" {
		d[jen.Id("Generator")] = jen.Lit(c.Generator)
	}
	if c.Temporal != field.TemporalNone {
		d[jen.Id("Temporal")] = jen.Qual(fieldPkg, c.Temporal.ConstName())
	}
	return jen.Values(d)
}
