package main

import (
	"bytes"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// strSlice is a helper flag.Value that collects repeated string flags into a
// slice.
type strSlice []string

func (s *strSlice) String() string {
	return strings.Join(*s, ",")
}

func (s *strSlice) Set(val string) error {
	*s = append(*s, val)
	return nil
}

// This tool parses the given Go files and generates Markdown documentation
// for every exported struct carrying envconfig tags. Every package names its
// struct Config, so sections are keyed by package and type name.
//
// Usage (via go:generate in config.go):
//
//     go run ./cmd/gendocs -file config.go -file writer/ledger/config.go -o CONFIGURATION.md

func main() {
	var (
		filePatterns strSlice
		title        string
		outPath      string
	)
	flag.Var(&filePatterns, "file", "path or glob pattern for source files")
	flag.StringVar(&title, "title", "Configuration", "title for markdown output")
	flag.StringVar(&outPath, "o", "", "write output to file (optional)")
	flag.Parse()

	var files []string
	for _, pattern := range filePatterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			fatal(err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		fatal(fmt.Errorf("no files matched given -file patterns"))
	}

	out, err := generate(files, title)
	if err != nil {
		fatal(err)
	}

	if outPath == "" {
		_, _ = os.Stdout.Write(out)
		return
	}
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "gendocs:", err)
	os.Exit(1)
}

type section struct {
	pkg  string
	spec *ast.TypeSpec
}

// generate renders the documentation for all config structs in files.
func generate(files []string, title string) ([]byte, error) {
	fset := token.NewFileSet()
	sections := map[string]section{}

	for _, path := range files {
		fileAst, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
		if err != nil {
			return nil, err
		}

		for _, decl := range fileAst.Decls {
			genDecl, ok := decl.(*ast.GenDecl)
			if !ok || genDecl.Tok != token.TYPE {
				continue
			}
			for _, spec := range genDecl.Specs {
				typeSpec := spec.(*ast.TypeSpec)
				if !typeSpec.Name.IsExported() {
					continue
				}
				structType, ok := typeSpec.Type.(*ast.StructType)
				if !ok || !hasEnvFields(structType) {
					continue
				}
				// A type declared alone takes its doc from the declaration.
				if typeSpec.Doc == nil && len(genDecl.Specs) == 1 {
					typeSpec.Doc = genDecl.Doc
				}
				key := fileAst.Name.Name + "." + typeSpec.Name.Name
				if _, exists := sections[key]; !exists {
					sections[key] = section{pkg: fileAst.Name.Name, spec: typeSpec}
				}
			}
		}
	}

	// Deterministic order of sections.
	names := make([]string, 0, len(sections))
	for n := range sections {
		names = append(names, n)
	}
	sort.Strings(names)

	var out bytes.Buffer
	fmt.Fprintf(&out, "# %s\n\n", title)
	fmt.Fprintf(&out, "This document is generated from configuration structs in the source code using `go generate`. **Do not edit manually.**\n\n")

	for _, name := range names {
		s := sections[name]
		structType := s.spec.Type.(*ast.StructType)

		fmt.Fprintf(&out, "## %s\n\n", name)

		if s.spec.Doc != nil {
			for _, c := range s.spec.Doc.List {
				trimmed := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
				trimmed = strings.Trim(trimmed, "/*")
				if trimmed != "" {
					fmt.Fprintln(&out, trimmed)
				}
			}
			fmt.Fprintln(&out)
		}

		fmt.Fprintln(&out, "| Environment variable | Type | Default | Description |")
		fmt.Fprintln(&out, "|:---------------------|:-----|:--------|:------------|")

		for _, field := range structType.Fields.List {
			if len(field.Names) == 0 {
				continue
			}

			envTag, defTag := parseTags(field.Tag)
			if envTag == "-" {
				continue
			}

			desc := extractDoc(field)
			desc = strings.ReplaceAll(desc, "|", "\\|")

			fmt.Fprintf(&out, "| %s | `%s` | %s | %s |\n", envTag, exprString(fset, field.Type), defTag, desc)
		}

		fmt.Fprintln(&out)
	}

	return out.Bytes(), nil
}

// hasEnvFields reports whether any field of st has an envconfig tag.
func hasEnvFields(st *ast.StructType) bool {
	for _, field := range st.Fields.List {
		if env, _ := parseTags(field.Tag); env != "-" {
			return true
		}
	}
	return false
}

// exprString converts an ast.Expr back to its source representation.
func exprString(fset *token.FileSet, expr ast.Expr) string {
	var buf bytes.Buffer
	_ = printer.Fprint(&buf, fset, expr)
	return buf.String()
}

// parseTags reads envconfig and default from a struct field tag.
func parseTags(tagLit *ast.BasicLit) (envVar, def string) {
	if tagLit == nil {
		return "-", "-"
	}
	tagValue, err := strconv.Unquote(tagLit.Value)
	if err != nil {
		return "-", "-"
	}
	tag := reflect.StructTag(tagValue)
	envVar = tag.Get("envconfig")
	def = tag.Get("default")

	if envVar == "" {
		envVar = "-"
	}
	if def == "" {
		def = "-"
	} else if !strings.Contains(def, "\n") && !strings.Contains(def, "`") {
		def = fmt.Sprintf("`%s`", def)
	}
	return envVar, def
}

// extractDoc merges Doc and Comment groups for a struct field.
func extractDoc(field *ast.Field) string {
	var parts []string

	collect := func(cg *ast.CommentGroup) {
		if cg == nil {
			return
		}
		for _, c := range cg.List {
			txt := strings.TrimSpace(strings.TrimPrefix(c.Text, "//"))
			txt = strings.Trim(txt, "/")
			parts = append(parts, txt)
		}
	}

	collect(field.Doc)
	collect(field.Comment)

	// Join with <br> to render line breaks inside markdown table cells.
	return strings.Join(parts, "<br>")
}
