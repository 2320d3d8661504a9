// Package analyzer extracts structural references (imports, base types,
// implemented interfaces) from changed files using tree-sitter and maps
// them to candidate context files in the repository.
//
// The analyzer is a pure function over file contents: it never touches
// the network and never fails the pipeline. Files in languages it does
// not understand simply produce no candidates.
package analyzer

import (
	"context"
	"path"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// RefKind classifies a structural reference by proximity.
type RefKind int

const (
	// RefImport is a module/package import.
	RefImport RefKind = iota
	// RefSupertype is a base class, embedded type, or implemented interface.
	RefSupertype
)

// Reference is one structural dependency extracted from a source file.
type Reference struct {
	Symbol string
	Kind   RefKind
}

// Analyzer parses source files with one tree-sitter parser per language.
// It is not safe for concurrent use.
type Analyzer struct {
	goParser *sitter.Parser
	pyParser *sitter.Parser
	jsParser *sitter.Parser
	tsParser *sitter.Parser
}

// New creates an Analyzer with parsers for Go, Python, JavaScript and
// TypeScript.
func New() *Analyzer {
	a := &Analyzer{
		goParser: sitter.NewParser(),
		pyParser: sitter.NewParser(),
		jsParser: sitter.NewParser(),
		tsParser: sitter.NewParser(),
	}
	a.goParser.SetLanguage(golang.GetLanguage())
	a.pyParser.SetLanguage(python.GetLanguage())
	a.jsParser.SetLanguage(javascript.GetLanguage())
	a.tsParser.SetLanguage(typescript.GetLanguage())
	return a
}

// Close releases the parsers.
func (a *Analyzer) Close() {
	a.goParser.Close()
	a.pyParser.Close()
	a.jsParser.Close()
	a.tsParser.Close()
}

// ExtractReferences parses content as the language implied by the path
// extension and returns its structural references, deduplicated.
// Unsupported extensions yield a nil slice and nil error.
func (a *Analyzer) ExtractReferences(filePath string, content []byte) ([]Reference, error) {
	var (
		parser  *sitter.Parser
		extract func(root *sitter.Node, content []byte) []Reference
	)

	switch strings.ToLower(path.Ext(filePath)) {
	case ".go":
		parser, extract = a.goParser, extractGo
	case ".py":
		parser, extract = a.pyParser, extractPython
	case ".js", ".jsx", ".mjs":
		parser, extract = a.jsParser, extractJS
	case ".ts", ".tsx":
		parser, extract = a.tsParser, extractJS
	default:
		return nil, nil
	}

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	return dedupe(extract(tree.RootNode(), content)), nil
}

// walk visits every named node depth-first.
func walk(n *sitter.Node, visit func(*sitter.Node)) {
	visit(n)
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}

func extractGo(root *sitter.Node, content []byte) []Reference {
	var refs []Reference

	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "import_spec":
			if pathNode := n.ChildByFieldName("path"); pathNode != nil {
				refs = append(refs, Reference{
					Symbol: strings.Trim(pathNode.Content(content), `"`),
					Kind:   RefImport,
				})
			}
		case "struct_type", "interface_type":
			// Embedded types and embedded interfaces are the structural
			// supertype relationships Go has.
			refs = append(refs, goEmbeddedTypes(n, content)...)
		}
	})

	return refs
}

// goEmbeddedTypes collects type identifiers of embedded fields: a
// field_declaration with no name, or a bare type inside an interface.
func goEmbeddedTypes(n *sitter.Node, content []byte) []Reference {
	var refs []Reference

	walk(n, func(child *sitter.Node) {
		switch child.Type() {
		case "field_declaration":
			if child.ChildByFieldName("name") == nil {
				if t := child.ChildByFieldName("type"); t != nil {
					refs = append(refs, Reference{
						Symbol: baseTypeName(t.Content(content)),
						Kind:   RefSupertype,
					})
				}
			}
		case "type_elem", "interface_type_name":
			refs = append(refs, Reference{
				Symbol: baseTypeName(child.Content(content)),
				Kind:   RefSupertype,
			})
		}
	})

	return refs
}

func extractPython(root *sitter.Node, content []byte) []Reference {
	var refs []Reference

	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				if child.Type() == "dotted_name" || child.Type() == "aliased_import" {
					name := child.Content(content)
					if child.Type() == "aliased_import" {
						if dn := child.ChildByFieldName("name"); dn != nil {
							name = dn.Content(content)
						}
					}
					refs = append(refs, Reference{Symbol: name, Kind: RefImport})
				}
			}
		case "import_from_statement":
			if mod := n.ChildByFieldName("module_name"); mod != nil {
				refs = append(refs, Reference{Symbol: mod.Content(content), Kind: RefImport})
			}
		case "class_definition":
			if supers := n.ChildByFieldName("superclasses"); supers != nil {
				for i := 0; i < int(supers.NamedChildCount()); i++ {
					arg := supers.NamedChild(i)
					if arg.Type() == "identifier" || arg.Type() == "attribute" {
						refs = append(refs, Reference{
							Symbol: baseTypeName(arg.Content(content)),
							Kind:   RefSupertype,
						})
					}
				}
			}
		}
	})

	return refs
}

func extractJS(root *sitter.Node, content []byte) []Reference {
	var refs []Reference

	walk(root, func(n *sitter.Node) {
		switch n.Type() {
		case "import_statement":
			if src := n.ChildByFieldName("source"); src != nil {
				refs = append(refs, Reference{
					Symbol: strings.Trim(src.Content(content), `'"`),
					Kind:   RefImport,
				})
			}
		case "class_heritage", "extends_clause", "implements_clause":
			// The JS and TS grammars shape "extends X implements Y"
			// differently; collecting identifiers below either works
			// for both.
			refs = append(refs, heritageIdentifiers(n, content)...)
		}
	})

	return refs
}

func heritageIdentifiers(n *sitter.Node, content []byte) []Reference {
	var refs []Reference
	walk(n, func(child *sitter.Node) {
		switch child.Type() {
		case "identifier", "type_identifier":
			refs = append(refs, Reference{
				Symbol: baseTypeName(child.Content(content)),
				Kind:   RefSupertype,
			})
		}
	})
	return refs
}

// baseTypeName strips pointers, generics, and package qualifiers:
// "*pkg.Foo[T]" -> "Foo".
func baseTypeName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "*&")
	if i := strings.IndexAny(s, "[<("); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

func dedupe(refs []Reference) []Reference {
	seen := make(map[Reference]struct{}, len(refs))
	out := refs[:0]
	for _, r := range refs {
		if r.Symbol == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
