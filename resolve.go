package pug

import (
	"context"
	"path"
	"slices"
)

// resolver splices included files into a Document and applies template
// inheritance.
type resolver struct {
	load *loader

	// chain holds the files currently being resolved, outermost first.
	chain []string
}

// resolve returns a copy of doc with every include expanded and any
// extends applied. The passed Document isn't modified.
func resolve(ctx context.Context, load *loader, doc *Document) (*Document, error) {
	r := &resolver{load: load}
	if doc.Filename != "" {
		r.chain = []string{doc.Filename}
		load.deps.add(doc.Filename)
	}
	nodes, err := r.document(ctx, doc)
	if err != nil {
		return nil, err
	}
	return &Document{Filename: doc.Filename, Nodes: nodes}, nil
}

// file resolves the named file, referenced by the directive at from.
func (r *resolver) file(ctx context.Context, name string, from Pos) ([]Node, error) {
	if start := slices.Index(r.chain, name); start >= 0 {
		chain := append(slices.Clone(r.chain[start:]), name)
		return nil, &CyclicIncludeError{Chain: chain, From: from}
	}
	doc, err := r.load.document(ctx, name, from)
	if err != nil {
		return nil, err
	}
	r.chain = append(r.chain, name)
	defer func() {
		r.chain = r.chain[:len(r.chain)-1]
	}()
	return r.document(ctx, doc)
}

func (r *resolver) document(ctx context.Context, doc *Document) ([]Node, error) {
	nodes, err := r.expand(ctx, doc.Filename, doc.Nodes)
	if err != nil {
		return nil, err
	}
	if doc.Extends == nil {
		return nodes, nil
	}
	parentName, err := r.load.src.resolve(doc.Filename, doc.Extends.Path, doc.Extends.Pos)
	if err != nil {
		return nil, err
	}
	r.depend(doc.Filename, parentName)
	parent, err := r.file(ctx, parentName, doc.Extends.Pos)
	if err != nil {
		return nil, err
	}
	logger(ctx).DebugContext(ctx, "extending template", "file", doc.Filename, "parent", parentName)

	var mixins []Node
	defs := map[string][]*NamedBlock{}
	var order []string
	for _, node := range nodes {
		switch n := node.(type) {
		case *NamedBlock:
			if _, ok := defs[n.Name]; !ok {
				order = append(order, n.Name)
			}
			defs[n.Name] = append(defs[n.Name], n)
		case *MixinDecl:
			mixins = append(mixins, n)
		}
	}
	declared := map[string]struct{}{}
	Walk(parent, func(node Node) bool {
		if block, ok := node.(*NamedBlock); ok {
			declared[block.Name] = struct{}{}
		}
		return true
	})
	for _, name := range order {
		if _, ok := declared[name]; !ok {
			return nil, syntaxErrorf(defs[name][0].Pos, "unexpected block %q: %s doesn't declare it", name, parentName)
		}
	}
	return append(mixins, applyBlocks(parent, defs)...), nil
}

// expand returns a copy of nodes with every Include replaced by the
// resolved contents of the file it names.
func (r *resolver) expand(ctx context.Context, file string, nodes []Node) ([]Node, error) {
	results := make([]Node, 0, len(nodes))
	for _, node := range nodes {
		include, ok := node.(*Include)
		if !ok {
			lists := childLists(node)
			if lists == nil {
				results = append(results, node)
				continue
			}
			expanded := make([][]Node, 0, len(lists))
			for _, list := range lists {
				children, err := r.expand(ctx, file, list)
				if err != nil {
					return nil, err
				}
				expanded = append(expanded, children)
			}
			results = append(results, withChildLists(node, expanded))
			continue
		}
		name, err := r.load.src.resolve(file, include.Path, include.Pos)
		if err != nil {
			return nil, err
		}
		r.depend(file, name)
		if path.Ext(name) != ".pug" {
			text, err := r.load.text(ctx, name, include.Pos)
			if err != nil {
				return nil, err
			}
			results = append(results, &Text{Pos: include.Pos, Segments: []Segment{{Literal: text, Raw: true}}})
			continue
		}
		included, err := r.file(ctx, name, include.Pos)
		if err != nil {
			return nil, err
		}
		logger(ctx).DebugContext(ctx, "resolved include", "file", file, "include", name, "nodes", len(included))
		results = append(results, included...)
	}
	return results, nil
}

func (r *resolver) depend(from, to string) {
	if from == "" {
		r.load.deps.add(to)
		return
	}
	r.load.deps.depend(from, to)
}

// applyBlocks returns a copy of nodes with the blocks named in defs
// replaced, appended to, or prepended to, in the order they're listed.
func applyBlocks(nodes []Node, defs map[string][]*NamedBlock) []Node {
	results := make([]Node, 0, len(nodes))
	for _, node := range nodes {
		lists := childLists(node)
		if lists == nil {
			results = append(results, node)
			continue
		}
		applied := make([][]Node, 0, len(lists))
		for _, list := range lists {
			applied = append(applied, applyBlocks(list, defs))
		}
		node = withChildLists(node, applied)
		block, ok := node.(*NamedBlock)
		if !ok {
			results = append(results, node)
			continue
		}
		children := block.Children
		for _, def := range defs[block.Name] {
			switch def.Mode {
			case BlockAppend:
				children = append(slices.Clone(children), def.Children...)
			case BlockPrepend:
				children = append(slices.Clone(def.Children), children...)
			default:
				children = def.Children
			}
		}
		results = append(results, &NamedBlock{Pos: block.Pos, Name: block.Name, Children: children})
	}
	return results
}
