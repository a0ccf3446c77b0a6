package pug

// Node is a single node in a parsed template. The concrete types are
// *Element, *Text, *Code, *Comment, *Doctype, *Include, *Extends,
// *NamedBlock, *Conditional, *Loop, *MixinDecl, *MixinCall, and *MixinBlock.
type Node interface {
	Position() Pos
}

// Document is a parsed template.
type Document struct {
	// Filename is the name the Document was parsed from. For files read
	// from disk it's the resolved path, for strings it's the Filename
	// option, which may be empty.
	Filename string

	// Nodes holds the top-level nodes, in document order.
	Nodes []Node

	// Extends is the template this Document extends, if any. It's always
	// nil once the Document has been resolved.
	Extends *Extends
}

// Attr is a single attribute on an Element or a MixinCall.
type Attr struct {
	Pos
	Name string

	// Value is nil for attributes without a value, like `checked`, which
	// are always rendered as present.
	Value *Expr

	// Unescaped is set for attributes written as name!=value.
	Unescaped bool
}

// Element is an HTML tag.
type Element struct {
	Pos
	Name string

	// Attrs holds the tag's attributes in the order they first appear.
	// Names are unique; when an attribute is repeated the last value
	// wins, except for class, whose values are all kept.
	Attrs []Attr

	// SelfClosing is set for tags written with a trailing slash. Void
	// elements like img are always rendered without a closing tag,
	// whether this is set or not.
	SelfClosing bool

	Children []Node
}

// Segment is a piece of a Text node: either literal text or an
// interpolated expression.
type Segment struct {
	Literal string
	Expr    *Expr

	// Raw segments are written without escaping.
	Raw bool
}

// Text is a run of text, possibly containing #{} and !{} interpolations.
type Text struct {
	Pos
	Segments []Segment
}

// Code writes the value of an expression, as in `p= title` or `!= body`.
type Code struct {
	Pos
	Expr *Expr
	Raw  bool
}

// Comment is an HTML comment. Unbuffered comments (`//-`) are parsed but
// never rendered.
type Comment struct {
	Pos
	Text     string
	Buffered bool
}

// Doctype is a doctype declaration, like `doctype html`.
type Doctype struct {
	Pos
	Value string
}

// Include splices another file into the tree. No Include nodes remain in a
// resolved Document.
type Include struct {
	Pos
	Path string
}

// Extends names the layout a Document fills in the blocks of.
type Extends struct {
	Pos
	Path string
}

// BlockMode controls how a NamedBlock combines with the block of the same
// name in the template being extended.
type BlockMode int

const (
	// BlockReplace replaces the extended template's content.
	BlockReplace BlockMode = iota

	// BlockAppend adds content after the extended template's content.
	BlockAppend

	// BlockPrepend adds content before the extended template's content.
	BlockPrepend
)

func (m BlockMode) String() string {
	switch m {
	case BlockAppend:
		return "append"
	case BlockPrepend:
		return "prepend"
	default:
		return "replace"
	}
}

// NamedBlock is a block that extending templates can override.
type NamedBlock struct {
	Pos
	Name     string
	Mode     BlockMode
	Children []Node
}

// Conditional is an if or unless statement. An `else if` chain is
// represented as a Conditional nested alone in Else.
type Conditional struct {
	Pos
	Test   *Expr
	Negate bool
	Then   []Node
	Else   []Node
}

// Loop is an each (or for) statement.
type Loop struct {
	Pos

	// Value and Key are the names each element and its index or map key
	// are bound to. Key is empty when no key name was given.
	Value string
	Key   string

	Collection *Expr
	Body       []Node

	// Else is rendered when Collection is empty or nil.
	Else []Node
}

// MixinDecl declares a reusable fragment.
type MixinDecl struct {
	Pos
	Name   string
	Params []string
	Body   []Node
}

// MixinCall renders a declared mixin, as in `+card(title)`. Its Children
// are rendered wherever the mixin's body has a bare `block`.
type MixinCall struct {
	Pos
	Name     string
	Args     []*Expr
	Attrs    []Attr
	Children []Node
}

// MixinBlock marks where a mixin renders the content it was called with.
type MixinBlock struct {
	Pos
}

// Walk calls fn for every node in nodes, depth first, in document order.
// When fn returns false, the node's children are skipped.
func Walk(nodes []Node, fn func(Node) bool) {
	for _, node := range nodes {
		if !fn(node) {
			continue
		}
		for _, children := range childLists(node) {
			Walk(children, fn)
		}
	}
}

func childLists(node Node) [][]Node {
	switch n := node.(type) {
	case *Element:
		return [][]Node{n.Children}
	case *NamedBlock:
		return [][]Node{n.Children}
	case *Conditional:
		return [][]Node{n.Then, n.Else}
	case *Loop:
		return [][]Node{n.Body, n.Else}
	case *MixinDecl:
		return [][]Node{n.Body}
	case *MixinCall:
		return [][]Node{n.Children}
	}
	return nil
}

// withChildLists returns a shallow copy of node with its child lists
// replaced by lists, in the order childLists returns them. Nodes without
// children are returned as they are.
func withChildLists(node Node, lists [][]Node) Node {
	switch n := node.(type) {
	case *Element:
		cp := *n
		cp.Children = lists[0]
		return &cp
	case *NamedBlock:
		cp := *n
		cp.Children = lists[0]
		return &cp
	case *Conditional:
		cp := *n
		cp.Then, cp.Else = lists[0], lists[1]
		return &cp
	case *Loop:
		cp := *n
		cp.Body, cp.Else = lists[0], lists[1]
		return &cp
	case *MixinDecl:
		cp := *n
		cp.Body = lists[0]
		return &cp
	case *MixinCall:
		cp := *n
		cp.Children = lists[0]
		return &cp
	}
	return node
}
