// Copyright 2016 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package depspec

// NodeKind tags the variant of a spec-tree Node (spec §3 "spec-tree node
// variants").
type NodeKind int

const (
	KindAll NodeKind = iota
	KindAny
	KindConditional
	KindPackage
	KindBlock
	KindFetchableURI
	KindSimpleURI
	KindLicense
	KindNamedSet
	KindDependencyLabels
	KindURILabels
	KindPlainText
)

// TreeKind identifies one of the seven spec-tree flavors, each of which
// legalizes a different subset of NodeKinds (spec §4.1 "Each tree type
// declares which node variants are legal in it").
type TreeKind int

const (
	TreeDependency TreeKind = iota
	TreeLicense
	TreeProvide
	TreePlainText
	TreeSimpleURI
	TreeFetchableURI
	TreeSet
)

var legalKinds = map[TreeKind]map[NodeKind]bool{
	TreeDependency: {
		KindAll: true, KindAny: true, KindConditional: true, KindPackage: true,
		KindBlock: true, KindDependencyLabels: true,
	},
	TreeLicense: {
		KindAll: true, KindAny: true, KindConditional: true, KindLicense: true,
	},
	TreeProvide: {
		KindAll: true, KindConditional: true, KindPackage: true,
	},
	TreePlainText: {
		KindAll: true, KindConditional: true, KindPlainText: true,
	},
	TreeSimpleURI: {
		KindAll: true, KindConditional: true, KindSimpleURI: true,
	},
	TreeFetchableURI: {
		KindAll: true, KindAny: true, KindConditional: true, KindFetchableURI: true,
		KindURILabels: true,
	},
	TreeSet: {
		KindAll: true, KindConditional: true, KindPackage: true, KindNamedSet: true,
	},
}

// Legal reports whether kind may appear in a tree of the given TreeKind.
func (t TreeKind) Legal(kind NodeKind) bool {
	return legalKinds[t][kind]
}

// Node is the common interface for every spec-tree element.
type Node interface {
	Kind() NodeKind
	Annotations() map[string]string
}

type base struct {
	annotations map[string]string
}

func (b base) Annotations() map[string]string { return b.annotations }

// attachAnnotations returns n with ann set as its annotation map. Nodes
// are value types, so attaching after the fact means rebuilding the
// concrete value rather than mutating through the interface.
func attachAnnotations(n Node, ann map[string]string) Node {
	if len(ann) == 0 {
		return n
	}
	switch v := n.(type) {
	case AllNode:
		v.annotations = ann
		return v
	case AnyNode:
		v.annotations = ann
		return v
	case ConditionalNode:
		v.annotations = ann
		return v
	case PackageNode:
		v.annotations = ann
		return v
	case BlockNode:
		v.annotations = ann
		return v
	case FetchableURINode:
		v.annotations = ann
		return v
	case SimpleURINode:
		v.annotations = ann
		return v
	case LicenseNode:
		v.annotations = ann
		return v
	case NamedSetNode:
		v.annotations = ann
		return v
	case DependencyLabelsNode:
		v.annotations = ann
		return v
	case URILabelsNode:
		v.annotations = ann
		return v
	case PlainTextNode:
		v.annotations = ann
		return v
	default:
		return n
	}
}

// AllNode requires every child to hold; the implicit root of every parsed
// tree.
type AllNode struct {
	base
	Children []Node
}

func (AllNode) Kind() NodeKind { return KindAll }

// AnyNode ("|| ( ... )") requires at least one child to hold.
type AnyNode struct {
	base
	Children []Node
}

func (AnyNode) Kind() NodeKind { return KindAny }

// ConditionalNode ("flag? ( ... )" / "!flag? ( ... )") contributes its
// children only when Flag's enabled-ness (negated if Negate) matches the
// evaluating Choices.
type ConditionalNode struct {
	base
	Flag     string
	Negate   bool
	Children []Node
}

func (ConditionalNode) Kind() NodeKind { return KindConditional }

// PackageNode wraps a single PackageDepSpec leaf.
type PackageNode struct {
	base
	Spec PackageDepSpec
}

func (PackageNode) Kind() NodeKind { return KindPackage }

// BlockNode ("!spec" / "!!spec") forbids a PackageDepSpec from coexisting.
// Strong blocks ("!!") are fatal if violated against a required candidate;
// weak blocks ("!") may be satisfied by an in-progress upgrade (spec §4.2).
type BlockNode struct {
	base
	Spec   PackageDepSpec
	Strong bool
}

func (BlockNode) Kind() NodeKind { return KindBlock }

// FetchableURINode is a fetchable source URI, optionally renamed via the
// "X -> Y" arrow grammar.
type FetchableURINode struct {
	base
	FromURL string
	Rename  string // empty if no arrow was present
}

func (FetchableURINode) Kind() NodeKind { return KindFetchableURI }

// SimpleURINode is a non-fetchable reference URI (e.g. homepage).
type SimpleURINode struct {
	base
	URL string
}

func (SimpleURINode) Kind() NodeKind { return KindSimpleURI }

// LicenseNode names a single license.
type LicenseNode struct {
	base
	Name string
}

func (LicenseNode) Kind() NodeKind { return KindLicense }

// NamedSetNode references a named set ("@world").
type NamedSetNode struct {
	base
	Name string
}

func (NamedSetNode) Kind() NodeKind { return KindNamedSet }

// DependencyLabelsNode carries a "foo:" label group legal only in
// dependency trees (spec §4.1 "Labels ... allowed only in dependency
// trees").
type DependencyLabelsNode struct {
	base
	Labels []string
}

func (DependencyLabelsNode) Kind() NodeKind { return KindDependencyLabels }

// URILabelsNode is the fetchable-URI-tree analogue of DependencyLabelsNode.
type URILabelsNode struct {
	base
	Labels []string
}

func (URILabelsNode) Kind() NodeKind { return KindURILabels }

// PlainTextNode is an opaque text leaf (used by e.g. REQUIRED_USE-style
// plain-text trees).
type PlainTextNode struct {
	base
	Text string
}

func (PlainTextNode) Kind() NodeKind { return KindPlainText }
