package types

// A Quad is a subject–predicate–object statement in a graph. The graph
// is Default for statements in the default graph.
type Quad struct {
	Subject   Term `json:"subject"`
	Predicate Term `json:"predicate"`
	Object    Term `json:"object"`
	Graph     Term `json:"graph"`
}

// NewQuad returns a quad; a zero graph term means the default graph
func NewQuad(subject, predicate, object, graph Term) Quad {
	if graph == (Term{}) {
		graph = Default
	}
	return Quad{Subject: subject, Predicate: predicate, Object: object, Graph: graph}
}

// Terms returns the four components in subject, predicate, object, graph order
func (q *Quad) Terms() [4]Term {
	return [4]Term{q.Subject, q.Predicate, q.Object, q.Graph}
}

// A Dataset is an ordered sequence of quads
type Dataset []Quad

// Dedupe returns the dataset with exact duplicates removed, keeping the
// first occurrence of each quad. The receiver is not modified.
func (d Dataset) Dedupe() Dataset {
	seen := make(map[Quad]struct{}, len(d))
	result := make(Dataset, 0, len(d))
	for _, quad := range d {
		if quad.Graph == (Term{}) {
			quad.Graph = Default
		}
		if _, has := seen[quad]; has {
			continue
		}
		seen[quad] = struct{}{}
		result = append(result, quad)
	}
	return result
}

// BlankNodes returns the distinct blank node labels of the dataset in
// first-seen order, excluding predicate positions.
func (d Dataset) BlankNodes() []string {
	seen := map[string]struct{}{}
	labels := []string{}
	for i := range d {
		for _, term := range [3]Term{d[i].Subject, d[i].Object, d[i].Graph} {
			if !term.IsBlank() {
				continue
			} else if _, has := seen[term.Value]; has {
				continue
			}
			seen[term.Value] = struct{}{}
			labels = append(labels, term.Value)
		}
	}
	return labels
}

// Relabel returns a copy of the dataset with blank node labels in
// subject, object and graph position replaced through mapping. Labels
// missing from mapping are kept.
func (d Dataset) Relabel(mapping map[string]string) Dataset {
	result := make(Dataset, len(d))
	relabel := func(term Term) Term {
		if term.IsBlank() {
			if label, has := mapping[term.Value]; has {
				term.Value = label
			}
		}
		return term
	}
	for i, quad := range d {
		result[i] = Quad{
			Subject:   relabel(quad.Subject),
			Predicate: quad.Predicate,
			Object:    relabel(quad.Object),
			Graph:     relabel(quad.Graph),
		}
	}
	return result
}
