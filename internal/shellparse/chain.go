package shellparse

// Segment is one simple command between chain operators. Operator is the
// chain operator that joined it to the previous segment and is empty for the
// first segment.
type Segment struct {
	Tokens   []Token
	Raw      string
	Operator string
}

// Parse tokenizes command and splits it into segments.
func Parse(command string) []Segment {
	return Split(command, Tokenize(command))
}

// Split partitions tokens at chain operators, keeping left-to-right order.
// Empty segments are dropped.
func Split(source string, tokens []Token) []Segment {
	segments := make([]Segment, 0, 1)
	current := make([]Token, 0, len(tokens))
	operator := ""
	closeSegment := func() {
		if len(current) == 0 {
			return
		}
		first := current[0]
		last := current[len(current)-1]
		segments = append(segments, Segment{
			Tokens:   current,
			Raw:      source[first.Start:last.End],
			Operator: operator,
		})
		current = make([]Token, 0, len(tokens))
	}

	for _, token := range tokens {
		if token.Kind == ChainOperator {
			closeSegment()
			operator = token.Text
			continue
		}
		current = append(current, token)
	}
	closeSegment()
	return segments
}

// Words returns the word texts of the segment, leaving out redirect operators
// and the word each one targets.
func (segment Segment) Words() []string {
	words := make([]string, 0, len(segment.Tokens))
	skipTarget := false
	for _, token := range segment.Tokens {
		if token.Kind == RedirectOperator {
			skipTarget = true
			continue
		}
		if skipTarget {
			skipTarget = false
			continue
		}
		words = append(words, token.Text)
	}
	return words
}

// PipedFrom reports whether the segment reads its input from the previous
// segment through a pipe.
func (segment Segment) PipedFrom() bool {
	return segment.Operator == "|"
}
