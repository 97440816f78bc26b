package pyramid

import (
	"errors"
	"strings"
)

var ErrInvalidPath = errors.New("invalid path")

type Choice string

const (
	Left  Choice = "L"
	Right Choice = "R"
)

// Path is one choice per pyramid level, root first.
type Path []Choice

// ToIndex maps a path to its node index in heap layout.
func ToIndex(p Path) int {
	idx := 0
	for _, c := range p {
		if c == Left {
			idx = idx*2 + 1
		} else {
			idx = idx*2 + 2
		}
	}
	return idx
}

// ToPath is the inverse of ToIndex.
func ToPath(index int) Path {
	var p Path
	for index > 0 {
		parent := (index - 1) / 2
		c := Right
		if index == 2*parent+1 {
			c = Left
		}
		p = append(Path{c}, p...)
		index = parent
	}
	if p == nil {
		return Path{}
	}
	return p
}

// NormalizePath uppercases raw input, keeps only L and R symbols and cuts
// the result to depth choices.
func NormalizePath(raw string, depth int) Path {
	p := Path{}
	for _, r := range strings.ToUpper(raw) {
		if len(p) == depth {
			break
		}
		switch Choice(r) {
		case Left, Right:
			p = append(p, Choice(r))
		}
	}
	return p
}

// ValidatePath checks length and alphabet.
func ValidatePath(p Path, depth int) error {
	if len(p) != depth {
		return ErrInvalidPath
	}
	for _, c := range p {
		if c != Left && c != Right {
			return ErrInvalidPath
		}
	}
	return nil
}

func (p Path) String() string {
	var b strings.Builder
	for _, c := range p {
		b.WriteString(string(c))
	}
	return b.String()
}

// Equal is true when both paths have the same choices in the same order.
func (p Path) Equal(o Path) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}
