package grammar

import (
	"fmt"
	"strings"

	"github.com/dekarrin/caper/internal/util"
)

// LR0Item is an LR(0) item: a production with a dot recorded as a split
// point into Core, rather than as two separately-allocated slices. Left and
// Right just reslice Core, and advancing the dot is a single increment
// instead of a reslice-and-copy.
type LR0Item struct {
	NonTerminal string
	Core        Production
	Dot         int
}

// Left returns the symbols already matched, to the left of the dot.
func (item LR0Item) Left() Production {
	return item.Core[:item.Dot]
}

// Right returns the symbols still to be matched, to the right of the dot.
func (item LR0Item) Right() Production {
	return item.Core[item.Dot:]
}

func (item LR0Item) Equal(o any) bool {
	other, ok := o.(LR0Item)
	if !ok {
		otherPtr, ok := o.(*LR0Item)
		if !ok || otherPtr == nil {
			return false
		}
		other = *otherPtr
	}

	if item.NonTerminal != other.NonTerminal {
		return false
	}

	return util.EqualSlices([]string(item.Left()), []string(other.Left())) &&
		util.EqualSlices([]string(item.Right()), []string(other.Right()))
}

func (item LR0Item) String() string {
	nonTermPhrase := ""
	if item.NonTerminal != "" {
		nonTermPhrase = fmt.Sprintf("%s -> ", item.NonTerminal)
	}

	left := strings.Join(item.Left(), " ")
	right := strings.Join(item.Right(), " ")

	if len(left) > 0 {
		left = left + " "
	}
	if len(right) > 0 {
		right = " " + right
	}

	return fmt.Sprintf("%s%s.%s", nonTermPhrase, left, right)
}

// LR1Item is an LR0Item paired with a single lookahead terminal.
type LR1Item struct {
	LR0Item
	Lookahead string
}

func (lr1 LR1Item) Equal(o any) bool {
	other, ok := o.(LR1Item)
	if !ok {
		otherPtr, ok := o.(*LR1Item)
		if !ok || otherPtr == nil {
			return false
		}
		other = *otherPtr
	}

	return lr1.LR0Item.Equal(other.LR0Item) && lr1.Lookahead == other.Lookahead
}

// Copy returns a deep copy of lr1, cloning Core so the copy shares no
// backing array with the original item.
func (lr1 LR1Item) Copy() LR1Item {
	cp := lr1
	cp.Core = lr1.Core.Copy()
	return cp
}

func (lr1 LR1Item) String() string {
	return fmt.Sprintf("%s, %s", lr1.LR0Item.String(), lr1.Lookahead)
}

// EqualCoreSets reports whether s1 and s2 have the same LR0Item cores,
// ignoring lookaheads. This is the merge criterion Algorithm 4.59 uses to
// collapse canonical LR(1) states into LALR(1) states.
func EqualCoreSets(s1, s2 util.VSet[string, LR1Item]) bool {
	return CoreSet(s1).Equal(CoreSet(s2))
}

// CoreSet strips the lookahead off every item in s, keying the result by
// LR0Item.String() so items differing only in lookahead collapse to one
// entry.
func CoreSet(s util.VSet[string, LR1Item]) util.SVSet[LR0Item] {
	cores := util.NewSVSet[LR0Item]()
	for _, elem := range s.Elements() {
		lr1 := s.Get(elem)
		cores.Set(lr1.LR0Item.String(), lr1.LR0Item)
	}

	return cores
}

func MustParseLR0Item(s string) LR0Item {
	i, err := ParseLR0Item(s)
	if err != nil {
		panic(err.Error())
	}
	return i
}

func MustParseLR1Item(s string) LR1Item {
	i, err := ParseLR1Item(s)
	if err != nil {
		panic(err.Error())
	}
	return i
}

// ParseLR0Item parses the textual form "NONTERM -> ALPHA.BETA" used by this
// package's own test fixtures; "ε" denotes the empty-string symbol.
func ParseLR0Item(s string) (LR0Item, error) {
	sides := strings.Split(s, "->")
	if len(sides) != 2 {
		return LR0Item{}, fmt.Errorf("not an item of form 'NONTERM -> ALPHA.BETA': %q", s)
	}
	nonTerminal := strings.TrimSpace(sides[0])
	if nonTerminal == "" {
		return LR0Item{}, fmt.Errorf("empty nonterminal name not allowed for item")
	}

	productionsString := strings.TrimSpace(sides[1])
	prodStrings := strings.Split(productionsString, ".")
	if len(prodStrings) != 2 {
		return LR0Item{}, fmt.Errorf("item must have exactly one dot")
	}

	alpha := parseItemSymbols(prodStrings[0])
	beta := parseItemSymbols(prodStrings[1])

	core := make(Production, 0, len(alpha)+len(beta))
	core = append(core, alpha...)
	core = append(core, beta...)

	return LR0Item{NonTerminal: nonTerminal, Core: core, Dot: len(alpha)}, nil
}

// parseItemSymbols splits a space-separated run of item symbols, mapping the
// literal token "ε" to the empty-string symbol and dropping stray blanks.
func parseItemSymbols(s string) []string {
	var syms []string
	for _, sym := range strings.Split(strings.TrimSpace(s), " ") {
		sym = strings.TrimSpace(sym)
		if sym == "" {
			continue
		}
		if strings.ToLower(sym) == "ε" {
			sym = ""
		}
		syms = append(syms, sym)
	}
	return syms
}

func ParseLR1Item(s string) (LR1Item, error) {
	sides := strings.Split(s, ",")
	if len(sides) != 2 {
		return LR1Item{}, fmt.Errorf("not an item of form 'NONTERM -> ALPHA.BETA, a': %q", s)
	}

	item := LR1Item{}
	var err error
	item.LR0Item, err = ParseLR0Item(sides[0])
	if err != nil {
		return item, err
	}

	item.Lookahead = strings.TrimSpace(sides[1])

	return item, nil
}
