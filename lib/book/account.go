package book

import (
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/sboehler/coinbook/lib/common/compare"
	"github.com/sboehler/coinbook/lib/common/dict"
)

// Account is one node of the hierarchical chart of accounts. Its path
// is colon-delimited and unique within a journal.
type Account struct {
	Path      string
	Alias     string
	Note      string
	Tags      []string
	Portfolio string

	// Balancing names the account receiving auto-generated offsetting
	// entries for every posting into this account.
	Balancing string

	// Virtual accounts are excluded from lot credit collection.
	Virtual bool

	Parent   *Account
	Children map[string]*Account
	Entries  []*Entry
}

// AccountSpec is the nested description of an account subtree.
type AccountSpec struct {
	Alias     string                 `yaml:"alias"`
	Note      string                 `yaml:"note"`
	Tags      []string               `yaml:"tags"`
	Portfolio string                 `yaml:"portfolio"`
	Balancing string                 `yaml:"balancing"`
	Virtual   bool                   `yaml:"virtual"`
	Children  map[string]AccountSpec `yaml:"children"`
}

// newAccount builds the subtree rooted at segment.
func newAccount(parent *Account, segment string, spec AccountSpec) *Account {
	path := segment
	if parent != nil {
		path = parent.Path + ":" + segment
	}
	a := &Account{
		Path:      path,
		Alias:     spec.Alias,
		Note:      spec.Note,
		Tags:      spec.Tags,
		Portfolio: spec.Portfolio,
		Balancing: spec.Balancing,
		Virtual:   spec.Virtual,
		Parent:    parent,
		Children:  make(map[string]*Account),
	}
	for _, name := range dict.SortedKeys(spec.Children, compare.Ordered[string]) {
		a.Children[name] = newAccount(a, name, spec.Children[name])
	}
	return a
}

// Segment returns the local path segment of the account.
func (a *Account) Segment() string {
	if i := strings.LastIndex(a.Path, ":"); i >= 0 {
		return a.Path[i+1:]
	}
	return a.Path
}

// Root returns the top of the account's tree.
func (a *Account) Root() *Account {
	for a.Parent != nil {
		a = a.Parent
	}
	return a
}

// IsIncome reports whether the account belongs to the income tree.
// Credits paired against income debits open cost-basis lots.
func (a *Account) IsIncome() bool {
	return strings.EqualFold(a.Root().Segment(), "income")
}

// CompareAccounts orders accounts by path.
func CompareAccounts(a1, a2 *Account) compare.Order {
	return compare.Ordered(a1.Path, a2.Path)
}

// ToObject returns the serializable projection of the account subtree.
func (a *Account) ToObject() yaml.MapSlice {
	res := yaml.MapSlice{
		{Key: "path", Value: a.Path},
	}
	if a.Alias != "" {
		res = append(res, yaml.MapItem{Key: "alias", Value: a.Alias})
	}
	if a.Note != "" {
		res = append(res, yaml.MapItem{Key: "note", Value: a.Note})
	}
	if len(a.Tags) > 0 {
		res = append(res, yaml.MapItem{Key: "tags", Value: a.Tags})
	}
	if a.Portfolio != "" {
		res = append(res, yaml.MapItem{Key: "portfolio", Value: a.Portfolio})
	}
	if a.Balancing != "" {
		res = append(res, yaml.MapItem{Key: "balancing", Value: a.Balancing})
	}
	if a.Virtual {
		res = append(res, yaml.MapItem{Key: "virtual", Value: true})
	}
	if len(a.Children) > 0 {
		children := make(yaml.MapSlice, 0, len(a.Children))
		for _, name := range dict.SortedKeys(a.Children, compare.Ordered[string]) {
			children = append(children, yaml.MapItem{Key: name, Value: a.Children[name].ToObject()})
		}
		res = append(res, yaml.MapItem{Key: "children", Value: children})
	}
	return res
}
