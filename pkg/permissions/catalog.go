package permissions

import (
	"sort"
	"strconv"
)

// Code identifies a permission. Values are stable and must never be reassigned.
type Code uint8

const (
	Default        Code = 0
	All            Code = 1
	CreateAircraft Code = 2
	EditAircraft   Code = 3
	DeleteAircraft Code = 4
)

// CategoryCode identifies a permission category.
type CategoryCode uint8

const (
	CategoryDefault            CategoryCode = 0
	CategoryResourceManagement CategoryCode = 1
)

// Category groups permissions for display
type Category struct {
	Code       CategoryCode `json:"code"`
	Name       string       `json:"name"`
	IsObsolete bool         `json:"is_obsolete"`
}

// Permission is a single catalog entry
type Permission struct {
	Code          Code         `json:"code"`
	Name          string       `json:"name"`
	Description   string       `json:"description,omitempty"`
	IsObsolete    bool         `json:"is_obsolete"`
	VisibleToUser bool         `json:"visible_to_user"`
	Category      CategoryCode `json:"category"`
}

var categories = []Category{
	{Code: CategoryDefault, Name: "Default"},
	{Code: CategoryResourceManagement, Name: "Resource Management (Aircraft, Simulators, etc.)"},
}

var catalog = []Permission{
	{
		Code:     Default,
		Name:     "Default",
		Category: CategoryDefault,
	},
	{
		Code:     All,
		Name:     "All",
		Category: CategoryDefault,
	},
	{
		Code:          CreateAircraft,
		Name:          "CreateAircraft",
		Description:   "Users with this role can add aircraft to the organization.",
		VisibleToUser: true,
		Category:      CategoryResourceManagement,
	},
	{
		Code:          EditAircraft,
		Name:          "EditAircraft",
		Description:   "Users with this role can edit and ground aircraft.",
		VisibleToUser: true,
		Category:      CategoryResourceManagement,
	},
	{
		Code:          DeleteAircraft,
		Name:          "DeleteAircraft",
		Description:   "Users with this role can remove aircraft from the organization.",
		VisibleToUser: true,
		Category:      CategoryResourceManagement,
	},
}

var byCode = func() map[Code]Permission {
	m := make(map[Code]Permission, len(catalog))
	for _, p := range catalog {
		m[p.Code] = p
	}
	return m
}()

// Catalog returns a copy of every permission, ordered by code.
func Catalog() []Permission {
	out := make([]Permission, len(catalog))
	copy(out, catalog)
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Categories returns a copy of every category, ordered by code.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// Lookup returns the catalog entry for code.
func Lookup(code Code) (Permission, bool) {
	p, ok := byCode[code]
	return p, ok
}

// VisibleToUser returns the permissions that may be shown when editing roles.
func VisibleToUser() []Permission {
	var out []Permission
	for _, p := range Catalog() {
		if p.VisibleToUser && !p.IsObsolete {
			out = append(out, p)
		}
	}
	return out
}

// String returns the catalog name, or "Code(n)" for codes outside the catalog.
func (c Code) String() string {
	if p, ok := byCode[c]; ok {
		return p.Name
	}
	return "Code(" + strconv.Itoa(int(c)) + ")"
}

