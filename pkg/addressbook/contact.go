// Package addressbook manages the radio's global contact list: the DMR
// user database uploaded separately from the codeplug for caller ID.
package addressbook

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// MaxDMRID is the largest 24-bit DMR ID.
const MaxDMRID = 16777215

// Field widths, in characters.
const (
	callsignWidth = 16
	nameWidth     = 16
	cityWidth     = 15
	stateWidth    = 16
	countryWidth  = 16
	remarksWidth  = 16
)

// GlobalContact is one address book entry.
type GlobalContact struct {
	DMRID    uint32 `json:"dmr_id" yaml:"dmr_id"`
	Callsign string `json:"callsign" yaml:"callsign"`
	Name     string `json:"name" yaml:"name"`
	City     string `json:"city" yaml:"city"`
	State    string `json:"state" yaml:"state"`
	Country  string `json:"country" yaml:"country"`
	Remarks  string `json:"remarks,omitempty" yaml:"remarks,omitempty"`
}

// NewGlobalContact validates the ID and truncates text fields to the
// widths the radio displays.
func NewGlobalContact(id uint64, callsign, name, city, state, country, remarks string) (GlobalContact, error) {
	if id > MaxDMRID {
		return GlobalContact{}, fmt.Errorf("invalid DMR ID: %d", id)
	}
	return GlobalContact{
		DMRID:    uint32(id),
		Callsign: truncate(callsign, callsignWidth),
		Name:     truncate(name, nameWidth),
		City:     truncate(city, cityWidth),
		State:    truncate(state, stateWidth),
		Country:  truncate(country, countryWidth),
		Remarks:  truncate(remarks, remarksWidth),
	}, nil
}

// Matches reports whether term occurs in the ID, callsign or name,
// ignoring case.
func (c GlobalContact) Matches(term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strconv.FormatUint(uint64(c.DMRID), 10), term) ||
		strings.Contains(strings.ToLower(c.Callsign), term) ||
		strings.Contains(strings.ToLower(c.Name), term)
}

// String formats the contact as "ID - CALL - Name (City, State)".
func (c GlobalContact) String() string {
	parts := []string{strconv.FormatUint(uint64(c.DMRID), 10)}
	if c.Callsign != "" {
		parts = append(parts, c.Callsign)
	}
	if c.Name != "" {
		parts = append(parts, c.Name)
	}
	var loc []string
	for _, p := range []string{c.City, c.State} {
		if p != "" {
			loc = append(loc, p)
		}
	}
	if len(loc) > 0 {
		parts = append(parts, "("+strings.Join(loc, ", ")+")")
	}
	return strings.Join(parts, " - ")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Book is an ordered collection of global contacts.
type Book struct {
	contacts []GlobalContact
}

// NewBook returns a book holding contacts, sorted by DMR ID.
func NewBook(contacts ...GlobalContact) *Book {
	b := &Book{contacts: append([]GlobalContact(nil), contacts...)}
	b.SortByID()
	return b
}

// Add appends c. Call SortByID before uploading.
func (b *Book) Add(c GlobalContact) {
	b.contacts = append(b.contacts, c)
}

// Len returns the number of contacts.
func (b *Book) Len() int { return len(b.contacts) }

// Contacts returns the contacts in their current order.
func (b *Book) Contacts() []GlobalContact { return b.contacts }

// Clear removes every contact.
func (b *Book) Clear() { b.contacts = nil }

// SortByID orders contacts by DMR ID. The radio looks callers up by
// binary search, so uploads must be sorted.
func (b *Book) SortByID() {
	sort.SliceStable(b.contacts, func(i, j int) bool {
		return b.contacts[i].DMRID < b.contacts[j].DMRID
	})
}

// Lookup finds the contact with the given ID.
func (b *Book) Lookup(id uint32) (GlobalContact, bool) {
	for _, c := range b.contacts {
		if c.DMRID == id {
			return c, true
		}
	}
	return GlobalContact{}, false
}

// Search returns contacts matching term, up to limit (0 for no limit).
func (b *Book) Search(term string, limit int) []GlobalContact {
	var out []GlobalContact
	for _, c := range b.contacts {
		if c.Matches(term) {
			out = append(out, c)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out
}

// FilterCountry returns a new book with only contacts from country,
// compared case-insensitively.
func (b *Book) FilterCountry(country string) *Book {
	out := &Book{}
	for _, c := range b.contacts {
		if strings.EqualFold(c.Country, country) {
			out.contacts = append(out.contacts, c)
		}
	}
	return out
}
