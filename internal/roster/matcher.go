package roster

import (
	"strings"

	"github.com/Eursukkul/attendance-service/internal/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Candidate is the identity checked against a roster, taken from the
// registration snapshot.
type Candidate struct {
	Name         string
	Email        string
	ChandaNumber string
}

func CandidateFrom(r *models.Registration) Candidate {
	return Candidate{Name: r.Name, Email: r.Email, ChandaNumber: r.ChandaNumber}
}

// Row is the logical view of one roster entry after alias resolution.
type Row struct {
	Name         string
	Email        string
	ChandaNumber string
}

var lower = cases.Lower(language.Und)

// Normalize trims, lowercases and collapses inner whitespace.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	return lower.String(strings.Join(strings.Fields(s), " "))
}

// Lookup returns the first non-blank value among aliases.
func Lookup(fields map[string]string, aliases []string) string {
	for _, alias := range aliases {
		if v, ok := fields[alias]; ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	// Headers uploaded with unexpected casing ("EMAIL", "FULLNAME").
	for _, alias := range aliases {
		for k, v := range fields {
			if strings.EqualFold(strings.TrimSpace(k), alias) && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// Resolve maps a raw CSV row onto its logical fields.
func Resolve(fields map[string]string) Row {
	name := Lookup(fields, NameHeaders)
	if name == "" {
		first := Lookup(fields, FirstNameHeaders)
		last := Lookup(fields, LastNameHeaders)
		name = strings.TrimSpace(first + " " + last)
	}
	return Row{
		Name:         name,
		Email:        Lookup(fields, EmailHeaders),
		ChandaNumber: Lookup(fields, NumberHeaders),
	}
}

// RowMatches reports whether the candidate matches one row on name, email or
// membership number. Blank candidate fields never match.
func RowMatches(row Row, c Candidate) bool {
	if n := Normalize(c.Name); n != "" && n == Normalize(row.Name) {
		return true
	}
	if e := Normalize(c.Email); e != "" && e == Normalize(row.Email) {
		return true
	}
	if num := strings.TrimSpace(c.ChandaNumber); num != "" && num == strings.TrimSpace(row.ChandaNumber) {
		return true
	}
	return false
}

// Matches reports whether any row of any upload matches the candidate.
func Matches(uploads []models.RosterUpload, c Candidate) bool {
	for _, u := range uploads {
		for _, entry := range u.Entries {
			if RowMatches(Resolve(entry.Fields), c) {
				return true
			}
		}
	}
	return false
}

// CheckRequired is the roster policy: only member registrations are checked,
// and only when the event has at least one upload.
func CheckRequired(uploadCount int, kind models.RegistrationKind) bool {
	return uploadCount > 0 && kind == models.KindMember
}
