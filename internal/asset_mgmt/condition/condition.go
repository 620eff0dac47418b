// Package condition holds the one table that turns an observed asset
// condition into the asset's availability and the report outcome category.
package condition

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

type Availability string

const (
	Available   Availability = "Available"
	Borrowed    Availability = "Borrowed"
	UnderRepair Availability = "UnderRepair"
)

func (a Availability) Valid() bool {
	switch a {
	case Available, Borrowed, UnderRepair:
		return true
	}
	return false
}

// Outcome is the return category used by reporting.
type Outcome string

const (
	OutcomeSesuai Outcome = "Sesuai"
	OutcomeRusak  Outcome = "Rusak"
	OutcomeHilang Outcome = "Hilang"
)

func ParseOutcome(s string) (Outcome, bool) {
	for _, o := range []Outcome{OutcomeSesuai, OutcomeRusak, OutcomeHilang} {
		if strings.EqualFold(s, string(o)) {
			return o, true
		}
	}
	return "", false
}

// Label is a canonical condition value.
type Label string

const (
	Baik        Label = "Baik"
	RusakRingan Label = "Rusak Ringan"
	RusakBerat  Label = "Rusak Berat"
	Rusak       Label = "Rusak"
	Perbaikan   Label = "Perbaikan"
	Hilang      Label = "Hilang"
)

type rule struct {
	availability Availability
	outcome      Outcome
}

var table = map[Label]rule{
	Baik:        {Available, OutcomeSesuai},
	RusakRingan: {UnderRepair, OutcomeRusak},
	RusakBerat:  {UnderRepair, OutcomeRusak},
	Rusak:       {UnderRepair, OutcomeRusak},
	Perbaikan:   {UnderRepair, OutcomeRusak},
	Hilang:      {UnderRepair, OutcomeHilang},
}

// 入力表記ゆれ（英語・全角・大小文字）を吸収する
var aliases = map[string]Label{
	"baik":         Baik,
	"good":         Baik,
	"rusak ringan": RusakRingan,
	"minor damage": RusakRingan,
	"rusak berat":  RusakBerat,
	"major damage": RusakBerat,
	"rusak":        Rusak,
	"damaged":      Rusak,
	"perbaikan":    Perbaikan,
	"under repair": Perbaikan,
	"hilang":       Hilang,
	"lost":         Hilang,
}

var folder = cases.Fold()

func normalize(s string) string {
	s = width.Fold.String(s)
	s = folder.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Parse maps free text onto a canonical label.
func Parse(s string) (Label, bool) {
	l, ok := aliases[normalize(s)]
	return l, ok
}

// Labels lists the canonical labels in a stable order.
func Labels() []Label {
	return []Label{Baik, RusakRingan, RusakBerat, Rusak, Perbaikan, Hilang}
}

func (l Label) Availability() Availability { return table[l].availability }

func (l Label) Outcome() Outcome { return table[l].outcome }

func (l Label) IsGood() bool { return l.Availability() == Available }

// OutcomeOf classifies a stored condition string. Unknown text counts as damage.
func OutcomeOf(stored string) Outcome {
	if l, ok := Parse(stored); ok {
		return l.Outcome()
	}
	return OutcomeRusak
}
