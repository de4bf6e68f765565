package climatology

import (
	"math"

	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/siar"
)

// Pack maps calendar month (1-12) to the multi-year average of each
// variable. Only months inside the window filter that received at least one
// complete record are present.
type Pack struct {
	Eto map[int]float64
	Pe  map[int]float64
}

// Valid reports whether the pack is usable: both variables must have at
// least one month.
func (p Pack) Valid() bool {
	return len(p.Eto) > 0 && len(p.Pe) > 0
}

// Reduce averages monthly records into a climatology pack. A record only
// contributes when BOTH values are present and finite; a row carrying ETo
// without precipitation (or vice versa) is dropped entirely, so the two
// averages for a month always come from the same set of source rows.
func Reduce(records []siar.MonthlyRecord, w Window) Pack {
	type acc struct {
		etoSum float64
		peSum  float64
		count  int
	}
	byMonth := make(map[int]*acc)

	for _, rec := range records {
		if !w.Contains(rec.Month) {
			continue
		}
		if !finite(rec.Eto) || !finite(rec.Pe) {
			continue
		}
		a := byMonth[rec.Month]
		if a == nil {
			a = &acc{}
			byMonth[rec.Month] = a
		}
		a.etoSum += *rec.Eto
		a.peSum += *rec.Pe
		a.count++
	}

	pack := Pack{
		Eto: make(map[int]float64, len(byMonth)),
		Pe:  make(map[int]float64, len(byMonth)),
	}
	for month, a := range byMonth {
		pack.Eto[month] = round3(a.etoSum / float64(a.count))
		pack.Pe[month] = round3(a.peSum / float64(a.count))
	}
	return pack
}

func finite(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
