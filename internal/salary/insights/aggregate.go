// Package insights derives salary analytics from a snapshot of records.
// Every function is pure: inputs are never mutated and malformed values
// degrade to zero instead of failing.
package insights

import (
	"hash/fnv"
	"math"

	"github.com/gartstein/salaries/internal/salary/models"
)

// lakh is the hundred-thousand unit CTC figures are reported in.
const lakh = 100000

// ExperienceBucket is the average CTC of records within an experience range.
type ExperienceBucket struct {
	Label      string  `json:"label"`
	AverageCTC float64 `json:"averageCTC"`
	Count      int     `json:"count"`
}

// LocationShare is the number of records reported for one location.
type LocationShare struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
	Color    string `json:"color"`
}

// TopRole is the best-paid record of a snapshot.
type TopRole struct {
	Designation string  `json:"designation"`
	CompanyName string  `json:"companyName"`
	CTC         float64 `json:"ctc"`
}

// Summary bundles every derived figure for one snapshot.
type Summary struct {
	Total       int                `json:"total"`
	AverageCTC  float64            `json:"averageCTC"`
	Buckets     []ExperienceBucket `json:"byExperience"`
	Locations   []LocationShare    `json:"byLocation"`
	TopLocation LocationShare      `json:"topLocation"`
	TopRole     TopRole            `json:"topPayingRole"`
}

// Placeholder is shown where an empty snapshot has no winner.
const Placeholder = "-"

var bucketBounds = []struct {
	label string
	upper float64
}{
	{"0-1", 1},
	{"1-3", 3},
	{"3-5", 5},
	{"5-7", 7},
	{"7-10", 10},
	{"10+", math.Inf(1)},
}

// Palette holds the chart colors locations are mapped onto.
var Palette = []string{
	"#0088FE", "#00C49F", "#FFBB28", "#FF8042", "#8884D8",
	"#82CA9D", "#A4DE6C", "#D0ED57", "#FFC658", "#8DD1E1",
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// TotalCTC annualises the monthly figure and expresses it in lakhs,
// rounded to one decimal. Missing or corrupt amounts contribute 0.
func TotalCTC(rec *models.SalaryRecord) float64 {
	if rec == nil {
		return 0
	}
	return sanitize(round1(sanitize(rec.TotalMonthly) * 12 / lakh))
}

// AverageCTC is the mean TotalCTC of recs, 0 for an empty snapshot.
func AverageCTC(recs []*models.SalaryRecord) float64 {
	if len(recs) == 0 {
		return 0
	}
	var sum float64
	for _, r := range recs {
		sum += TotalCTC(r)
	}
	return round1(sum / float64(len(recs)))
}

// BucketByExperience returns the six fixed experience buckets in order.
// A record belongs to the first bucket whose upper bound is >= its
// experience, so ties fall to the lower bucket.
func BucketByExperience(recs []*models.SalaryRecord) []ExperienceBucket {
	sums := make([]float64, len(bucketBounds))
	out := make([]ExperienceBucket, len(bucketBounds))
	for i, b := range bucketBounds {
		out[i].Label = b.label
	}

	for _, r := range recs {
		if r == nil {
			continue
		}
		exp := float64(max(r.Experience, 0))
		for i, b := range bucketBounds {
			if exp <= b.upper {
				sums[i] += TotalCTC(r)
				out[i].Count++
				break
			}
		}
	}

	for i := range out {
		if out[i].Count > 0 {
			out[i].AverageCTC = round1(sums[i] / float64(out[i].Count))
		}
	}
	return out
}

// DistributionByLocation counts records per exact location string, in
// first-encounter order. No normalisation is applied to the names.
func DistributionByLocation(recs []*models.SalaryRecord) []LocationShare {
	index := make(map[string]int)
	out := make([]LocationShare, 0)
	for _, r := range recs {
		if r == nil {
			continue
		}
		if i, ok := index[r.Location]; ok {
			out[i].Count++
			continue
		}
		index[r.Location] = len(out)
		out = append(out, LocationShare{Location: r.Location, Count: 1})
	}
	assignColors(out)
	return out
}

// assignColors maps each location to a palette slot chosen by hashing its
// name, so the same input always yields the same colors. Collisions move to
// the next free slot while any remain.
func assignColors(shares []LocationShare) {
	used := make([]bool, len(Palette))
	free := len(Palette)
	for i := range shares {
		slot := paletteSlot(shares[i].Location)
		if free > 0 {
			for used[slot] {
				slot = (slot + 1) % len(Palette)
			}
			used[slot] = true
			free--
		}
		shares[i].Color = Palette[slot]
	}
}

func paletteSlot(label string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(label))
	return int(h.Sum32() % uint32(len(Palette)))
}

// TopLocation returns the location with the strictly greatest count; the
// first one encountered wins a tie.
func TopLocation(recs []*models.SalaryRecord) LocationShare {
	top := LocationShare{Location: Placeholder}
	for _, s := range DistributionByLocation(recs) {
		if s.Count > top.Count {
			top = s
		}
	}
	return top
}

// TopPayingRole returns the record with the greatest TotalCTC; the first
// one encountered wins a tie.
func TopPayingRole(recs []*models.SalaryRecord) TopRole {
	top := TopRole{Designation: Placeholder, CompanyName: Placeholder}
	found := false
	for _, r := range recs {
		if r == nil {
			continue
		}
		ctc := TotalCTC(r)
		if !found || ctc > top.CTC {
			top = TopRole{Designation: r.Designation, CompanyName: r.CompanyName, CTC: ctc}
			found = true
		}
	}
	return top
}

// Summarize computes every derived figure over recs.
func Summarize(recs []*models.SalaryRecord) Summary {
	return Summary{
		Total:       len(recs),
		AverageCTC:  AverageCTC(recs),
		Buckets:     BucketByExperience(recs),
		Locations:   DistributionByLocation(recs),
		TopLocation: TopLocation(recs),
		TopRole:     TopPayingRole(recs),
	}
}
