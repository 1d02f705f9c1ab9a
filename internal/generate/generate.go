// Package generate produces synthetic PII datasets for training and
// evaluating the matcher. Generated data carries perfect ground truth (the
// cluster ID) and controlled error rates, which real record-linkage corpora
// never offer: with synthetic records the typo and missing-data frequency is
// an explicit knob rather than an unknown.
package generate

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/scrypster/recordlink/pkg/types"
)

// Options control dataset shape. Zero values select the defaults below,
// which give a roughly 80/20 split of unique vs. duplicate records.
type Options struct {
	Unique      int     // Number of unique identities (default 200)
	Duplicates  int     // Number of perturbed duplicate records (default 40)
	Seed        int64   // Random seed; same seed, same dataset (default 42)
	MissingRate float64 // Per-field probability of dropping a value (default 0.1)
	TypoRate    float64 // Probability of perturbing a field value (default 0.3)
}

// withDefaults fills in zero-valued options.
func (o Options) withDefaults() Options {
	if o.Unique <= 0 {
		o.Unique = 200
	}
	if o.Duplicates < 0 {
		o.Duplicates = 0
	} else if o.Duplicates == 0 {
		o.Duplicates = 40
	}
	if o.Seed == 0 {
		o.Seed = 42
	}
	if o.MissingRate <= 0 {
		o.MissingRate = 0.1
	}
	if o.TypoRate <= 0 {
		o.TypoRate = 0.3
	}
	return o
}

// droppableFields are the fields subject to random missing data. Name is
// always kept: a record with no name is not a useful linkage subject.
var droppableFields = []string{types.FieldAddress, types.FieldCity, types.FieldDateOfBirth}

// Dataset generates opts.Unique distinct identities followed by
// opts.Duplicates perturbed copies of randomly chosen identities. Duplicates
// get a fresh record ID but keep the original's cluster ID, which is the
// ground truth the matcher trains against. Name and address of a duplicate
// are perturbed with a single random character-level error at TypoRate;
// address, city, and date of birth are independently dropped at MissingRate
// on originals and duplicates alike (a record may have an address in the
// master list but be missing it in the incoming copy).
func Dataset(opts Options) ([]types.Record, error) {
	opts = opts.withDefaults()
	rng := rand.New(rand.NewSource(opts.Seed))

	// uuid.NewString reads global randomness; seed record IDs from our own
	// rng instead so the whole dataset is reproducible.
	newID := func() string {
		var raw [16]byte
		rng.Read(raw[:])
		id, err := uuid.FromBytes(raw[:])
		if err != nil {
			// 16 bytes always form a valid UUID; this cannot happen.
			panic(err)
		}
		return id.String()
	}

	records := make([]types.Record, 0, opts.Unique+opts.Duplicates)

	for i := 0; i < opts.Unique; i++ {
		id := newID()
		values := map[string]string{
			types.FieldName:        fakeName(rng),
			types.FieldAddress:     fakeAddress(rng),
			types.FieldCity:        fakeCity(rng),
			types.FieldDateOfBirth: fakeDateOfBirth(rng),
		}
		dropFields(rng, values, opts.MissingRate)
		records = append(records, types.NewRecord(id, id, values))
	}

	for i := 0; i < opts.Duplicates; i++ {
		orig := records[rng.Intn(opts.Unique)]

		values := make(map[string]string, len(orig.Fields))
		for field, v := range orig.Fields {
			if v != nil {
				values[field] = *v
			}
		}
		if name, ok := values[types.FieldName]; ok {
			values[types.FieldName] = perturb(rng, name, opts.TypoRate)
		}
		if addr, ok := values[types.FieldAddress]; ok {
			values[types.FieldAddress] = perturb(rng, addr, opts.TypoRate)
		}
		dropFields(rng, values, opts.MissingRate)

		records = append(records, types.NewRecord(newID(), orig.ClusterID, values))
	}

	return records, nil
}

// dropFields removes droppable fields independently at the given rate.
func dropFields(rng *rand.Rand, values map[string]string, rate float64) {
	for _, field := range droppableFields {
		if rng.Float64() < rate {
			delete(values, field)
		}
	}
}

// letters is the replacement/insertion alphabet for typos.
const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// perturb introduces at most one random character-level error, simulating a
// typo or OCR mistake: deletion, insertion, replacement, or an adjacent
// swap. With probability 1-rate the text is returned unchanged.
func perturb(rng *rand.Rand, text string, rate float64) string {
	if text == "" || rng.Float64() > rate {
		return text
	}

	chars := []rune(text)
	idx := rng.Intn(len(chars))

	switch rng.Intn(4) {
	case 0: // deletion
		chars = append(chars[:idx], chars[idx+1:]...)
	case 1: // insertion
		c := rune(letters[rng.Intn(len(letters))])
		chars = append(chars[:idx], append([]rune{c}, chars[idx:]...)...)
	case 2: // replacement
		chars[idx] = rune(letters[rng.Intn(len(letters))])
	case 3: // adjacent swap
		if len(chars) > 1 {
			idx2 := idx + 1
			if idx == len(chars)-1 {
				idx2 = idx - 1
			}
			chars[idx], chars[idx2] = chars[idx2], chars[idx]
		}
	}
	return string(chars)
}

// Sample value pools. Combinatorial expansion (first × last names, number ×
// street) keeps collisions between distinct identities rare even at the
// default dataset size.

var firstNames = []string{
	"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael",
	"Linda", "David", "Elizabeth", "William", "Barbara", "Richard", "Susan",
	"Joseph", "Jessica", "Thomas", "Sarah", "Charles", "Karen", "Christopher",
	"Lisa", "Daniel", "Nancy", "Matthew", "Betty", "Anthony", "Margaret",
	"Mark", "Sandra", "Donald", "Ashley", "Steven", "Kimberly", "Paul",
	"Emily", "Andrew", "Donna", "Joshua", "Michelle",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller",
	"Davis", "Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez",
	"Wilson", "Anderson", "Thomas", "Taylor", "Moore", "Jackson", "Martin",
	"Lee", "Perez", "Thompson", "White", "Harris", "Sanchez", "Clark",
	"Ramirez", "Lewis", "Robinson", "Walker", "Young", "Allen", "King",
	"Wright", "Scott", "Torres", "Nguyen", "Hill", "Flores",
}

var streetNames = []string{
	"Main St", "Oak Ave", "Maple Dr", "Cedar Ln", "Park Rd", "Elm St",
	"Washington Blvd", "Lake View Dr", "Hillcrest Ave", "Sunset Blvd",
	"River Rd", "Church St", "Highland Ave", "Forest Dr", "Meadow Ln",
	"Spring St", "Willow Way", "Chestnut St", "Franklin Ave", "Ridge Rd",
}

var cities = []string{
	"Springfield", "Riverside", "Franklin", "Greenville", "Bristol",
	"Clinton", "Fairview", "Salem", "Madison", "Georgetown", "Arlington",
	"Ashland", "Dover", "Oxford", "Jackson", "Burlington", "Manchester",
	"Milton", "Newport", "Auburn",
}

func fakeName(rng *rand.Rand) string {
	return firstNames[rng.Intn(len(firstNames))] + " " + lastNames[rng.Intn(len(lastNames))]
}

func fakeAddress(rng *rand.Rand) string {
	return fmt.Sprintf("%d %s", 1+rng.Intn(9999), streetNames[rng.Intn(len(streetNames))])
}

func fakeCity(rng *rand.Rand) string {
	return cities[rng.Intn(len(cities))]
}

func fakeDateOfBirth(rng *rand.Rand) string {
	year := 1940 + rng.Intn(70)
	month := 1 + rng.Intn(12)
	day := 1 + rng.Intn(28)
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
