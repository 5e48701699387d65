package ledger

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"strafen/internal/core"
)

// Kind tags a recorded submission.
type Kind string

const (
	KindPayment Kind = "payment"
	KindNormal  Kind = "normal"
)

// maxUnits bounds the rows written for a single payment submission. Larger
// counts are rejected with core.ErrTooManyUnits.
const maxUnits = 100

// Classification is the outcome of Classify.
type Classification struct {
	Payment bool
	Units   int
	Rule    string // name of the rule that fired
}

func (c Classification) Kind() Kind {
	if c.Payment {
		return KindPayment
	}
	return KindNormal
}

var (
	unitWord = strings.ToLower(core.UnitMarker)

	leadingCount = regexp.MustCompile(`(\d+)\s*` + unitWord)

	donationTriggers = []string{"gebracht", "mitgebracht", "gespendet", "spendiert", "spende"}

	numberWords = map[string]int{
		"ein": 1, "eine": 1, "eins": 1, "einen": 1,
		"zwei": 2, "drei": 3, "vier": 4,
		"fünf": 5, "fuenf": 5, "sechs": 6, "sieben": 7,
		"acht": 8, "neun": 9, "zehn": 10,
	}
)

// classifierInput is the normalized form every rule is evaluated against.
type classifierInput struct {
	raw    string   // lower-cased infraction, manual cost and remark
	manual string   // trimmed, lower-cased manual cost
	tokens []string // words of raw
}

func normalize(sub core.Submission) classifierInput {
	raw := strings.ToLower(strings.Join([]string{sub.Infraction, sub.ManualCost, sub.Remark}, " "))
	return classifierInput{
		raw:    raw,
		manual: strings.ToLower(strings.TrimSpace(sub.ManualCost)),
		tokens: strings.FieldsFunc(raw, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}),
	}
}

type classifyRule struct {
	name    string
	matches func(in classifierInput) bool
	extract func(in classifierInput) (Classification, error)
}

// classifyRules are evaluated in order; the first match wins. The
// manual-unit rule has to precede the donation rule: a manual "Kiste" is a
// unit debt even when the remark mentions a donation.
var classifyRules = []classifyRule{
	{
		name:    "leading-count",
		matches: func(in classifierInput) bool { return leadingCount.MatchString(in.raw) },
		extract: func(in classifierInput) (Classification, error) {
			m := leadingCount.FindStringSubmatch(in.raw)
			// The pattern only admits digits, so Atoi fails on overflow alone.
			n, err := strconv.Atoi(m[1])
			if err != nil || n > maxUnits {
				return Classification{}, fmt.Errorf("%w: %s (max %d)", core.ErrTooManyUnits, m[1], maxUnits)
			}
			return Classification{Payment: true, Units: max(n, 1), Rule: "leading-count"}, nil
		},
	},
	{
		name:    "manual-unit",
		matches: func(in classifierInput) bool { return in.manual == unitWord },
		extract: func(classifierInput) (Classification, error) {
			return Classification{Payment: false, Units: 1, Rule: "manual-unit"}, nil
		},
	},
	{
		name: "donation",
		matches: func(in classifierInput) bool {
			if !strings.Contains(in.raw, unitWord) {
				return false
			}
			for _, trigger := range donationTriggers {
				if strings.Contains(in.raw, trigger) {
					return true
				}
			}
			return false
		},
		extract: func(in classifierInput) (Classification, error) {
			return Classification{Payment: true, Units: spelledCount(in.tokens), Rule: "donation"}, nil
		},
	},
}

// Classify decides whether a submission is a payment in kind and how many
// units it covers. A count above maxUnits yields core.ErrTooManyUnits.
func Classify(sub core.Submission) (Classification, error) {
	in := normalize(sub)
	for _, r := range classifyRules {
		if r.matches(in) {
			return r.extract(in)
		}
	}
	return Classification{Payment: false, Units: 1, Rule: "default"}, nil
}

// spelledCount returns the first spelled-out number in text order, or 1.
func spelledCount(tokens []string) int {
	for _, tok := range tokens {
		if n, ok := numberWords[tok]; ok {
			return n
		}
	}
	return 1
}
