package crypto

import "unicode"

// Strength is UI feedback about a candidate password. It never gates
// encryption: weak passwords are discouraged, not rejected here.
type Strength struct {
	Score   int      `json:"score"` // 0..4
	Missing []string `json:"missing,omitempty"`
}

// AssessStrength scores a password by length thresholds and character
// class coverage.
func (p *EnvelopeProvider) AssessStrength(password string) Strength {
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	var missing []string
	classes := 0
	for _, c := range []struct {
		name string
		ok   bool
	}{
		{"lowercase", hasLower},
		{"uppercase", hasUpper},
		{"digit", hasDigit},
		{"symbol", hasSymbol},
	} {
		if c.ok {
			classes++
		} else {
			missing = append(missing, c.name)
		}
	}

	score := 0
	n := len(password)
	if n >= 8 {
		score++
	}
	if n >= 12 {
		score++
	}
	if n >= 16 {
		score++
	}
	if classes >= 3 {
		score++
	}
	if score > 4 {
		score = 4
	}
	if n == 0 {
		score = 0
	}

	return Strength{Score: score, Missing: missing}
}
