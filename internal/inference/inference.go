// Package inference derives normative conclusions from report measurements.
// Every function here is pure: the same readings in the same order always
// produce the same text.
package inference

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/laudo/internal/report/format"
)

// IsolationThresholdGOhm is the minimum acceptable insulation resistance.
const IsolationThresholdGOhm = 1.0

const (
	IsolationCompliant    = "Os valores de resistência de isolamento medidos estão acima do mínimo de 1,0 GΩ, indicando isolamento em condições adequadas de operação."
	IsolationNonCompliant = "Foram identificados valores de resistência de isolamento <strong>abaixo do mínimo de 1,0 GΩ</strong>, indicando isolamento fora das condições adequadas de operação."
	RunoutCompliant       = "Os valores de batimento medidos estão dentro das tolerâncias especificadas."
	RunoutNonCompliant    = "Foram identificados valores de batimento <strong>acima da tolerância especificada</strong>, sendo recomendada a correção antes do retorno à operação."
)

// Verdict is the outcome of checking one measurement family against its limit.
type Verdict int

const (
	// Undetermined means no measurement in the family carried a usable value.
	Undetermined Verdict = iota
	// Compliant means every usable value is within the limit.
	Compliant
	// NonCompliant means at least one usable value breaches the limit.
	NonCompliant
)

func (v Verdict) String() string {
	switch v {
	case Compliant:
		return "compliant"
	case NonCompliant:
		return "non_compliant"
	default:
		return "undetermined"
	}
}

type IsolationReading struct {
	Value float64
	Unit  string
}

// RunoutReading keeps both numbers exactly as they were entered.
type RunoutReading struct {
	Measured  string
	Tolerance string
}

// NormalizeIsolation converts a resistance reading to GΩ. Units other than
// MΩ and TΩ are treated as GΩ.
func NormalizeIsolation(value float64, unit string) float64 {
	switch unitPrefix(unit) {
	case "m", "mega":
		return value / 1000
	case "t", "tera":
		return value * 1000
	default:
		return value
	}
}

func unitPrefix(unit string) string {
	u := strings.ToLower(strings.Join(strings.Fields(unit), ""))
	for _, suffix := range []string{"ω", "ohms", "ohm"} {
		if strings.HasSuffix(u, suffix) {
			u = strings.TrimSuffix(u, suffix)
			break
		}
	}
	return u
}

// EvaluateIsolation applies the worst-of-N rule: one reading under the
// threshold fails the whole set.
func EvaluateIsolation(readings []IsolationReading) Verdict {
	if len(readings) == 0 {
		return Undetermined
	}
	for _, r := range readings {
		if NormalizeIsolation(r.Value, r.Unit) < IsolationThresholdGOhm {
			return NonCompliant
		}
	}
	return Compliant
}

// EvaluateRunout compares each reading with its own tolerance. Readings
// with a missing or non-numeric value or tolerance are excluded; when
// nothing is left the verdict is Undetermined.
func EvaluateRunout(readings []RunoutReading) Verdict {
	evaluated := 0
	failed := false
	for _, r := range readings {
		measured, ok := parse(r.Measured)
		if !ok {
			continue
		}
		tolerance, ok := parse(r.Tolerance)
		if !ok {
			continue
		}
		evaluated++
		if measured.GreaterThan(tolerance) {
			failed = true
		}
	}
	switch {
	case evaluated == 0:
		return Undetermined
	case failed:
		return NonCompliant
	default:
		return Compliant
	}
}

func InferIsolationConclusion(readings []IsolationReading) string {
	switch EvaluateIsolation(readings) {
	case Compliant:
		return IsolationCompliant
	case NonCompliant:
		return IsolationNonCompliant
	default:
		return ""
	}
}

func InferRunoutConclusion(readings []RunoutReading) string {
	switch EvaluateRunout(readings) {
	case Compliant:
		return RunoutCompliant
	case NonCompliant:
		return RunoutNonCompliant
	default:
		return ""
	}
}

func parse(raw string) (decimal.Decimal, bool) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, false
	}
	d, err := format.ParseDecimal(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
