package drift

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Riyan-420/CryptoSentinel-V2/internal/features"
	"github.com/Riyan-420/CryptoSentinel-V2/internal/models"
)

// KSTest runs a two-sample Kolmogorov-Smirnov test per column. The score is
// the mean statistic; a column drifts when its p-value is below the cutoff.
type KSTest struct {
	pValue float64
}

// NewKSTest creates the per-feature test strategy.
func NewKSTest(pValue float64) *KSTest {
	return &KSTest{pValue: pValue}
}

// Name returns the method name.
func (k *KSTest) Name() string {
	return MethodKSTest
}

// Score implements Strategy. Columns without finite values on either side are skipped.
func (k *KSTest) Score(reference, current *features.Frame, columns []string) (Outcome, error) {
	per := make(map[string]models.FeatureDrift, len(columns))
	var sum float64

	for _, name := range columns {
		refCol, _ := reference.Column(name)
		curCol, _ := current.Column(name)
		x := finiteSorted(refCol)
		y := finiteSorted(curCol)
		if len(x) == 0 || len(y) == 0 {
			continue
		}

		d := stat.KolmogorovSmirnov(x, nil, y, nil)
		p := KSPValue(d, len(x), len(y))
		per[name] = models.FeatureDrift{
			Statistic: d,
			PValue:    &p,
			Drifted:   p < k.pValue,
		}
		sum += d
	}

	if len(per) == 0 {
		return Outcome{}, fmt.Errorf("%w: no column has values on both sides", ErrStrategyUnavailable)
	}
	return Outcome{Score: sum / float64(len(per)), PerFeature: per}, nil
}

// KSPValue is the asymptotic two-sided p-value of statistic d for samples of size n and m.
func KSPValue(d float64, n, m int) float64 {
	en := math.Sqrt(float64(n) * float64(m) / float64(n+m))
	return ksSurvival((en + 0.12 + 0.11/en) * d)
}

// ksSurvival evaluates Q(λ) = 2 Σ (-1)^(j-1) exp(-2 j² λ²).
func ksSurvival(lambda float64) float64 {
	if lambda < 1e-3 {
		return 1
	}
	const maxTerms = 100
	a2 := -2 * lambda * lambda
	sign := 2.0
	var sum, prev float64
	for j := 1; j <= maxTerms; j++ {
		term := sign * math.Exp(a2*float64(j*j))
		sum += term
		if math.Abs(term) <= 1e-3*prev || math.Abs(term) <= 1e-8*sum {
			return math.Min(1, math.Max(0, sum))
		}
		sign = -sign
		prev = math.Abs(term)
	}
	// series did not converge, which only happens for tiny λ
	return 1
}

func finiteSorted(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}
