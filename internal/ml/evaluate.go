package ml

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// RegressionMetrics scores predictions against actual values.
func RegressionMetrics(actual, predicted []float64) map[string]float64 {
	n := float64(len(actual))
	if n == 0 {
		return map[string]float64{"rmse": math.NaN(), "mae": math.NaN(), "r2": math.NaN()}
	}

	var sse, sae float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sse += d * d
		sae += math.Abs(d)
	}

	mean := stat.Mean(actual, nil)
	var sst float64
	for _, v := range actual {
		sst += (v - mean) * (v - mean)
	}
	r2 := 0.0
	if sst > 0 {
		r2 = 1 - sse/sst
	}

	return map[string]float64{
		"rmse": math.Sqrt(sse / n),
		"mae":  sae / n,
		"r2":   r2,
	}
}

// ClassificationMetrics scores binary labels; precision, recall and f1 are 0 when undefined.
func ClassificationMetrics(actual, predicted []float64) map[string]float64 {
	var tp, fp, fn, correct float64
	for i := range actual {
		a, p := actual[i] >= 0.5, predicted[i] >= 0.5
		if a == p {
			correct++
		}
		switch {
		case a && p:
			tp++
		case !a && p:
			fp++
		case a && !p:
			fn++
		}
	}

	metrics := map[string]float64{"accuracy": 0, "precision": 0, "recall": 0, "f1": 0}
	if len(actual) > 0 {
		metrics["accuracy"] = correct / float64(len(actual))
	}
	if tp+fp > 0 {
		metrics["precision"] = tp / (tp + fp)
	}
	if tp+fn > 0 {
		metrics["recall"] = tp / (tp + fn)
	}
	if p, r := metrics["precision"], metrics["recall"]; p+r > 0 {
		metrics["f1"] = 2 * p * r / (p + r)
	}
	return metrics
}

// AUC is the area under the ROC curve for scores against binary labels,
// computed from the rank-sum statistic with ties sharing their average rank.
func AUC(labels, scores []float64) float64 {
	type pair struct {
		score float64
		label bool
	}
	pairs := make([]pair, len(scores))
	var positives, negatives float64
	for i := range scores {
		pairs[i] = pair{score: scores[i], label: labels[i] >= 0.5}
		if pairs[i].label {
			positives++
		} else {
			negatives++
		}
	}
	if positives == 0 || negatives == 0 {
		return 0.5
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].score < pairs[j].score })

	var rankSum float64
	for i := 0; i < len(pairs); {
		j := i
		for j < len(pairs) && pairs[j].score == pairs[i].score {
			j++
		}
		avgRank := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			if pairs[k].label {
				rankSum += avgRank
			}
		}
		i = j
	}

	return (rankSum - positives*(positives+1)/2) / (positives * negatives)
}
