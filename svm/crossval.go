package svm

import (
	"context"
	"fmt"
	"math/rand"
)

// foldSplit permutes the sample indices into nFold contiguous blocks.
// Classification folds are stratified so each fold preserves the class
// proportions; the shuffle is driven by Parameters.Seed.
func foldSplit(prob *Problem, param *Parameters, nFold int) (perm, foldStart []int) {
	l := prob.L
	rng := rand.New(rand.NewSource(param.Seed))
	perm = make([]int, l)
	foldStart = make([]int, nFold+1)

	if param.SVMType == CSVC || param.SVMType == NuSVC {
		groups := groupClasses(prob)
		nrClass := len(groups.labels)

		// shuffle within each class, then deal class runs out to folds
		index := append([]int(nil), groups.perm...)
		for c := 0; c < nrClass; c++ {
			for i := 0; i < groups.count[c]; i++ {
				j := i + rng.Intn(groups.count[c]-i)
				index[groups.start[c]+i], index[groups.start[c]+j] = index[groups.start[c]+j], index[groups.start[c]+i]
			}
		}

		foldCount := make([]int, nFold)
		for i := 0; i < nFold; i++ {
			for c := 0; c < nrClass; c++ {
				foldCount[i] += (i+1)*groups.count[c]/nFold - i*groups.count[c]/nFold
			}
		}
		for i := 1; i <= nFold; i++ {
			foldStart[i] = foldStart[i-1] + foldCount[i-1]
		}
		fill := append([]int(nil), foldStart...)
		for c := 0; c < nrClass; c++ {
			for i := 0; i < nFold; i++ {
				begin := groups.start[c] + i*groups.count[c]/nFold
				end := groups.start[c] + (i+1)*groups.count[c]/nFold
				for j := begin; j < end; j++ {
					perm[fill[i]] = index[j]
					fill[i]++
				}
			}
		}
		return perm, foldStart
	}

	for i := 0; i < l; i++ {
		perm[i] = i
	}
	for i := 0; i < l; i++ {
		j := i + rng.Intn(l-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	for i := 0; i <= nFold; i++ {
		foldStart[i] = i * l / nFold
	}
	return perm, foldStart
}

// FoldAssignment returns the fold index each sample is held out in,
// using the same deterministic split CrossValidate uses for the given
// parameters. Useful for per-fold scoring of CrossValidate's output.
func FoldAssignment(prob *Problem, param *Parameters, nFold int) []int {
	perm, foldStart := foldSplit(prob, param, nFold)
	folds := make([]int, prob.L)
	for f := 0; f < nFold; f++ {
		for j := foldStart[f]; j < foldStart[f+1]; j++ {
			folds[perm[j]] = f
		}
	}
	return folds
}

// CrossValidate runs k-fold cross validation and returns the predicted
// label or value for every sample, indexed like prob.Y. Classification
// folds are stratified; runs with equal Parameters.Seed reproduce the
// same split.
func CrossValidate(ctx context.Context, prob *Problem, param *Parameters, nFold int) ([]float64, error) {
	if nFold < 2 {
		return nil, &ConfigError{Field: "nFold", Reason: "must be >= 2"}
	}
	if nFold > prob.L {
		return nil, &ConfigError{Field: "nFold", Reason: "more folds than samples"}
	}
	if err := param.Check(prob); err != nil {
		return nil, err
	}

	l := prob.L
	perm, foldStart := foldSplit(prob, param, nFold)

	target := make([]float64, l)
	for i := 0; i < nFold; i++ {
		begin, end := foldStart[i], foldStart[i+1]
		sub := &Problem{
			L: l - (end - begin),
			X: make([][]Node, 0, l-(end-begin)),
			Y: make([]float64, 0, l-(end-begin)),
		}
		foldParam := param
		var subW []float64
		for j := 0; j < l; j++ {
			if j >= begin && j < end {
				continue
			}
			sub.X = append(sub.X, prob.X[perm[j]])
			sub.Y = append(sub.Y, prob.Y[perm[j]])
			if param.SampleWeights != nil {
				subW = append(subW, param.SampleWeights[perm[j]])
			}
		}
		if subW != nil {
			foldParam = param.clone()
			foldParam.SampleWeights = subW
		}

		model, err := Train(ctx, sub, foldParam)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", i, err)
		}
		for j := begin; j < end; j++ {
			target[perm[j]] = model.Predict(prob.X[perm[j]])
		}
	}
	return target, nil
}
