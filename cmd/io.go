// Copyright © 2020 gosvm authors
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/svmlab/gosvm/svm"
)

// readProblem parses a libsvm-format file: one sample per line,
// "label index:value index:value ..." with ascending 1-based indices.
// Returns the samples, targets and the largest feature index seen.
func readProblem(path string) ([][]svm.Node, []float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, 0, err
	}
	defer f.Close()

	var x [][]svm.Node
	var y []float64
	maxIndex := 0

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		label, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("%s:%d: bad label %q: %w", path, lineNo, fields[0], err)
		}
		nodes := make([]svm.Node, 0, len(fields)-1)
		prev := 0
		for _, field := range fields[1:] {
			sep := strings.IndexByte(field, ':')
			if sep < 0 {
				return nil, nil, 0, fmt.Errorf("%s:%d: bad feature %q", path, lineNo, field)
			}
			idx, err := strconv.Atoi(field[:sep])
			if err != nil || idx <= prev {
				return nil, nil, 0, fmt.Errorf("%s:%d: bad feature index %q", path, lineNo, field[:sep])
			}
			val, err := strconv.ParseFloat(field[sep+1:], 64)
			if err != nil {
				return nil, nil, 0, fmt.Errorf("%s:%d: bad feature value %q: %w", path, lineNo, field[sep+1:], err)
			}
			nodes = append(nodes, svm.Node{Index: idx, Value: val})
			prev = idx
		}
		if prev > maxIndex {
			maxIndex = prev
		}
		x = append(x, nodes)
		y = append(y, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, 0, err
	}
	if len(x) == 0 {
		return nil, nil, 0, fmt.Errorf("%s: no samples", path)
	}
	return x, y, maxIndex, nil
}

// addSVMFlags registers the kernel SVM hyperparameter flags shared by
// the train, pred and cv commands. Defaults follow common practice.
func addSVMFlags(cmd *cobra.Command) {
	cmd.Flags().Int("svm", 0, "svm type: 0 C-SVC, 1 nu-SVC, 2 one-class,\n3 epsilon-SVR, 4 nu-SVR")
	cmd.Flags().Int("kernel", 2, "kernel type: 0 linear, 1 polynomial,\n2 rbf, 3 sigmoid, 4 precomputed")
	cmd.Flags().Int("degree", 3, "polynomial kernel degree")
	cmd.Flags().Float64("gamma", 0, "kernel gamma (default 1/num_features)")
	cmd.Flags().Float64("coef0", 0, "polynomial/sigmoid kernel coef0")
	cmd.Flags().Float64("cost", 1, "penalty C for C-SVC and the SVRs")
	cmd.Flags().Float64("nu", 0.5, "nu for nu-SVC, one-class and nu-SVR")
	cmd.Flags().Float64("epsilon", 0.1, "epsilon-SVR tube width")
	cmd.Flags().Float64("tol", svm.DefaultTolerance, "solver stopping tolerance")
	cmd.Flags().Int("cacheMB", 200, "kernel cache size in MiB")
	cmd.Flags().Bool("noShrink", false, "disable shrinking heuristics\n(default false)")
	cmd.Flags().String("weight", "", "per-class C multipliers, e.g. \"1:2,-1:0.5\"")
	cmd.Flags().Int("t", 0, "worker threads for pairwise training\n(default all cores)")
}

// svmParams builds solver parameters from the flags addSVMFlags set up.
// gamma 0 resolves to 1/maxIndex, matching the usual file-based default.
func svmParams(cmd *cobra.Command, maxIndex int) (*svm.Parameters, error) {
	param := svm.NewParameters()
	svmType, _ := cmd.Flags().GetInt("svm")
	kernelType, _ := cmd.Flags().GetInt("kernel")
	param.SVMType = svm.SVMType(svmType)
	param.KernelType = svm.KernelType(kernelType)
	param.Degree, _ = cmd.Flags().GetInt("degree")
	param.Gamma, _ = cmd.Flags().GetFloat64("gamma")
	param.Coef0, _ = cmd.Flags().GetFloat64("coef0")
	param.C, _ = cmd.Flags().GetFloat64("cost")
	param.Nu, _ = cmd.Flags().GetFloat64("nu")
	param.Epsilon, _ = cmd.Flags().GetFloat64("epsilon")
	param.Tolerance, _ = cmd.Flags().GetFloat64("tol")
	cacheMB, _ := cmd.Flags().GetInt("cacheMB")
	param.CacheBytes = int64(cacheMB) << 20
	noShrink, _ := cmd.Flags().GetBool("noShrink")
	param.Shrinking = !noShrink
	param.Workers, _ = cmd.Flags().GetInt("t")

	if param.Gamma == 0 && maxIndex > 0 {
		param.Gamma = 1.0 / float64(maxIndex)
	}
	weight, _ := cmd.Flags().GetString("weight")
	if weight != "" {
		param.ClassWeights = map[int]float64{}
		for _, pair := range strings.Split(weight, ",") {
			sep := strings.IndexByte(pair, ':')
			if sep < 0 {
				return nil, fmt.Errorf("bad weight %q", pair)
			}
			label, err := strconv.Atoi(pair[:sep])
			if err != nil {
				return nil, fmt.Errorf("bad weight label %q: %w", pair[:sep], err)
			}
			w, err := strconv.ParseFloat(pair[sep+1:], 64)
			if err != nil {
				return nil, fmt.Errorf("bad weight value %q: %w", pair[sep+1:], err)
			}
			param.ClassWeights[label] = w
		}
	}
	return param, nil
}
