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
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/svmlab/gosvm/linear"
)

// linCmd represents the lin command
var linCmd = &cobra.Command{
	Use:   "lin",
	Short: "large-scale linear SVM by dual coordinate descent",
	Long: `Fit a linear SVM (or SVR) on a libsvm-format training file by
dual coordinate descent, without kernel evaluations or a kernel cache.
Multi-class problems train one-vs-rest. With --tsX the test file is
predicted and accuracy or mean squared error reported.

 Sample usage:
   gosvm lin --trX train.txt --tsX test.txt --solver 0 --cost 1`,
	Run: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("trX") {
			cmd.Help()
			os.Exit(0)
		}
		trX, _ := cmd.Flags().GetString("trX")
		tsX, _ := cmd.Flags().GetString("tsX")
		outFile, _ := cmd.Flags().GetString("out")
		solver, _ := cmd.Flags().GetInt("solver")
		bias, _ := cmd.Flags().GetFloat64("bias")

		x, y, _, err := readProblem(trX)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		param := linear.NewParameters()
		param.SolverType = linear.SolverType(solver)
		param.C, _ = cmd.Flags().GetFloat64("cost")
		param.Epsilon, _ = cmd.Flags().GetFloat64("epsilon")
		param.Tolerance, _ = cmd.Flags().GetFloat64("tol")
		param.MaxIterations, _ = cmd.Flags().GetInt("maxIter")
		param.Seed, _ = cmd.Flags().GetInt64("seed")

		prob, err := linear.NewProblem(x, y, bias)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		model, err := linear.Train(context.Background(), prob, param)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "samples: %d, features: %d, classes: %d\n",
			prob.L, model.NumFeatures, model.NumClass)

		if tsX == "" {
			return
		}
		tx, ty, _, err := readProblem(tsX)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		out := os.Stdout
		if outFile != "" {
			out, err = os.Create(outFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			defer out.Close()
		}
		w := bufio.NewWriter(out)
		defer w.Flush()

		correct := 0
		sqErr := 0.0
		for i, sample := range tx {
			pred := model.Predict(sample)
			fmt.Fprintf(w, "%g\n", pred)
			if pred == ty[i] {
				correct++
			}
			sqErr += (pred - ty[i]) * (pred - ty[i])
		}
		n := len(tx)
		if model.SolverType == linear.L2LossSVRDual || model.SolverType == linear.L1LossSVRDual {
			fmt.Fprintf(os.Stderr, "mean squared error = %g (%d samples)\n", sqErr/float64(n), n)
		} else {
			fmt.Fprintf(os.Stderr, "accuracy = %.4f%% (%d/%d)\n",
				100*float64(correct)/float64(n), correct, n)
		}
	},
}

func init() {
	rootCmd.AddCommand(linCmd)
	linCmd.Flags().String("trX", "", "libsvm-format training file")
	linCmd.Flags().String("tsX", "", "libsvm-format test file")
	linCmd.Flags().String("out", "", "prediction output file (default stdout)")
	linCmd.Flags().Int("solver", 0, "solver: 0 L2-loss SVC, 1 L1-loss SVC,\n2 L2-loss SVR, 3 L1-loss SVR")
	linCmd.Flags().Float64("cost", 1, "penalty C")
	linCmd.Flags().Float64("epsilon", 0.1, "SVR tube width")
	linCmd.Flags().Float64("tol", 0.1, "stopping tolerance")
	linCmd.Flags().Float64("bias", -1, "bias feature value (negative disables)")
	linCmd.Flags().Int("maxIter", 1000, "outer iteration cap")
	linCmd.Flags().Int64("seed", 0, "permutation RNG seed")
}
