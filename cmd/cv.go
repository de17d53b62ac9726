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
	"context"
	"fmt"
	"os"

	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"

	"github.com/svmlab/gosvm/svm"
)

// cvCmd represents the cv command
var cvCmd = &cobra.Command{
	Use:   "cv",
	Short: "k-fold cross validation",
	Long: `Run stratified k-fold cross validation on a libsvm-format
training file and report per-fold accuracy (classification) or mean
squared error (regression) with mean and standard deviation.

 Sample usage:
   gosvm cv --trX train.txt --nFold 5 --svm 0 --cost 10`,
	Run: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("trX") {
			cmd.Help()
			os.Exit(0)
		}
		trX, _ := cmd.Flags().GetString("trX")
		nFold, _ := cmd.Flags().GetInt("nFold")

		x, y, maxIndex, err := readProblem(trX)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		param, err := svmParams(cmd, maxIndex)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		prob, err := svm.NewProblem(x, y)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		target, err := svm.CrossValidate(context.Background(), prob, param, nFold)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		scores := foldScores(prob, param, target, nFold)
		mean, _ := stats.Mean(scores)
		sd, _ := stats.StandardDeviation(scores)
		metric := "accuracy"
		if param.SVMType.IsRegression() {
			metric = "mse"
		}
		for f, s := range scores {
			fmt.Printf("fold %d %s = %g\n", f+1, metric, s)
		}
		fmt.Printf("%d-fold %s = %g +/- %g\n", nFold, metric, mean, sd)
	},
}

// foldScores reduces the held-out predictions to one score per fold,
// using the same deterministic fold assignment CrossValidate used.
func foldScores(prob *svm.Problem, param *svm.Parameters, target []float64, nFold int) []float64 {
	folds := svm.FoldAssignment(prob, param, nFold)
	correct := make([]float64, nFold)
	count := make([]float64, nFold)
	for i, f := range folds {
		count[f]++
		if param.SVMType.IsRegression() {
			correct[f] += (target[i] - prob.Y[i]) * (target[i] - prob.Y[i])
		} else if target[i] == prob.Y[i] {
			correct[f]++
		}
	}
	scores := make([]float64, nFold)
	for f := range scores {
		scores[f] = correct[f] / count[f]
	}
	return scores
}

func init() {
	rootCmd.AddCommand(cvCmd)
	cvCmd.Flags().String("trX", "", "libsvm-format training file")
	cvCmd.Flags().Int("nFold", 5, "number of folds\n")
	addSVMFlags(cvCmd)
}
