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

	"github.com/spf13/cobra"

	"github.com/svmlab/gosvm/svm"
)

// trainCmd represents the train command
var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "fit an SVM and report the model summary",
	Long: `Fit a kernel SVM on a libsvm-format training file and print a
summary of the fitted model: class labels, support vector counts per
class and the pairwise rho offsets.

 Sample usage:
   gosvm train --trX train.txt --svm 0 --kernel 2 --cost 10`,
	Run: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("trX") {
			cmd.Help()
			os.Exit(0)
		}
		trX, _ := cmd.Flags().GetString("trX")

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
		model, err := svm.Train(context.Background(), prob, param)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		fmt.Printf("samples: %d, features: %d\n", prob.L, maxIndex)
		fmt.Printf("support vectors: %d\n", model.NumSupportVectors())
		if !param.SVMType.IsRegression() && param.SVMType != svm.OneClass {
			fmt.Printf("classes: %v\n", model.Labels())
			fmt.Printf("per-class SV counts: %v\n", model.SupportVectorCounts())
		}
		fmt.Printf("rho: %v\n", model.Rho())
	},
}

func init() {
	rootCmd.AddCommand(trainCmd)
	trainCmd.Flags().String("trX", "", "libsvm-format training file")
	addSVMFlags(trainCmd)
}
