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

	"github.com/svmlab/gosvm/svm"
)

// predCmd represents the pred command
var predCmd = &cobra.Command{
	Use:   "pred",
	Short: "fit on a training file and predict a test file",
	Long: `Fit a kernel SVM on a libsvm-format training file, predict the
samples of a test file and report accuracy (classification) or mean
squared error (regression). Predictions go to stdout or --out.

 Sample usage:
   gosvm pred --trX train.txt --tsX test.txt --svm 0 --cost 10`,
	Run: func(cmd *cobra.Command, args []string) {
		if !cmd.Flags().Changed("trX") || !cmd.Flags().Changed("tsX") {
			cmd.Help()
			os.Exit(0)
		}
		trX, _ := cmd.Flags().GetString("trX")
		tsX, _ := cmd.Flags().GetString("tsX")
		outFile, _ := cmd.Flags().GetString("out")

		x, y, maxIndex, err := readProblem(trX)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		tx, ty, _, err := readProblem(tsX)
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
		if param.SVMType.IsRegression() {
			fmt.Fprintf(os.Stderr, "mean squared error = %g (%d samples)\n", sqErr/float64(n), n)
		} else {
			fmt.Fprintf(os.Stderr, "accuracy = %.4f%% (%d/%d)\n",
				100*float64(correct)/float64(n), correct, n)
		}
	},
}

func init() {
	rootCmd.AddCommand(predCmd)
	predCmd.Flags().String("trX", "", "libsvm-format training file")
	predCmd.Flags().String("tsX", "", "libsvm-format test file")
	predCmd.Flags().String("out", "", "prediction output file (default stdout)")
	addSVMFlags(predCmd)
}
