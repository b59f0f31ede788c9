package testutil

import (
	"fmt"
	"strings"
)

// LoanCSV is a small dataset with a prediction, a label and a timestamp column.
const LoanCSV = `timestamp,income,age,region,prediction,label
2024-01-01,52000,34,north,0.81,1
2024-01-02,61000,45,south,0.92,1
2024-01-03,23000,22,north,0.15,0
2024-01-04,47000,39,east,0.66,1
2024-01-05,31000,28,west,0.33,0
2024-01-06,75000,51,south,0.97,1
2024-01-07,28000,25,east,0.21,0
2024-01-08,56000,41,north,0.74,1
`

// LinearCSV builds a CSV with n rows where y = 2x and noise is a
// repeating filler column. A non-zero outlier replaces x in the last row.
func LinearCSV(n int, outlier float64) string {
	var b strings.Builder
	b.WriteString("x,noise,y\n")
	for i := 0; i < n; i++ {
		x := float64(i % 10)
		if i == n-1 && outlier != 0 {
			x = outlier
		}
		fmt.Fprintf(&b, "%g,%d,%g\n", x, (i*7)%5, 2*x)
	}
	return b.String()
}
