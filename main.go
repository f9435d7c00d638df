package main

import (
	"github.com/lehigh-university-libraries/auplugins/cmd"

	// Register publisher plugins
	_ "github.com/lehigh-university-libraries/auplugins/publishers/aip"
	_ "github.com/lehigh-university-libraries/auplugins/publishers/blackwell"
	_ "github.com/lehigh-university-libraries/auplugins/publishers/bloomsbury"
	_ "github.com/lehigh-university-libraries/auplugins/publishers/jcore"
	_ "github.com/lehigh-university-libraries/auplugins/publishers/nzma"
)

func main() {
	cmd.Execute()
}
