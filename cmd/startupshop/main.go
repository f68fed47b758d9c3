// Command startupshop serves the startup marketplace API and its operator tools.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
