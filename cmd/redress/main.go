// redress is the returns adjudication CLI: seed orders and policy
// clauses, submit return requests, and work the manual-review queue.
//
// Usage:
//
//	redress seed    --orders <orders.yaml> [--policies <policies.yaml>]
//	redress orders
//	redress submit  --order <id> --category <name> --damage <type> --description <text> [--image <path>]...
//	redress status  --order <id>
//	redress reviews
//	redress decide  --id <return-id> --decision <APPROVED|REJECTED> [--note <text>]
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
