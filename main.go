// Command trustprop computes propagated trust scores over a signed rating
// network and summarises them.
package main

import "github.com/papapumpkin/trustprop/cmd"

func main() {
	cmd.Execute()
}
