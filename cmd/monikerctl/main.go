// Command monikerctl is a thin command-line front end over the moniker
// client.
package main

import "github.com/open-moniker/moniker-client/cmd/monikerctl/cmd"

func main() {
	cmd.Execute()
}
