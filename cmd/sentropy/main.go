/*
The sentropy binary runs the stock sentropy CLI.

The `process` subcommand needs an in-process sentiment classifier and
linguistic services, which ship separately; binaries that run it register
those collaborators via the cmd package before Execute.
*/
package main

import "github.com/Sentimentron/sentropy/cmd"

func main() {
	cmd.Execute()
}
